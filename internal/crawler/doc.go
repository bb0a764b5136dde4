// Package crawler discovers and archives the assets of the directory site.
//
// # Architecture
//
// A crawl is split into phases that share one explicit Session:
//
//   - Discoverer walks the homepage listing and every series listing,
//     merging (name, link) pairs into the Session.
//   - CategoryResolver maps the site's category ids to series numbers by
//     reading each category page title.
//   - Walker follows "older posts" links of one listing up to a page ceiling.
//   - DetailLoop visits every unique detail id once, optionally saving a
//     rewritten clone of the page and the card image.
//
// All network access goes through a PageFetcher (normally *fetch.Fetcher),
// which paces requests. Nothing here runs concurrently: the site is small
// and polite sequential crawling is required.
//
// # Usage
//
//	session := crawler.NewSession(base, logger)
//	d := crawler.NewDiscoverer(fetcher, base, crawler.WithDiscoveryLogger(logger))
//	err := d.Discover(ctx, session)
//	loop := crawler.NewDetailLoop(fetcher, base, crawler.WithClone(store))
//	result, err := loop.Run(ctx, session)
package crawler

// Package parser extracts archive data from the directory's HTML pages.
//
// Listing pages yield (name, detail link) pairs. The site's markup is
// inconsistent across years, so names are resolved in two passes: post
// blocks with an h2.entry-title heading first, then every remaining
// detail link through an ordered chain of NameStrategy values (sibling
// heading, nearest preceding heading, "ASSET NAME:" text).
//
// Detail pages yield the fields of a model.Asset. Category pages yield a
// series number from their title, and every listing page may carry an
// "older posts" link used for pagination.
//
// Selector queries use goquery; the backwards document walk works on the
// underlying golang.org/x/net/html nodes.
package parser

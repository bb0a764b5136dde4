package crawler

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/nao1215/rpdarchive/internal/clone"
	"github.com/nao1215/rpdarchive/internal/model"
)

// MirrorListings saves the homepage and the pretty series listing pages
// (/series-1/ .. /series-36/) into the clone. Pages that fail to load are
// skipped. It returns the paths written and an error only on cancellation.
func MirrorListings(ctx context.Context, fetcher PageFetcher, base *url.URL, store *clone.Store, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var saved []string

	if resp, err := fetcher.Get(ctx, HomeURL(base)); err == nil {
		if path, err := store.SaveIndex(resp.Body); err == nil {
			saved = append(saved, path)
		} else {
			logger.Warn("clone save failed", "page", "index", "error", err)
		}
	} else if ctx.Err() != nil {
		return saved, ctx.Err()
	} else {
		logger.Warn("homepage unavailable for clone", "error", err)
	}

	for n := model.MinSeries; n <= model.MaxSeries; n++ {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		pageURL := SeriesPageURL(base, n)
		resp, err := fetcher.Get(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return saved, ctx.Err()
			}
			logger.Debug("series page unavailable for clone", "series", n, "url", pageURL, "error", err)
			continue
		}
		path, err := store.SaveSeries(n, resp.Body)
		if err != nil {
			logger.Warn("clone save failed", "series", n, "error", err)
			continue
		}
		saved = append(saved, path)
	}
	return saved, nil
}

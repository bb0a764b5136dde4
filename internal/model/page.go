package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Page is a fetched detail page as stored in the run history database.
// The raw body is not persisted, only its hash, so that repeated runs can
// tell whether a page changed since it was last archived.
type Page struct {
	// PID is the detail identifier.
	PID string

	// AssetName is the name the page was archived under.
	AssetName string

	// URL is the fetched URL.
	URL string

	// StatusCode is the HTTP response status code.
	StatusCode int

	// Title is the page's <title> text.
	Title string

	// Raw is the response body. Not stored.
	Raw []byte

	// Hash is the SHA-256 of Raw in hex.
	Hash string

	// FetchedAt is when the page was fetched.
	FetchedAt time.Time
}

// ComputeHash sets Hash from Raw. An empty body yields an empty hash.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

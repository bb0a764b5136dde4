package model

// Asset is one archived card. Optional fields are pointers so that the
// index file carries an explicit null for every value the page did not
// yield. Field order is the key order of rpd-index.json.
type Asset struct {
	// AssetName is the uppercase card name, unique in the archive.
	AssetName string `json:"asset_name"`

	// AmountIssued is the number of tokens issued, from "AMOUNT ISSUED: n".
	AmountIssued *int64 `json:"amount_issued"`

	// Created is the free-form "Month Year" creation date.
	Created *string `json:"created"`

	// BlockscanURL points at the asset on the ledger explorer.
	BlockscanURL *string `json:"blockscan_url"`

	// PrevP and NextP are the detail ids linked as previous/next.
	PrevP *string `json:"prev_p"`
	NextP *string `json:"next_p"`

	// ImageURL is the absolute URL of the card image.
	ImageURL *string `json:"image_url"`

	// ImageLocalPath is set only after the image was saved, relative to the
	// archive root (pepes/<name>.<ext>).
	ImageLocalPath *string `json:"image_local_path"`

	// PID is the site's numeric detail identifier, the dedup key.
	PID string `json:"p_id"`

	// RPDURL is the canonical detail page URL.
	RPDURL string `json:"rpd_url"`

	// Series is the series number 1..36, omitted when unknown.
	Series *int `json:"series,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

package model

// SupplyEntry holds ledger supply figures for one asset. Quantities are
// decimal strings as returned by the ledger API; Issued and Circulating
// are nil when the API had no data.
type SupplyEntry struct {
	Issued      *string `json:"issued"`
	Destroyed   string  `json:"destroyed"`
	Circulating *string `json:"circulating"`
	Divisible   *bool   `json:"divisible,omitempty"`
	Note        string  `json:"note,omitempty"`
}

// NoteAPIMissing marks an entry the ledger API could not resolve.
const NoteAPIMissing = "API missing"

// Missing reports whether the entry lacks ledger data and should be
// fetched again by a merge run.
func (e SupplyEntry) Missing() bool {
	return e.Issued == nil || *e.Issued == "" || e.Note == NoteAPIMissing
}

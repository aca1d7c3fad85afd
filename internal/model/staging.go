package model

import "time"

// Source is a registry row for one ingestion origin. Seeded at migration
// time; the runner owns the last-run fields.
type Source struct {
	ID               int        `json:"id"`
	Name             string     `json:"name"`
	FetcherModule    string     `json:"fetcher_module"`
	FormatterModule  string     `json:"formatter_module,omitempty"`
	Enabled          bool       `json:"enabled"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	LastRunStatus    RunOutcome `json:"last_run_status,omitempty"`
	LastRunCount     int        `json:"last_run_count"`
	ConfidenceWeight float64    `json:"confidence_weight"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RawEntry is the immutable capture of one scraped upstream row. The
// fingerprint is unique across the table, so re-scraping unchanged data is a
// no-op.
type RawEntry struct {
	ID          int         `json:"id"`
	SourceID    int         `json:"source_id"`
	RawName     string      `json:"raw_name"`
	RawAddress  string      `json:"raw_address"`
	Fingerprint string      `json:"fingerprint"`
	ScrapedAt   time.Time   `json:"scraped_at"`
	ParseStatus ParseStatus `json:"parse_status"`
}

// Candidate is the parsed, normalized form of a raw entry awaiting
// verification and promotion. A candidate with a non-empty LocationID is
// resolved and is never re-geocoded.
type Candidate struct {
	ID             int                `json:"id"`
	RawEntryID     int                `json:"raw_entry_id"`
	Name           string             `json:"name"`
	Street         string             `json:"street,omitempty"` // uppercase, may be empty (wiki rows)
	City           string             `json:"city"`
	State          string             `json:"state"` // 2-letter
	Zip            string             `json:"zip,omitempty"`
	Country        string             `json:"country"`
	Lat            *float64           `json:"lat,omitempty"`
	Lon            *float64           `json:"lon,omitempty"`
	GeoConfidence  *float64           `json:"geo_confidence,omitempty"`
	GeoMatchedName string             `json:"geo_matched_name,omitempty"`
	Status         VerificationStatus `json:"status"`
	LocationID     string             `json:"location_id,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// HasCoords reports whether both coordinates are present.
func (c *Candidate) HasCoords() bool {
	return c.Lat != nil && c.Lon != nil
}

// RejectedEntry records why a raw entry did not become a location.
type RejectedEntry struct {
	ID         int          `json:"id"`
	RawEntryID int          `json:"raw_entry_id"`
	Reason     RejectReason `json:"reason"`
	Detail     string       `json:"detail,omitempty"`
	Reviewed   bool         `json:"reviewed"`
	CreatedAt  time.Time    `json:"created_at"`
}

package model

import "time"

// Location is the canonical rink record. The 36-character identifier is
// either minted locally or adopted from the peer system so downstream
// references stay aligned.
type Location struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Address    string         `json:"address,omitempty"`
	City       string         `json:"city"`
	State      string         `json:"state"`   // 2-letter
	Country    string         `json:"country"` // 2-letter, default US
	Zip        string         `json:"zip"`
	URL        string         `json:"url,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Timezone   string         `json:"timezone,omitempty"`
	Status     LocationStatus `json:"status"`
	DataSource string         `json:"data_source,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// LocationSource links a location to a source that has observed it. At most
// one row exists per (location, source); re-observation refreshes
// LastSeenAt.
type LocationSource struct {
	ID          int        `json:"id"`
	LocationID  string     `json:"location_id"`
	SourceID    int        `json:"source_id"`
	CandidateID *int       `json:"candidate_id,omitempty"`
	FirstSeenAt *time.Time `json:"first_seen_at,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
	IsPresent   bool       `json:"is_present"`
}

// LocationAlias preserves a prior or alternate name for a location so old
// names still resolve under search.
type LocationAlias struct {
	ID             int        `json:"id"`
	LocationID     string     `json:"location_id"`
	AliasName      string     `json:"alias_name"`
	EffectiveFrom  *time.Time `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time `json:"effective_until,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

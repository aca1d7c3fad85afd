package model

// FetchResult is the uniform row shape every source fetcher emits. Name and
// Address are the raw upstream strings; per-source additions ride in Extras.
type FetchResult struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Extras  Extras `json:"extras"`
}

// Extras carries the typed per-source additions to a fetched row. Wiki rows
// fill City/State (and have no street address); the facility finder and the
// peer API fill Zip/Lat/Lon, which lets those candidates verify without a
// geocoder call.
type Extras struct {
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	County    string   `json:"county,omitempty"`
	Club      string   `json:"club,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Website   string   `json:"website,omitempty"`
	IsDefunct bool     `json:"is_defunct,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
}

// HasCoords reports whether the source supplied both coordinates.
func (e Extras) HasCoords() bool {
	return e.Lat != nil && e.Lon != nil
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/source"
	"github.com/skatetrax/ice-maker/internal/store"
	"github.com/skatetrax/ice-maker/pkg/skatetrax"
)

// sourceRun records one UpdateSourceRun call.
type sourceRun struct {
	sourceID int
	status   model.RunOutcome
	count    int
}

// mockStore implements store.Store in memory. Inserts assign sequential ids
// the way the real schema does, and the query methods mirror the SQL
// filters, so pipeline flows run against it unchanged.
type mockStore struct {
	sources    []model.Source
	rawEntries []*model.RawEntry
	candidates []*model.Candidate
	rejections []*model.RejectedEntry
	locations  []*model.Location
	links      []*model.LocationSource
	aliases    []*model.LocationAlias

	sourceRuns          []sourceRun
	verificationUpdates int
}

func (m *mockStore) GetSourceByName(_ context.Context, name string) (*model.Source, error) {
	for i := range m.sources {
		if m.sources[i].Name == name {
			return &m.sources[i], nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListSources(_ context.Context) ([]model.Source, error) {
	return m.sources, nil
}

func (m *mockStore) ListEnabledSources(_ context.Context) ([]model.Source, error) {
	var out []model.Source
	for _, s := range m.sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateSourceRun(_ context.Context, sourceID int, _ time.Time, status model.RunOutcome, count int) error {
	m.sourceRuns = append(m.sourceRuns, sourceRun{sourceID: sourceID, status: status, count: count})
	return nil
}

func (m *mockStore) SeedSources(_ context.Context) (int, error) { return 0, nil }

func (m *mockStore) CheckAndInsertRaw(_ context.Context, sourceID int, rawName, rawAddress, fingerprint string) (*model.RawEntry, bool, error) {
	for _, r := range m.rawEntries {
		if r.Fingerprint == fingerprint {
			return r, false, nil
		}
	}
	raw := &model.RawEntry{
		ID:          len(m.rawEntries) + 1,
		SourceID:    sourceID,
		RawName:     rawName,
		RawAddress:  rawAddress,
		Fingerprint: fingerprint,
		ScrapedAt:   time.Now().UTC(),
		ParseStatus: model.ParsePending,
	}
	m.rawEntries = append(m.rawEntries, raw)
	return raw, true, nil
}

func (m *mockStore) GetRawEntry(_ context.Context, id int) (*model.RawEntry, error) {
	for _, r := range m.rawEntries {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockStore) UpdateRawParseStatus(_ context.Context, rawEntryID int, status model.ParseStatus) error {
	for _, r := range m.rawEntries {
		if r.ID == rawEntryID {
			r.ParseStatus = status
		}
	}
	return nil
}

func (m *mockStore) CountRawEntries(_ context.Context) (int, error) {
	return len(m.rawEntries), nil
}

func (m *mockStore) InsertCandidate(_ context.Context, c *model.Candidate) error {
	c.ID = len(m.candidates) + 1
	m.candidates = append(m.candidates, c)
	return nil
}

func (m *mockStore) GetCandidate(_ context.Context, id int) (*model.Candidate, error) {
	for _, c := range m.candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockStore) candidatesWhere(keep func(*model.Candidate) bool) []*model.Candidate {
	var out []*model.Candidate
	for _, c := range m.candidates {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockStore) VerifiedCandidates(_ context.Context) ([]*model.Candidate, error) {
	return m.candidatesWhere(func(c *model.Candidate) bool {
		switch c.Status {
		case model.StatusGeocodeMatch, model.StatusHumanApproved, model.StatusSourceVerified:
			return true
		}
		return false
	}), nil
}

func (m *mockStore) UnverifiedCandidates(_ context.Context) ([]*model.Candidate, error) {
	return m.candidatesWhere(func(c *model.Candidate) bool {
		return c.Status == model.StatusUnverified
	}), nil
}

func (m *mockStore) PendingGeocode(ctx context.Context, sourceName string) ([]*model.Candidate, error) {
	if sourceName == "" {
		return m.UnverifiedCandidates(ctx)
	}
	return m.candidatesWhere(func(c *model.Candidate) bool {
		if c.Status != model.StatusUnverified {
			return false
		}
		for _, r := range m.rawEntries {
			if r.ID != c.RawEntryID {
				continue
			}
			for _, s := range m.sources {
				if s.ID == r.SourceID {
					return s.Name == sourceName
				}
			}
		}
		return false
	}), nil
}

func (m *mockStore) PromotableCandidates(_ context.Context) ([]*model.Candidate, error) {
	return m.candidatesWhere(func(c *model.Candidate) bool {
		if c.LocationID != "" {
			return false
		}
		return c.Status == model.StatusGeocodeMatch || c.Status == model.StatusSourceVerified
	}), nil
}

func (m *mockStore) DuplicateCandidates(_ context.Context) ([]*model.Candidate, error) {
	return m.candidatesWhere(func(c *model.Candidate) bool {
		return c.Status == model.StatusDuplicate && c.LocationID == ""
	}), nil
}

func (m *mockStore) StreetlessUnverified(_ context.Context) ([]*model.Candidate, error) {
	return m.candidatesWhere(func(c *model.Candidate) bool {
		return c.Status == model.StatusUnverified && c.Street == "" && c.LocationID == ""
	}), nil
}

func (m *mockStore) UpdateCandidateStatus(_ context.Context, id int, status model.VerificationStatus) error {
	for _, c := range m.candidates {
		if c.ID == id {
			c.Status = status
		}
	}
	return nil
}

func (m *mockStore) UpdateCandidateVerification(_ context.Context, c *model.Candidate) error {
	m.verificationUpdates++
	for i := range m.candidates {
		if m.candidates[i].ID == c.ID {
			m.candidates[i] = c
		}
	}
	return nil
}

func (m *mockStore) SetCandidateLocation(_ context.Context, candidateID int, locationID string) error {
	for _, c := range m.candidates {
		if c.ID == candidateID {
			c.LocationID = locationID
		}
	}
	return nil
}

func (m *mockStore) MoveCandidates(_ context.Context, fromLocationID, toLocationID string) (int, error) {
	n := 0
	for _, c := range m.candidates {
		if c.LocationID == fromLocationID {
			c.LocationID = toLocationID
			n++
		}
	}
	return n, nil
}

func (m *mockStore) ResetFailedGeocodes(_ context.Context) (int, error) {
	n := 0
	for _, c := range m.candidates {
		if c.Status != model.StatusGeocodeFailed {
			continue
		}
		c.Lat, c.Lon, c.GeoConfidence = nil, nil, nil
		c.GeoMatchedName = ""
		c.Zip = ""
		c.Status = model.StatusUnverified
		n++
	}
	return n, nil
}

func (m *mockStore) CandidateStatusCounts(_ context.Context) (map[model.VerificationStatus]int, error) {
	counts := make(map[model.VerificationStatus]int)
	for _, c := range m.candidates {
		counts[c.Status]++
	}
	return counts, nil
}

func (m *mockStore) InsertRejection(_ context.Context, r *model.RejectedEntry) error {
	r.ID = len(m.rejections) + 1
	m.rejections = append(m.rejections, r)
	return nil
}

func (m *mockStore) FirstRejectionForRaw(_ context.Context, rawEntryID int, reasons []model.RejectReason) (*model.RejectedEntry, error) {
	for _, r := range m.rejections {
		if r.RawEntryID != rawEntryID {
			continue
		}
		for _, reason := range reasons {
			if r.Reason == reason {
				return r, nil
			}
		}
	}
	return nil, nil
}

func (m *mockStore) CountUnreviewedRejections(_ context.Context) (int, error) {
	n := 0
	for _, r := range m.rejections {
		if !r.Reviewed {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) GetLocation(_ context.Context, id string) (*model.Location, error) {
	for _, loc := range m.locations {
		if loc.ID == id {
			return loc, nil
		}
	}
	return nil, nil
}

func (m *mockStore) InsertLocation(_ context.Context, loc *model.Location) error {
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now().UTC()
	}
	m.locations = append(m.locations, loc)
	return nil
}

func (m *mockStore) ActiveLocations(_ context.Context) ([]model.Location, error) {
	var out []model.Location
	for _, loc := range m.locations {
		if loc.Status == model.LocationActive {
			out = append(out, *loc)
		}
	}
	return out, nil
}

func (m *mockStore) MatchableLocations(_ context.Context) ([]model.Location, error) {
	var out []model.Location
	for _, loc := range m.locations {
		if loc.Status == model.LocationMerged || loc.Status == model.LocationDisabled {
			continue
		}
		out = append(out, *loc)
	}
	return out, nil
}

func (m *mockStore) SearchLocations(_ context.Context, _, _ string) ([]store.LocationSummary, error) {
	return nil, nil
}

func (m *mockStore) FindLocationsByName(_ context.Context, _ string, _ bool) ([]model.Location, error) {
	return nil, nil
}

func (m *mockStore) LocationsWithSourceCounts(_ context.Context) ([]store.LocationSummary, error) {
	return nil, nil
}

func (m *mockStore) LocationCoordinates(_ context.Context) (map[string]store.Coordinates, error) {
	return nil, nil
}

func (m *mockStore) UpdateLocationStatus(_ context.Context, id string, status model.LocationStatus) error {
	for _, loc := range m.locations {
		if loc.ID == id {
			loc.Status = status
		}
	}
	return nil
}

func (m *mockStore) UpdateLocationName(_ context.Context, id, name string) error {
	for _, loc := range m.locations {
		if loc.ID == id {
			loc.Name = name
		}
	}
	return nil
}

func (m *mockStore) CountLocations(_ context.Context) (int, error) {
	return len(m.locations), nil
}

func (m *mockStore) UpsertLocationSource(_ context.Context, ls *model.LocationSource) error {
	for _, existing := range m.links {
		if existing.LocationID == ls.LocationID && existing.SourceID == ls.SourceID {
			existing.LastSeenAt = ls.LastSeenAt
			existing.IsPresent = true
			return nil
		}
	}
	cp := *ls
	cp.ID = len(m.links) + 1
	m.links = append(m.links, &cp)
	return nil
}

func (m *mockStore) GetLocationSource(_ context.Context, locationID string, sourceID int) (*model.LocationSource, error) {
	for _, ls := range m.links {
		if ls.LocationID == locationID && ls.SourceID == sourceID {
			return ls, nil
		}
	}
	return nil, nil
}

func (m *mockStore) LocationSourcesFor(_ context.Context, locationID string) ([]model.LocationSource, error) {
	var out []model.LocationSource
	for _, ls := range m.links {
		if ls.LocationID == locationID {
			out = append(out, *ls)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateLocationSourceWindow(_ context.Context, id int, firstSeen, lastSeen *time.Time) error {
	for _, ls := range m.links {
		if ls.ID == id {
			ls.FirstSeenAt = firstSeen
			ls.LastSeenAt = lastSeen
		}
	}
	return nil
}

func (m *mockStore) MoveLocationSource(_ context.Context, id int, toLocationID string) error {
	for _, ls := range m.links {
		if ls.ID == id {
			ls.LocationID = toLocationID
		}
	}
	return nil
}

func (m *mockStore) DeleteLocationSource(_ context.Context, id int) error {
	for i, ls := range m.links {
		if ls.ID == id {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockStore) InsertLocationAlias(_ context.Context, alias *model.LocationAlias) error {
	alias.ID = len(m.aliases) + 1
	m.aliases = append(m.aliases, alias)
	return nil
}

func (m *mockStore) AliasExists(_ context.Context, locationID, aliasName string) (bool, error) {
	for _, a := range m.aliases {
		if a.LocationID == locationID && a.AliasName == aliasName {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Ping(_ context.Context) error    { return nil }
func (m *mockStore) Close() error                    { return nil }

// mockFetcher implements source.Fetcher with canned rows.
type mockFetcher struct {
	name    string
	results []model.FetchResult
	err     error
	calls   int
}

func (m *mockFetcher) Name() string { return m.name }

func (m *mockFetcher) Fetch(_ context.Context) ([]model.FetchResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockRegistry resolves exactly one fetcher by its module name.
type mockRegistry struct {
	fetcher *mockFetcher
}

func (m *mockRegistry) Get(name string) (source.Fetcher, error) {
	if m.fetcher == nil || m.fetcher.name != name {
		return nil, fmt.Errorf("unknown fetcher module %q", name)
	}
	return m.fetcher, nil
}

// mockVerifier stamps a canned verification outcome onto candidates the
// way the real geocode verifier does. byName overrides the default status
// for individual candidates.
type mockVerifier struct {
	status     model.VerificationStatus
	byName     map[string]model.VerificationStatus
	lat, lon   float64
	confidence float64
	matched    string
	zip        string
	err        error
	calls      int
}

func (m *mockVerifier) Verify(_ context.Context, cand *model.Candidate) (model.VerificationStatus, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	status := m.status
	if s, ok := m.byName[cand.Name]; ok {
		status = s
	}
	cand.Status = status
	if status == model.StatusGeocodeFailed {
		return status, nil
	}
	lat, lon, conf := m.lat, m.lon, m.confidence
	cand.Lat, cand.Lon = &lat, &lon
	cand.GeoConfidence = &conf
	cand.GeoMatchedName = m.matched
	if m.zip != "" {
		cand.Zip = m.zip
	}
	return status, nil
}

// mockPeer implements PeerDirectory.
type mockPeer struct {
	rinks []skatetrax.Rink
	err   error
}

func (m *mockPeer) Rinks(_ context.Context) ([]skatetrax.Rink, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rinks, nil
}

// mockPushTarget implements PushTarget, recording upserted rows.
type mockPushTarget struct {
	hasTable  bool
	rinkNames map[string]string
	upserted  []skatetrax.PushRow
}

func (m *mockPushTarget) HasLocationsTable(_ context.Context) (bool, error) {
	return m.hasTable, nil
}

func (m *mockPushTarget) RinkNames(_ context.Context) (map[string]string, error) {
	return m.rinkNames, nil
}

func (m *mockPushTarget) UpsertRinks(_ context.Context, rows []skatetrax.PushRow) (int64, error) {
	m.upserted = append(m.upserted, rows...)
	return int64(len(rows)), nil
}

// mockIceTime implements IceTimeReader.
type mockIceTime struct {
	rows []skatetrax.IceTimeRow
	err  error
}

func (m *mockIceTime) IceTimeByRink(_ context.Context) ([]skatetrax.IceTimeRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

package store

import (
	"context"
	"time"

	"github.com/skatetrax/ice-maker/internal/model"
)

// LocationSummary pairs a location with the number of sources attesting it.
type LocationSummary struct {
	Location    model.Location
	SourceCount int
}

// Coordinates is the best-known point for a promoted location, read back
// from its highest-confidence candidate. Locations store no lat/lon of
// their own.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Store is the persistence surface for the staging pipeline and the
// location directory.
type Store interface {
	// Sources
	GetSourceByName(ctx context.Context, name string) (*model.Source, error)
	ListSources(ctx context.Context) ([]model.Source, error)
	ListEnabledSources(ctx context.Context) ([]model.Source, error)
	UpdateSourceRun(ctx context.Context, sourceID int, at time.Time, status model.RunOutcome, count int) error
	SeedSources(ctx context.Context) (int, error)

	// Raw entries
	CheckAndInsertRaw(ctx context.Context, sourceID int, rawName, rawAddress, fingerprint string) (*model.RawEntry, bool, error)
	GetRawEntry(ctx context.Context, id int) (*model.RawEntry, error)
	UpdateRawParseStatus(ctx context.Context, rawEntryID int, status model.ParseStatus) error
	CountRawEntries(ctx context.Context) (int, error)

	// Candidates
	InsertCandidate(ctx context.Context, c *model.Candidate) error
	GetCandidate(ctx context.Context, id int) (*model.Candidate, error)
	VerifiedCandidates(ctx context.Context) ([]*model.Candidate, error)
	UnverifiedCandidates(ctx context.Context) ([]*model.Candidate, error)
	PendingGeocode(ctx context.Context, sourceName string) ([]*model.Candidate, error)
	PromotableCandidates(ctx context.Context) ([]*model.Candidate, error)
	DuplicateCandidates(ctx context.Context) ([]*model.Candidate, error)
	StreetlessUnverified(ctx context.Context) ([]*model.Candidate, error)
	UpdateCandidateStatus(ctx context.Context, id int, status model.VerificationStatus) error
	UpdateCandidateVerification(ctx context.Context, c *model.Candidate) error
	SetCandidateLocation(ctx context.Context, candidateID int, locationID string) error
	MoveCandidates(ctx context.Context, fromLocationID, toLocationID string) (int, error)
	ResetFailedGeocodes(ctx context.Context) (int, error)
	CandidateStatusCounts(ctx context.Context) (map[model.VerificationStatus]int, error)

	// Rejections
	InsertRejection(ctx context.Context, r *model.RejectedEntry) error
	FirstRejectionForRaw(ctx context.Context, rawEntryID int, reasons []model.RejectReason) (*model.RejectedEntry, error)
	CountUnreviewedRejections(ctx context.Context) (int, error)

	// Locations
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	InsertLocation(ctx context.Context, loc *model.Location) error
	ActiveLocations(ctx context.Context) ([]model.Location, error)
	MatchableLocations(ctx context.Context) ([]model.Location, error)
	SearchLocations(ctx context.Context, query, state string) ([]LocationSummary, error)
	FindLocationsByName(ctx context.Context, name string, partial bool) ([]model.Location, error)
	LocationsWithSourceCounts(ctx context.Context) ([]LocationSummary, error)
	LocationCoordinates(ctx context.Context) (map[string]Coordinates, error)
	UpdateLocationStatus(ctx context.Context, id string, status model.LocationStatus) error
	UpdateLocationName(ctx context.Context, id, name string) error
	CountLocations(ctx context.Context) (int, error)

	// Location sources
	UpsertLocationSource(ctx context.Context, ls *model.LocationSource) error
	GetLocationSource(ctx context.Context, locationID string, sourceID int) (*model.LocationSource, error)
	LocationSourcesFor(ctx context.Context, locationID string) ([]model.LocationSource, error)
	UpdateLocationSourceWindow(ctx context.Context, id int, firstSeen, lastSeen *time.Time) error
	MoveLocationSource(ctx context.Context, id int, toLocationID string) error
	DeleteLocationSource(ctx context.Context, id int) error

	// Aliases
	InsertLocationAlias(ctx context.Context, alias *model.LocationAlias) error
	AliasExists(ctx context.Context, locationID, aliasName string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

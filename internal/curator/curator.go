// Package curator applies operator corrections to the locations
// directory: status demotions, renames that preserve the old name as an
// alias, and merging one location into another. The pipeline never calls
// these; they exist for the human cleaning up what promotion got wrong.
package curator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/store"
)

// Target selects a location either by its exact id or by name. When both
// are set the id wins.
type Target struct {
	ID   string
	Name string
}

// AmbiguousNameError reports a partial name that matched more than one
// location. Matches are carried along so the caller can list them and the
// operator can retry with an id.
type AmbiguousNameError struct {
	Name    string
	Matches []model.Location
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("name %q matched %d locations", e.Name, len(e.Matches))
}

// Curator mutates the locations directory on an operator's behalf.
type Curator struct {
	store  store.Store
	logger *zap.Logger
}

func New(st store.Store) *Curator {
	return &Curator{
		store:  st,
		logger: zap.L().With(zap.String("component", "curator")),
	}
}

// Search lists locations whose name contains query, case-insensitively,
// with their source counts. An optional state narrows to one state code.
func (c *Curator) Search(ctx context.Context, query, state string) ([]store.LocationSummary, error) {
	return c.store.SearchLocations(ctx, query, strings.ToUpper(state))
}

// Find resolves a target to a single location. Id lookup is exact; name
// lookup tries a case-insensitive exact match first and falls back to a
// partial match that must be unique.
func (c *Curator) Find(ctx context.Context, target Target) (*model.Location, error) {
	if target.ID != "" {
		loc, err := c.store.GetLocation(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, eris.Errorf("curator: no location with id %s", target.ID)
		}
		return loc, nil
	}

	if target.Name == "" {
		return nil, eris.New("curator: a location id or name is required")
	}

	exact, err := c.store.FindLocationsByName(ctx, target.Name, false)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return &exact[0], nil
	}

	partial, err := c.store.FindLocationsByName(ctx, target.Name, true)
	if err != nil {
		return nil, err
	}
	switch len(partial) {
	case 0:
		return nil, eris.Errorf("curator: no location matching name %q", target.Name)
	case 1:
		return &partial[0], nil
	default:
		return nil, &AmbiguousNameError{Name: target.Name, Matches: partial}
	}
}

// DemoteResult records a completed status change.
type DemoteResult struct {
	Location  model.Location
	OldStatus model.LocationStatus
	NewStatus model.LocationStatus
}

// Demote changes a location's status. The status must be one of the
// values the directory schema allows.
func (c *Curator) Demote(ctx context.Context, target Target, status model.LocationStatus) (*DemoteResult, error) {
	if !model.IsValidLocationStatus(string(status)) {
		return nil, eris.Errorf("curator: invalid status %q", status)
	}

	loc, err := c.Find(ctx, target)
	if err != nil {
		return nil, err
	}

	old := loc.Status
	if err := c.store.UpdateLocationStatus(ctx, loc.ID, status); err != nil {
		return nil, err
	}
	loc.Status = status

	c.logger.Info("demoted location",
		zap.String("name", loc.Name),
		zap.String("city", loc.City),
		zap.String("state", loc.State),
		zap.String("old_status", string(old)),
		zap.String("new_status", string(status)))

	return &DemoteResult{Location: *loc, OldStatus: old, NewStatus: status}, nil
}

// RenameResult records a completed rename.
type RenameResult struct {
	Location     model.Location // carries the new name
	OldName      string
	AliasCreated bool
}

// Rename changes a location's name. Unless the name is unchanged, the old
// name is kept as an alias closed as of now, so historical source rows
// still resolve.
func (c *Curator) Rename(ctx context.Context, target Target, newName string) (*RenameResult, error) {
	if newName == "" {
		return nil, eris.New("curator: a new name is required")
	}

	loc, err := c.Find(ctx, target)
	if err != nil {
		return nil, err
	}

	old := loc.Name
	if old != newName {
		now := time.Now().UTC()
		alias := &model.LocationAlias{
			LocationID:     loc.ID,
			AliasName:      old,
			EffectiveUntil: &now,
			Notes:          fmt.Sprintf("Renamed to %s", newName),
		}
		if err := c.store.InsertLocationAlias(ctx, alias); err != nil {
			return nil, err
		}
	}

	if err := c.store.UpdateLocationName(ctx, loc.ID, newName); err != nil {
		return nil, err
	}
	loc.Name = newName

	c.logger.Info("renamed location",
		zap.String("old_name", old),
		zap.String("new_name", newName),
		zap.String("city", loc.City),
		zap.String("state", loc.State))

	return &RenameResult{Location: *loc, OldName: old, AliasCreated: old != newName}, nil
}

// MergeResult tallies what moved when one location folded into another.
type MergeResult struct {
	From                model.Location
	Into                model.Location
	SourcesMoved        int // links re-pointed to the surviving location
	SourcesMerged       int // links absorbed into an existing link's window
	CandidatesRepointed int
	AliasCreated        bool
}

// Merge folds the location fromID into intoID. Source links move over,
// widening the seen window where the survivor already knows the source;
// candidates are re-pointed; the old name becomes an alias when it
// differs; and the merged-away location is marked merged.
func (c *Curator) Merge(ctx context.Context, fromID, intoID string) (*MergeResult, error) {
	if fromID == intoID {
		return nil, eris.New("curator: cannot merge a location into itself")
	}

	from, err := c.store.GetLocation(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, eris.Errorf("curator: source location %s not found", fromID)
	}
	into, err := c.store.GetLocation(ctx, intoID)
	if err != nil {
		return nil, err
	}
	if into == nil {
		return nil, eris.Errorf("curator: target location %s not found", intoID)
	}

	res := &MergeResult{From: *from, Into: *into}

	links, err := c.store.LocationSourcesFor(ctx, fromID)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		existing, err := c.store.GetLocationSource(ctx, intoID, link.SourceID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			first, last := unionWindow(existing, &link)
			if err := c.store.UpdateLocationSourceWindow(ctx, existing.ID, first, last); err != nil {
				return nil, err
			}
			if err := c.store.DeleteLocationSource(ctx, link.ID); err != nil {
				return nil, err
			}
			res.SourcesMerged++
		} else {
			if err := c.store.MoveLocationSource(ctx, link.ID, intoID); err != nil {
				return nil, err
			}
			res.SourcesMoved++
		}
	}

	if from.Name != into.Name {
		now := time.Now().UTC()
		alias := &model.LocationAlias{
			LocationID:     intoID,
			AliasName:      from.Name,
			EffectiveUntil: &now,
			Notes:          fmt.Sprintf("Merged from %s", fromID),
		}
		if err := c.store.InsertLocationAlias(ctx, alias); err != nil {
			return nil, err
		}
		res.AliasCreated = true
	}

	moved, err := c.store.MoveCandidates(ctx, fromID, intoID)
	if err != nil {
		return nil, err
	}
	res.CandidatesRepointed = moved

	if err := c.store.UpdateLocationStatus(ctx, fromID, model.LocationMerged); err != nil {
		return nil, err
	}

	c.logger.Info("merged locations",
		zap.String("from", from.Name),
		zap.String("from_id", fromID),
		zap.String("into", into.Name),
		zap.String("into_id", intoID),
		zap.Int("sources_moved", res.SourcesMoved),
		zap.Int("sources_merged", res.SourcesMerged),
		zap.Int("candidates_repointed", res.CandidatesRepointed))

	return res, nil
}

// unionWindow widens the surviving link's seen window with the absorbed
// link's. Null bounds never shrink a known one.
func unionWindow(keep, absorbed *model.LocationSource) (first, last *time.Time) {
	first, last = keep.FirstSeenAt, keep.LastSeenAt
	if absorbed.FirstSeenAt != nil && (first == nil || absorbed.FirstSeenAt.Before(*first)) {
		first = absorbed.FirstSeenAt
	}
	if absorbed.LastSeenAt != nil && (last == nil || absorbed.LastSeenAt.After(*last)) {
		last = absorbed.LastSeenAt
	}
	return first, last
}

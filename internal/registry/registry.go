// Package registry maintains the unified athlete identities and their links
// to provider-native ids. Every operation is idempotent so the whole
// resolution pipeline can be re-run against an existing database.
package registry

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/store"
)

// Registry resolves and persists unified athlete identities.
type Registry struct {
	store store.Store
	log   *zap.Logger
}

func New(st store.Store) *Registry {
	return &Registry{
		store: st,
		log:   zap.L().With(zap.String("component", "registry")),
	}
}

// AssignOrReuse returns the unified athlete id for a profile. If any of the
// profile's source ids is already linked, that athlete is reused and any
// missing links are attached; otherwise a new athlete is created. Calling it
// again with the same profile returns the same id and changes nothing.
func (r *Registry) AssignOrReuse(ctx context.Context, p Profile) (int64, error) {
	for _, link := range p.Links {
		existing, err := r.store.FindLink(ctx, link.Source, link.SourceID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return 0, err
		}

		// Reuse the linked identity and fill in any links a previous
		// run did not know about yet.
		for _, l := range p.Links {
			if err := r.Link(ctx, existing.AthleteID, l.Source, l.SourceID); err != nil {
				return 0, err
			}
		}
		return existing.AthleteID, nil
	}

	created, err := r.store.CreateAthlete(ctx, p.Athlete)
	if err != nil {
		return 0, eris.Wrapf(err, "registry: create athlete %s", p.Athlete.PrimaryName)
	}
	for _, l := range p.Links {
		if err := r.Link(ctx, created.ID, l.Source, l.SourceID); err != nil {
			return 0, err
		}
	}

	r.log.Info("registry: new athlete",
		zap.Int64("athlete_id", created.ID),
		zap.String("primary_name", created.PrimaryName),
		zap.String("match_stage", created.MatchStage),
	)
	return created.ID, nil
}

// Link attaches (source, sourceID) to an athlete. A pair already linked to
// the same athlete is a no-op; a pair linked to a different athlete is left
// untouched and the conflict is logged.
func (r *Registry) Link(ctx context.Context, athleteID int64, source model.Source, sourceID string) error {
	err := r.store.InsertLink(ctx, model.SourceIdentityLink{
		AthleteID: athleteID,
		Source:    source,
		SourceID:  sourceID,
	})
	if err != nil {
		if errors.Is(err, store.ErrLinkConflict) {
			r.log.Warn("registry: link conflict, keeping existing link",
				zap.Int64("athlete_id", athleteID),
				zap.String("source", string(source)),
				zap.String("source_id", sourceID),
			)
			return nil
		}
		return eris.Wrapf(err, "registry: link (%s, %s)", source, sourceID)
	}
	return nil
}

// Resolve returns the unified athlete behind a provider-native id.
func (r *Registry) Resolve(ctx context.Context, source model.Source, sourceID string) (*model.UnifiedAthlete, error) {
	link, err := r.store.FindLink(ctx, source, sourceID)
	if err != nil {
		return nil, err
	}
	return r.store.GetAthlete(ctx, link.AthleteID)
}

// Sync persists all profiles and returns the assigned athlete ids in
// profile order.
func (r *Registry) Sync(ctx context.Context, profiles []Profile) ([]int64, error) {
	ids := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		id, err := r.AssignOrReuse(ctx, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	r.log.Info("registry: sync complete", zap.Int("profiles", len(profiles)))
	return ids, nil
}

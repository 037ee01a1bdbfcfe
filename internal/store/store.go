package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("store: not found")

// ErrLinkConflict is returned when a (source, source_id) pair is already
// linked to a different athlete. Callers decide whether to skip or fail.
var ErrLinkConflict = eris.New("store: source id linked to another athlete")

// AthleteFilter specifies criteria for listing athletes.
type AthleteFilter struct {
	Name        string `json:"name,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// ResultFilter specifies criteria for listing result rows.
type ResultFilter struct {
	EventID  string       `json:"event_id,omitempty"`
	Division string       `json:"division,omitempty"`
	Source   model.Source `json:"source,omitempty"`
	Limit    int          `json:"limit,omitempty"`
}

// Store defines the persistence interface for the resolution pipeline.
type Store interface {
	// Athletes
	CreateAthlete(ctx context.Context, a model.UnifiedAthlete) (*model.UnifiedAthlete, error)
	UpdateAthlete(ctx context.Context, a model.UnifiedAthlete) error
	GetAthlete(ctx context.Context, id int64) (*model.UnifiedAthlete, error)
	ListAthletes(ctx context.Context, filter AthleteFilter) ([]model.UnifiedAthlete, error)
	DeleteAthlete(ctx context.Context, id int64) error

	// Source identity links
	InsertLink(ctx context.Context, link model.SourceIdentityLink) error
	InsertLinks(ctx context.Context, links []model.SourceIdentityLink) (int, error)
	FindLink(ctx context.Context, source model.Source, sourceID string) (*model.SourceIdentityLink, error)
	ListLinks(ctx context.Context, athleteID int64) ([]model.SourceIdentityLink, error)

	// Results
	ReplaceResults(ctx context.Context, rows []model.ResultRow) error
	ListResults(ctx context.Context, filter ResultFilter) ([]model.ResultRow, error)
	ListAthleteResults(ctx context.Context, athleteID int64) ([]model.ResultRow, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

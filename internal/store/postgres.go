package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/db"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"find_link":   `SELECT athlete_id, source, source_id FROM athlete_source_ids WHERE source = $1 AND source_id = $2`,
	"insert_link": `INSERT INTO athlete_source_ids (athlete_id, source, source_id) VALUES ($1, $2, $3)`,
	"get_athlete": `SELECT id, primary_name, lh_name, pwa_name, nationality, year_of_birth, pwa_sail_number, match_stage, match_score FROM athletes WHERE id = $1`,
	"list_links":  `SELECT athlete_id, source, source_id FROM athlete_source_ids WHERE athlete_id = $1 ORDER BY source, source_id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access (e.g., bulk imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS athletes (
	id              BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	primary_name    TEXT NOT NULL,
	lh_name         TEXT NOT NULL DEFAULT '',
	pwa_name        TEXT NOT NULL DEFAULT '',
	nationality     TEXT NOT NULL DEFAULT '',
	year_of_birth   INTEGER NOT NULL DEFAULT 0,
	pwa_sail_number TEXT NOT NULL DEFAULT '',
	match_stage     TEXT NOT NULL DEFAULT '',
	match_score     INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS athlete_source_ids (
	athlete_id BIGINT NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
	source     TEXT NOT NULL,
	source_id  TEXT NOT NULL,
	UNIQUE(source, source_id)
);

CREATE TABLE IF NOT EXISTS results (
	id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	source            TEXT NOT NULL,
	event_id          TEXT NOT NULL,
	event_name        TEXT NOT NULL DEFAULT '',
	division          TEXT NOT NULL,
	placement         INTEGER NOT NULL DEFAULT 0,
	source_athlete_id TEXT NOT NULL DEFAULT '',
	athlete_name      TEXT NOT NULL DEFAULT '',
	sail_number       TEXT NOT NULL DEFAULT '',
	points            DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_athletes_primary_name ON athletes(primary_name);
CREATE INDEX IF NOT EXISTS idx_athletes_nationality ON athletes(nationality);
CREATE INDEX IF NOT EXISTS idx_source_ids_athlete ON athlete_source_ids(athlete_id);
CREATE INDEX IF NOT EXISTS idx_results_event_division ON results(event_id, division);
CREATE INDEX IF NOT EXISTS idx_results_source_athlete ON results(source, source_athlete_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAthlete(ctx context.Context, a model.UnifiedAthlete) (*model.UnifiedAthlete, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO athletes (primary_name, lh_name, pwa_name, nationality, year_of_birth, pwa_sail_number, match_stage, match_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		a.PrimaryName, a.LHName, a.PWAName, a.Nationality, a.YearOfBirth, a.PWASailNumber, a.MatchStage, a.MatchScore,
	).Scan(&a.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert athlete %s", a.PrimaryName)
	}
	return &a, nil
}

func (s *PostgresStore) UpdateAthlete(ctx context.Context, a model.UnifiedAthlete) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE athletes SET primary_name = $1, lh_name = $2, pwa_name = $3, nationality = $4,
		 year_of_birth = $5, pwa_sail_number = $6, match_stage = $7, match_score = $8 WHERE id = $9`,
		a.PrimaryName, a.LHName, a.PWAName, a.Nationality, a.YearOfBirth, a.PWASailNumber, a.MatchStage, a.MatchScore, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update athlete %d", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "athlete %d", a.ID)
	}
	return nil
}

func (s *PostgresStore) GetAthlete(ctx context.Context, id int64) (*model.UnifiedAthlete, error) {
	var a model.UnifiedAthlete
	err := s.pool.QueryRow(ctx,
		`SELECT id, primary_name, lh_name, pwa_name, nationality, year_of_birth, pwa_sail_number, match_stage, match_score
		 FROM athletes WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.PrimaryName, &a.LHName, &a.PWAName, &a.Nationality,
		&a.YearOfBirth, &a.PWASailNumber, &a.MatchStage, &a.MatchScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "athlete %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: get athlete %d", id)
	}
	return &a, nil
}

func (s *PostgresStore) ListAthletes(ctx context.Context, filter AthleteFilter) ([]model.UnifiedAthlete, error) {
	query := `SELECT id, primary_name, lh_name, pwa_name, nationality, year_of_birth, pwa_sail_number, match_stage, match_score
	          FROM athletes WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Name != "" {
		query += fmt.Sprintf(` AND primary_name ILIKE $%d`, argIdx)
		args = append(args, "%"+filter.Name+"%")
		argIdx++
	}
	if filter.Nationality != "" {
		query += fmt.Sprintf(` AND nationality = $%d`, argIdx)
		args = append(args, strings.ToUpper(filter.Nationality))
		argIdx++
	}
	query += ` ORDER BY primary_name ASC, id ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list athletes")
	}
	defer rows.Close()

	var athletes []model.UnifiedAthlete
	for rows.Next() {
		var a model.UnifiedAthlete
		if err := rows.Scan(&a.ID, &a.PrimaryName, &a.LHName, &a.PWAName, &a.Nationality,
			&a.YearOfBirth, &a.PWASailNumber, &a.MatchStage, &a.MatchScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan athlete")
		}
		athletes = append(athletes, a)
	}
	return athletes, eris.Wrap(rows.Err(), "postgres: list athletes iterate")
}

func (s *PostgresStore) DeleteAthlete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM athletes WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete athlete %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "athlete %d", id)
	}
	return nil
}

func (s *PostgresStore) InsertLink(ctx context.Context, link model.SourceIdentityLink) error {
	existing, err := s.FindLink(ctx, link.Source, link.SourceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		if existing.AthleteID == link.AthleteID {
			return nil
		}
		return eris.Wrapf(ErrLinkConflict, "(%s, %s) belongs to athlete %d", link.Source, link.SourceID, existing.AthleteID)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO athlete_source_ids (athlete_id, source, source_id) VALUES ($1, $2, $3)`,
		link.AthleteID, string(link.Source), link.SourceID,
	)
	return eris.Wrapf(err, "postgres: insert link (%s, %s)", link.Source, link.SourceID)
}

func (s *PostgresStore) InsertLinks(ctx context.Context, links []model.SourceIdentityLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(links))
	for _, link := range links {
		rows = append(rows, []any{link.AthleteID, string(link.Source), link.SourceID})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:           "athlete_source_ids",
		Columns:         []string{"athlete_id", "source", "source_id"},
		ConflictKeys:    []string{"source", "source_id"},
		IgnoreConflicts: true,
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk insert links")
	}
	return int(n), nil
}

func (s *PostgresStore) FindLink(ctx context.Context, source model.Source, sourceID string) (*model.SourceIdentityLink, error) {
	var link model.SourceIdentityLink
	err := s.pool.QueryRow(ctx,
		`SELECT athlete_id, source, source_id FROM athlete_source_ids WHERE source = $1 AND source_id = $2`,
		string(source), sourceID,
	).Scan(&link.AthleteID, &link.Source, &link.SourceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "link (%s, %s)", source, sourceID)
		}
		return nil, eris.Wrapf(err, "postgres: find link (%s, %s)", source, sourceID)
	}
	return &link, nil
}

func (s *PostgresStore) ListLinks(ctx context.Context, athleteID int64) ([]model.SourceIdentityLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT athlete_id, source, source_id FROM athlete_source_ids WHERE athlete_id = $1 ORDER BY source, source_id`,
		athleteID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list links for athlete %d", athleteID)
	}
	defer rows.Close()

	var links []model.SourceIdentityLink
	for rows.Next() {
		var link model.SourceIdentityLink
		if err := rows.Scan(&link.AthleteID, &link.Source, &link.SourceID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan link")
		}
		links = append(links, link)
	}
	return links, eris.Wrap(rows.Err(), "postgres: list links iterate")
}

var resultCopyColumns = []string{
	"source", "event_id", "event_name", "division", "placement",
	"source_athlete_id", "athlete_name", "sail_number", "points",
}

func (s *PostgresStore) ReplaceResults(ctx context.Context, resultRows []model.ResultRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM results`); err != nil {
		return eris.Wrap(err, "postgres: clear results")
	}

	rows := make([][]any, 0, len(resultRows))
	for _, r := range resultRows {
		rows = append(rows, []any{
			string(r.Source), r.EventID, r.EventName, r.Division, r.Placement,
			r.SourceAthleteID, r.AthleteName, r.SailNumber, r.Points,
		})
	}
	if _, err := db.CopyFrom(ctx, tx, "results", resultCopyColumns, rows); err != nil {
		return eris.Wrap(err, "postgres: copy results")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit results")
}

func (s *PostgresStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.ResultRow, error) {
	query := `SELECT source, event_id, event_name, division, placement, source_athlete_id, athlete_name, sail_number, points
	          FROM results WHERE true`
	args := []any{}
	argIdx := 1

	if filter.EventID != "" {
		query += fmt.Sprintf(` AND event_id = $%d`, argIdx)
		args = append(args, filter.EventID)
		argIdx++
	}
	if filter.Division != "" {
		query += fmt.Sprintf(` AND division = $%d`, argIdx)
		args = append(args, filter.Division)
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, string(filter.Source))
		argIdx++
	}
	query += ` ORDER BY event_id, division, placement`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()
	return collectPgResults(rows)
}

func (s *PostgresStore) ListAthleteResults(ctx context.Context, athleteID int64) ([]model.ResultRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.source, r.event_id, r.event_name, r.division, r.placement, r.source_athlete_id, r.athlete_name, r.sail_number, r.points
		 FROM results r
		 JOIN athlete_source_ids l ON l.source = r.source AND l.source_id = r.source_athlete_id
		 WHERE l.athlete_id = $1
		 ORDER BY r.event_id, r.division, r.placement`,
		athleteID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list results for athlete %d", athleteID)
	}
	defer rows.Close()
	return collectPgResults(rows)
}

func collectPgResults(rows pgx.Rows) ([]model.ResultRow, error) {
	var results []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		if err := rows.Scan(&r.Source, &r.EventID, &r.EventName, &r.Division, &r.Placement,
			&r.SourceAthleteID, &r.AthleteName, &r.SailNumber, &r.Points); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "postgres: results iterate")
}

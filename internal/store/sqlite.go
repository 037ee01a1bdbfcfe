package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS athletes (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	primary_name    TEXT NOT NULL,
	lh_name         TEXT NOT NULL DEFAULT '',
	pwa_name        TEXT NOT NULL DEFAULT '',
	nationality     TEXT NOT NULL DEFAULT '',
	year_of_birth   INTEGER NOT NULL DEFAULT 0,
	pwa_sail_number TEXT NOT NULL DEFAULT '',
	match_stage     TEXT NOT NULL DEFAULT '',
	match_score     INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS athlete_source_ids (
	athlete_id INTEGER NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
	source     TEXT NOT NULL,
	source_id  TEXT NOT NULL,
	UNIQUE(source, source_id)
);

CREATE TABLE IF NOT EXISTS results (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	source            TEXT NOT NULL,
	event_id          TEXT NOT NULL,
	event_name        TEXT NOT NULL DEFAULT '',
	division          TEXT NOT NULL,
	placement         INTEGER NOT NULL DEFAULT 0,
	source_athlete_id TEXT NOT NULL DEFAULT '',
	athlete_name      TEXT NOT NULL DEFAULT '',
	sail_number       TEXT NOT NULL DEFAULT '',
	points            REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_athletes_primary_name ON athletes(primary_name);
CREATE INDEX IF NOT EXISTS idx_athletes_nationality ON athletes(nationality);
CREATE INDEX IF NOT EXISTS idx_source_ids_athlete ON athlete_source_ids(athlete_id);
CREATE INDEX IF NOT EXISTS idx_results_event_division ON results(event_id, division);
CREATE INDEX IF NOT EXISTS idx_results_source_athlete ON results(source, source_athlete_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const athleteColumns = `id, primary_name, lh_name, pwa_name, nationality, year_of_birth, pwa_sail_number, match_stage, match_score`

func (s *SQLiteStore) CreateAthlete(ctx context.Context, a model.UnifiedAthlete) (*model.UnifiedAthlete, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO athletes (primary_name, lh_name, pwa_name, nationality, year_of_birth, pwa_sail_number, match_stage, match_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.PrimaryName, a.LHName, a.PWAName, a.Nationality, a.YearOfBirth, a.PWASailNumber, a.MatchStage, a.MatchScore,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert athlete %s", a.PrimaryName)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last insert id")
	}
	a.ID = id
	return &a, nil
}

func (s *SQLiteStore) UpdateAthlete(ctx context.Context, a model.UnifiedAthlete) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE athletes SET primary_name = ?, lh_name = ?, pwa_name = ?, nationality = ?,
		 year_of_birth = ?, pwa_sail_number = ?, match_stage = ?, match_score = ? WHERE id = ?`,
		a.PrimaryName, a.LHName, a.PWAName, a.Nationality, a.YearOfBirth, a.PWASailNumber, a.MatchStage, a.MatchScore, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update athlete %d", a.ID)
	}
	return checkRowsAffected(res, "athlete", a.ID)
}

func (s *SQLiteStore) GetAthlete(ctx context.Context, id int64) (*model.UnifiedAthlete, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+athleteColumns+` FROM athletes WHERE id = ?`, id,
	)
	a, err := scanAthlete(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get athlete %d", id)
	}
	return a, nil
}

func (s *SQLiteStore) ListAthletes(ctx context.Context, filter AthleteFilter) ([]model.UnifiedAthlete, error) {
	query := `SELECT ` + athleteColumns + ` FROM athletes WHERE 1=1`
	var args []any

	if filter.Name != "" {
		query += ` AND primary_name LIKE ?`
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Nationality != "" {
		query += ` AND nationality = ?`
		args = append(args, strings.ToUpper(filter.Nationality))
	}
	query += ` ORDER BY primary_name ASC, id ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list athletes")
	}
	defer rows.Close()

	var athletes []model.UnifiedAthlete
	for rows.Next() {
		a, err := scanAthlete(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan athlete")
		}
		athletes = append(athletes, *a)
	}
	return athletes, eris.Wrap(rows.Err(), "sqlite: list athletes iterate")
}

func (s *SQLiteStore) DeleteAthlete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM athletes WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete athlete %d", id)
	}
	return checkRowsAffected(res, "athlete", id)
}

func (s *SQLiteStore) InsertLink(ctx context.Context, link model.SourceIdentityLink) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO athlete_source_ids (athlete_id, source, source_id) VALUES (?, ?, ?)`,
		link.AthleteID, string(link.Source), link.SourceID,
	)
	return eris.Wrapf(err, "sqlite: insert link (%s, %s)", link.Source, link.SourceID)
}

func (s *SQLiteStore) InsertLinks(ctx context.Context, links []model.SourceIdentityLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	inserted := 0
	for _, link := range links {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO athlete_source_ids (athlete_id, source, source_id) VALUES (?, ?, ?)`,
			link.AthleteID, string(link.Source), link.SourceID,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert link (%s, %s)", link.Source, link.SourceID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit links")
	}
	return inserted, nil
}

func (s *SQLiteStore) FindLink(ctx context.Context, source model.Source, sourceID string) (*model.SourceIdentityLink, error) {
	var link model.SourceIdentityLink
	err := s.db.QueryRowContext(ctx,
		`SELECT athlete_id, source, source_id FROM athlete_source_ids WHERE source = ? AND source_id = ?`,
		string(source), sourceID,
	).Scan(&link.AthleteID, &link.Source, &link.SourceID)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "link (%s, %s)", source, sourceID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find link (%s, %s)", source, sourceID)
	}
	return &link, nil
}

func (s *SQLiteStore) ListLinks(ctx context.Context, athleteID int64) ([]model.SourceIdentityLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT athlete_id, source, source_id FROM athlete_source_ids WHERE athlete_id = ? ORDER BY source, source_id`,
		athleteID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list links for athlete %d", athleteID)
	}
	defer rows.Close()

	var links []model.SourceIdentityLink
	for rows.Next() {
		var link model.SourceIdentityLink
		if err := rows.Scan(&link.AthleteID, &link.Source, &link.SourceID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan link")
		}
		links = append(links, link)
	}
	return links, eris.Wrap(rows.Err(), "sqlite: list links iterate")
}

const resultColumns = `source, event_id, event_name, division, placement, source_athlete_id, athlete_name, sail_number, points`

func (s *SQLiteStore) ReplaceResults(ctx context.Context, resultRows []model.ResultRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return eris.Wrap(err, "sqlite: clear results")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert result")
	}
	defer stmt.Close()

	for _, r := range resultRows {
		if _, err := stmt.ExecContext(ctx,
			string(r.Source), r.EventID, r.EventName, r.Division, r.Placement,
			r.SourceAthleteID, r.AthleteName, r.SailNumber, r.Points,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert result for event %s", r.EventID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit results")
}

func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]model.ResultRow, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE 1=1`
	var args []any

	if filter.EventID != "" {
		query += ` AND event_id = ?`
		args = append(args, filter.EventID)
	}
	if filter.Division != "" {
		query += ` AND division = ?`
		args = append(args, filter.Division)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	query += ` ORDER BY event_id, division, placement`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close()
	return collectResults(rows)
}

func (s *SQLiteStore) ListAthleteResults(ctx context.Context, athleteID int64) ([]model.ResultRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.source, r.event_id, r.event_name, r.division, r.placement, r.source_athlete_id, r.athlete_name, r.sail_number, r.points
		 FROM results r
		 JOIN athlete_source_ids l ON l.source = r.source AND l.source_id = r.source_athlete_id
		 WHERE l.athlete_id = ?
		 ORDER BY r.event_id, r.division, r.placement`,
		athleteID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list results for athlete %d", athleteID)
	}
	defer rows.Close()
	return collectResults(rows)
}

// helpers

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %d", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAthlete(row scannable) (*model.UnifiedAthlete, error) {
	var a model.UnifiedAthlete
	err := row.Scan(&a.ID, &a.PrimaryName, &a.LHName, &a.PWAName, &a.Nationality,
		&a.YearOfBirth, &a.PWASailNumber, &a.MatchStage, &a.MatchScore)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectResults(rows *sql.Rows) ([]model.ResultRow, error) {
	var results []model.ResultRow
	for rows.Next() {
		var r model.ResultRow
		if err := rows.Scan(&r.Source, &r.EventID, &r.EventName, &r.Division, &r.Placement,
			&r.SourceAthleteID, &r.AthleteName, &r.SailNumber, &r.Points); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		results = append(results, r)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: results iterate")
}

// Package archive persists published snapshots to SQLite so the serving
// layer survives restarts without re-crawling the source.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/futdex/futdex/internal/roster"
)

// Archive stores the latest published snapshot in a SQLite database.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive at path, creating parent directories
// as needed.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	a := &Archive{db: db}
	if err := a.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshot_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		page_count INTEGER NOT NULL,
		generated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS players (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		external_id TEXT,
		name TEXT NOT NULL,
		position TEXT,
		team TEXT,
		nationality TEXT,
		height INTEGER,
		weight INTEGER,
		age INTEGER,
		rating INTEGER,
		source_url TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_players_name ON players(name);
	CREATE INDEX IF NOT EXISTS idx_players_team ON players(team);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Save replaces the archived snapshot in one transaction. The previous
// snapshot disappears atomically; readers never see a half-written mix.
func (a *Archive) Save(ctx context.Context, snap roster.Snapshot) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return fmt.Errorf("clear players: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, page_count, generated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET page_count = excluded.page_count, generated_at = excluded.generated_at
	`, snap.PageCount, snap.GeneratedAt.UTC()); err != nil {
		return fmt.Errorf("write snapshot meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (external_id, name, position, team, nationality, height, weight, age, rating, source_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare player insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, p := range snap.Players {
		if _, err := stmt.ExecContext(ctx,
			nullString(p.ExternalID), p.Name, p.Position, p.Team, p.Nationality,
			nullInt(p.Height), nullInt(p.Weight), nullInt(p.Age), nullInt(p.Rating),
			nullString(p.SourceURL),
		); err != nil {
			return fmt.Errorf("insert player %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}
	return nil
}

// Latest loads the archived snapshot. A never-written archive returns ok
// false with no error.
func (a *Archive) Latest(ctx context.Context) (roster.Snapshot, bool, error) {
	var snap roster.Snapshot
	row := a.db.QueryRowContext(ctx, `SELECT page_count, generated_at FROM snapshot_meta WHERE id = 1`)
	if err := row.Scan(&snap.PageCount, &snap.GeneratedAt); err != nil {
		if err == sql.ErrNoRows {
			return roster.Snapshot{}, false, nil
		}
		return roster.Snapshot{}, false, fmt.Errorf("read snapshot meta: %w", err)
	}

	players, err := a.queryPlayers(ctx, playerColumns+` ORDER BY seq`)
	if err != nil {
		return roster.Snapshot{}, false, err
	}
	snap.Players = players
	return snap, true, nil
}

const playerColumns = `SELECT external_id, name, position, team, nationality, height, weight, age, rating, source_url, seq FROM players`

// Search returns archived players whose name contains q and, when team is
// non-empty, whose team contains team. Matching is case-insensitive.
func (a *Archive) Search(ctx context.Context, q, team string) ([]roster.Player, error) {
	query := playerColumns + ` WHERE 1=1`
	args := []any{}
	if q != "" {
		query += ` AND name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(q)+"%")
	}
	if team != "" {
		query += ` AND team LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(team)+"%")
	}
	query += ` ORDER BY seq`
	return a.queryPlayers(ctx, query, args...)
}

func (a *Archive) queryPlayers(ctx context.Context, query string, args ...any) ([]roster.Player, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var players []roster.Player
	for rows.Next() {
		var (
			p          roster.Player
			externalID sql.NullString
			sourceURL  sql.NullString
			height     sql.NullInt64
			weight     sql.NullInt64
			age        sql.NullInt64
			rating     sql.NullInt64
			seq        int64
		)
		if err := rows.Scan(&externalID, &p.Name, &p.Position, &p.Team, &p.Nationality,
			&height, &weight, &age, &rating, &sourceURL, &seq); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.ExternalID = externalID.String
		p.SourceURL = sourceURL.String
		p.Height = fromNullInt(height)
		p.Weight = fromNullInt(weight)
		p.Age = fromNullInt(age)
		p.Rating = fromNullInt(rating)
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return replacer.Replace(s)
}

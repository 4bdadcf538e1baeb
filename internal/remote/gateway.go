// Package remote provides the gateway to the authoritative remote store.
//
// The remote store is a libSQL (Turso) database holding one document per
// team with a nested sub-collection of match documents. The gateway
// exposes existence checks, full-document upserts, and a bulk read of
// every team with its matches. It never retries internally; retry policy
// belongs to the sync orchestrator.
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/scoutforge/scoutsync/internal/schema"
)

// Gateway is the remote store surface the sync orchestrator drains into
// and fetches from. Implementations report failures as *Error values
// classified unavailable or rejected, never retrying on their own.
type Gateway interface {
	// TeamExists reports whether a team document exists remotely.
	TeamExists(ctx context.Context, teamNumber int) (bool, error)

	// UpsertTeam writes the full team document: overwrite if present,
	// create if absent. No field-level merge is performed; fields absent
	// from the record are gone after the write.
	UpsertTeam(ctx context.Context, team *schema.TeamRecord) error

	// UpsertMatch writes the match sub-record, auto-creating a
	// placeholder parent team first when none exists, so a match can
	// never reference a missing team after a successful upload.
	UpsertMatch(ctx context.Context, match *schema.MatchRecord) error

	// FetchAll reads every team and, for each, its matches, assembling
	// the full denormalized dataset. Partial failure fails the whole
	// call; a dataset silently missing teams is never returned.
	FetchAll(ctx context.Context) (*schema.Dataset, error)

	// DeleteTeam removes a team document and its matches. This is the
	// explicit destructive operation; sync never calls it.
	DeleteTeam(ctx context.Context, teamNumber int) error
}

// SQLGateway implements Gateway over a SQL connection. Production opens
// a remote libSQL URL via Open; tests run it against embedded SQLite.
type SQLGateway struct {
	conn   *sql.DB
	logger *log.Logger
}

// Open connects to the remote store at the given libSQL URL
// (libsql://<db>.turso.io?authToken=...). If logger is nil, a default
// logger writing to stderr is used.
//
// The caller MUST call Close() when done.
func Open(url string, logger *log.Logger) (*SQLGateway, error) {
	conn, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote store: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetConnMaxIdleTime(time.Minute)

	return NewGateway(conn, logger), nil
}

// NewGateway wraps an existing SQL connection as a gateway.
//
// If logger is nil, a default logger writing to stderr is used.
func NewGateway(conn *sql.DB, logger *log.Logger) *SQLGateway {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &SQLGateway{conn: conn, logger: logger}
}

// Close closes the underlying connection.
func (g *SQLGateway) Close() error {
	if err := g.conn.Close(); err != nil {
		return fmt.Errorf("failed to close remote store: %w", err)
	}
	return nil
}

// InitSchema creates the remote tables if they don't exist. Idempotent.
func (g *SQLGateway) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS teams (
		team_number    INTEGER PRIMARY KEY,
		team_name      TEXT NOT NULL,
		drive_train    TEXT NOT NULL DEFAULT '',
		robot_weight   REAL NOT NULL DEFAULT 0,
		can_climb      INTEGER NOT NULL DEFAULT 0,
		can_shoot_high INTEGER NOT NULL DEFAULT 0,
		can_shoot_low  INTEGER NOT NULL DEFAULT 0,
		notes          TEXT NOT NULL DEFAULT '',
		scouted_by     TEXT NOT NULL DEFAULT '',
		updated_at     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS matches (
		team_number     INTEGER NOT NULL,
		match_number    INTEGER NOT NULL,
		auto_points     INTEGER NOT NULL DEFAULT 0,
		teleop_points   INTEGER NOT NULL DEFAULT 0,
		endgame_climbed INTEGER NOT NULL DEFAULT 0,
		fouls           INTEGER NOT NULL DEFAULT 0,
		played_defense  INTEGER NOT NULL DEFAULT 0,
		comments        TEXT NOT NULL DEFAULT '',
		scouted_by      TEXT NOT NULL DEFAULT '',
		recorded_at     TEXT NOT NULL,
		PRIMARY KEY (team_number, match_number),
		FOREIGN KEY (team_number) REFERENCES teams(team_number) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_matches_team ON matches(team_number);
	`
	if _, err := g.conn.ExecContext(ctx, query); err != nil {
		return classify("init schema", err)
	}
	return nil
}

// TeamExists implements Gateway.TeamExists.
func (g *SQLGateway) TeamExists(ctx context.Context, teamNumber int) (bool, error) {
	var exists bool
	err := g.conn.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM teams WHERE team_number = ?)", teamNumber).Scan(&exists)
	if err != nil {
		return false, classify("team exists", err)
	}
	return exists, nil
}

// UpsertTeam implements Gateway.UpsertTeam.
func (g *SQLGateway) UpsertTeam(ctx context.Context, team *schema.TeamRecord) error {
	if err := team.Validate(); err != nil {
		return rejected("upsert team", err)
	}

	query := `
	INSERT INTO teams (
		team_number, team_name, drive_train, robot_weight,
		can_climb, can_shoot_high, can_shoot_low,
		notes, scouted_by, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(team_number) DO UPDATE SET
		team_name = excluded.team_name,
		drive_train = excluded.drive_train,
		robot_weight = excluded.robot_weight,
		can_climb = excluded.can_climb,
		can_shoot_high = excluded.can_shoot_high,
		can_shoot_low = excluded.can_shoot_low,
		notes = excluded.notes,
		scouted_by = excluded.scouted_by,
		updated_at = excluded.updated_at
	`
	_, err := g.conn.ExecContext(ctx, query,
		team.TeamNumber,
		team.TeamName,
		team.DriveTrain,
		team.RobotWeight,
		team.CanClimb,
		team.CanShootHigh,
		team.CanShootLow,
		team.Notes,
		team.ScoutedBy,
		team.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return classify("upsert team", err)
	}

	g.logger.Printf("Upserted team %d (%s)", team.TeamNumber, team.TeamName)
	return nil
}

// UpsertMatch implements Gateway.UpsertMatch.
func (g *SQLGateway) UpsertMatch(ctx context.Context, match *schema.MatchRecord) error {
	if err := match.Validate(); err != nil {
		return rejected("upsert match", err)
	}

	exists, err := g.TeamExists(ctx, match.TeamNumber)
	if err != nil {
		return err
	}
	if !exists {
		g.logger.Printf("Team %d missing, creating placeholder for match %d",
			match.TeamNumber, match.MatchNumber)
		if err := g.UpsertTeam(ctx, schema.PlaceholderTeam(match.TeamNumber)); err != nil {
			return err
		}
	}

	query := `
	INSERT INTO matches (
		team_number, match_number, auto_points, teleop_points,
		endgame_climbed, fouls, played_defense,
		comments, scouted_by, recorded_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(team_number, match_number) DO UPDATE SET
		auto_points = excluded.auto_points,
		teleop_points = excluded.teleop_points,
		endgame_climbed = excluded.endgame_climbed,
		fouls = excluded.fouls,
		played_defense = excluded.played_defense,
		comments = excluded.comments,
		scouted_by = excluded.scouted_by,
		recorded_at = excluded.recorded_at
	`
	_, err = g.conn.ExecContext(ctx, query,
		match.TeamNumber,
		match.MatchNumber,
		match.AutoPoints,
		match.TeleopPoints,
		match.EndgameClimbed,
		match.Fouls,
		match.PlayedDefense,
		match.Comments,
		match.ScoutedBy,
		match.RecordedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return classify("upsert match", err)
	}

	g.logger.Printf("Upserted match %d for team %d", match.MatchNumber, match.TeamNumber)
	return nil
}

// FetchAll implements Gateway.FetchAll.
func (g *SQLGateway) FetchAll(ctx context.Context) (*schema.Dataset, error) {
	rows, err := g.conn.QueryContext(ctx, `
	SELECT team_number, team_name, drive_train, robot_weight,
	       can_climb, can_shoot_high, can_shoot_low,
	       notes, scouted_by, updated_at
	FROM teams
	ORDER BY team_number ASC
	`)
	if err != nil {
		return nil, classify("fetch teams", err)
	}
	defer rows.Close()

	var teams []*schema.TeamRecord
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, classify("fetch teams", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("fetch teams", err)
	}

	// One query per team for its matches. Any single failure fails the
	// whole fetch so no team is silently dropped from the reconciled view.
	for _, team := range teams {
		matches, err := g.fetchMatches(ctx, team.TeamNumber)
		if err != nil {
			return nil, err
		}
		team.Matches = matches
	}

	g.logger.Printf("Fetched %d teams", len(teams))
	if teams == nil {
		teams = []*schema.TeamRecord{}
	}
	return &schema.Dataset{Teams: teams}, nil
}

func (g *SQLGateway) fetchMatches(ctx context.Context, teamNumber int) ([]*schema.MatchRecord, error) {
	rows, err := g.conn.QueryContext(ctx, `
	SELECT team_number, match_number, auto_points, teleop_points,
	       endgame_climbed, fouls, played_defense,
	       comments, scouted_by, recorded_at
	FROM matches
	WHERE team_number = ?
	ORDER BY match_number ASC
	`, teamNumber)
	if err != nil {
		return nil, classify("fetch matches", err)
	}
	defer rows.Close()

	matches := []*schema.MatchRecord{}
	for rows.Next() {
		var m schema.MatchRecord
		var recordedAt string
		err := rows.Scan(
			&m.TeamNumber,
			&m.MatchNumber,
			&m.AutoPoints,
			&m.TeleopPoints,
			&m.EndgameClimbed,
			&m.Fouls,
			&m.PlayedDefense,
			&m.Comments,
			&m.ScoutedBy,
			&recordedAt,
		)
		if err != nil {
			return nil, classify("fetch matches", err)
		}
		if t, err := time.Parse(time.RFC3339, recordedAt); err == nil {
			m.RecordedAt = t
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("fetch matches", err)
	}
	return matches, nil
}

// DeleteTeam implements Gateway.DeleteTeam. Returns nil if the team
// doesn't exist (idempotent).
func (g *SQLGateway) DeleteTeam(ctx context.Context, teamNumber int) error {
	if _, err := g.conn.ExecContext(ctx,
		"DELETE FROM matches WHERE team_number = ?", teamNumber); err != nil {
		return classify("delete team", err)
	}
	if _, err := g.conn.ExecContext(ctx,
		"DELETE FROM teams WHERE team_number = ?", teamNumber); err != nil {
		return classify("delete team", err)
	}
	g.logger.Printf("Deleted team %d", teamNumber)
	return nil
}

func scanTeam(rows *sql.Rows) (*schema.TeamRecord, error) {
	var t schema.TeamRecord
	var updatedAt string
	err := rows.Scan(
		&t.TeamNumber,
		&t.TeamName,
		&t.DriveTrain,
		&t.RobotWeight,
		&t.CanClimb,
		&t.CanShootHigh,
		&t.CanShootLow,
		&t.Notes,
		&t.ScoutedBy,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		t.UpdatedAt = ts
	}
	t.Matches = []*schema.MatchRecord{}
	return &t, nil
}

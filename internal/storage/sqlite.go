// Package storage provides SQLite-based persistence for session history
// and authoritative match results.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/clash/internal/network"
	"github.com/vovakirdan/clash/internal/session"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// SessionRecord is one finished client session.
type SessionRecord struct {
	ID        int64
	Player    string
	Outcome   string // "won", "lost", "draw", "aborted", "failed"
	ErrorKind string // Empty unless the session failed
	Ticks     int
	RTTLast   time.Duration
	RTTMean   time.Duration
	Discarded int
	CreatedAt time.Time
}

// MatchRecord is one match run by the authoritative server.
type MatchRecord struct {
	ID        int64
	MatchID   string
	Players   int
	Winner    string // Empty if draw or abandoned
	EndReason string // "completed", "abandoned"
	Ticks     uint64
	Duration  int // Duration in seconds
	CreatedAt time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error_kind TEXT,
			ticks INTEGER NOT NULL DEFAULT 0,
			rtt_last_ms INTEGER NOT NULL DEFAULT 0,
			rtt_mean_ms INTEGER NOT NULL DEFAULT 0,
			discarded INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_player ON sessions(player);

		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			players INTEGER NOT NULL,
			winner TEXT,
			end_reason TEXT NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_matches_winner ON matches(winner);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SessionRecordFrom converts a session summary into a history record.
func SessionRecordFrom(sum session.Summary) SessionRecord {
	rec := SessionRecord{
		Player:    sum.Player,
		Outcome:   sum.Outcome.String(),
		Ticks:     sum.Ticks,
		RTTLast:   sum.RTT.Last,
		RTTMean:   sum.RTT.Mean,
		Discarded: sum.Discarded,
	}
	if sum.Error != nil {
		rec.ErrorKind = sum.Error.Kind.String()
	}
	return rec
}

// SaveSession records a finished client session.
// Returns the ID of the inserted record.
func (s *Store) SaveSession(rec SessionRecord) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO sessions
		 (player, outcome, error_kind, ticks, rtt_last_ms, rtt_mean_ms, discarded)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Player,
		rec.Outcome,
		nullString(rec.ErrorKind),
		rec.Ticks,
		rec.RTTLast.Milliseconds(),
		rec.RTTMean.Milliseconds(),
		rec.Discarded,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// RecentSessions retrieves the most recent sessions, newest first.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, player, outcome, error_kind, ticks, rtt_last_ms, rtt_mean_ms, discarded, created_at
		 FROM sessions
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var errorKind sql.NullString
		var rttLast, rttMean int64
		var createdAt any

		if err := rows.Scan(
			&rec.ID,
			&rec.Player,
			&rec.Outcome,
			&errorKind,
			&rec.Ticks,
			&rttLast,
			&rttMean,
			&rec.Discarded,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}

		rec.ErrorKind = errorKind.String
		rec.RTTLast = time.Duration(rttLast) * time.Millisecond
		rec.RTTMean = time.Duration(rttMean) * time.Millisecond
		rec.CreatedAt = parseTime(createdAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return records, nil
}

// PlayerStats contains aggregated session statistics for one player.
type PlayerStats struct {
	Player   string
	Sessions int
	Wins     int
	Failures int
	AvgRTT   time.Duration
}

// GetPlayerStats aggregates the session history of player.
func (s *Store) GetPlayerStats(player string) (*PlayerStats, error) {
	stats := &PlayerStats{Player: player}
	var avgRTT float64

	err := s.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN outcome = 'won' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
		        COALESCE(AVG(rtt_mean_ms), 0)
		 FROM sessions WHERE player = ?`,
		player,
	).Scan(&stats.Sessions, &stats.Wins, &stats.Failures, &avgRTT)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get player stats: %w", err)
	}
	stats.AvgRTT = time.Duration(avgRTT * float64(time.Millisecond))

	return stats, nil
}

// SaveMatch records the result of an authoritative match.
// Returns the ID of the inserted record.
func (s *Store) SaveMatch(rec MatchRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO matches
		 (match_id, players, winner, end_reason, ticks, duration_secs)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.MatchID,
		rec.Players,
		nullString(rec.Winner),
		rec.EndReason,
		rec.Ticks,
		rec.Duration,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// MatchByID retrieves a match by its match ID. It returns nil, nil when no
// such match exists.
func (s *Store) MatchByID(matchID string) (*MatchRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, match_id, players, winner, end_reason, ticks, duration_secs, created_at
		 FROM matches
		 WHERE match_id = ?`,
		matchID,
	)
	rec, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match: %w", err)
	}
	return rec, nil
}

// RecentMatches retrieves the most recent matches, newest first.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, match_id, players, winner, end_reason, ticks, duration_secs, created_at
		 FROM matches
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (*MatchRecord, error) {
	var rec MatchRecord
	var winner sql.NullString
	var createdAt any

	if err := row.Scan(
		&rec.ID,
		&rec.MatchID,
		&rec.Players,
		&winner,
		&rec.EndReason,
		&rec.Ticks,
		&rec.Duration,
		&createdAt,
	); err != nil {
		return nil, err
	}
	rec.Winner = winner.String
	rec.CreatedAt = parseTime(createdAt)
	return &rec, nil
}

// SaveMatchResult implements network.MatchResultSaver.
// This adapter allows the server to save match results without direct storage dependency.
func (s *Store) SaveMatchResult(result network.MatchResult) error {
	_, err := s.SaveMatch(MatchRecord{
		MatchID:   result.MatchID,
		Players:   result.Players,
		Winner:    result.Winner,
		EndReason: result.Reason.String(),
		Ticks:     result.Ticks,
		Duration:  int(result.Duration.Seconds()),
	})
	return err
}

// Ensure Store implements MatchResultSaver
var _ network.MatchResultSaver = (*Store)(nil)

// parseTime handles both time.Time and string datetimes from the driver.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

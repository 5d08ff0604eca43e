package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// GameRecord is the flattened game summary persisted by the snapshot sink.
// StateJSON carries the full serialized game state for offline inspection.
type GameRecord struct {
	ID         string
	RoomID     string
	BoardType  string
	Status     string
	WinnerID   string
	DeckSeed   int64
	DeckCursor int
	TurnCount  int
	StateJSON  string
}

// SnapshotStore is a write-only sqlite sink for game snapshots. The
// in-memory registry stays canonical; nothing here is ever read back by
// the server core.
type SnapshotStore struct {
	db *sql.DB
}

// Open creates or opens the snapshot database.
func Open(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SnapshotStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			board_type TEXT NOT NULL,
			status TEXT NOT NULL,
			winner_id TEXT,
			deck_seed INTEGER NOT NULL,
			deck_cursor INTEGER NOT NULL,
			turn_count INTEGER NOT NULL,
			state_json TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// SaveGame upserts a game snapshot.
func (s *SnapshotStore) SaveGame(rec *GameRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO games (id, room_id, board_type, status, winner_id,
			deck_seed, deck_cursor, turn_count, state_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			winner_id = excluded.winner_id,
			deck_cursor = excluded.deck_cursor,
			turn_count = excluded.turn_count,
			state_json = excluded.state_json,
			updated_at = CURRENT_TIMESTAMP
	`, rec.ID, rec.RoomID, rec.BoardType, rec.Status, rec.WinnerID,
		rec.DeckSeed, rec.DeckCursor, rec.TurnCount, rec.StateJSON)
	if err != nil {
		return fmt.Errorf("failed to save game snapshot: %v", err)
	}
	return nil
}

// DeleteGame drops a game snapshot.
func (s *SnapshotStore) DeleteGame(gameID string) error {
	if _, err := s.db.Exec("DELETE FROM games WHERE id = ?", gameID); err != nil {
		return fmt.Errorf("failed to delete game snapshot: %v", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

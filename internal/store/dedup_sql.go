package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Compile-time checks that both SQL stores implement DedupRepo.
var (
	_ DedupRepo = (*SQLiteStore)(nil)
	_ DedupRepo = (*PostgresStore)(nil)
)

func (s *sqlStore) IsDuplicate(messageID string) (bool, error) {
	var id string
	err := s.db.QueryRow(s.q(`SELECT message_id FROM inbound_dedup WHERE message_id = ?`), messageID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return true, nil
}

// RecordInbound relies on the primary key so concurrent deliveries of the
// same id record exactly once.
func (s *sqlStore) RecordInbound(messageID, phone string) (bool, error) {
	result, err := s.db.Exec(
		s.q(`INSERT INTO inbound_dedup (message_id, phone, received_at) VALUES (?, ?, ?) ON CONFLICT (message_id) DO NOTHING`),
		messageID, phone, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("record inbound failed: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dedup rows affected check failed: %w", err)
	}
	return n > 0, nil
}

func (s *sqlStore) MarkProcessed(messageID string) error {
	_, err := s.db.Exec(
		s.q(`UPDATE inbound_dedup SET processed_at = ? WHERE message_id = ?`),
		time.Now().UTC(), messageID,
	)
	if err != nil {
		return fmt.Errorf("mark processed failed: %w", err)
	}
	return nil
}

func (s *sqlStore) PurgeBefore(before time.Time) (int, error) {
	result, err := s.db.Exec(
		s.q(`DELETE FROM inbound_dedup WHERE received_at < ?`),
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge dedup failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected check failed: %w", err)
	}
	return int(n), nil
}

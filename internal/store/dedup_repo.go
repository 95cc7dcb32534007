package store

import (
	"log/slog"
	"time"
)

// DefaultDedupRetention is how long processed message ids are remembered.
const DefaultDedupRetention = 24 * time.Hour

// DedupRecord represents an inbound message deduplication record.
type DedupRecord struct {
	MessageID   string     `json:"message_id"`
	Phone       string     `json:"phone"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// DedupRepo defines the interface for inbound message deduplication.
// Webhook providers retry deliveries; the chat webhook records each provider
// message id before running a turn so a retry is acknowledged without a second reply.
type DedupRepo interface {
	// IsDuplicate checks if a message ID has already been seen.
	IsDuplicate(messageID string) (bool, error)

	// RecordInbound inserts a new inbound message record. Returns false if the
	// message was already recorded (duplicate).
	RecordInbound(messageID, phone string) (bool, error)

	// MarkProcessed sets the processed_at timestamp for a message.
	MarkProcessed(messageID string) error

	// PurgeBefore deletes records received before the cutoff, processed or
	// not. A record whose reply never went out is kept no longer than one
	// that succeeded.
	PurgeBefore(before time.Time) (int, error)
}

// DedupSweeper purges records older than the retention window on each Sweep.
type DedupSweeper struct {
	repo      DedupRepo
	retention time.Duration
	now       func() time.Time
}

// NewDedupSweeper creates a sweeper keeping records for retention.
func NewDedupSweeper(repo DedupRepo, retention time.Duration) *DedupSweeper {
	if retention <= 0 {
		retention = DefaultDedupRetention
	}
	return &DedupSweeper{repo: repo, retention: retention, now: time.Now}
}

// Sweep purges expired records and returns the count removed.
func (d *DedupSweeper) Sweep() int {
	n, err := d.repo.PurgeBefore(d.now().Add(-d.retention))
	if err != nil {
		slog.Error("DedupSweeper.Sweep: purge failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Debug("DedupSweeper.Sweep: purged records", "count", n)
	}
	return n
}

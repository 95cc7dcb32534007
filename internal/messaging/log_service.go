package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
)

// LogService logs outbound messages instead of sending them. It backs the
// "none" backend and records messages for inspection.
type LogService struct {
	*eventChannels
	mu   sync.Mutex
	sent []models.Response
}

// NewLogService creates a LogService.
func NewLogService() *LogService {
	return &LogService{eventChannels: newEventChannels("LogService")}
}

func (s *LogService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return CanonicalizePhone(recipient)
}

func (s *LogService) Start(ctx context.Context) error { return nil }

func (s *LogService) Stop() error {
	s.close()
	return nil
}

func (s *LogService) SendMessage(ctx context.Context, to string, body string) error {
	if s.isStopped() {
		return ErrServiceStopped
	}
	canonicalTo, err := s.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, models.Response{From: canonicalTo, Body: body, Time: time.Now().Unix()})
	s.mu.Unlock()
	recordSend("log", nil)
	slog.Info("LogService.SendMessage", "to", canonicalTo, "body", body)
	return nil
}

// Sent returns the recorded messages; From holds the recipient.
func (s *LogService) Sent() []models.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Response(nil), s.sent...)
}

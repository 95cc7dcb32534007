package messaging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/twiliowhatsapp"
)

type memDedup struct {
	mu        sync.Mutex
	seen      map[string]bool
	processed map[string]bool
}

func newMemDedup() *memDedup {
	return &memDedup{seen: map[string]bool{}, processed: map[string]bool{}}
}

func (d *memDedup) RecordInbound(id, who string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false, nil
	}
	d.seen[id] = true
	return true, nil
}

func (d *memDedup) MarkProcessed(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processed[id] = true
	return nil
}

func echoChat(calls *int) ChatFunc {
	return func(ctx context.Context, identity, utterance string) (string, error) {
		*calls++
		return "echo: " + utterance, nil
	}
}

func TestProcessResponseRepliesOnce(t *testing.T) {
	svc := NewLogService()
	dedup := newMemDedup()
	calls := 0
	rh := NewResponseHandler(svc, echoChat(&calls), WithDeduplicator(dedup))

	msg := models.Response{MessageID: "wamid.1", From: "971500000001", Body: "menu please"}
	outcome, err := rh.ProcessResponse(context.Background(), msg)
	if err != nil || outcome != OutcomeReplied {
		t.Fatalf("first delivery = %v, %v", outcome, err)
	}
	outcome, err = rh.ProcessResponse(context.Background(), msg)
	if err != nil || outcome != OutcomeDuplicate {
		t.Fatalf("redelivery = %v, %v", outcome, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 chat call, got %d", calls)
	}
	sent := svc.Sent()
	if len(sent) != 1 || sent[0].From != "971500000001" || sent[0].Body != "echo: menu please" {
		t.Errorf("unexpected sent messages: %+v", sent)
	}
	if !dedup.processed["wamid.1"] {
		t.Error("expected message marked processed")
	}
}

func TestProcessResponseChatFailureSendsApology(t *testing.T) {
	svc := NewLogService()
	rh := NewResponseHandler(svc, func(ctx context.Context, identity, utterance string) (string, error) {
		return "", errors.New("no model")
	}, WithErrorMessage("try later"))

	outcome, err := rh.ProcessResponse(context.Background(), models.Response{From: "971500000001", Body: "hi"})
	if err == nil || outcome != OutcomeFailed {
		t.Fatalf("expected failure, got %v, %v", outcome, err)
	}
	if sent := svc.Sent(); len(sent) != 1 || sent[0].Body != "try later" {
		t.Errorf("expected apology, got %+v", sent)
	}
}

func TestProcessResponseRejectsBadInput(t *testing.T) {
	svc := NewLogService()
	calls := 0
	rh := NewResponseHandler(svc, echoChat(&calls))

	if outcome, err := rh.ProcessResponse(context.Background(), models.Response{From: "x", Body: "hi"}); err == nil || outcome != OutcomeFailed {
		t.Errorf("invalid sender = %v, %v", outcome, err)
	}
	if outcome, err := rh.ProcessResponse(context.Background(), models.Response{From: "971500000001", Body: "  "}); err != nil || outcome != OutcomeEmpty {
		t.Errorf("blank body = %v, %v", outcome, err)
	}
	if calls != 0 {
		t.Errorf("chat should not run, got %d calls", calls)
	}
}

func TestTwilioWebhookFeedsResponseHandler(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)
	replied := make(chan struct{}, 1)
	rh := NewResponseHandler(svc, func(ctx context.Context, identity, utterance string) (string, error) {
		defer func() { replied <- struct{}{} }()
		return "Hello " + identity, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rh.Start(ctx)

	form := url.Values{"From": {"whatsapp:+971500000001"}, "Body": {"hi"}, "MessageSid": {"SM1"}}
	req := httptest.NewRequest(http.MethodPost, "/twilio/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	svc.TwilioWebhookHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	select {
	case <-replied:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat")
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(mock.Sent()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	sent := mock.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 reply, got %+v", sent)
	}
	if sent[0].To != "+971500000001" || sent[0].Body != "Hello 971500000001" {
		t.Errorf("unexpected reply %+v", sent[0])
	}
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/fixtures"
	"github.com/shaiso/Journey/internal/mq"
	"github.com/shaiso/Journey/internal/repo"
)

type stubBlueprints map[uuid.UUID]*domain.Blueprint

func (s stubBlueprints) GetByID(_ context.Context, id uuid.UUID) (*domain.Blueprint, error) {
	bp, ok := s[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return bp, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Backoff:      "exponential",
		OnStatus:     []int{429, 503},
	}
}

// newTestWorker создаёт worker с blueprint, указывающим на server.
func newTestWorker(t *testing.T, webhookURL string) (*Worker, uuid.UUID) {
	t.Helper()
	bp := &domain.Blueprint{ID: uuid.New(), Name: "onboard-customer", WebhookURL: webhookURL}
	w := New(Config{
		Blueprints: stubBlueprints{bp.ID: bp},
		Retry:      fastRetry(),
		Logger:     quietLogger(),
	})
	return w, bp.ID
}

func formReady(blueprintID uuid.UUID) *mq.Delivery {
	msg := mq.NewMessage(mq.MessageTypeFormReady, mq.FormReadyPayload{
		JourneyID:   uuid.New(),
		BlueprintID: blueprintID,
		NodeID:      fixtures.NodeD,
		FormID:      fixtures.FormD,
		Prefill:     map[string]any{"email": "jane@acme.com"},
	})
	return &mq.Delivery{Message: *msg}
}

// --- Webhook Tests ---

func TestHandleFormReady_Delivered(t *testing.T) {
	var received Notification
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		headers = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	w, blueprintID := newTestWorker(t, server.URL)
	delivery := formReady(blueprintID)

	if err := w.handleFormReady(context.Background(), delivery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Event != "form.ready" {
		t.Errorf("expected event form.ready, got %q", received.Event)
	}
	if received.NodeID != fixtures.NodeD || received.FormID != fixtures.FormD {
		t.Errorf("unexpected node/form: %s/%s", received.NodeID, received.FormID)
	}
	if received.Prefill["email"] != "jane@acme.com" {
		t.Errorf("prefill not delivered: %v", received.Prefill)
	}
	if headers.Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type, got %q", headers.Get("Content-Type"))
	}
	if headers.Get("X-Journey-Delivery") != delivery.Message.ID {
		t.Errorf("delivery header should carry message id")
	}
}

func TestHandleFormReady_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w, blueprintID := newTestWorker(t, server.URL)

	if err := w.handleFormReady(context.Background(), formReady(blueprintID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestHandleFormReady_Exhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	w, blueprintID := newTestWorker(t, server.URL)

	err := w.handleFormReady(context.Background(), formReady(blueprintID))
	if !errors.Is(err, mq.ErrDiscard) || !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("expected discarded ErrRetryExhausted, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected MaxAttempts calls, got %d", calls)
	}
}

func TestHandleFormReady_Rejected(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	w, blueprintID := newTestWorker(t, server.URL)

	err := w.handleFormReady(context.Background(), formReady(blueprintID))
	if !errors.Is(err, ErrWebhookRejected) || !errors.Is(err, mq.ErrDiscard) {
		t.Errorf("expected discarded ErrWebhookRejected, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("4xx should not be retried, got %d calls", calls)
	}
}

func TestHandleFormReady_NoWebhook(t *testing.T) {
	w, blueprintID := newTestWorker(t, "")

	if err := w.handleFormReady(context.Background(), formReady(blueprintID)); err != nil {
		t.Errorf("blueprint without webhook should be acked, got %v", err)
	}
}

func TestHandleFormReady_BlueprintDeleted(t *testing.T) {
	w, _ := newTestWorker(t, "http://unused.invalid")

	if err := w.handleFormReady(context.Background(), formReady(uuid.New())); err != nil {
		t.Errorf("deleted blueprint should be acked, got %v", err)
	}
}

func TestHandleFormReady_BadPayload(t *testing.T) {
	w, _ := newTestWorker(t, "")
	delivery := &mq.Delivery{Message: mq.Message{Type: mq.MessageTypeFormReady, Payload: []any{1, 2}}}

	if err := w.handleFormReady(context.Background(), delivery); !errors.Is(err, mq.ErrDiscard) {
		t.Errorf("expected discard, got %v", err)
	}
}

func TestHandleFormReady_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	bp := &domain.Blueprint{ID: uuid.New(), WebhookURL: server.URL}
	w := New(Config{
		Blueprints: stubBlueprints{bp.ID: bp},
		Retry:      RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, Backoff: "fixed", OnStatus: []int{503}},
		Logger:     quietLogger(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := w.handleFormReady(ctx, formReady(bp.ID))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
	if errors.Is(err, mq.ErrDiscard) {
		t.Error("interrupted delivery should be requeued, not discarded")
	}
}

func TestWebhookNotifier_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	n := NewWebhookNotifier(&http.Client{Timeout: time.Second})
	_, err := n.Notify(context.Background(), url, "d-1", &Notification{Event: "form.ready"})
	if !errors.Is(err, ErrWebhookRequest) {
		t.Errorf("expected ErrWebhookRequest, got %v", err)
	}
}

// --- Retry Tests ---

func TestCalculateBackoff_Exponential(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Backoff:      "exponential",
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped at MaxDelay
		{6, 10 * time.Second},
	}

	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, policy); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestCalculateBackoff_Fixed(t *testing.T) {
	policy := RetryPolicy{InitialDelay: 2 * time.Second, Backoff: "fixed"}

	for attempt := 1; attempt <= 4; attempt++ {
		if got := calculateBackoff(attempt, policy); got != 2*time.Second {
			t.Errorf("attempt %d: expected 2s, got %v", attempt, got)
		}
	}
}

func TestCalculateBackoff_ZeroValues(t *testing.T) {
	if got := calculateBackoff(1, RetryPolicy{}); got != time.Second {
		t.Errorf("expected default 1s, got %v", got)
	}
}

func TestShouldRetryHTTPStatus(t *testing.T) {
	onStatus := []int{429, 503}

	if !shouldRetryHTTPStatus(503, onStatus) {
		t.Error("503 should be retried")
	}
	if shouldRetryHTTPStatus(400, onStatus) {
		t.Error("400 should not be retried")
	}
	if shouldRetryHTTPStatus(500, nil) {
		t.Error("empty OnStatus retries nothing")
	}
}

func TestDefaultRetryPolicy_Statuses(t *testing.T) {
	onStatus := DefaultRetryPolicy().OnStatus

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !shouldRetryHTTPStatus(code, onStatus) {
			t.Errorf("%d should be retried", code)
		}
	}
	for _, code := range []int{400, 404, 501, 505} {
		if shouldRetryHTTPStatus(code, onStatus) {
			t.Errorf("%d should not be retried", code)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		// "é" занимает два байта, граница 2 попадает внутрь символа
		{"aéb", 2, "a..."},
		{"привет", 5, "пр..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.maxLen)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.maxLen)
		}
	}
}

// --- Lifecycle Tests ---

func TestNew_DefaultConfig(t *testing.T) {
	w := New(Config{})

	if w.retry.MaxAttempts != DefaultRetryPolicy().MaxAttempts {
		t.Errorf("expected default retry policy, got %+v", w.retry)
	}
	if w.prefetch != defaultPrefetch {
		t.Errorf("expected prefetch %d, got %d", defaultPrefetch, w.prefetch)
	}
	if w.logger == nil || w.notifier == nil {
		t.Error("logger and notifier should be set")
	}
}

func TestWorker_StartWithoutConnection(t *testing.T) {
	w := New(Config{Logger: quietLogger()})

	if err := w.Start(context.Background()); !errors.Is(err, ErrNoConnection) {
		t.Errorf("expected ErrNoConnection, got %v", err)
	}
}

func TestWorker_IsStopped(t *testing.T) {
	w := New(Config{Logger: quietLogger()})

	if w.IsStopped() {
		t.Error("new worker should not be stopped")
	}
	w.Stop()
	if !w.IsStopped() {
		t.Error("worker should be stopped after Stop()")
	}
}

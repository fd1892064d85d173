package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/shaiso/Journey/internal/domain"
)

func newTestCache(t *testing.T) (*WalkCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFromClient(client, WithTTL(time.Minute), WithLogger(logger)), mr
}

func testKey(blueprintID uuid.UUID) Key {
	return Key{
		BlueprintID: blueprintID,
		Version:     time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC),
		Node:        "node-d",
		Direction:   DirectionUpstream,
	}
}

func TestWalkCache_ReadThrough(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := testKey(uuid.New())

	calls := 0
	compute := func() []domain.Form {
		calls++
		return []domain.Form{{ID: "f_b", Name: "Form B"}, {ID: "f_a", Name: "Form A"}}
	}

	first := c.Forms(ctx, key, compute)
	second := c.Forms(ctx, key, compute)

	if calls != 1 {
		t.Errorf("expected compute to be called once, got %d", calls)
	}
	if len(second) != 2 || second[0].ID != "f_b" || second[1].ID != "f_a" {
		t.Errorf("cached result differs: %+v", second)
	}
	if len(first) != len(second) {
		t.Error("first and cached results should match")
	}
}

func TestWalkCache_KeyParts(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := testKey(uuid.New())

	calls := 0
	compute := func() []domain.Form {
		calls++
		return []domain.Form{}
	}

	c.Forms(ctx, key, compute)

	// Другой режим, направление и версия — другие ключи
	direct := key
	direct.DirectOnly = true
	c.Forms(ctx, direct, compute)

	down := key
	down.Direction = DirectionDownstream
	c.Forms(ctx, down, compute)

	updated := key
	updated.Version = key.Version.Add(time.Second)
	c.Forms(ctx, updated, compute)

	if calls != 4 {
		t.Errorf("expected 4 computations, got %d", calls)
	}
}

func TestWalkCache_TTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := testKey(uuid.New())

	calls := 0
	compute := func() []domain.Form {
		calls++
		return []domain.Form{}
	}

	c.Forms(ctx, key, compute)
	mr.FastForward(2 * time.Minute)
	c.Forms(ctx, key, compute)

	if calls != 2 {
		t.Errorf("expected entry to expire, got %d computations", calls)
	}
}

func TestWalkCache_Invalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	blueprintID := uuid.New()
	other := uuid.New()

	c.Forms(ctx, testKey(blueprintID), func() []domain.Form { return []domain.Form{} })
	c.Forms(ctx, testKey(other), func() []domain.Form { return []domain.Form{} })

	if err := c.Invalidate(ctx, blueprintID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mr.Keys()) != 1 {
		t.Errorf("expected only the other blueprint's key, got %v", mr.Keys())
	}
}

func TestWalkCache_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := backend.NewClient(&backend.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewFromClient(client, WithLogger(logger))

	// Redis недоступен
	mr.Close()

	calls := 0
	forms := c.Forms(context.Background(), testKey(uuid.New()), func() []domain.Form {
		calls++
		return []domain.Form{{ID: "f_a"}}
	})

	if calls != 1 || len(forms) != 1 {
		t.Errorf("expected direct computation when Redis is down, got %d calls, %v", calls, forms)
	}
}

func TestWalkCache_Nil(t *testing.T) {
	var c *WalkCache

	forms := c.Forms(context.Background(), testKey(uuid.New()), func() []domain.Form {
		return []domain.Form{{ID: "f_a"}}
	})
	if len(forms) != 1 {
		t.Errorf("nil cache should compute directly, got %v", forms)
	}
	if err := c.Invalidate(context.Background(), uuid.New()); err != nil {
		t.Errorf("nil cache invalidate should be a no-op: %v", err)
	}
}

func TestLookup_Generic(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := testKey(uuid.New())
	key.Direction = DirectionCandidates

	type candidate struct {
		NodeID string `json:"node_id"`
		Direct bool   `json:"direct"`
	}

	calls := 0
	compute := func() []candidate {
		calls++
		return []candidate{{NodeID: "node-b", Direct: true}}
	}

	Lookup(ctx, c, key, compute)
	got := Lookup(ctx, c, key, compute)

	if calls != 1 {
		t.Errorf("expected one computation, got %d", calls)
	}
	if len(got) != 1 || got[0].NodeID != "node-b" || !got[0].Direct {
		t.Errorf("unexpected cached value: %+v", got)
	}
}

package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/citievents/internal/api"
	"github.com/dukerupert/citievents/internal/api/apitest"
	"github.com/dukerupert/citievents/internal/model"
)

func TestSyncerRefreshFromBackend(t *testing.T) {
	backend := apitest.New(t)
	backend.Items = []model.Item{
		event(t, "2", "Later", "2024-02-01"),
		event(t, "1", "Sooner", "2024-01-01"),
		{ID: "a", Type: model.TypeAnnouncement, Title: "News"},
		{ID: "x", Type: "mystery"},
	}
	backend.RSVPCounts = model.Counts{"1": 3}

	s := NewSyncer(api.New(backend.URL()), nil)
	var notified []uint64
	s.Subscribe(func(snap Snapshot) { notified = append(notified, snap.Generation) })

	snap, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(snap.Events) != 2 || snap.Events[0].ID != "1" {
		t.Errorf("events = %v, want sorted by date", snap.Events)
	}
	if len(snap.Announcements) != 1 {
		t.Errorf("announcements = %v", snap.Announcements)
	}
	if snap.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", snap.Dropped)
	}
	if snap.RSVPCounts["1"] != 3 {
		t.Errorf("rsvp counts = %v", snap.RSVPCounts)
	}
	if len(notified) != 1 || notified[0] != snap.Generation {
		t.Errorf("notified = %v", notified)
	}
}

func TestSyncerFailureKeepsPreviousSnapshot(t *testing.T) {
	backend := apitest.New(t)
	backend.Items = []model.Item{event(t, "1", "One", "2024-01-01")}
	s := NewSyncer(api.New(backend.URL()), nil)

	first, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	backend.Fail("GET", "/rsvp-counts", 500, "counts unavailable")
	_, err = s.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if api.Message(err) != "counts unavailable" {
		t.Errorf("message = %q", api.Message(err))
	}
	if s.Snapshot().Generation != first.Generation {
		t.Errorf("generation = %d, want %d", s.Snapshot().Generation, first.Generation)
	}
}

// gatedFetcher blocks ListItems calls until their gate is released, so the
// test controls completion order.
type gatedFetcher struct {
	mu    sync.Mutex
	gates []chan []model.Item
}

func (f *gatedFetcher) ListItems(ctx context.Context) ([]model.Item, error) {
	gate := make(chan []model.Item)
	f.mu.Lock()
	f.gates = append(f.gates, gate)
	f.mu.Unlock()
	select {
	case items := <-gate:
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *gatedFetcher) RSVPCounts(ctx context.Context) (model.Counts, error) {
	return model.Counts{}, nil
}

func (f *gatedFetcher) gate(t *testing.T, i int) chan []model.Item {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		if len(f.gates) > i {
			g := f.gates[i]
			f.mu.Unlock()
			return g
		}
		f.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("fetch %d never started", i)
	return nil
}

func TestSyncerDiscardsStaleResponse(t *testing.T) {
	f := &gatedFetcher{}
	s := NewSyncer(f, nil)
	ctx := context.Background()

	older := make(chan Snapshot, 1)
	go func() {
		snap, _ := s.Refresh(ctx)
		older <- snap
	}()
	f.gate(t, 0)

	newer := make(chan Snapshot, 1)
	go func() {
		snap, _ := s.Refresh(ctx)
		newer <- snap
	}()

	// The later refresh completes first.
	f.gate(t, 1) <- []model.Item{event(t, "new", "New", "2024-01-01")}
	got := <-newer
	if got.Generation != 2 {
		t.Fatalf("newer generation = %d, want 2", got.Generation)
	}

	f.gate(t, 0) <- []model.Item{event(t, "old", "Old", "2024-01-01")}
	stale := <-older
	if stale.Generation != 2 || stale.Events[0].ID != "new" {
		t.Errorf("stale refresh returned %+v, want the newer snapshot", stale)
	}
	if cur := s.Snapshot(); cur.Events[0].ID != "new" {
		t.Errorf("current events = %v, stale response applied", cur.Events)
	}
}

func TestSyncerLoadedFetchesOnce(t *testing.T) {
	backend := apitest.New(t)
	s := NewSyncer(api.New(backend.URL()), nil)
	ctx := context.Background()

	if _, err := s.Loaded(ctx); err != nil {
		t.Fatalf("loaded: %v", err)
	}
	if _, err := s.Loaded(ctx); err != nil {
		t.Fatalf("loaded: %v", err)
	}
	if n := backend.Calls("GET", "/events"); n != 1 {
		t.Errorf("GET /events calls = %d, want 1", n)
	}
}

func TestUnsubscribe(t *testing.T) {
	backend := apitest.New(t)
	s := NewSyncer(api.New(backend.URL()), nil)

	calls := 0
	cancel := s.Subscribe(func(Snapshot) { calls++ })
	s.Refresh(context.Background())
	cancel()
	s.Refresh(context.Background())

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRefresherRejectsBadSpec(t *testing.T) {
	if _, err := NewRefresher(NewSyncer(&gatedFetcher{}, nil), "not a schedule", time.Second, nil); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestRefresherRun(t *testing.T) {
	backend := apitest.New(t)
	s := NewSyncer(api.New(backend.URL()), nil)
	r, err := NewRefresher(s, "*/5 * * * *", time.Second, nil)
	if err != nil {
		t.Fatalf("new refresher: %v", err)
	}
	r.Start()
	r.run()
	r.Stop()

	if s.Snapshot().Generation == 0 {
		t.Error("scheduled run did not refresh")
	}
}

func TestRefresherRunLogsFailure(t *testing.T) {
	backend := apitest.New(t)
	backend.Fail("GET", "/events", 503, "down")
	s := NewSyncer(api.New(backend.URL()), nil)
	r, err := NewRefresher(s, "@every 1h", time.Second, nil)
	if err != nil {
		t.Fatalf("new refresher: %v", err)
	}
	r.run()
	if s.Snapshot().Generation != 0 {
		t.Error("failed refresh applied a snapshot")
	}
	var re *api.RequestError
	_, err = s.Refresh(context.Background())
	if !errors.As(err, &re) || re.Status != 503 {
		t.Errorf("err = %v, want 503 request error", err)
	}
}

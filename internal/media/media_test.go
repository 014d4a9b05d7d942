package media

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/citievents/internal/api"
	"github.com/dukerupert/citievents/internal/api/apitest"
	"github.com/dukerupert/citievents/internal/model"
)

func abc() []model.Media {
	return []model.Media{{MediaID: "A"}, {MediaID: "B"}, {MediaID: "C"}}
}

func ids(list []model.Media) string {
	var s string
	for _, m := range list {
		s += m.MediaID.String()
	}
	return s
}

func ptr(i int) *int { return &i }

func TestReorder(t *testing.T) {
	tests := []struct {
		name string
		src  int
		dst  *int
		want string
	}{
		{"first to last", 0, ptr(2), "BCA"},
		{"last to first", 2, ptr(0), "CAB"},
		{"middle down", 1, ptr(2), "ACB"},
		{"same index", 1, ptr(1), "ABC"},
		{"no destination", 0, nil, "ABC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := abc()
			got, err := Reorder(list, tt.src, tt.dst)
			if err != nil {
				t.Fatalf("reorder: %v", err)
			}
			if ids(got) != tt.want {
				t.Errorf("got %s, want %s", ids(got), tt.want)
			}
			if ids(list) != "ABC" {
				t.Errorf("input modified to %s", ids(list))
			}
		})
	}
}

func TestReorderOutOfRange(t *testing.T) {
	for _, tc := range []struct{ src, dst int }{{-1, 0}, {3, 0}, {0, 3}, {0, -1}} {
		got, err := Reorder(abc(), tc.src, ptr(tc.dst))
		if err == nil {
			t.Errorf("Reorder(%d, %d) expected error", tc.src, tc.dst)
		}
		if ids(got) != "ABC" {
			t.Errorf("Reorder(%d, %d) = %s, want unchanged", tc.src, tc.dst, ids(got))
		}
	}
}

func newBackend(t *testing.T) *apitest.Backend {
	t.Helper()
	b := apitest.New(t)
	b.Items = []model.Item{{ID: "1", Type: model.TypeEvent, Title: "Fair"}}
	b.Media["1"] = abc()
	return b
}

type recordingPersister struct {
	calls [][]model.ID
}

func (p *recordingPersister) PersistOrder(ctx context.Context, eventID model.ID, mediaIDs []model.ID) error {
	p.calls = append(p.calls, mediaIDs)
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	b := newBackend(t)
	p := &recordingPersister{}
	s := NewSession(api.New(b.URL()), WithPersister(p))
	ctx := context.Background()

	if s.State() != StateIdle {
		t.Fatalf("state = %s, want idle", s.State())
	}
	if _, err := s.Move(0, ptr(1)); !errors.Is(err, ErrNoSession) {
		t.Errorf("move before open: err = %v, want ErrNoSession", err)
	}

	if _, err := s.Open(ctx, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.State() != StateLoaded {
		t.Errorf("state = %s, want loaded", s.State())
	}

	got, err := s.Move(0, ptr(2))
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if ids(got) != "BCA" || s.State() != StateReordered {
		t.Errorf("after move: %s %s", ids(got), s.State())
	}

	if _, err := s.Move(0, nil); err != nil {
		t.Fatalf("null drop: %v", err)
	}
	if ids(s.Media()) != "BCA" {
		t.Errorf("null drop changed list to %s", ids(s.Media()))
	}

	fields := model.EventFields{Title: "Fair 2", Description: "d"}
	if err := s.Save(ctx, fields); err != nil {
		t.Fatalf("save: %v", err)
	}
	if s.State() != StateSaved {
		t.Errorf("state = %s, want saved", s.State())
	}
	if f, _ := b.Update("1"); f.Title != "Fair 2" {
		t.Errorf("backend update = %+v", f)
	}
	if len(p.calls) != 1 || len(p.calls[0]) != 3 || p.calls[0][0] != "B" {
		t.Errorf("persisted orders = %v", p.calls)
	}

	if _, err := s.Move(0, ptr(1)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("move after save: err = %v, want ErrSessionClosed", err)
	}
	if err := s.Cancel(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("cancel after save: err = %v, want ErrSessionClosed", err)
	}
}

func TestMovingBackIsNotReordered(t *testing.T) {
	s := NewSession(api.New(newBackend(t).URL()))
	s.Open(context.Background(), "1")

	s.Move(0, ptr(2))
	s.Move(2, ptr(0))
	if s.State() != StateLoaded {
		t.Errorf("state = %s, want loaded after restoring order", s.State())
	}
}

func TestSaveWithoutReorderSkipsPersister(t *testing.T) {
	p := &recordingPersister{}
	s := NewSession(api.New(newBackend(t).URL()), WithPersister(p))
	ctx := context.Background()
	s.Open(ctx, "1")

	if err := s.Save(ctx, model.EventFields{Title: "x"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(p.calls) != 0 {
		t.Errorf("persister called %d times, want 0", len(p.calls))
	}
}

func TestCancelDiscardsOrder(t *testing.T) {
	b := newBackend(t)
	s := NewSession(api.New(b.URL()))
	ctx := context.Background()
	s.Open(ctx, "1")
	s.Move(0, ptr(2))

	if err := s.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if s.State() != StateCancelled {
		t.Errorf("state = %s, want cancelled", s.State())
	}
	if ids(s.Media()) != "ABC" {
		t.Errorf("media = %s, want original order", ids(s.Media()))
	}
	if n := b.Calls("PUT", "/events/1"); n != 0 {
		t.Errorf("PUT calls = %d, want 0", n)
	}
}

func TestDeleteIsImmediate(t *testing.T) {
	b := newBackend(t)
	s := NewSession(api.New(b.URL()))
	ctx := context.Background()
	s.Open(ctx, "1")
	s.Move(0, ptr(2))

	got, err := s.Delete(ctx, "B")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ids(got) != "CA" {
		t.Errorf("after delete = %s, want CA", ids(got))
	}
	if left := b.MediaOf("1"); len(left) != 2 {
		t.Errorf("backend media = %v, want 2 left", left)
	}

	s.Cancel()
	if ids(s.Media()) != "AC" {
		t.Errorf("after cancel = %s, want AC (deletion kept)", ids(s.Media()))
	}
}

func TestDeleteFailureKeepsItem(t *testing.T) {
	b := newBackend(t)
	b.Fail("DELETE", "/media/A", 500, "storage error")
	s := NewSession(api.New(b.URL()))
	ctx := context.Background()
	s.Open(ctx, "1")

	if _, err := s.Delete(ctx, "A"); err == nil {
		t.Fatal("expected error")
	}
	if ids(s.Media()) != "ABC" {
		t.Errorf("media = %s, want unchanged", ids(s.Media()))
	}
}

func TestDeleteRejectsOtherEventsMedia(t *testing.T) {
	b := newBackend(t)
	s := NewSession(api.New(b.URL()))
	ctx := context.Background()
	s.Open(ctx, "1")

	if _, err := s.Delete(ctx, "Z"); !errors.Is(err, ErrUnknownMedia) {
		t.Fatalf("err = %v, want ErrUnknownMedia", err)
	}
	if n := b.Calls("DELETE", "/media/Z"); n != 0 {
		t.Errorf("DELETE calls = %d, want 0", n)
	}
}

func TestOpenFailure(t *testing.T) {
	b := newBackend(t)
	b.Fail("GET", "/events/1/media", 404, "event not found")
	s := NewSession(api.New(b.URL()))

	_, err := s.Open(context.Background(), "1")
	if api.Message(err) != "event not found" {
		t.Errorf("err = %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

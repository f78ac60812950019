package archive

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-peerchess/internal/domain"
	"github.com/park285/cheese-peerchess/internal/session"
)

func TestRecorderFollowsSession(t *testing.T) {
	store := NewMemoryStore()
	s := session.New(session.WithID("rec-1"))
	rec := NewRecorder(store, s, nil)
	s.AddListener(rec.Listener())

	for _, mv := range []string{"f2f3", "e7e5", "g2g4"} {
		if err := s.ApplyCoordinate(mv); err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
	}
	rec.Close()

	got, err := store.Load(context.Background(), "rec-1")
	if err != nil || got == nil {
		t.Fatalf("Load: %v, %v", got, err)
	}
	if diff := cmp.Diff([]string{"f3", "e5", "g4"}, got.MovesSAN); diff != "" {
		t.Fatalf("SAN mismatch (-want +got):\n%s", diff)
	}
	active, _ := store.Active(context.Background())
	if len(active) != 1 {
		t.Fatalf("unfinished game should be active, got %d", len(active))
	}
}

func TestRecorderFinishesOnOutcome(t *testing.T) {
	store := NewMemoryStore()
	s := session.New(session.WithID("rec-2"))
	rec := NewRecorder(store, s, nil)
	s.AddListener(rec.Listener())
	rec.Flush()

	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		if err := s.ApplyCoordinate(mv); err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
	}
	rec.Close()
	s.Close()

	got, _ := store.Load(context.Background(), "rec-2")
	if got == nil || !got.Finished() || got.Result != domain.ResultBlack || got.Method != "checkmate" {
		t.Fatalf("final record = %+v", got)
	}
	if active, _ := store.Active(context.Background()); len(active) != 0 {
		t.Fatalf("finished game still active: %+v", active)
	}
}

func TestRecorderIgnoresEventsAfterClose(t *testing.T) {
	store := NewMemoryStore()
	s := session.New(session.WithID("rec-3"))
	rec := NewRecorder(store, s, nil)
	rec.Close()
	rec.Listener()(session.Event{Kind: session.EventMove})
	rec.Close()
	if got, _ := store.Load(context.Background(), "rec-3"); got != nil {
		t.Fatalf("nothing should be written after Close, got %+v", got)
	}
}

// gatedStore holds every Save until release is closed.
type gatedStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Save(ctx context.Context, rec domain.GameRecord) error {
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return g.MemoryStore.Save(ctx, rec)
}

func TestRecorderKeepsFinalRecordWhenQueueIsFull(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := session.New(session.WithID("rec-4"))
	rec := newRecorder(store, s, nil, 1)
	s.AddListener(rec.Listener())

	if err := s.ApplyCoordinate("f2f3"); err != nil {
		t.Fatalf("apply f2f3: %v", err)
	}
	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("writer never picked up the first snapshot")
	}
	// One snapshot fills the queue, the next is dropped.
	for _, mv := range []string{"e7e5", "g2g4"} {
		if err := s.ApplyCoordinate(mv); err != nil {
			t.Fatalf("apply %s: %v", mv, err)
		}
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(store.release)
	}()
	if err := s.ApplyCoordinate("d8h4"); err != nil {
		t.Fatalf("apply d8h4: %v", err)
	}
	rec.Close()
	s.Close()

	got, _ := store.Load(context.Background(), "rec-4")
	if got == nil || !got.Finished() || got.Method != "checkmate" {
		t.Fatalf("final record = %+v", got)
	}
	if active, _ := store.Active(context.Background()); len(active) != 0 {
		t.Fatalf("finished game still active: %+v", active)
	}
}

package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-peerchess/internal/domain"
)

func finished(id string, endedAt time.Time) domain.GameRecord {
	return domain.GameRecord{
		ID:         id,
		LocalColor: "black",
		WhiteName:  "alice",
		BlackName:  "bob",
		Variant:    "standard",
		MovesUCI:   []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		Status:     "checkmate",
		Result:     domain.ResultBlack,
		Method:     "checkmate",
		StartedAt:  endedAt.Add(-90 * time.Second),
		UpdatedAt:  endedAt,
		EndedAt:    endedAt,
	}
}

func TestMemoryRecentOrder(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.SaveResult(ctx, finished(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("SaveResult(%s): %v", id, err)
		}
	}
	got, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var ids []string
	for _, g := range got {
		ids = append(ids, g.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Fatalf("Recent ids (-want +got):\n%s", diff)
	}
}

func TestMemoryUpsertReplaces(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()
	rec := finished("g", time.Now())
	_ = repo.SaveResult(ctx, rec)
	rec.Result, rec.Method = domain.ResultDraw, "draw_agreed"
	if err := repo.SaveResult(ctx, rec); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	got, _ := repo.Recent(ctx, 0)
	if len(got) != 1 || got[0].Result != domain.ResultDraw {
		t.Fatalf("expected a single draw, got %+v", got)
	}
}

func TestSaveResultRejectsUnfinished(t *testing.T) {
	repo := NewMemory()
	rec := finished("g", time.Now())
	rec.EndedAt = time.Time{}
	if err := repo.SaveResult(context.Background(), rec); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected ErrNotFinished, got %v", err)
	}
	if err := repo.SaveResult(context.Background(), domain.GameRecord{}); !errors.Is(err, ErrNoGameID) {
		t.Fatalf("expected ErrNoGameID, got %v", err)
	}
}

func TestReporterAdapter(t *testing.T) {
	repo := NewMemory()
	if err := (Reporter{Repo: repo}).ReportResult(context.Background(), finished("r", time.Now())); err != nil {
		t.Fatalf("ReportResult: %v", err)
	}
	if got, _ := repo.Recent(context.Background(), 1); len(got) != 1 {
		t.Fatalf("expected stored result")
	}
	if err := (Reporter{}).ReportResult(context.Background(), domain.GameRecord{}); err != nil {
		t.Fatalf("nil repo should be a no-op: %v", err)
	}
}

func TestBuildRowFillsSANAndPGN(t *testing.T) {
	w, err := buildRow(finished("g", time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("buildRow: %v", err)
	}
	if string(w.movesSAN) != `["f3","e5","g4","Qh4#"]` {
		t.Fatalf("moves_san = %s", w.movesSAN)
	}
	if !strings.Contains(w.pgn, "2. g4 Qh4# 0-1") {
		t.Fatalf("pgn = %s", w.pgn)
	}
	if w.duration != 90_000 {
		t.Fatalf("duration = %d", w.duration)
	}
}

func TestBuildRowEmptyMoves(t *testing.T) {
	rec := finished("g", time.Now())
	rec.MovesUCI = nil
	w, err := buildRow(rec)
	if err != nil {
		t.Fatalf("buildRow: %v", err)
	}
	if string(w.movesUCI) != "[]" || string(w.movesSAN) != "[]" {
		t.Fatalf("expected empty json arrays, got %s %s", w.movesUCI, w.movesSAN)
	}
}

func TestNewPostgresRequiresURL(t *testing.T) {
	if _, err := NewPostgres("  "); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

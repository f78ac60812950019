package repository

import (
	"context"
	"errors"

	"github.com/park285/cheese-peerchess/internal/domain"
)

var (
	ErrNotFinished = errors.New("game has not finished")
	ErrNoGameID    = errors.New("game id is required")
)

// Repository stores finished games.
type Repository interface {
	SaveResult(ctx context.Context, rec domain.GameRecord) error
	Recent(ctx context.Context, limit int) ([]domain.GameRecord, error)
	Close() error
}

// Reporter lets a Repository receive results from a session.
type Reporter struct {
	Repo Repository
}

func (r Reporter) ReportResult(ctx context.Context, rec domain.GameRecord) error {
	if r.Repo == nil {
		return nil
	}
	return r.Repo.SaveResult(ctx, rec)
}

func validate(rec domain.GameRecord) error {
	if rec.ID == "" {
		return ErrNoGameID
	}
	if rec.Result == "" || !rec.Finished() {
		return ErrNotFinished
	}
	return nil
}

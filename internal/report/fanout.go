package report

import (
	"context"
	"errors"

	"github.com/park285/cheese-peerchess/internal/domain"
)

// Reporter matches session.Reporter without importing it.
type Reporter interface {
	ReportResult(ctx context.Context, rec domain.GameRecord) error
}

// Fanout delivers a result to every reporter in order. A failing reporter
// does not stop the rest; errors are joined. ErrNoToken is not an error here.
type Fanout []Reporter

func (f Fanout) ReportResult(ctx context.Context, rec domain.GameRecord) error {
	var errs []error
	for _, r := range f {
		if r == nil {
			continue
		}
		if err := r.ReportResult(ctx, rec.Clone()); err != nil && !errors.Is(err, ErrNoToken) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

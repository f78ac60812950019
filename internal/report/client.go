package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/park285/cheese-peerchess/internal/domain"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var (
	ErrNoToken   = errors.New("no access token")
	ErrNoGameID  = errors.New("game id is required")
	ErrRejected  = errors.New("result rejected by server")
	ErrNoBaseURL = errors.New("report base url is required")
)

// AuthContext carries the credentials of the signed-in player.
type AuthContext struct {
	AccessToken  string
	RefreshToken string
	DisplayName  string
	UserID       string
}

type endGameRequest struct {
	WinnerColor string `json:"winnerColor,omitempty"`
	Result      string `json:"result,omitempty"`
}

type Option func(*HTTPReporter)

func WithTimeout(d time.Duration) Option {
	return func(r *HTTPReporter) { r.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(r *HTTPReporter) { r.retryMax = max }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *HTTPReporter) { r.logger = l }
}

// HTTPReporter posts finished games to the matchmaking server at
// POST {base}/api/games/{id}/end.
type HTTPReporter struct {
	baseURL string
	auth    AuthContext
	http    *fasthttp.Client
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

func NewHTTPReporter(baseURL string, auth AuthContext, opts ...Option) (*HTTPReporter, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	r := &HTTPReporter{
		baseURL:        baseURL,
		auth:           auth,
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 4},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = obslog.Or(r.logger).Named("report")
	return r, nil
}

// ReportResult sends the outcome of rec. 200, 400, 404 and 409 are final
// answers; 400/404/409 mean the server already closed or never knew the game
// and are logged but not returned as errors.
func (r *HTTPReporter) ReportResult(ctx context.Context, rec domain.GameRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return ErrNoGameID
	}
	if strings.TrimSpace(r.auth.AccessToken) == "" {
		r.logger.Info("report_skipped_no_token", zap.String("game_id", rec.ID))
		return ErrNoToken
	}
	body := endGameRequest{}
	switch rec.Result {
	case domain.ResultWhite, domain.ResultBlack:
		body.WinnerColor = rec.Result
	case domain.ResultDraw:
		body.Result = domain.ResultDraw
	default:
		return fmt.Errorf("%w: game %s has no result", ErrRejected, rec.ID)
	}

	path := "/api/games/" + url.PathEscape(rec.ID) + "/end"
	status, err := r.doJSON(ctx, fasthttp.MethodPost, path, body)
	if err != nil {
		r.logger.Warn("report_result_error", zap.String("game_id", rec.ID), zap.Error(err))
		return err
	}
	r.logger.Info("report_result",
		zap.String("game_id", rec.ID),
		zap.String("result", rec.Result),
		zap.Int("status", status),
	)
	return nil
}

func (r *HTTPReporter) doJSON(ctx context.Context, method, path string, in any) (int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(r.baseURL + path)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+r.auth.AccessToken)

	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	attempts := r.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		err := r.http.DoDeadline(req, resp, r.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			status := resp.StatusCode()
			if isFinalStatus(status) {
				if status != fasthttp.StatusOK {
					r.logger.Info("report_already_closed", zap.Int("status", status), zap.String("body", truncate(string(resp.Body()), 256)))
				}
				return status, nil
			}
			lastErr = fmt.Errorf("%w: status=%d body=%s", ErrRejected, status, truncate(string(resp.Body()), 512))
			if !shouldRetryStatus(status) {
				return status, lastErr
			}
		}
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return 0, lastErr
		}
	}
	return 0, lastErr
}

func (r *HTTPReporter) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(r.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func isFinalStatus(code int) bool {
	switch code {
	case fasthttp.StatusOK, fasthttp.StatusBadRequest, fasthttp.StatusNotFound, fasthttp.StatusConflict:
		return true
	}
	return false
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

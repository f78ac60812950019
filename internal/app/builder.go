package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-peerchess/internal/ai"
	"github.com/park285/cheese-peerchess/internal/archive"
	"github.com/park285/cheese-peerchess/internal/chess"
	"github.com/park285/cheese-peerchess/internal/chess/uci"
	"github.com/park285/cheese-peerchess/internal/config"
	"github.com/park285/cheese-peerchess/internal/msgcat"
	"github.com/park285/cheese-peerchess/internal/obslog"
	"github.com/park285/cheese-peerchess/internal/presenter"
	"github.com/park285/cheese-peerchess/internal/report"
	"github.com/park285/cheese-peerchess/internal/repository"
	"github.com/park285/cheese-peerchess/internal/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps holds everything a game needs, built once from configuration.
type Deps struct {
	Config    *config.AppConfig
	Rules     chess.Rules
	Local     chess.Color
	Messages  *msgcat.Catalog
	Formatter *presenter.Formatter
	Archive   archive.Store
	Repo      repository.Repository
	Reporter  session.Reporter
	Player    ai.Player
	Engine    *uci.Session

	logger  *zap.Logger
	closers []func() error
}

// New wires the optional collaborators. ctx bounds the lifetime of the
// engine process, so pass the application context, not a startup timeout.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	d := &Deps{Config: cfg, logger: obslog.Or(logger).Named("app")}

	variant, err := chess.ParseVariant(cfg.RuleVariant)
	if err != nil {
		return nil, err
	}
	d.Rules = chess.NewRules(variant)
	if d.Local, err = chess.ParseColor(cfg.PlayerColor); err != nil {
		return nil, err
	}

	if d.Messages, err = msgcat.New(cfg.MessagesDir); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	white, black := cfg.PlayerName, cfg.OpponentName
	if d.Local == chess.Black {
		white, black = black, white
	}
	d.Formatter = presenter.NewFormatter(d.Messages).WithPlayers(white, black, d.Local)

	if err := d.buildArchive(cfg); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.buildReporters(cfg); err != nil {
		d.Close()
		return nil, err
	}
	if cfg.Role == config.RoleAI {
		if err := d.buildPlayer(ctx, cfg); err != nil {
			d.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *Deps) buildArchive(cfg *config.AppConfig) error {
	switch cfg.ArchiveBackend {
	case config.ArchiveMemory:
		d.Archive = archive.NewMemoryStore()
	case config.ArchiveRedis:
		opts, err := parseRedisURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("ping redis: %w", err)
		}
		d.closers = append(d.closers, rdb.Close)
		d.Archive = archive.NewRedisStore(rdb)
	case config.ArchiveBadger:
		store, err := archive.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return fmt.Errorf("open badger: %w", err)
		}
		d.closers = append(d.closers, store.Close)
		d.Archive = store
	}
	if d.Archive != nil {
		d.logger.Info("archive_ready", zap.String("backend", cfg.ArchiveBackend))
	}
	return nil
}

func (d *Deps) buildReporters(cfg *config.AppConfig) error {
	var fan report.Fanout

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := repository.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return err
		}
		d.Repo = pg
	} else {
		d.Repo = repository.NewMemory()
	}
	d.closers = append(d.closers, d.Repo.Close)
	fan = append(fan, repository.Reporter{Repo: d.Repo})

	// Only networked games are known to the matchmaking server.
	if cfg.Networked() && strings.TrimSpace(cfg.ReportBaseURL) != "" {
		hr, err := report.NewHTTPReporter(cfg.ReportBaseURL, report.AuthContext{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
			DisplayName:  cfg.PlayerName,
			UserID:       cfg.UserID,
		})
		if err != nil {
			return err
		}
		fan = append(fan, hr)
	}
	d.Reporter = fan
	return nil
}

func (d *Deps) buildPlayer(ctx context.Context, cfg *config.AppConfig) error {
	var base ai.Player
	switch cfg.AIMode {
	case config.AIRandom:
		base = ai.NewRandom(d.Rules, cfg.AISeed)
	case config.AIGreedy:
		base = ai.NewGreedy(d.Rules, cfg.AISeed)
	case config.AIEngine:
		level := ai.CustomLevel(cfg.EngineSkill, cfg.EngineMoveTime())
		if strings.TrimSpace(cfg.EngineLevel) != "" {
			l, err := ai.LookupLevel(cfg.EngineLevel)
			if err != nil {
				return err
			}
			level = l
		}
		engine, err := uci.NewSession(ctx, cfg.StockfishPath, level.EngineOptions())
		if err != nil {
			return fmt.Errorf("init engine: %w", err)
		}
		d.Engine = engine
		d.closers = append(d.closers, engine.Close)
		ep, err := ai.NewEnginePlayer(engine, d.Rules, level, cfg.AISeed)
		if err != nil {
			return err
		}
		base = ep
	default:
		return fmt.Errorf("unknown ai mode %q", cfg.AIMode)
	}

	d.Player = base
	if strings.TrimSpace(cfg.BookPath) != "" && d.Rules.Variant() == chess.VariantStandard {
		book, err := ai.LoadBook(cfg.BookPath)
		if err != nil {
			return err
		}
		d.Player = ai.NewBookPlayer(book, base, d.Rules, cfg.AISeed)
	}
	d.logger.Info("ai_ready", zap.String("mode", cfg.AIMode), zap.Bool("book", cfg.BookPath != ""))
	return nil
}

// NewSession builds a session for this process's game. Archive recording is
// attached when an archive is configured; the returned recorder may be nil.
func (d *Deps) NewSession(extra ...session.Option) (*session.Session, *archive.Recorder) {
	white, black := d.Config.PlayerName, d.Config.OpponentName
	if d.Local == chess.Black {
		white, black = black, white
	}
	opts := []session.Option{
		session.WithID(d.Config.GameID),
		session.WithRules(d.Rules),
		session.WithLocalColor(d.Local),
		session.WithPlayers(white, black),
		session.WithReporter(d.Reporter),
		session.WithLogger(obslog.Named("session")),
	}
	s := session.New(append(opts, extra...)...)

	var rec *archive.Recorder
	if d.Archive != nil {
		rec = archive.NewRecorder(d.Archive, s, obslog.L())
		s.AddListener(rec.Listener())
		rec.Flush()
	}
	return s, rec
}

// Close releases engines and connections in reverse order of creation.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Hostname()
	portStr := u.Port()
	if portStr == "" {
		portStr = "6379"
	}
	if _, err := strconv.Atoi(portStr); err != nil {
		return nil, err
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: host + ":" + portStr, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

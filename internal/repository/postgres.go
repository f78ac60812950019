package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/park285/cheese-peerchess/internal/domain"
	"github.com/park285/cheese-peerchess/internal/notation"
)

const schema = `
CREATE TABLE IF NOT EXISTS peer_games (
    game_id       TEXT PRIMARY KEY,
    local_color   TEXT NOT NULL,
    white_name    TEXT NOT NULL DEFAULT '',
    black_name    TEXT NOT NULL DEFAULT '',
    variant       TEXT NOT NULL,
    result        TEXT NOT NULL,
    result_method TEXT NOT NULL DEFAULT '',
    final_fen     TEXT NOT NULL,
    moves_uci     JSONB NOT NULL,
    moves_san     JSONB NOT NULL,
    pgn           TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL
)`

type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// EnsureSchema creates the peer_games table when it is missing.
func (r *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create peer_games: %w", err)
	}
	return nil
}

func (r *Postgres) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// row is the column set written for one game.
type row struct {
	rec      domain.GameRecord
	movesUCI []byte
	movesSAN []byte
	pgn      string
	duration int64
}

func buildRow(rec domain.GameRecord) (row, error) {
	if len(rec.MovesSAN) == 0 && len(rec.MovesUCI) > 0 && rec.Variant == "standard" {
		rec.MovesSAN, _ = notation.SAN(rec.MovesUCI)
	}
	if rec.MovesSAN == nil {
		rec.MovesSAN = []string{}
	}
	if rec.MovesUCI == nil {
		rec.MovesUCI = []string{}
	}
	uci, err := json.Marshal(rec.MovesUCI)
	if err != nil {
		return row{}, fmt.Errorf("marshal moves_uci: %w", err)
	}
	san, err := json.Marshal(rec.MovesSAN)
	if err != nil {
		return row{}, fmt.Errorf("marshal moves_san: %w", err)
	}
	return row{
		rec:      rec,
		movesUCI: uci,
		movesSAN: san,
		pgn:      notation.PGN(rec),
		duration: rec.Duration().Milliseconds(),
	}, nil
}

// SaveResult upserts a finished game into peer_games.
func (r *Postgres) SaveResult(ctx context.Context, rec domain.GameRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	w, err := buildRow(rec)
	if err != nil {
		return err
	}

	const q = `INSERT INTO peer_games (
        game_id, local_color, white_name, black_name, variant,
        result, result_method, final_fen, moves_uci, moves_san, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9::jsonb,$10::jsonb,$11,$12,$13,$14
      ) ON CONFLICT (game_id) DO UPDATE SET
        local_color=EXCLUDED.local_color,
        white_name=EXCLUDED.white_name,
        black_name=EXCLUDED.black_name,
        variant=EXCLUDED.variant,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        final_fen=EXCLUDED.final_fen,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		w.rec.ID, w.rec.LocalColor, w.rec.WhiteName, w.rec.BlackName, w.rec.Variant,
		w.rec.Result, strings.TrimSpace(w.rec.Method), w.rec.FEN,
		string(w.movesUCI), string(w.movesSAN), w.pgn,
		w.rec.StartedAt, w.rec.EndedAt, w.duration,
	)
	if err != nil {
		return fmt.Errorf("upsert peer game: %w", err)
	}
	return nil
}

func (r *Postgres) Recent(ctx context.Context, limit int) ([]domain.GameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
		SELECT game_id, local_color, white_name, black_name, variant,
		       result, result_method, final_fen, moves_uci, moves_san,
		       started_at, ended_at
		FROM peer_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("select peer games: %w", err)
	}
	defer rows.Close()

	out := make([]domain.GameRecord, 0, limit)
	for rows.Next() {
		var (
			rec     domain.GameRecord
			uciJSON []byte
			sanJSON []byte
		)
		if err := rows.Scan(
			&rec.ID, &rec.LocalColor, &rec.WhiteName, &rec.BlackName, &rec.Variant,
			&rec.Result, &rec.Method, &rec.FEN, &uciJSON, &sanJSON,
			&rec.StartedAt, &rec.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan peer game: %w", err)
		}
		if err := json.Unmarshal(uciJSON, &rec.MovesUCI); err != nil {
			return nil, fmt.Errorf("decode moves_uci: %w", err)
		}
		if err := json.Unmarshal(sanJSON, &rec.MovesSAN); err != nil {
			return nil, fmt.Errorf("decode moves_san: %w", err)
		}
		rec.Status = rec.Method
		rec.UpdatedAt = rec.EndedAt
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate peer games: %w", err)
	}
	return out, nil
}

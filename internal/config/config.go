package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	RoleHost  = "host"
	RoleJoin  = "join"
	RoleLocal = "local"
	RoleAI    = "ai"

	TransportTCP = "tcp"
	TransportWS  = "ws"

	AIRandom = "random"
	AIGreedy = "greedy"
	AIEngine = "engine"

	ArchiveNone   = "none"
	ArchiveMemory = "memory"
	ArchiveRedis  = "redis"
	ArchiveBadger = "badger"
)

type AppConfig struct {
	Role       string `yaml:"role"`
	ListenAddr string `yaml:"listen_addr"`
	PeerAddr   string `yaml:"peer_addr"`
	Transport  string `yaml:"transport"`
	WSPath     string `yaml:"ws_path"`

	PlayerColor  string `yaml:"player_color"`
	PlayerName   string `yaml:"player_name"`
	OpponentName string `yaml:"opponent_name"`
	GameID       string `yaml:"game_id"`
	RuleVariant  string `yaml:"rule_variant"`

	AIMode           string `yaml:"ai_mode"`
	AISeed           int64  `yaml:"ai_seed"`
	StockfishPath    string `yaml:"stockfish_path"`
	EngineLevel      string `yaml:"engine_level"`
	EngineSkill      int    `yaml:"engine_skill"`
	EngineMoveTimeMS int    `yaml:"engine_movetime_ms"`
	BookPath         string `yaml:"book_path"`

	ReportBaseURL string `yaml:"report_base_url"`
	AccessToken   string `yaml:"access_token"`
	RefreshToken  string `yaml:"refresh_token"`
	UserID        string `yaml:"user_id"`

	RedisURL       string `yaml:"redis_url"`
	DatabaseURL    string `yaml:"database_url"`
	ArchiveBackend string `yaml:"archive_backend"`
	BadgerDir      string `yaml:"badger_dir"`
	MessagesDir    string `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Role:             RoleLocal,
		ListenAddr:       ":0",
		Transport:        TransportTCP,
		WSPath:           "/peer",
		PlayerColor:      "white",
		RuleVariant:      "standard",
		AIMode:           AIGreedy,
		EngineSkill:      10,
		EngineMoveTimeMS: 1000,
		ArchiveBackend:   ArchiveNone,
	}
}

// Load builds the configuration from an optional YAML file named by
// PEERCHESS_CONFIG, then environment variables, then validates it.
func Load() (*AppConfig, error) {
	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("PEERCHESS_CONFIG")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	setString(&c.Role, "PEER_ROLE")
	setString(&c.ListenAddr, "PEER_LISTEN_ADDR")
	setString(&c.PeerAddr, "PEER_ADDR")
	setString(&c.Transport, "PEER_TRANSPORT")
	setString(&c.WSPath, "PEER_WS_PATH")

	setString(&c.PlayerColor, "PLAYER_COLOR")
	setString(&c.PlayerName, "PLAYER_NAME")
	setString(&c.OpponentName, "OPPONENT_NAME")
	setString(&c.GameID, "GAME_ID")
	setString(&c.RuleVariant, "RULE_VARIANT")

	setString(&c.AIMode, "AI_MODE")
	if v := strings.TrimSpace(os.Getenv("AI_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.AISeed = n
		}
	}
	setString(&c.StockfishPath, "STOCKFISH_PATH")
	setString(&c.EngineLevel, "ENGINE_LEVEL")
	if v := strings.TrimSpace(os.Getenv("ENGINE_SKILL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 20 {
			c.EngineSkill = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_MOVETIME_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.EngineMoveTimeMS = n
		}
	}
	setString(&c.BookPath, "BOOK_PATH")

	setString(&c.ReportBaseURL, "REPORT_BASE_URL")
	setString(&c.AccessToken, "ACCESS_TOKEN")
	setString(&c.RefreshToken, "REFRESH_TOKEN")
	setString(&c.UserID, "USER_ID")

	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.ArchiveBackend, "ARCHIVE_BACKEND")
	setString(&c.BadgerDir, "BADGER_DIR")
	setString(&c.MessagesDir, "MESSAGES_DIR")
}

// setString overwrites dst only when the variable is set and non-blank.
func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *AppConfig) normalize() {
	c.Role = strings.ToLower(strings.TrimSpace(c.Role))
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	c.PlayerColor = strings.ToLower(strings.TrimSpace(c.PlayerColor))
	c.RuleVariant = strings.ToLower(strings.TrimSpace(c.RuleVariant))
	c.AIMode = strings.ToLower(strings.TrimSpace(c.AIMode))
	c.ArchiveBackend = strings.ToLower(strings.TrimSpace(c.ArchiveBackend))
	if c.ArchiveBackend == "" {
		c.ArchiveBackend = ArchiveNone
	}
	if c.WSPath != "" && !strings.HasPrefix(c.WSPath, "/") {
		c.WSPath = "/" + c.WSPath
	}
	if c.EngineSkill < 0 {
		c.EngineSkill = 0
	}
	if c.EngineSkill > 20 {
		c.EngineSkill = 20
	}
}

func (c *AppConfig) Validate() error {
	switch c.Role {
	case RoleHost, RoleLocal, RoleAI:
	case RoleJoin:
		if strings.TrimSpace(c.PeerAddr) == "" {
			return fmt.Errorf("%w: PEER_ADDR is required to join", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: PEER_ROLE %q", ErrInvalid, c.Role)
	}
	switch c.Transport {
	case TransportTCP, TransportWS:
	default:
		return fmt.Errorf("%w: PEER_TRANSPORT %q", ErrInvalid, c.Transport)
	}
	switch c.PlayerColor {
	case "white", "black":
	default:
		return fmt.Errorf("%w: PLAYER_COLOR %q", ErrInvalid, c.PlayerColor)
	}
	switch c.RuleVariant {
	case "standard", "king-capture":
	default:
		return fmt.Errorf("%w: RULE_VARIANT %q", ErrInvalid, c.RuleVariant)
	}
	switch c.AIMode {
	case AIRandom, AIGreedy:
	case AIEngine:
		if c.Role == RoleAI && strings.TrimSpace(c.StockfishPath) == "" {
			return fmt.Errorf("%w: STOCKFISH_PATH is required for AI_MODE=engine", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: AI_MODE %q", ErrInvalid, c.AIMode)
	}
	switch c.ArchiveBackend {
	case ArchiveNone, ArchiveMemory, ArchiveBadger:
	case ArchiveRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("%w: REDIS_URL is required for ARCHIVE_BACKEND=redis", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: ARCHIVE_BACKEND %q", ErrInvalid, c.ArchiveBackend)
	}
	return nil
}

func (c *AppConfig) EngineMoveTime() time.Duration {
	return time.Duration(c.EngineMoveTimeMS) * time.Millisecond
}

// Networked reports whether the game runs against a remote peer.
func (c *AppConfig) Networked() bool {
	return c.Role == RoleHost || c.Role == RoleJoin
}

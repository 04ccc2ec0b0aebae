package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lawnchairsociety/questengine/internal/logger"
	"gopkg.in/yaml.v3"
)

// EngineConfig holds engine-wide configuration settings.
type EngineConfig struct {
	Dialogue    DialogueConfig    `yaml:"dialogue"`
	Completion  CompletionConfig  `yaml:"completion"`
	Choices     ChoicesConfig     `yaml:"choices"`
	World       WorldConfig       `yaml:"world"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Journal     JournalConfig     `yaml:"journal"`
	Logging     logger.Config     `yaml:"logging"`
}

// DialogueConfig controls line playback.
type DialogueConfig struct {
	// TypingIntervalMs is the delay between revealed runes. 0 shows lines whole.
	TypingIntervalMs int `yaml:"typing_interval_ms"`

	// PlaceholderLine is shown when a dialogue sequence has no lines.
	PlaceholderLine string `yaml:"placeholder_line"`

	// WrapWidth word-wraps dialogue lines at this column. 0 keeps the
	// text file's setting.
	WrapWidth int `yaml:"wrap_width"`
}

// CompletionConfig controls the quest completion sequence.
type CompletionConfig struct {
	// LineDwellMs is how long each completion line stays up, on the wall clock.
	LineDwellMs int `yaml:"line_dwell_ms"`
}

// ChoicesConfig binds choice prompt entries to selector keys.
type ChoicesConfig struct {
	// Keys maps a key name to the choice index at the same position.
	Keys []string `yaml:"keys"`
}

// WorldConfig holds scene runtime settings.
type WorldConfig struct {
	// TickIntervalMs is how often givers are updated (typewriter, dwell, UI refresh).
	TickIntervalMs int `yaml:"tick_interval_ms"`

	// CommandQueueSize bounds the single-writer command queue.
	CommandQueueSize int `yaml:"command_queue_size"`

	// StartingResource is the initial value of the shared resource counter.
	StartingResource int `yaml:"starting_resource"`

	// ScenePath is the scene content file or directory.
	ScenePath string `yaml:"scene_path"`

	// TextPath is the text strings file.
	TextPath string `yaml:"text_path"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// Address to listen on, e.g. ":4443".
	Address string `yaml:"address"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy. "*" allows all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// RateLimitConfig holds lockout settings for clients sending rejected commands.
type RateLimitConfig struct {
	// MaxRejected is the number of rejected commands before lockout.
	MaxRejected int `yaml:"max_rejected"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds caps the doubled lockout.
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// JournalConfig selects where quest events are journaled.
type JournalConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Driver     string         `yaml:"driver"` // sqlite or postgres
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	SSLMode         string `yaml:"sslmode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// DefaultConfig returns an EngineConfig with the stock timings.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Dialogue: DialogueConfig{
			TypingIntervalMs: 20,
			PlaceholderLine:  "...",
		},
		Completion: CompletionConfig{
			LineDwellMs: 1500,
		},
		Choices: ChoicesConfig{
			Keys: []string{"1", "2", "3", "4", "5", "6", "7"},
		},
		World: WorldConfig{
			TickIntervalMs:   50,
			CommandQueueSize: 256,
			StartingResource: 0,
			ScenePath:        "data/scene.yaml",
			TextPath:         "data/text.yaml",
		},
		WebSocket: WebSocketConfig{
			Address:        ":4443",
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 3,
			MaxTotal: 100,
		},
		RateLimit: RateLimitConfig{
			MaxRejected:       10,
			LockoutSeconds:    30,
			MaxLockoutSeconds: 300,
		},
		Journal: JournalConfig{
			Enabled:    false,
			Driver:     "sqlite",
			SQLitePath: "data/journal.db",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				SSLMode:         "disable",
				MaxOpenConns:    10,
				MaxIdleConns:    2,
				ConnMaxLifetime: 300,
			},
		},
		Logging: logger.DefaultConfig(),
	}
}

// LoadConfig loads engine configuration from a YAML file.
// If the file doesn't exist, returns the default config.
func LoadConfig(path string) (*EngineConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			config.Logging = config.Logging.ApplyEnv()
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	config.Logging = config.Logging.WithDefaults().ApplyEnv()
	return config, nil
}

// TypingInterval returns the typewriter interval.
func (c *DialogueConfig) TypingInterval() time.Duration {
	if c.TypingIntervalMs <= 0 {
		return 0
	}
	return time.Duration(c.TypingIntervalMs) * time.Millisecond
}

// LineDwell returns the completion line dwell.
func (c *CompletionConfig) LineDwell() time.Duration {
	if c.LineDwellMs <= 0 {
		return 0
	}
	return time.Duration(c.LineDwellMs) * time.Millisecond
}

// TickInterval returns the world tick period, never less than a millisecond.
func (c *WorldConfig) TickInterval() time.Duration {
	if c.TickIntervalMs <= 0 {
		return time.Millisecond
	}
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// ChoiceIndex resolves a key name to a choice index. Keys not bound to a
// choice return false.
func (c *ChoicesConfig) ChoiceIndex(key string) (int, bool) {
	for i, k := range c.Keys {
		if strings.EqualFold(k, key) {
			return i, true
		}
	}
	return 0, false
}

// ConnString builds a lib/pq connection string.
func (c *PostgresConfig) ConnString() string {
	parts := []string{
		"host=" + c.Host,
		"port=" + strconv.Itoa(c.Port),
		"sslmode=" + c.SSLMode,
	}
	if c.User != "" {
		parts = append(parts, "user="+c.User)
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	if c.Database != "" {
		parts = append(parts, "dbname="+c.Database)
	}
	return strings.Join(parts, " ")
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means a non-browser client
	}

	// "http://localhost:3000" -> "localhost:3000"
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}

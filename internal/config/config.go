package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DuplicatePhonePolicy controls what happens when a second identity claims
// with a phone number that already belongs to a committed participant.
type DuplicatePhonePolicy string

const (
	// DuplicateEcho returns the first claimant's committed outcome.
	DuplicateEcho DuplicatePhonePolicy = "echo"
	// DuplicateBlock rejects the second claimant outright.
	DuplicateBlock DuplicatePhonePolicy = "block"
)

// Config is the full runtime configuration, loaded from the environment
// (with an optional .env file) plus an optional YAML prize catalog that
// overrides the prize settings.
type Config struct {
	ListenAddr   string `env:"LISTEN_ADDR" envDefault:":8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"giveaway.db"`
	PhotosDir    string `env:"PHOTOS_DIR" envDefault:"photos"`
	AdminToken   string `env:"ADMIN_TOKEN"`

	// Prize pools. A capacity of -1 means unlimited; the default small tier
	// is the original "everyone wins a keychain" mode.
	BigPrizeCapacity   int      `env:"DAILY_BIG_PRIZES" envDefault:"5"`
	SmallPrizeCapacity int      `env:"DAILY_SMALL_PRIZES" envDefault:"-1"`
	BigPrizeList       []string `env:"BIG_PRIZE_LIST" envDefault:"Thermo mug,Scarf,Beanie,Gloves,Blanket"`
	SmallPrizeList     []string `env:"SMALL_PRIZE_LIST" envDefault:"Keychain,Badge,Sticker pack,Pen,Magnet"`

	// Operating window. Both empty means no window: claims are accepted any
	// time and the allocation engine runs with progress pinned to 1.0.
	WindowStart string `env:"WINDOW_START"` // RFC 3339
	WindowEnd   string `env:"WINDOW_END"`   // RFC 3339

	// Allocation curve parameters, per tier.
	BigBaseRate          float64 `env:"BIG_BASE_RATE" envDefault:"0.05"`
	BigDeficitWeight     float64 `env:"BIG_DEFICIT_WEIGHT" envDefault:"0.5"`
	BigUrgencyFactor     float64 `env:"BIG_URGENCY_FACTOR" envDefault:"2.0"`
	BigMinRate           float64 `env:"BIG_MIN_RATE" envDefault:"0.005"`
	BigMaxRate           float64 `env:"BIG_MAX_RATE" envDefault:"0.25"`
	SmallBaseRate        float64 `env:"SMALL_BASE_RATE" envDefault:"1.0"`
	SmallDeficitWeight   float64 `env:"SMALL_DEFICIT_WEIGHT" envDefault:"0.5"`
	SmallUrgencyFactor   float64 `env:"SMALL_URGENCY_FACTOR" envDefault:"2.0"`
	SmallMinRate         float64 `env:"SMALL_MIN_RATE" envDefault:"0.05"`
	SmallMaxRate         float64 `env:"SMALL_MAX_RATE" envDefault:"1.0"`
	PrizeCatalogPath     string  `env:"PRIZE_CATALOG"`
	DuplicatePhoneAction string  `env:"DUPLICATE_PHONE_POLICY" envDefault:"echo"`

	// Engagement verifier.
	VerifierURL      string        `env:"VERIFIER_URL"`
	VerifierTimeout  time.Duration `env:"VERIFIER_TIMEOUT" envDefault:"5s"`
	VerifierFailOpen bool          `env:"VERIFIER_FAIL_OPEN" envDefault:"false"`

	// Best-effort operator notifications about new submissions.
	NotifyURL string `env:"NOTIFY_URL"`

	windowStart time.Time
	windowEnd   time.Time
}

// Load reads configuration from a .env file (if present) and the process
// environment, then applies the YAML prize catalog when one is configured.
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone is a valid source.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PrizeCatalogPath != "" {
		if err := cfg.applyCatalog(cfg.PrizeCatalogPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and parses the operating window.
func (c *Config) Validate() error {
	if (c.WindowStart == "") != (c.WindowEnd == "") {
		return errors.New("config: WINDOW_START and WINDOW_END must be set together")
	}
	if c.WindowStart != "" {
		start, err := time.Parse(time.RFC3339, c.WindowStart)
		if err != nil {
			return fmt.Errorf("config: parse WINDOW_START: %w", err)
		}
		end, err := time.Parse(time.RFC3339, c.WindowEnd)
		if err != nil {
			return fmt.Errorf("config: parse WINDOW_END: %w", err)
		}
		if !end.After(start) {
			return errors.New("config: WINDOW_END must be after WINDOW_START")
		}
		c.windowStart, c.windowEnd = start, end
	}
	if c.BigPrizeCapacity < -1 || c.SmallPrizeCapacity < -1 {
		return errors.New("config: prize capacities must be -1 (unlimited) or non-negative")
	}
	if c.BigPrizeCapacity != 0 && len(c.BigPrizeList) == 0 {
		return errors.New("config: big prize list is empty")
	}
	if c.SmallPrizeCapacity != 0 && len(c.SmallPrizeList) == 0 {
		return errors.New("config: small prize list is empty")
	}
	switch DuplicatePhonePolicy(c.DuplicatePhoneAction) {
	case DuplicateEcho, DuplicateBlock:
	default:
		return fmt.Errorf("config: unknown DUPLICATE_PHONE_POLICY %q", c.DuplicatePhoneAction)
	}
	return nil
}

// DuplicatePolicy returns the parsed duplicate-phone policy.
func (c *Config) DuplicatePolicy() DuplicatePhonePolicy {
	return DuplicatePhonePolicy(c.DuplicatePhoneAction)
}

// HasWindow reports whether an operating window is configured.
func (c *Config) HasWindow() bool {
	return !c.windowStart.IsZero()
}

// WindowProgress returns the elapsed fraction of the operating window at the
// given instant, clamped to [0,1]. Without a window it is always 1.0, which
// puts the allocation engine in pure-base-rate mode.
func (c *Config) WindowProgress(now time.Time) float64 {
	if !c.HasWindow() {
		return 1.0
	}
	total := c.windowEnd.Sub(c.windowStart)
	elapsed := now.Sub(c.windowStart)
	if elapsed <= 0 {
		return 0.0
	}
	if elapsed >= total {
		return 1.0
	}
	return float64(elapsed) / float64(total)
}

// SetWindow overrides the operating window directly. Intended for tests.
func (c *Config) SetWindow(start, end time.Time) {
	c.windowStart, c.windowEnd = start, end
}

func (c *Config) applyCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read prize catalog: %w", err)
	}
	return c.applyCatalogBytes(data)
}

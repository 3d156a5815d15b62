package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/specialistvlad/modbisect/internal/bisect"
	"github.com/specialistvlad/modbisect/internal/harness"
	"github.com/specialistvlad/modbisect/internal/mod"
)

// FileName is the configuration file looked up in the profile directory.
const FileName = "modbisect.hcl"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the resolved configuration of one invocation.
type Config struct {
	Instance     Instance
	Search       Search
	ProcessMatch harness.Match
	Overrides    Overrides
}

// Instance locates the game and says how to start it.
type Instance struct {
	GameDir string
	// Command starts the game. Empty means it is discovered from the next
	// launch by the user.
	Command    []string
	WorkingDir string
	ModsDir    string
	CrashDir   string
	LogsDir    string
	LogFiles   []string
}

// Search tunes the bisection and the harness.
type Search struct {
	PerModTimeout  time.Duration
	MinTimeout     time.Duration
	SettleDelay    time.Duration
	PollInterval   time.Duration
	KillGrace      time.Duration
	LogTailBytes   int64
	ReservedIDs    []string
	DisableCascade mod.DisableCascade
}

// Overrides adjust the loaded pack before validation.
type Overrides struct {
	Versions   map[string]string
	LieDepends []string
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	engine := bisect.DefaultOptions()
	return &Config{
		Instance: Instance{
			WorkingDir: ".",
			ModsDir:    "mods",
			CrashDir:   "crash-reports",
			LogsDir:    "logs",
			LogFiles:   append([]string(nil), harness.DefaultLogFiles...),
		},
		Search: Search{
			PerModTimeout:  engine.PerModTimeout,
			MinTimeout:     engine.MinTimeout,
			SettleDelay:    3 * time.Second,
			PollInterval:   time.Second,
			KillGrace:      10 * time.Second,
			LogTailBytes:   4 << 20,
			ReservedIDs:    append([]string(nil), engine.Reserved...),
			DisableCascade: mod.CascadeEnableDependents,
		},
		ProcessMatch: harness.DefaultMatch,
		Overrides:    Overrides{Versions: map[string]string{}},
	}
}

// Validate reports every problem found, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	s := c.Search
	for _, d := range []struct {
		name  string
		value time.Duration
		zero  bool
	}{
		{"search.per_mod_timeout", s.PerModTimeout, true},
		{"search.min_timeout", s.MinTimeout, true},
		{"search.settle_delay", s.SettleDelay, true},
		{"search.poll_interval", s.PollInterval, false},
		{"search.kill_grace", s.KillGrace, true},
	} {
		if d.value < 0 || (d.value == 0 && !d.zero) {
			invalid("%s must be positive, got %s", d.name, d.value)
		}
	}
	if s.PerModTimeout == 0 && s.MinTimeout == 0 {
		invalid("search.per_mod_timeout and search.min_timeout cannot both be zero")
	}
	if s.LogTailBytes <= 0 {
		invalid("search.log_tail_bytes must be positive, got %d", s.LogTailBytes)
	}
	if _, err := mod.ParseDisableCascade(string(s.DisableCascade)); err != nil {
		invalid("search.disable_cascade: %v", err)
	}
	if c.ProcessMatch.Name == "" {
		invalid("process_match.name must not be empty")
	}
	if c.Instance.ModsDir == "" {
		invalid("instance.mods_dir must not be empty")
	}
	for id, v := range c.Overrides.Versions {
		if id == "" || v == "" {
			invalid("overrides.versions entries need a mod id and a version")
		}
	}
	return errors.Join(errs...)
}

// Resolve returns p unchanged when it is absolute, or joined to the game
// directory otherwise.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Instance.GameDir, p)
}

// HarnessConfig builds the harness settings for this configuration.
func (c *Config) HarnessConfig() harness.Config {
	hc := harness.DefaultConfig(c.Instance.GameDir, c.Instance.Command)
	hc.WorkDir = c.Resolve(c.Instance.WorkingDir)
	hc.CrashDir = c.Resolve(c.Instance.CrashDir)
	hc.LogsDir = c.Resolve(c.Instance.LogsDir)
	hc.LogFiles = c.Instance.LogFiles
	hc.Match = c.ProcessMatch
	hc.PollInterval = c.Search.PollInterval
	hc.SettleDelay = c.Search.SettleDelay
	hc.KillGrace = c.Search.KillGrace
	hc.LogTailBytes = c.Search.LogTailBytes
	return hc
}

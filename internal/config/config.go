package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/lowaak/smart-trainer/coach-app/internal/content"
	"github.com/lowaak/smart-trainer/coach-app/internal/logging"
	"github.com/lowaak/smart-trainer/coach-app/internal/metrics"
	"github.com/lowaak/smart-trainer/coach-app/internal/policy"
	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/speech"
)

const (
	EnvPrefix = "COACH"
	AppDir    = ".coach"
)

var ErrInvalid = errors.New("invalid configuration")

type PolicyConfig struct {
	FullDayThresholdSeconds int  `mapstructure:"full_day_threshold_seconds"`
	MaxFullDaysPerWeek      int  `mapstructure:"max_full_days_per_week"`
	Enforce                 bool `mapstructure:"enforce"`
}

type SpeechConfig struct {
	MuteWindowMs        int               `mapstructure:"mute_window_ms"`
	IntroDebounceMs     int               `mapstructure:"intro_debounce_ms"`
	RescheduleWhenMuted bool              `mapstructure:"reschedule_when_muted"`
	LangPref            string            `mapstructure:"lang_pref"`
	Languages           []speech.Language `mapstructure:"languages"`
	// Command is a TTS argv template; empty means log only.
	Command []string `mapstructure:"command"`
}

type SessionConfig struct {
	DefaultSport string              `mapstructure:"default_sport"`
	MaxResumeAge time.Duration       `mapstructure:"max_resume_age"`
	Milestones   []session.Milestone `mapstructure:"milestones"`
}

type MetricsConfig struct {
	BikeSpeedKmh    float64 `mapstructure:"bike_speed_kmh"`
	DefaultWeightKg float64 `mapstructure:"default_weight_kg"`
}

type ContentConfig struct {
	URL     string        `mapstructure:"url"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	JSON   bool   `mapstructure:"json"`
	Stdout bool   `mapstructure:"stdout"`
}

type Config struct {
	Policy  PolicyConfig  `mapstructure:"policy"`
	Speech  SpeechConfig  `mapstructure:"speech"`
	Session SessionConfig `mapstructure:"session"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Content ContentConfig `mapstructure:"content"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"sport":        "session.default_sport",
	"lang":         "speech.lang_pref",
	"db":           "storage.path",
	"content-url":  "content.url",
	"content-path": "content.path",
	"log-file":     "log.file",
	"log-level":    "log.level",
	"log-json":     "log.json",
	"log-stdout":   "log.stdout",
	"enforce":      "policy.enforce",
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("sport", "", "sport to train when none is chosen")
	fs.String("lang", "", `cue language: "random" or a language code`)
	fs.String("db", "", "SQLite database path")
	fs.String("content-url", "", "URL of the training catalog (JSON or YAML)")
	fs.String("content-path", "", "local training catalog file")
	fs.String("log-file", "", "log file base name")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Bool("log-json", false, "log as JSON")
	fs.Bool("log-stdout", false, "also log to stdout")
	fs.Bool("enforce", true, "enforce the weekly full-day limit")
}

// DefaultDir is ~/.coach, or .coach when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return AppDir
	}
	return filepath.Join(home, AppDir)
}

func setDefaults(v *viper.Viper) {
	dir := DefaultDir()

	v.SetDefault("policy.full_day_threshold_seconds", policy.DefaultFullDayThreshold)
	v.SetDefault("policy.max_full_days_per_week", policy.DefaultMaxFullDaysPerWeek)
	v.SetDefault("policy.enforce", true)

	v.SetDefault("speech.mute_window_ms", speech.DefaultMuteWindow.Milliseconds())
	v.SetDefault("speech.intro_debounce_ms", speech.DefaultIntroDebounce.Milliseconds())
	v.SetDefault("speech.reschedule_when_muted", true)
	v.SetDefault("speech.lang_pref", speech.RandomPreference)
	v.SetDefault("speech.languages", speech.DefaultLanguages)
	v.SetDefault("speech.command", []string{})

	v.SetDefault("session.default_sport", "")
	v.SetDefault("session.max_resume_age", session.DefaultMaxResumeAge)
	v.SetDefault("session.milestones", session.DefaultMilestones)

	v.SetDefault("metrics.bike_speed_kmh", metrics.DefaultSpeedKmh)
	v.SetDefault("metrics.default_weight_kg", metrics.DefaultWeightKg)

	v.SetDefault("content.url", "")
	v.SetDefault("content.path", "")
	v.SetDefault("content.timeout", 5*time.Second)

	v.SetDefault("storage.path", filepath.Join(dir, "coach.db"))

	v.SetDefault("log.file", filepath.Join(dir, "coach"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.stdout", false)
}

// Load reads defaults, then the config file, then COACH_* environment
// variables, then flags that were set on the command line. An empty path
// looks for config.{yaml,toml,json} in DefaultDir and tolerates its absence.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(DefaultDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Content.Path = expandHome(cfg.Content.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate reports every out-of-range option at once.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	check(c.Policy.FullDayThresholdSeconds > 0, "policy.full_day_threshold_seconds must be positive, got %d", c.Policy.FullDayThresholdSeconds)
	check(c.Policy.MaxFullDaysPerWeek > 0, "policy.max_full_days_per_week must be positive, got %d", c.Policy.MaxFullDaysPerWeek)
	check(c.Speech.MuteWindowMs >= 0, "speech.mute_window_ms must not be negative")
	check(c.Speech.IntroDebounceMs >= 0, "speech.intro_debounce_ms must not be negative")
	check(len(c.Speech.Languages) > 0, "speech.languages must not be empty")

	known := false
	for i, l := range c.Speech.Languages {
		check(l.Code != "" && l.Locale != "", "speech.languages[%d] needs code and locale", i)
		if l.Code == c.Speech.LangPref {
			known = true
		}
	}
	check(c.Speech.LangPref == speech.RandomPreference || known, "speech.lang_pref %q is not a configured language", c.Speech.LangPref)

	check(c.Session.MaxResumeAge >= 0, "session.max_resume_age must not be negative")
	for i, m := range c.Session.Milestones {
		check(m.Second > 0 && m.Text != "", "session.milestones[%d] needs a positive second and a text", i)
	}
	check(c.Metrics.BikeSpeedKmh > 0, "metrics.bike_speed_kmh must be positive")
	check(c.Metrics.DefaultWeightKg > 0, "metrics.default_weight_kg must be positive")
	check(c.Storage.Path != "", "storage.path must be set")

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) PolicyConfig() policy.Config {
	return policy.Config{
		FullDayThreshold:   c.Policy.FullDayThresholdSeconds,
		MaxFullDaysPerWeek: c.Policy.MaxFullDaysPerWeek,
		Enforce:            c.Policy.Enforce,
	}
}

func (c *Config) SpeechConfig() speech.Config {
	return speech.Config{
		MuteWindow:          time.Duration(c.Speech.MuteWindowMs) * time.Millisecond,
		IntroDebounce:       time.Duration(c.Speech.IntroDebounceMs) * time.Millisecond,
		RescheduleWhenMuted: c.Speech.RescheduleWhenMuted,
		Languages:           c.Speech.Languages,
		LangPref:            c.Speech.LangPref,
	}
}

func (c *Config) SessionConfig() session.Config {
	return session.Config{
		DefaultSport: c.Session.DefaultSport,
		LangPref:     c.Speech.LangPref,
		Milestones:   c.Session.Milestones,
		MaxResumeAge: c.Session.MaxResumeAge,
	}
}

func (c *Config) MetricsCalculator() metrics.Calculator {
	return metrics.NewCalculator(c.Metrics.BikeSpeedKmh, c.Metrics.DefaultWeightKg)
}

func (c *Config) LoaderConfig() content.LoaderConfig {
	return content.LoaderConfig{
		URL:     c.Content.URL,
		Path:    c.Content.Path,
		Timeout: c.Content.Timeout,
	}
}

func (c *Config) LoggingParams() logging.Params {
	return logging.Params{
		FileName:   c.Log.File,
		ToStdout:   c.Log.Stdout,
		Level:      c.Log.Level,
		FormatJSON: c.Log.JSON,
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/coach-app/internal/session"
	"github.com/lowaak/smart-trainer/coach-app/internal/speech"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 3600, cfg.Policy.FullDayThresholdSeconds)
	assert.Equal(t, 5, cfg.Policy.MaxFullDaysPerWeek)
	assert.True(t, cfg.Policy.Enforce)
	assert.Equal(t, 2500, cfg.Speech.MuteWindowMs)
	assert.Equal(t, 600, cfg.Speech.IntroDebounceMs)
	assert.True(t, cfg.Speech.RescheduleWhenMuted)
	assert.Equal(t, speech.RandomPreference, cfg.Speech.LangPref)
	assert.Equal(t, speech.DefaultLanguages, cfg.Speech.Languages)
	assert.Equal(t, 12*time.Hour, cfg.Session.MaxResumeAge)
	assert.Equal(t, session.DefaultMilestones, cfg.Session.Milestones)
	assert.Equal(t, 22.0, cfg.Metrics.BikeSpeedKmh)
	assert.Equal(t, 70.0, cfg.Metrics.DefaultWeightKg)
	assert.Equal(t, filepath.Join(DefaultDir(), "coach.db"), cfg.Storage.Path)
	assert.Empty(t, cfg.File)

	sc := cfg.SpeechConfig()
	assert.Equal(t, speech.DefaultMuteWindow, sc.MuteWindow)
	assert.Equal(t, speech.DefaultIntroDebounce, sc.IntroDebounce)
}

func TestLoad_FileEnvAndFlagPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeFile(t, "coach.yaml", `
policy:
  max_full_days_per_week: 4
  enforce: false
speech:
  lang_pref: fr
  command: ["espeak-ng", "-v", "{locale}", "{text}"]
session:
  default_sport: boxing
  max_resume_age: 2h
  milestones:
    - second: 600
      text: Ten minutes.
      lang: en
storage:
  path: ~/data/coach.db
`)
	t.Setenv("COACH_POLICY_MAX_FULL_DAYS_PER_WEEK", "3")
	t.Setenv("COACH_SESSION_DEFAULT_SPORT", "judo")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--sport", "bike"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, 3, cfg.Policy.MaxFullDaysPerWeek, "env beats file")
	assert.False(t, cfg.Policy.Enforce, "unset flag keeps the file value")
	assert.Equal(t, "bike", cfg.Session.DefaultSport, "flag beats env")
	assert.Equal(t, "fr", cfg.Speech.LangPref)
	assert.Equal(t, []string{"espeak-ng", "-v", "{locale}", "{text}"}, cfg.Speech.Command)
	assert.Equal(t, 2*time.Hour, cfg.Session.MaxResumeAge)
	assert.Equal(t, []session.Milestone{{Second: 600, Text: "Ten minutes.", Lang: "en"}}, cfg.Session.Milestones)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "data", "coach.db"), cfg.Storage.Path)

	pc := cfg.PolicyConfig()
	assert.Equal(t, 3, pc.MaxFullDaysPerWeek)
	assert.False(t, pc.Enforce)
	assert.Equal(t, "fr", cfg.SessionConfig().LangPref)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeFile(t, "coach.toml", `
[policy]
full_day_threshold_seconds = 0

[speech]
lang_pref = "de"

[metrics]
bike_speed_kmh = -1
`)

	_, err := Load(path, nil)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "full_day_threshold_seconds")
	assert.Contains(t, err.Error(), `"de"`)
	assert.Contains(t, err.Error(), "bike_speed_kmh")
}

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	for name := range flagKeys {
		assert.NotNil(t, fs.Lookup(name), name)
	}
}

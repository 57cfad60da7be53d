package content

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlCatalog = `
commonPhrases:
  start:
    en: ["Begin"]
sports:
  rowing:
    exercises:
      - name: Intervals
        duration: 60
        reps: 3
        pause: 15
        explanation:
          en: Pull hard.
          fr: Tire fort.
`

func TestFallback_IsValid(t *testing.T) {
	catalog, err := Fallback()
	require.NoError(t, err)

	assert.Equal(t, []string{"abs", "bike", "boxing", "judo", "pushups", "wushu"}, catalog.SportKeys())
	for _, lang := range []string{"en", "fr", "es", "zh", "ja", "ru"} {
		assert.NotEmpty(t, catalog.CommonPhrases[BucketStart][lang], lang)
		assert.NotEmpty(t, catalog.CommonPhrases[BucketEncourage][lang], lang)
		assert.NotEmpty(t, catalog.CommonPhrases[BucketStop][lang], lang)
	}

	bike := catalog.Exercises("bike")
	require.Len(t, bike, 1)
	assert.Equal(t, 1800, bike[0].Duration)
	assert.Equal(t, 1, bike[0].Reps)
	assert.Equal(t, 0, bike[0].Pause)
}

func TestLoader_NoSourcesUsesFallback(t *testing.T) {
	logger, hook := test.NewNullLogger()
	loader := NewLoader(LoaderConfig{}, logger)

	catalog, err := loader.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, catalog.HasSport("boxing"))
	assert.Empty(t, entriesAt(hook, logrus.WarnLevel))
}

func TestLoader_FetchesFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(yamlCatalog))
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	loader := NewLoader(LoaderConfig{URL: srv.URL}, logger)

	catalog, err := loader.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"rowing"}, catalog.SportKeys())
}

func TestLoader_FailedFetchFallsBackWithWarning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	loader := NewLoader(LoaderConfig{URL: srv.URL}, logger)

	catalog, err := loader.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, catalog.HasSport("bike"))
	assert.Len(t, entriesAt(hook, logrus.WarnLevel), 1)
}

func TestLoader_ReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlCatalog), 0o644))

	logger, _ := test.NewNullLogger()
	loader := NewLoader(LoaderConfig{Path: path}, logger)

	catalog, err := loader.LoadCatalog(context.Background())
	require.NoError(t, err)
	require.True(t, catalog.HasSport("rowing"))
	assert.Equal(t, "Tire fort.", catalog.Exercises("rowing")[0].ExplanationFor("fr"))
}

func TestLoader_InvalidFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trainings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sports":{"x":{"exercises":[]}}}`), 0o644))

	logger, hook := test.NewNullLogger()
	loader := NewLoader(LoaderConfig{Path: path}, logger)

	catalog, err := loader.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, catalog.HasSport("judo"))
	assert.Len(t, entriesAt(hook, logrus.WarnLevel), 1)
}

func TestLoader_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger, _ := test.NewNullLogger()
	_, err := NewLoader(LoaderConfig{URL: srv.URL}, logger).LoadCatalog(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExercise_ExplanationFor(t *testing.T) {
	ex := Exercise{Explanation: map[string]string{"en": "english", "ja": "japanese"}}

	assert.Equal(t, "japanese", ex.ExplanationFor("ja"))
	assert.Equal(t, "english", ex.ExplanationFor("ru"))

	onlyFr := Exercise{Explanation: map[string]string{"fr": "french"}}
	assert.Equal(t, "french", onlyFr.ExplanationFor("zh"))
	assert.Equal(t, "", Exercise{}.ExplanationFor("en"))
}

func TestExercise_StatusLine(t *testing.T) {
	ex := Exercise{Duration: 90, Reps: 4, Pause: 20}
	assert.Equal(t, "4 reps • 90s / rep • pause 20s", ex.StatusLine())
}

func TestCatalog_RandomPhrase(t *testing.T) {
	catalog, err := Fallback()
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 2))

	assert.Contains(t, []string{"Stop!", "Rest!"}, catalog.RandomPhrase(BucketStop, "en", rng))
	// unknown language resolves to English
	assert.Contains(t, []string{"Start!", "Go!"}, catalog.RandomPhrase(BucketStart, "de", rng))
	assert.Equal(t, "", catalog.RandomPhrase(Bucket("milestone"), "en", rng))
}

func TestCatalog_Validate(t *testing.T) {
	var nilCatalog *Catalog
	assert.ErrorIs(t, nilCatalog.Validate(), ErrEmptyCatalog)

	bad := &Catalog{Sports: map[string]Sport{
		"abs": {Exercises: []Exercise{{Name: "Crunch", Duration: 0, Reps: 1}}},
	}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSport)
}

func entriesAt(hook *test.Hook, level logrus.Level) []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

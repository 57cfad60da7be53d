package content

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

// Bucket names a family of common coaching phrases.
type Bucket string

const (
	BucketStart     Bucket = "start"
	BucketEncourage Bucket = "encourage"
	BucketStop      Bucket = "stop"
)

// DefaultLang is used whenever a text is missing in the requested language.
const DefaultLang = "en"

var (
	ErrEmptyCatalog = errors.New("catalog has no sports")
	ErrInvalidSport = errors.New("invalid sport program")
)

// Phrases maps bucket -> language -> candidate phrases.
type Phrases map[Bucket]map[string][]string

// Exercise is one entry of a sport program. Immutable once loaded.
type Exercise struct {
	Name        string            `json:"name" yaml:"name"`
	Duration    int               `json:"duration" yaml:"duration"` // seconds per rep
	Reps        int               `json:"reps" yaml:"reps"`
	Pause       int               `json:"pause" yaml:"pause"` // seconds between reps
	Explanation map[string]string `json:"explanation" yaml:"explanation"`
}

// Sport is the exercise set of one sport key.
type Sport struct {
	Exercises []Exercise `json:"exercises" yaml:"exercises"`
}

// Catalog is the full content set served by a Provider.
type Catalog struct {
	CommonPhrases Phrases          `json:"commonPhrases" yaml:"commonPhrases"`
	Sports        map[string]Sport `json:"sports" yaml:"sports"`
}

// ExplanationFor resolves the explanation in lang, then English, then any language.
func (e Exercise) ExplanationFor(lang string) string {
	if text, ok := e.Explanation[lang]; ok && text != "" {
		return text
	}
	if text, ok := e.Explanation[DefaultLang]; ok && text != "" {
		return text
	}
	keys := make([]string, 0, len(e.Explanation))
	for k := range e.Explanation {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if e.Explanation[k] != "" {
			return e.Explanation[k]
		}
	}
	return ""
}

// StatusLine renders the "reps • duration • pause" summary shown for an exercise.
func (e Exercise) StatusLine() string {
	return fmt.Sprintf("%d reps • %ds / rep • pause %ds", e.Reps, e.Duration, e.Pause)
}

// SportKeys returns the sport keys in stable order.
func (c *Catalog) SportKeys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Sports))
	for k := range c.Sports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasSport reports whether key names a sport with at least one exercise.
func (c *Catalog) HasSport(key string) bool {
	if c == nil {
		return false
	}
	s, ok := c.Sports[key]
	return ok && len(s.Exercises) > 0
}

// Exercises returns the exercises of a sport, or nil when unknown.
func (c *Catalog) Exercises(key string) []Exercise {
	if c == nil {
		return nil
	}
	return c.Sports[key].Exercises
}

// RandomPhrase picks one phrase of bucket in lang, falling back to English.
// It returns "" when the bucket has nothing to say.
func (c *Catalog) RandomPhrase(bucket Bucket, lang string, rng *rand.Rand) string {
	if c == nil {
		return ""
	}
	byLang := c.CommonPhrases[bucket]
	pool := byLang[lang]
	if len(pool) == 0 {
		pool = byLang[DefaultLang]
	}
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.IntN(len(pool))]
}

// Validate checks the catalog is usable by the session engine.
func (c *Catalog) Validate() error {
	if c == nil || len(c.Sports) == 0 {
		return ErrEmptyCatalog
	}
	for key, sport := range c.Sports {
		if len(sport.Exercises) == 0 {
			return fmt.Errorf("sport %q has no exercises: %w", key, ErrInvalidSport)
		}
		for i, ex := range sport.Exercises {
			if ex.Duration <= 0 || ex.Reps <= 0 || ex.Pause < 0 {
				return fmt.Errorf("sport %q exercise %d (%s): duration=%d reps=%d pause=%d: %w",
					key, i, ex.Name, ex.Duration, ex.Reps, ex.Pause, ErrInvalidSport)
			}
		}
	}
	return nil
}

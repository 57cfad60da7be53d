package queue

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/lowaak/smart-trainer/coach-app/internal/content"
)

var (
	ErrUnknownSport = errors.New("unknown sport")
	ErrNoExercises  = errors.New("sport has no exercises")
)

// Manager hands out exercises of one sport in shuffled order, forever.
// It is not safe for concurrent use.
type Manager struct {
	catalog *content.Catalog
	rng     *rand.Rand
	sport   string
	queue   []content.Exercise
}

func NewManager(catalog *content.Catalog, rng *rand.Rand) *Manager {
	if rng == nil {
		panic("queue.Manager: rng cannot be nil")
	}
	return &Manager{catalog: catalog, rng: rng}
}

// SetCatalog swaps the content source and drops the current queue.
func (m *Manager) SetCatalog(catalog *content.Catalog) {
	m.catalog = catalog
	m.sport = ""
	m.queue = nil
}

// BuildQueue returns a uniformly random permutation of the sport's exercises.
func (m *Manager) BuildQueue(sport string) ([]content.Exercise, error) {
	if m.catalog == nil {
		return nil, fmt.Errorf("%q: %w", sport, ErrUnknownSport)
	}
	s, ok := m.catalog.Sports[sport]
	if !ok {
		return nil, fmt.Errorf("%q: %w", sport, ErrUnknownSport)
	}
	if len(s.Exercises) == 0 {
		return nil, fmt.Errorf("%q: %w", sport, ErrNoExercises)
	}

	list := make([]content.Exercise, len(s.Exercises))
	copy(list, s.Exercises)
	for i := len(list) - 1; i > 0; i-- {
		j := m.rng.IntN(i + 1)
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// Next pops the next exercise for sport. An empty queue is rebuilt first and
// a sport change discards whatever was left of the previous one.
func (m *Manager) Next(sport string) (content.Exercise, error) {
	if sport != m.sport || len(m.queue) == 0 {
		q, err := m.BuildQueue(sport)
		if err != nil {
			return content.Exercise{}, err
		}
		m.queue = q
		m.sport = sport
	}

	last := len(m.queue) - 1
	ex := m.queue[last]
	m.queue = m.queue[:last]
	return ex, nil
}

// Remaining reports how many exercises are left before the next reshuffle.
func (m *Manager) Remaining() int { return len(m.queue) }

func (m *Manager) Sport() string { return m.sport }

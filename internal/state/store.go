package state

import (
	"sync"
	"time"

	"github.com/five82/amaroom/internal/api"
	"github.com/five82/amaroom/internal/event"
)

// Outcome reports what ApplyEvent did with an event.
type Outcome int

const (
	// Dropped means the event left the store unchanged (update for an unknown id).
	Dropped Outcome = iota
	// Inserted means a new question was appended.
	Inserted
	// Replaced means an existing question was overwritten in place.
	Replaced
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	default:
		return "dropped"
	}
}

// RoomState is the reconciled, render-ready view of a room.
type RoomState struct {
	Questions []api.Question
	Loaded    bool      // a snapshot has been applied at least once
	Version   uint64    // bumped on every mutation
	UpdatedAt time.Time // zero until the first mutation
}

// Len returns the number of questions.
func (s RoomState) Len() int {
	return len(s.Questions)
}

// Store holds the ordered, id-keyed question list of one room. Mutations are
// expected from a single goroutine; reads may come from any goroutine.
type Store struct {
	mu        sync.RWMutex
	questions []api.Question
	index     map[string]int
	loaded    bool
	version   uint64
	updatedAt time.Time
}

// ApplySnapshot replaces the whole question list with qs, preserving its order,
// and marks the store loaded. A repeated id inside qs keeps its first position
// and takes its last value.
func (s *Store) ApplySnapshot(qs []api.Question) {
	questions := make([]api.Question, 0, len(qs))
	index := make(map[string]int, len(qs))
	for _, q := range qs {
		if pos, ok := index[q.ID]; ok {
			questions[pos] = q
			continue
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.questions = questions
	s.index = index
	s.loaded = true
	s.touch()
}

// ApplyEvent upserts a Create (append when new, overwrite in place otherwise)
// or overwrites an existing question for an Update. Updates for unknown ids
// and events of any other kind are dropped.
func (s *Store) ApplyEvent(ev event.Event) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		s.index = make(map[string]int)
	}
	pos, exists := s.index[ev.Data.ID]

	switch ev.Kind {
	case event.KindCreate:
		if exists {
			s.questions[pos] = ev.Data
			s.touch()
			return Replaced
		}
		s.index[ev.Data.ID] = len(s.questions)
		s.questions = append(s.questions, ev.Data)
		s.touch()
		return Inserted
	case event.KindUpdate:
		if !exists {
			return Dropped
		}
		s.questions[pos] = ev.Data
		s.touch()
		return Replaced
	default:
		return Dropped
	}
}

// Read returns a copy of the current state. It never blocks on a writer for
// longer than a single apply.
func (s *Store) Read() RoomState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return RoomState{
		Questions: api.CloneQuestions(s.questions),
		Loaded:    s.loaded,
		Version:   s.version,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Store) touch() {
	s.version++
	s.updatedAt = time.Now()
}

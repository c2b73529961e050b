package violation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"safesite-worker-go/internal/models"
)

// EventStore is the persistence collaborator for violation events and
// per-person monthly aggregates. The relational layer lives outside this
// worker; the worker calls these methods synchronously after receiving
// tracker output. Retries on transient failure are the implementation's
// responsibility, not the tracker's.
type EventStore interface {
	AddViolationEvent(ctx context.Context, event *models.ViolationEvent) error
	UpdateViolationEvent(ctx context.Context, event *models.ViolationEvent) error
	UpdatePersonMonthlyStat(ctx context.Context, personID, companyID, violationType string, durationSeconds float64) error
	// ActiveViolations lists open events, filtered by camera when cameraID is
	// non-empty.
	ActiveViolations(ctx context.Context, cameraID string) ([]models.ViolationEvent, error)
}

type statKey struct {
	personID      string
	companyID     string
	month         string
	violationType string
}

// MemoryStore is the in-process EventStore used for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*models.ViolationEvent
	order  []string
	stats  map[statKey]*models.PersonMonthlyStat
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*models.ViolationEvent),
		stats:  make(map[statKey]*models.PersonMonthlyStat),
	}
}

func (s *MemoryStore) AddViolationEvent(_ context.Context, event *models.ViolationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.EventID]; exists {
		return fmt.Errorf("event %s already exists", event.EventID)
	}
	dup := *event
	s.events[event.EventID] = &dup
	s.order = append(s.order, event.EventID)
	return nil
}

func (s *MemoryStore) UpdateViolationEvent(_ context.Context, event *models.ViolationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.EventID]; !exists {
		return fmt.Errorf("event %s not found", event.EventID)
	}
	dup := *event
	s.events[event.EventID] = &dup
	return nil
}

func (s *MemoryStore) UpdatePersonMonthlyStat(_ context.Context, personID, companyID, violationType string, durationSeconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := statKey{
		personID:      personID,
		companyID:     companyID,
		month:         time.Now().Format("2006-01"),
		violationType: violationType,
	}
	stat, ok := s.stats[key]
	if !ok {
		stat = &models.PersonMonthlyStat{
			PersonID:      personID,
			CompanyID:     companyID,
			Month:         key.month,
			ViolationType: violationType,
		}
		s.stats[key] = stat
	}
	stat.Count++
	stat.TotalDurationSeconds += durationSeconds
	return nil
}

func (s *MemoryStore) ActiveViolations(_ context.Context, cameraID string) ([]models.ViolationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ViolationEvent
	for _, id := range s.order {
		event := s.events[id]
		if event.Status != models.ViolationActive {
			continue
		}
		if cameraID != "" && event.CameraID != cameraID {
			continue
		}
		out = append(out, *event)
	}
	return out, nil
}

// Stat returns the aggregate for one person/type in the current month, for
// inspection in tests and the stats endpoint.
func (s *MemoryStore) Stat(personID, companyID, violationType string) (models.PersonMonthlyStat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := statKey{
		personID:      personID,
		companyID:     companyID,
		month:         time.Now().Format("2006-01"),
		violationType: violationType,
	}
	if stat, ok := s.stats[key]; ok {
		return *stat, true
	}
	return models.PersonMonthlyStat{}, false
}

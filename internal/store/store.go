// Package store provides storage backends for SafePath.
//
// A Store persists triage sessions, the service directory, and the raw
// inbound message log. SQLite and PostgreSQL implementations share the
// same interface; the in-memory store backs tests and ephemeral runs.
package store

import (
	"sort"
	"sync"

	"github.com/SafePath-UK/SafePath/internal/models"
)

// Store is the persistence interface used across SafePath.
type Store interface {
	// SaveSession inserts or replaces a session snapshot.
	SaveSession(s models.SessionState) error
	// GetSession returns the snapshot for id, or models.ErrSessionNotFound.
	GetSession(id string) (models.SessionState, error)
	// DeleteSession removes a session. Deleting a missing session is not
	// an error.
	DeleteSession(id string) error

	// AddService adds one organisation to the service directory and
	// returns its id.
	AddService(svc models.Service) (int64, error)
	// ListServices returns directory entries for a local authority,
	// plus national entries (empty local authority).
	ListServices(localAuthority string) ([]models.Service, error)

	// AddResponse appends one inbound message to the raw log.
	AddResponse(r models.Response) error
	// GetResponses returns the raw inbound message log.
	GetResponses() ([]models.Response, error)

	Close() error
}

// InMemoryStore keeps everything in process memory. Sessions and
// services vanish on restart; it exists for tests and local runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]models.SessionState
	services  []models.Service
	responses []models.Response
	nextID    int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.SessionState), nextID: 1}
}

func (s *InMemoryStore) SaveSession(state models.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.ID] = state
	return nil
}

func (s *InMemoryStore) GetSession(id string) (models.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[id]
	if !ok {
		return models.SessionState{}, models.ErrSessionNotFound
	}
	return state, nil
}

func (s *InMemoryStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *InMemoryStore) AddService(svc models.Service) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc.ID = s.nextID
	s.nextID++
	s.services = append(s.services, svc)
	return svc.ID, nil
}

func (s *InMemoryStore) ListServices(localAuthority string) ([]models.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Service
	for _, svc := range s.services {
		if svc.LocalAuthority == localAuthority || svc.LocalAuthority == "" {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) AddResponse(r models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, r)
	return nil
}

func (s *InMemoryStore) GetResponses() ([]models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Response, len(s.responses))
	copy(out, s.responses)
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

package storage

import (
	"errors"
	"strings"
	"sync"

	"github.com/eugenenazirov/apportionment/internal/apportion"
)

const maxSubdivisions = 1000

var (
	// ErrInvalidSubdivisions indicates the provided subdivisions violate validation rules.
	ErrInvalidSubdivisions = errors.New("subdivisions must contain between 1 and 1000 entries with unique ids and non-negative populations")
	// ErrEmpty is returned when no subdivisions have been loaded yet.
	ErrEmpty = errors.New("no subdivisions loaded")
)

// Storage provides access to the subdivisions used by the apportionment engine.
type Storage interface {
	GetSubdivisions() ([]apportion.Subdivision, error)
	SetSubdivisions(subs []apportion.Subdivision) error
}

// MemoryStorage keeps subdivisions in-memory and guards access with a RWMutex.
// Input order is preserved since it decides apportionment ties.
type MemoryStorage struct {
	mu           sync.RWMutex
	subdivisions []apportion.Subdivision
}

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// GetSubdivisions returns a copy of the stored subdivisions, or ErrEmpty.
func (s *MemoryStorage) GetSubdivisions() ([]apportion.Subdivision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.subdivisions) == 0 {
		return nil, ErrEmpty
	}
	return clone(s.subdivisions), nil
}

// SetSubdivisions validates, normalises, and replaces the stored subdivisions.
func (s *MemoryStorage) SetSubdivisions(subs []apportion.Subdivision) error {
	normalized, err := Normalize(subs)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.subdivisions = normalized
	s.mu.Unlock()

	return nil
}

// Normalize trims identifiers and checks that the collection is non-empty,
// bounded, free of duplicates and negative populations. Order is kept.
func Normalize(subs []apportion.Subdivision) ([]apportion.Subdivision, error) {
	if len(subs) == 0 || len(subs) > maxSubdivisions {
		return nil, ErrInvalidSubdivisions
	}

	seen := make(map[string]struct{}, len(subs))
	out := make([]apportion.Subdivision, 0, len(subs))
	for _, sub := range subs {
		id := strings.TrimSpace(sub.ID)
		if id == "" || sub.Population < 0 {
			return nil, ErrInvalidSubdivisions
		}
		if _, dup := seen[id]; dup {
			return nil, ErrInvalidSubdivisions
		}
		seen[id] = struct{}{}
		out = append(out, apportion.Subdivision{ID: id, Population: sub.Population})
	}
	return out, nil
}

func clone(src []apportion.Subdivision) []apportion.Subdivision {
	out := make([]apportion.Subdivision, len(src))
	copy(out, src)
	return out
}

package service

import (
	"context"
	"runtime"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/edubill/internal/invoicenumber/domain"
	"gorm.io/gorm"
)

// memoryStore is an in-process Store. With atomic=false GetAndIncrement is a
// deliberate read-yield-write so unserialized callers can collide.
type memoryStore struct {
	mu        sync.Mutex
	atomic    bool
	counters  map[snowflake.ID]int64
	claims    map[snowflake.ID]map[string]domain.Source
	templates map[snowflake.ID]domain.Template
	err       error

	// afterExists runs once Exists has answered, before the caller proceeds.
	afterExists func(orgID snowflake.ID, number string)
	increments  int
}

func newMemoryStore(atomic bool) *memoryStore {
	return &memoryStore{
		atomic:    atomic,
		counters:  map[snowflake.ID]int64{},
		claims:    map[snowflake.ID]map[string]domain.Source{},
		templates: map[snowflake.ID]domain.Template{},
	}
}

func (s *memoryStore) WithTx(_ *gorm.DB) domain.Store { return s }

func (s *memoryStore) Atomic() bool { return s.atomic }

func (s *memoryStore) Exists(_ context.Context, orgID snowflake.ID, number string) (bool, error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return false, s.err
	}
	_, ok := s.claims[orgID][number]
	hook := s.afterExists
	s.mu.Unlock()

	if hook != nil {
		hook(orgID, number)
	}
	return ok, nil
}

func (s *memoryStore) CurrentCounter(_ context.Context, orgID snowflake.ID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.counters[orgID], nil
}

func (s *memoryStore) GetAndIncrement(_ context.Context, orgID snowflake.ID) (int64, error) {
	if s.atomic {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return 0, s.err
		}
		s.counters[orgID]++
		s.increments++
		return s.counters[orgID], nil
	}

	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return 0, s.err
	}
	current := s.counters[orgID]
	s.mu.Unlock()

	runtime.Gosched()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[orgID] = current + 1
	s.increments++
	return current + 1, nil
}

func (s *memoryStore) Claim(_ context.Context, claim domain.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.claims[claim.OrgID] == nil {
		s.claims[claim.OrgID] = map[string]domain.Source{}
	}
	if _, ok := s.claims[claim.OrgID][claim.Number]; ok {
		return domain.ErrDuplicate
	}
	s.claims[claim.OrgID][claim.Number] = claim.Source
	return nil
}

func (s *memoryStore) GetTemplate(_ context.Context, orgID snowflake.ID) (*domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.templates[orgID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *memoryStore) UpsertTemplate(_ context.Context, orgID snowflake.ID, template domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.templates[orgID] = template
	return nil
}

func (s *memoryStore) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *memoryStore) claim(orgID snowflake.ID, number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims[orgID] == nil {
		s.claims[orgID] = map[string]domain.Source{}
	}
	s.claims[orgID][number] = domain.SourceManual
}

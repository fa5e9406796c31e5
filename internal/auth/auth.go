// Package auth tracks the signed-in user and notifies subscribers of
// changes. The core only reads the profile; identity-provider wiring
// lives outside this process.
package auth

import (
	"fmt"
	"sync"
	"time"

	"kanad/internal/domain"
)

// Service holds the current user profile and a subscriber list.
type Service struct {
	mu      sync.RWMutex
	current *domain.UserProfile
	subs    map[int]func(*domain.UserProfile)
	nextID  int
}

func NewService() *Service {
	return &Service{subs: make(map[int]func(*domain.UserProfile))}
}

// Current returns the signed-in profile, or nil.
func (s *Service) Current() *domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	out := *s.current
	return &out
}

// Subscribe registers fn for profile changes and calls it immediately with
// the current state. The returned function unsubscribes.
func (s *Service) Subscribe(fn func(*domain.UserProfile)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	current := s.current
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SignIn installs a profile and notifies subscribers.
func (s *Service) SignIn(p domain.UserProfile) {
	s.set(&p)
}

// SignOut clears the profile and notifies subscribers.
func (s *Service) SignOut() {
	s.set(nil)
}

// Guest synthesizes a guest profile and signs it in.
func (s *Service) Guest() domain.UserProfile {
	p := domain.UserProfile{
		UID:         fmt.Sprintf("guest-%d", time.Now().UnixMilli()),
		DisplayName: "Guest Researcher",
	}
	s.set(&p)
	return p
}

func (s *Service) set(p *domain.UserProfile) {
	s.mu.Lock()
	s.current = p
	fns := make([]func(*domain.UserProfile), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

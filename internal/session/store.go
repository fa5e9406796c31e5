package session

import (
	"log/slog"
	"sync"

	"kanad/internal/domain"
)

// Store owns the live session of every workspace: an ordered message list
// that is append-only except for the trailing model message while a stream
// is active.
//
// Every mutator installs a freshly-built slice instead of writing through
// shared backing arrays, so a snapshot taken before a mutation (e.g. mid
// archival) is never affected by it.
type Store struct {
	mu       sync.RWMutex
	sessions map[domain.Workspace][]domain.Message
	logger   *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	sessions := make(map[domain.Workspace][]domain.Message, len(domain.Workspaces))
	for _, ws := range domain.Workspaces {
		sessions[ws] = nil
	}
	return &Store{sessions: sessions, logger: logger}
}

// Append adds a message to the end of the workspace's list.
func (s *Store) Append(ws domain.Workspace, msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.sessions[ws]
	next := make([]domain.Message, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = msg
	s.sessions[ws] = next
}

// UpdateTrailing applies fn to the last message only when that message has
// role model. Anything else is a silent no-op: a streaming update racing
// against a workspace switch must land harmlessly.
func (s *Store) UpdateTrailing(ws domain.Workspace, fn func(*domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.sessions[ws]
	if len(cur) == 0 {
		return
	}
	last := cur[len(cur)-1]
	if last.Role != domain.RoleModel {
		return
	}
	patched := last.Clone()
	fn(&patched)
	next := make([]domain.Message, len(cur))
	copy(next, cur)
	next[len(cur)-1] = patched
	s.sessions[ws] = next
}

// PatchByID applies fn to the message with the given id. A missing id is a
// no-op and returns false; side-channel results arriving after the session
// was cleared or archived must not resurrect anything.
func (s *Store) PatchByID(ws domain.Workspace, id string, fn func(*domain.Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.sessions[ws]
	for i, m := range cur {
		if m.ID != id {
			continue
		}
		patched := m.Clone()
		fn(&patched)
		next := make([]domain.Message, len(cur))
		copy(next, cur)
		next[i] = patched
		s.sessions[ws] = next
		return true
	}
	return false
}

// Clear empties the workspace's list. Callers archive first.
func (s *Store) Clear(ws domain.Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ws] = nil
}

// Replace installs a restored message list wholesale.
func (s *Store) Replace(ws domain.Workspace, msgs []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[ws] = domain.CloneMessages(msgs)
}

// Snapshot returns a deep copy of the workspace's messages.
func (s *Store) Snapshot(ws domain.Workspace) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneMessages(s.sessions[ws])
}

// Trailing returns a copy of the last message, if any.
func (s *Store) Trailing(ws domain.Workspace) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.sessions[ws]
	if len(cur) == 0 {
		return domain.Message{}, false
	}
	return cur[len(cur)-1].Clone(), true
}

// Len returns the number of messages in the workspace's session.
func (s *Store) Len(ws domain.Workspace) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[ws])
}

package session

import (
	"context"
	"log/slog"
	"sync"

	"kanad/internal/domain"
)

// Persister mirrors archive mutations to durable storage. The in-memory
// archive stays authoritative; persistence is an optional add-on.
type Persister interface {
	Save(ctx context.Context, s domain.ChatSession) error
	Delete(ctx context.Context, id string) error
	Load(ctx context.Context) ([]domain.ChatSession, error)
}

// Archive owns the archived (closed) sessions, most recent first.
type Archive struct {
	mu      sync.RWMutex
	entries []domain.ChatSession
	persist Persister
	logger  *slog.Logger
}

func NewArchive(persist Persister, logger *slog.Logger) *Archive {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Archive{persist: persist, logger: logger}
	if persist != nil {
		entries, err := persist.Load(context.Background())
		if err != nil {
			logger.Warn("failed to load archived sessions", "err", err)
		} else {
			a.entries = entries
		}
	}
	return a
}

// Archive prepends a session snapshot. Empty sessions are skipped so a
// no-op workspace visit never clutters history.
func (a *Archive) Archive(s domain.ChatSession) {
	if len(s.Messages) == 0 {
		return
	}
	s.Messages = domain.CloneMessages(s.Messages)

	a.mu.Lock()
	next := make([]domain.ChatSession, 0, len(a.entries)+1)
	next = append(next, s)
	next = append(next, a.entries...)
	a.entries = next
	a.mu.Unlock()

	a.logger.Info("session archived",
		"workspace", s.Workspace,
		"title", s.Title,
		"messages", len(s.Messages),
	)

	if a.persist != nil {
		if err := a.persist.Save(context.Background(), s); err != nil {
			a.logger.Warn("failed to persist archived session", "id", s.ID, "err", err)
		}
	}
}

// Restore returns a deep copy of the archived session. The entry stays in
// history; restoring is read-only.
func (a *Archive) Restore(id string) (domain.ChatSession, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, e := range a.entries {
		if e.ID == id {
			out := e
			out.Messages = domain.CloneMessages(e.Messages)
			return out, true
		}
	}
	return domain.ChatSession{}, false
}

// Delete removes an archived session.
func (a *Archive) Delete(id string) bool {
	a.mu.Lock()
	found := false
	next := make([]domain.ChatSession, 0, len(a.entries))
	for _, e := range a.entries {
		if e.ID == id {
			found = true
			continue
		}
		next = append(next, e)
	}
	a.entries = next
	a.mu.Unlock()

	if found && a.persist != nil {
		if err := a.persist.Delete(context.Background(), id); err != nil {
			a.logger.Warn("failed to delete persisted session", "id", id, "err", err)
		}
	}
	return found
}

// List returns the archived sessions, most recent first, without message
// bodies deep-copied (callers treat entries as read-only).
func (a *Archive) List() []domain.ChatSession {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.ChatSession, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of archived sessions.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

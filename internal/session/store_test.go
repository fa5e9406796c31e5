package session

import (
	"testing"

	"kanad/internal/domain"
)

func msg(id string, role domain.Role, content string) domain.Message {
	return domain.Message{ID: id, Role: role, Content: content}
}

func TestAppendAndSnapshot(t *testing.T) {
	s := NewStore(nil)
	s.Append(domain.WorkspaceRnd, msg("1", domain.RoleUser, "hello"))
	s.Append(domain.WorkspaceRnd, msg("2", domain.RoleModel, "hi"))

	got := s.Snapshot(domain.WorkspaceRnd)
	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Content != "hello" || got[1].Content != "hi" {
		t.Fatalf("unexpected contents: %q, %q", got[0].Content, got[1].Content)
	}

	// Other workspaces are unaffected
	if n := s.Len(domain.WorkspacePaper); n != 0 {
		t.Fatalf("expected empty paper workspace, got %d", n)
	}
}

func TestUpdateTrailingModelOnly(t *testing.T) {
	s := NewStore(nil)
	s.Append(domain.WorkspaceRnd, msg("1", domain.RoleUser, "hello"))
	s.Append(domain.WorkspaceRnd, msg("2", domain.RoleModel, ""))

	s.UpdateTrailing(domain.WorkspaceRnd, func(m *domain.Message) {
		m.Content = "streamed"
	})
	if last, _ := s.Trailing(domain.WorkspaceRnd); last.Content != "streamed" {
		t.Fatalf("expected trailing update to apply, got %q", last.Content)
	}
}

func TestUpdateTrailingGuardsUserRole(t *testing.T) {
	s := NewStore(nil)
	s.Append(domain.WorkspaceRnd, msg("1", domain.RoleUser, "hello"))

	s.UpdateTrailing(domain.WorkspaceRnd, func(m *domain.Message) {
		m.Content = "must not land"
	})

	got := s.Snapshot(domain.WorkspaceRnd)
	if got[0].Content != "hello" {
		t.Fatalf("trailing update applied to user message: %q", got[0].Content)
	}
}

func TestUpdateTrailingEmptySession(t *testing.T) {
	s := NewStore(nil)
	s.UpdateTrailing(domain.WorkspaceRnd, func(m *domain.Message) {
		t.Fatal("mutator called on empty session")
	})
}

func TestPatchByID(t *testing.T) {
	s := NewStore(nil)
	s.Append(domain.WorkspaceRnd, msg("a", domain.RoleModel, "first"))
	s.Append(domain.WorkspaceRnd, msg("b", domain.RoleUser, "second"))

	ok := s.PatchByID(domain.WorkspaceRnd, "a", func(m *domain.Message) {
		m.RoadmapData = &domain.RoadmapNode{Name: "Go"}
	})
	if !ok {
		t.Fatal("expected patch to find message a")
	}
	got := s.Snapshot(domain.WorkspaceRnd)
	if got[0].RoadmapData == nil || got[0].RoadmapData.Name != "Go" {
		t.Fatal("patch did not apply to message a")
	}
	if got[1].RoadmapData != nil {
		t.Fatal("patch leaked to message b")
	}
}

func TestPatchByIDMissingIsNoOp(t *testing.T) {
	s := NewStore(nil)
	s.Append(domain.WorkspaceRnd, msg("a", domain.RoleModel, "first"))
	s.Clear(domain.WorkspaceRnd)

	ok := s.PatchByID(domain.WorkspaceRnd, "a", func(m *domain.Message) {
		m.Content = "resurrected"
	})
	if ok {
		t.Fatal("patch reported success after clear")
	}
	if n := s.Len(domain.WorkspaceRnd); n != 0 {
		t.Fatalf("patch resurrected a message, len=%d", n)
	}
}

func TestSnapshotUnaffectedByLaterMutation(t *testing.T) {
	s := NewStore(nil)
	s.Append(domain.WorkspaceRnd, msg("1", domain.RoleModel, "before"))

	snap := s.Snapshot(domain.WorkspaceRnd)
	s.UpdateTrailing(domain.WorkspaceRnd, func(m *domain.Message) {
		m.Content = "after"
	})
	s.Append(domain.WorkspaceRnd, msg("2", domain.RoleUser, "more"))

	if len(snap) != 1 || snap[0].Content != "before" {
		t.Fatalf("held snapshot was mutated: %+v", snap)
	}
}

func TestReplaceDeepCopies(t *testing.T) {
	s := NewStore(nil)
	restored := []domain.Message{msg("1", domain.RoleUser, "restored")}
	s.Replace(domain.WorkspaceRnd, restored)

	restored[0].Content = "mutated by caller"
	if got := s.Snapshot(domain.WorkspaceRnd); got[0].Content != "restored" {
		t.Fatalf("store aliased caller slice: %q", got[0].Content)
	}
}

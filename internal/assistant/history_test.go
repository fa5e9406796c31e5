package assistant

import (
	"testing"

	"kanad/internal/domain"
)

func TestFlattenHistory(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "analyze these"},
		{Role: domain.RoleModel, Content: "sure"},
	}
	turns := flattenHistory(msgs)
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[0].Text != "analyze these" {
		t.Fatalf("turn 0 = %+v", turns[0])
	}
	if turns[1].Role != domain.RoleModel || turns[1].Text != "sure" {
		t.Fatalf("turn 1 = %+v", turns[1])
	}
}

func TestFlattenHistoryImagePlaceholder(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "what is this", ImagePreview: "data:image/png;base64,AAAA"},
	}
	turns := flattenHistory(msgs)
	want := "[User uploaded an image]\nwhat is this"
	if turns[0].Text != want {
		t.Fatalf("text = %q, want %q", turns[0].Text, want)
	}
}

func TestFlattenHistoryAttachmentPlaceholder(t *testing.T) {
	msgs := []domain.Message{
		{
			Role:    domain.RoleUser,
			Content: "summarize",
			Attachments: []domain.Attachment{
				{Name: "a.pdf"}, {Name: "b.pdf"},
			},
		},
	}
	turns := flattenHistory(msgs)
	want := "[User uploaded 2 document(s): a.pdf, b.pdf]\nsummarize"
	if turns[0].Text != want {
		t.Fatalf("text = %q, want %q", turns[0].Text, want)
	}
}

func TestFlattenHistoryModelBinaryIgnored(t *testing.T) {
	// Placeholders apply to user uploads only; a model message carrying an
	// image preview flattens to its text.
	msgs := []domain.Message{
		{Role: domain.RoleModel, Content: "here", ImagePreview: "data:image/png;base64,AAAA"},
	}
	if got := flattenHistory(msgs)[0].Text; got != "here" {
		t.Fatalf("text = %q", got)
	}
}

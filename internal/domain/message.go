package domain

import "time"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// GroundingSource is a web citation attached to a model message.
// Uniqueness key is URI; insertion preserves first-seen order.
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// MergeSources appends every incoming source whose URI has not been seen
// yet. Existing entries are never replaced or reordered.
func MergeSources(existing, incoming []GroundingSource) []GroundingSource {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s.URI] = true
	}
	out := existing
	for _, s := range incoming {
		if s.URI == "" || seen[s.URI] {
			continue
		}
		seen[s.URI] = true
		out = append(out, s)
	}
	return out
}

// Attachment is a user-supplied file normalized to a transportable form.
// Data is base64-encoded content (a data URI prefix is tolerated).
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
	Size     int64  `json:"size"`
}

// RoadmapNode is one node of a structured learning-roadmap tree.
type RoadmapNode struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Children    []RoadmapNode `json:"children,omitempty"`
}

// Message is a single transcript entry. Messages are immutable once
// appended, except for the trailing model message while a stream is active.
type Message struct {
	ID               string            `json:"id"`
	Role             Role              `json:"role"`
	Content          string            `json:"content"`
	Timestamp        time.Time         `json:"timestamp"`
	IsError          bool              `json:"isError,omitempty"`
	RoadmapData      *RoadmapNode      `json:"roadmapData,omitempty"`
	GroundingSources []GroundingSource `json:"groundingSources,omitempty"`
	ImagePreview     string            `json:"imagePreview,omitempty"`
	Attachments      []Attachment      `json:"attachments,omitempty"`
}

// Clone returns a deep copy so callers can mutate the result without
// affecting any snapshot that still references the original.
func (m Message) Clone() Message {
	out := m
	if m.GroundingSources != nil {
		out.GroundingSources = make([]GroundingSource, len(m.GroundingSources))
		copy(out.GroundingSources, m.GroundingSources)
	}
	if m.Attachments != nil {
		out.Attachments = make([]Attachment, len(m.Attachments))
		copy(out.Attachments, m.Attachments)
	}
	if m.RoadmapData != nil {
		node := m.RoadmapData.clone()
		out.RoadmapData = &node
	}
	return out
}

func (n RoadmapNode) clone() RoadmapNode {
	out := n
	if n.Children != nil {
		out.Children = make([]RoadmapNode, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.clone()
		}
	}
	return out
}

// CloneMessages deep-copies an ordered message list.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// ChatSession is an archived conversation snapshot. Never mutated after
// creation; destroyed only by explicit deletion.
type ChatSession struct {
	ID        string    `json:"id"`
	Workspace Workspace `json:"workspace"`
	Messages  []Message `json:"messages"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile is the subset of identity data the core reads.
type UserProfile struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// UserContext carries the persona knobs threaded into every generation.
type UserContext struct {
	Role     string `json:"role"`
	Language string `json:"language"`
}

// ResearchPaper is a single paper-search result.
type ResearchPaper struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     string   `json:"year"`
	Abstract string   `json:"abstract"`
	URL      string   `json:"url"`
	Source   string   `json:"source"` // "arXiv" | "Semantic Scholar"
}

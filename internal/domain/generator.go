package domain

import "context"

// Turn is one prior conversation turn re-expressed for the wire. Binary
// content is flattened to a short textual placeholder before it gets here.
type Turn struct {
	Role Role
	Text string
}

// Part is one piece of the current request: either text or inline binary
// data (an uploaded document or image).
type Part struct {
	Text       string
	InlineMIME string
	InlineData []byte
}

// StreamRequest describes a single primary-stream generation call.
type StreamRequest struct {
	Model     string
	System    string
	UseSearch bool
	User      UserContext
	History   []Turn
	Parts     []Part
}

// StreamChunk is one incremental piece of a streamed response.
type StreamChunk struct {
	Text    string
	Sources []GroundingSource
}

// Generator is the generative backend the orchestrator drives.
//
// GenerateStream writes chunks to out in arrival order and closes out
// before returning, so consumers can range over the channel and then join
// the returned error (see internal/assistant).
type Generator interface {
	GenerateStream(ctx context.Context, req StreamRequest, out chan<- StreamChunk) error

	// GenerateRoadmap produces a structured roadmap tree, or nil when the
	// backend returns nothing usable.
	GenerateRoadmap(ctx context.Context, subject, level string, user UserContext) (*RoadmapNode, error)

	// GenerateImage returns a data-URI image, or "" when the backend
	// produced no image.
	GenerateImage(ctx context.Context, prompt string, user UserContext) (string, error)
}

// Update is published on the update bus whenever a session message is
// appended or mutated, so channels can push live transcript state.
type Update struct {
	Workspace Workspace `json:"workspace"`
	Message   Message   `json:"message"`
}

// UpdateBus is the narrow publishing interface the orchestrator needs.
type UpdateBus interface {
	Publish(Update)
}

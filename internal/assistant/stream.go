package assistant

import (
	"context"
	"strings"

	"kanad/internal/domain"
)

// consumeStream drains one generation stream into the workspace's trailing
// model message. Text folds in arrival order; sources dedup by URI against
// the set already attached. Each increment is applied through the store's
// trailing-update guard and published on the bus.
//
// A transport failure replaces whatever partial text accumulated with
// errText. Partial streamed content is never presented as a final answer.
func (o *Orchestrator) consumeStream(ctx context.Context, ws domain.Workspace, req domain.StreamRequest, errText string) {
	chunks := make(chan domain.StreamChunk, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- o.gen.GenerateStream(ctx, req, chunks)
	}()

	var acc strings.Builder
	seen := make(map[string]bool)
	for chunk := range chunks {
		acc.WriteString(chunk.Text)
		var fresh []domain.GroundingSource
		for _, s := range chunk.Sources {
			if s.URI == "" || seen[s.URI] {
				continue
			}
			seen[s.URI] = true
			fresh = append(fresh, s)
		}
		o.applyTrailing(ws, func(m *domain.Message) {
			m.Content = acc.String()
			m.GroundingSources = domain.MergeSources(m.GroundingSources, fresh)
		})
	}

	if err := <-errCh; err != nil {
		o.logger.Error("generation stream failed", "workspace", ws, "model", req.Model, "err", err)
		o.applyTrailing(ws, func(m *domain.Message) {
			m.Content = errText
			m.IsError = true
		})
	}
}

// applyTrailing mutates the trailing model message and publishes the
// result. A workspace whose trailing message is no longer a model message
// absorbs the update silently.
func (o *Orchestrator) applyTrailing(ws domain.Workspace, fn func(*domain.Message)) {
	var updated domain.Message
	o.store.UpdateTrailing(ws, func(m *domain.Message) {
		fn(m)
		updated = m.Clone()
	})
	if updated.ID != "" {
		o.publish(ws, updated)
	}
}

func (o *Orchestrator) publish(ws domain.Workspace, msg domain.Message) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(domain.Update{Workspace: ws, Message: msg})
}

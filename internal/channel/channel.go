// Package channel exposes the orchestration core over user-facing
// surfaces: an HTTP + WebSocket gateway and an optional Telegram bot.
package channel

import "context"

// Channel is a user-facing surface. Start blocks until ctx is canceled or
// the channel fails.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

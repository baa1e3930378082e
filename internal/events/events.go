// Package events carries content mutations to the components that derive state from them.
// Events are published only after the mutation has committed.
package events

import (
	"context"

	"ficehub/internal/models"
)

type Kind string

const (
	Created      Kind = "created"
	ScoreChanged Kind = "score_changed"
	Deleted      Kind = "deleted"
)

// Event describes one committed change to a post or comment.
type Event struct {
	Kind      Kind
	Content   models.ContentKind
	ContentID uint
	AuthorID  uint
}

// Notifier accepts events for delivery.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Handler consumes events. Handlers must tolerate duplicate and out-of-order delivery.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

type HandlerFunc func(ctx context.Context, ev Event) error

func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Inline delivers every event synchronously on the publisher's goroutine.
type Inline struct {
	Handler Handler
}

func (n Inline) Publish(ctx context.Context, ev Event) error {
	return n.Handler.HandleEvent(ctx, ev)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

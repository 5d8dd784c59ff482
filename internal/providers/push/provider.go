package push

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Message is a single outbound push payload.
type Message struct {
	OwnerID  snowflake.ID
	Title    string
	Body     string
	Priority string
	Data     map[string]any
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpProvider accepts every message without delivering it.
type NoOpProvider struct{}

func (NoOpProvider) Send(context.Context, Message) error {
	return nil
}

package email

import "context"

// Message is a single outbound alert email.
type Message struct {
	To      string
	Subject string
	Body    string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// NoOpProvider accepts every message without sending anything. Used when
// email delivery is disabled in configuration.
type NoOpProvider struct{}

func (NoOpProvider) Send(context.Context, Message) error {
	return nil
}

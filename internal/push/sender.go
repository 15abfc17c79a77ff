package push

import (
	"context"
	"errors"
)

// ErrInvalidToken marks a device token the gateway rejected outright.
// It will not start working without the user re-registering, so callers
// treat it as permanent.
var ErrInvalidToken = errors.New("invalid device token")

// Message is the notification text delivered to one device.
type Message struct {
	Title string
	Body  string
}

// Sender delivers one message to one device token. Failures carry the
// domain transient/permanent classification.
type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

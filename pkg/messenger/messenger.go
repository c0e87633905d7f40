package messenger

import (
	"context"
)

// Sender delivers outbound messages to a user. Delivery is
// fire-and-forget from the conversation core's perspective: failures are
// logged by the caller and never retried here.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

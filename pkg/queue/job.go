package queue

import "context"

// Job handles one message type on the queue.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle processes one payload.
	Handle(ctx context.Context, payload interface{}) error
}

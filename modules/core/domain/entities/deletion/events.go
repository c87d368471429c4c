package deletion

import (
	"context"

	"github.com/google/uuid"

	"github.com/meridianhq/meridian/pkg/composables"
)

// CascadeCompletedEvent is published after a cascade run finishes,
// regardless of outcome. Sender is the account that initiated the run when
// one was present in context.
type CascadeCompletedEvent struct {
	TargetUserID uuid.UUID
	Sender       uuid.UUID
	Initiator    Initiator
	Result       Result
}

func NewCascadeCompletedEvent(ctx context.Context, targetUserID uuid.UUID, initiator Initiator) *CascadeCompletedEvent {
	ev := &CascadeCompletedEvent{
		TargetUserID: targetUserID,
		Initiator:    initiator,
	}
	if sender, err := composables.UseUser(ctx); err == nil {
		ev.Sender = sender.ID()
	}
	return ev
}

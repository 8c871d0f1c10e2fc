package interfaces

import (
	"context"

	"github.com/m-mizutani/refpost/pkg/domain/model"
)

// Mailer delivers one composed message to one recipient. Implementations
// cover the sendmail pipe, SMTP submission and a dry-run sink.
type Mailer interface {
	// Send hands the message to the transport. Errors are reported for
	// logging but must never fail the surrounding push.
	Send(ctx context.Context, msg *model.NotificationMessage) error
}

// Announcer posts a short out-of-band summary of a reference update, e.g. to
// a chat channel. Failures follow delivery semantics: logged, never fatal.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

package mailer

import (
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/domain/model"
	"github.com/m-mizutani/refpost/pkg/domain/types"
)

type writerMailer struct {
	w io.Writer
}

// NewWriter creates a dry-run mailer printing each rendered message to the
// given writer. Used for testing and operator inspection.
func NewWriter(w io.Writer) interfaces.Mailer {
	return &writerMailer{w: w}
}

func (m *writerMailer) Send(ctx context.Context, msg *model.NotificationMessage) error {
	if _, err := fmt.Fprintf(m.w, "%s\n---\n", msg.Render()); err != nil {
		return goerr.Wrap(types.ErrDelivery, "failed to write message", goerr.V("recipient", msg.Recipient))
	}
	return nil
}

package mailer

import (
	"context"
	"os/exec"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/domain/model"
	"github.com/m-mizutani/refpost/pkg/domain/types"
)

type sendmail struct {
	path string
	args []string
}

// NewSendmail creates a mailer that pipes each rendered message into a
// sendmail-compatible program, with the recipient address as the final
// argument.
func NewSendmail(path string, args ...string) interfaces.Mailer {
	return &sendmail{path: path, args: args}
}

func (s *sendmail) Send(ctx context.Context, msg *model.NotificationMessage) error {
	argv := append(append([]string{}, s.args...), msg.Recipient)
	cmd := exec.CommandContext(ctx, s.path, argv...)
	cmd.Stdin = strings.NewReader(msg.Render())

	out, err := cmd.CombinedOutput()
	if err != nil {
		return goerr.Wrap(types.ErrDelivery, "sendmail invocation failed",
			goerr.V("path", s.path),
			goerr.V("recipient", msg.Recipient),
			goerr.V("output", strings.TrimSpace(string(out))),
		)
	}
	return nil
}

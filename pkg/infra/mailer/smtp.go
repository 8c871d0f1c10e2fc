package mailer

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/domain/model"
	"github.com/m-mizutani/refpost/pkg/domain/types"
	"gopkg.in/gomail.v2"
)

type smtpMailer struct {
	dialer *gomail.Dialer
	sender string
}

// NewSMTP creates a mailer submitting each message over SMTP. sender is the
// envelope and From address.
func NewSMTP(host string, port int, user, password, sender string) interfaces.Mailer {
	return &smtpMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		sender: sender,
	}
}

func (s *smtpMailer) Send(ctx context.Context, msg *model.NotificationMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.sender)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", msg.Subject)
	for _, h := range msg.Headers {
		// gomail writes the MIME framing itself from the body part.
		if h.Name == "MIME-Version" || h.Name == "Content-Type" {
			continue
		}
		m.SetHeader(h.Name, h.Value)
	}
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return goerr.Wrap(types.ErrDelivery, "smtp submission failed",
			goerr.V("host", s.dialer.Host),
			goerr.V("recipient", msg.Recipient),
			goerr.V("cause", err),
		)
	}
	return nil
}

package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/infra/mailer"
	"github.com/urfave/cli/v3"
)

// Mail holds the delivery transport configuration. Neither the mailer
// program path nor the fallback recipient carries a built-in default; both
// are explicit deployment configuration.
type Mail struct {
	Transport         string
	SendmailPath      string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string `masq:"secret"`
	Sender            string
	FallbackRecipient string
	Delay             time.Duration
}

// Flags returns CLI flags for mail configuration
func (c *Mail) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mail-transport",
			Usage:       "Mail transport (sendmail, smtp, stdout); empty disables delivery",
			Destination: &c.Transport,
			Sources:     cli.EnvVars("REFPOST_MAIL_TRANSPORT"),
		},
		&cli.StringFlag{
			Name:        "sendmail-path",
			Usage:       "Path to the sendmail-compatible mailer program",
			Destination: &c.SendmailPath,
			Sources:     cli.EnvVars("REFPOST_SENDMAIL_PATH"),
		},
		&cli.StringFlag{
			Name:        "smtp-host",
			Usage:       "SMTP server host",
			Destination: &c.SMTPHost,
			Sources:     cli.EnvVars("REFPOST_SMTP_HOST"),
		},
		&cli.IntFlag{
			Name:        "smtp-port",
			Usage:       "SMTP server port",
			Value:       587,
			Destination: &c.SMTPPort,
			Sources:     cli.EnvVars("REFPOST_SMTP_PORT"),
		},
		&cli.StringFlag{
			Name:        "smtp-user",
			Usage:       "SMTP user name",
			Destination: &c.SMTPUser,
			Sources:     cli.EnvVars("REFPOST_SMTP_USER"),
		},
		&cli.StringFlag{
			Name:        "smtp-password",
			Usage:       "SMTP password",
			Destination: &c.SMTPPassword,
			Sources:     cli.EnvVars("REFPOST_SMTP_PASSWORD"),
		},
		&cli.StringFlag{
			Name:        "mail-sender",
			Usage:       "Sender address for SMTP submission",
			Destination: &c.Sender,
			Sources:     cli.EnvVars("REFPOST_MAIL_SENDER"),
		},
		&cli.StringFlag{
			Name:        "fallback-recipient",
			Usage:       "Recipient used when the repository configures none",
			Destination: &c.FallbackRecipient,
			Sources:     cli.EnvVars("REFPOST_FALLBACK_RECIPIENT"),
		},
		&cli.DurationFlag{
			Name:        "send-delay",
			Usage:       "Fixed pause between consecutive mail sends",
			Value:       time.Second,
			Destination: &c.Delay,
			Sources:     cli.EnvVars("REFPOST_SEND_DELAY"),
		},
	}
}

// Build constructs the configured transport. An empty transport returns nil,
// which the pipeline treats as warn-and-skip delivery.
func (c *Mail) Build() (interfaces.Mailer, error) {
	switch c.Transport {
	case "":
		return nil, nil
	case "sendmail":
		if c.SendmailPath == "" {
			return nil, goerr.New("sendmail transport requires --sendmail-path")
		}
		return mailer.NewSendmail(c.SendmailPath), nil
	case "smtp":
		if c.SMTPHost == "" {
			return nil, goerr.New("smtp transport requires --smtp-host")
		}
		if c.Sender == "" {
			return nil, goerr.New("smtp transport requires --mail-sender")
		}
		return mailer.NewSMTP(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.Sender), nil
	case "stdout":
		return mailer.NewWriter(os.Stdout), nil
	default:
		return nil, goerr.New("unknown mail transport", goerr.V("transport", c.Transport))
	}
}

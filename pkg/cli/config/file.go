package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// File points at an optional TOML configuration file. File values fill in
// whatever flags and environment variables left unset; they never override
// them.
type File struct {
	Path string
}

// Flags returns CLI flags for the configuration file
func (c *File) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to a TOML configuration file",
			Destination: &c.Path,
			Sources:     cli.EnvVars("REFPOST_CONFIG"),
		},
	}
}

// FileConfig mirrors the TOML file layout.
type FileConfig struct {
	Mail struct {
		Transport         string        `toml:"transport"`
		SendmailPath      string        `toml:"sendmail_path"`
		SMTPHost          string        `toml:"smtp_host"`
		SMTPPort          int           `toml:"smtp_port"`
		SMTPUser          string        `toml:"smtp_user"`
		SMTPPassword      string        `toml:"smtp_password"`
		Sender            string        `toml:"sender"`
		FallbackRecipient string        `toml:"fallback_recipient"`
		Delay             time.Duration `toml:"delay"`
	} `toml:"mail"`
	Announce struct {
		SlackWebhookURL string `toml:"slack_webhook_url"`
	} `toml:"announce"`
}

// Load parses the configuration file. A File with no path yields an empty
// FileConfig.
func (c *File) Load() (*FileConfig, error) {
	cfg := &FileConfig{}
	if c.Path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", c.Path))
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", c.Path))
	}
	return cfg, nil
}

// Apply copies file values into settings the flags and environment left
// untouched. isSet reports whether the named flag was provided explicitly;
// it distinguishes flag defaults from deliberate values for the numeric
// settings, whose zero value is not a usable "unset" marker.
func (f *FileConfig) Apply(mail *Mail, announce *Announce, isSet func(name string) bool) {
	setIfEmpty(&mail.Transport, f.Mail.Transport)
	setIfEmpty(&mail.SendmailPath, f.Mail.SendmailPath)
	setIfEmpty(&mail.SMTPHost, f.Mail.SMTPHost)
	setIfEmpty(&mail.SMTPUser, f.Mail.SMTPUser)
	setIfEmpty(&mail.SMTPPassword, f.Mail.SMTPPassword)
	setIfEmpty(&mail.Sender, f.Mail.Sender)
	setIfEmpty(&mail.FallbackRecipient, f.Mail.FallbackRecipient)
	if f.Mail.SMTPPort != 0 && !isSet("smtp-port") {
		mail.SMTPPort = f.Mail.SMTPPort
	}
	if f.Mail.Delay != 0 && !isSet("send-delay") {
		mail.Delay = f.Mail.Delay
	}
	setIfEmpty(&announce.SlackWebhookURL, f.Announce.SlackWebhookURL)
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

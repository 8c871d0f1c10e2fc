package config

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Sentry holds error reporting configuration. Without a DSN, reporting is
// disabled entirely.
type Sentry struct {
	DSN string `masq:"secret"`
}

// Flags returns CLI flags for Sentry configuration
func (c *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for error reporting",
			Destination: &c.DSN,
			Sources:     cli.EnvVars("REFPOST_SENTRY_DSN"),
		},
	}
}

// Configure initializes the Sentry client and returns a flush function to
// call before process exit. A no-op pair is returned when no DSN is set.
func (c *Sentry) Configure() (func(), error) {
	if c.DSN == "" {
		return func() {}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:     c.DSN,
		Release: types.Version,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize sentry")
	}

	return func() { sentry.Flush(2 * time.Second) }, nil
}

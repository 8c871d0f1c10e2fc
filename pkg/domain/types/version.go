package types

// Version is the application version, overridden at build time via
// -ldflags "-X github.com/m-mizutani/refpost/pkg/domain/types.Version=..."
var Version = "v0.0.1"

// AppName is the canonical binary name, used in log output and the
// Message-ID domain part of generated mails.
const AppName = "refpost"

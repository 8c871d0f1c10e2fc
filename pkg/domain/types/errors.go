package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures so the CLI can map them to exit behavior:
// usage and policy errors reject the push (non-zero exit), delivery errors
// are logged and swallowed, and only untagged or delivery errors are worth
// reporting to Sentry.
var (
	// TagUsage marks invalid invocations: wrong arguments, malformed
	// revisions, or a missing repository context.
	TagUsage = goerr.NewTag("usage")

	// TagPolicy marks deliberate policy rejections.
	TagPolicy = goerr.NewTag("policy")

	// TagDelivery marks mail transport failures. These never propagate to
	// the exit code.
	TagDelivery = goerr.NewTag("delivery")
)

var (
	// ErrUsage is the base error for invalid hook invocations.
	ErrUsage = goerr.New("invalid hook invocation", goerr.T(TagUsage))

	// ErrFrozenBranch is returned when a push targets a frozen branch.
	ErrFrozenBranch = goerr.New("branch is frozen", goerr.T(TagPolicy))

	// ErrProtectedDeletion is returned when a push would delete a protected
	// branch or tag.
	ErrProtectedDeletion = goerr.New("deletion of protected reference", goerr.T(TagPolicy))

	// ErrDelivery is the base error for mail transport failures.
	ErrDelivery = goerr.New("mail delivery failed", goerr.T(TagDelivery))
)

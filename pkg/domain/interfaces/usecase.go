package interfaces

import (
	"context"

	"github.com/m-mizutani/refpost/pkg/domain/model"
)

// NotifyUseCase defines the per-reference-update pipeline: classification,
// policy filtering, composition and delivery.
type NotifyUseCase interface {
	// ProcessUpdate runs the pipeline for one push event. Policy rejections
	// are returned as tagged errors; delivery failures are swallowed and
	// only reflected in the result counters.
	ProcessUpdate(ctx context.Context, event *model.PushEvent, policy *model.PolicyConfig) (*model.NotifyResult, error)
}

// PolicyLoader reads the per-repository policy from the repository control
// directory.
type PolicyLoader interface {
	// Load builds the immutable policy configuration. fallbackRecipient is
	// used when the repository defines no recipients; it may be empty.
	Load(ctx context.Context, fallbackRecipient string) (*model.PolicyConfig, error)
}

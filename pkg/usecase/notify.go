package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/domain/model"
	"github.com/m-mizutani/refpost/pkg/domain/types"
	"github.com/m-mizutani/refpost/pkg/utils/pacer"
)

type notifyUseCase struct {
	repo      interfaces.Repository
	mailer    interfaces.Mailer
	announcer interfaces.Announcer
	delay     time.Duration
	now       func() time.Time
}

// Option configures the notification use case.
type Option func(*notifyUseCase)

// WithMailer sets the delivery transport. Without one, composed messages are
// counted but not sent.
func WithMailer(m interfaces.Mailer) Option {
	return func(uc *notifyUseCase) { uc.mailer = m }
}

// WithAnnouncer enables the out-of-band chat summary after delivery.
func WithAnnouncer(a interfaces.Announcer) Option {
	return func(uc *notifyUseCase) { uc.announcer = a }
}

// WithDelay sets the fixed pause between consecutive sends.
func WithDelay(d time.Duration) Option {
	return func(uc *notifyUseCase) { uc.delay = d }
}

// NewNotify creates the per-reference-update pipeline.
func NewNotify(repo interfaces.Repository, opts ...Option) interfaces.NotifyUseCase {
	uc := &notifyUseCase{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ProcessUpdate runs classification, policy filtering, composition and
// delivery for one push event. Policy rejections come back as tagged errors
// so the caller can reject the push; delivery failures are swallowed and
// only reflected in the result counters.
func (uc *notifyUseCase) ProcessUpdate(ctx context.Context, event *model.PushEvent, policy *model.PolicyConfig) (*model.NotifyResult, error) {
	logger := ctxlog.From(ctx)

	cls := model.Classify(event, uc.objectKind(ctx, event))
	result := &model.NotifyResult{Classification: cls}

	logger.Info("classified reference update",
		"ref", event.RefName,
		"change", cls.Change,
		"object", cls.Object,
		"ref_kind", cls.Ref,
	)

	// Policy gates run strictly before any composition so a rejected push
	// never produces partial mail.
	if cls.Ref.IsBranch() && policy.IsFrozen(cls.ShortName) {
		return result, goerr.Wrap(types.ErrFrozenBranch, "push rejected",
			goerr.V("ref", event.RefName),
			goerr.V("branch", cls.ShortName),
		)
	}

	if cls.Change == model.ChangeDelete {
		if cls.Ref.IsTag() && policy.ProtectTagDeletion {
			return result, goerr.Wrap(types.ErrProtectedDeletion, "tag deletion rejected",
				goerr.V("ref", event.RefName),
			)
		}
		if cls.Ref.IsBranch() && policy.IsDeletionProtected(cls.ShortName) {
			return result, goerr.Wrap(types.ErrProtectedDeletion, "branch deletion rejected",
				goerr.V("ref", event.RefName),
				goerr.V("branch", cls.ShortName),
			)
		}
	}

	if cls.Ref.IsBranch() && !policy.WantsMail(cls.ShortName) {
		result.SkipReason = "branch not in mail list"
		logger.Info("branch not opted in for mail, skipping notification",
			"ref", event.RefName,
			"branch", cls.ShortName,
		)
		return result, nil
	}

	if len(policy.Recipients) == 0 {
		result.SkipReason = "no recipients configured"
		logger.Info("no recipients configured, skipping notification", "ref", event.RefName)
		return result, nil
	}
	result.Recipients = len(policy.Recipients)

	uc.checkFastForward(ctx, event, cls)

	pace := pacer.New(uc.delay)
	for _, recipient := range policy.Recipients {
		msgs, err := uc.compose(ctx, event, cls, policy, recipient)
		if err != nil {
			return result, goerr.Wrap(err, "failed to compose notification",
				goerr.V("ref", event.RefName),
				goerr.V("recipient", recipient),
			)
		}
		result.Composed += len(msgs)

		for _, msg := range msgs {
			if uc.mailer == nil {
				logger.Warn("no mail transport configured, dropping message",
					"recipient", msg.Recipient,
					"subject", msg.Subject,
				)
				continue
			}
			if err := pace.Wait(ctx); err != nil {
				return result, goerr.Wrap(err, "delivery interrupted")
			}
			if err := uc.mailer.Send(ctx, msg); err != nil {
				// The reference update already went through; a transport
				// failure must never fail the push.
				logger.Error("mail delivery failed",
					"recipient", msg.Recipient,
					"subject", msg.Subject,
					"error", err,
				)
				continue
			}
			result.Sent++
		}
	}

	uc.announce(ctx, event, cls, policy, result)
	return result, nil
}

// checkFastForward flags branch updates that rewound history: when the
// merge base of the two revisions is not the old tip, the enumeration
// announces rewritten commits and operators should know why.
func (uc *notifyUseCase) checkFastForward(ctx context.Context, event *model.PushEvent, cls model.Classification) {
	if !cls.Ref.IsBranch() || cls.Object != model.ObjectCommit || cls.Change != model.ChangeUpdate {
		return
	}

	base, err := uc.repo.MergeBase(ctx, event.OldRev, event.NewRev)
	if err != nil {
		ctxlog.From(ctx).Warn("failed to compute merge base",
			"ref", event.RefName,
			"error", err,
		)
		return
	}
	if base != "" && base != event.OldRev {
		ctxlog.From(ctx).Warn("non-fast-forward update, announcing commits since the merge base",
			"ref", event.RefName,
			"merge_base", base,
		)
	}
}

// objectKind asks the object store for the new revision's type. Deletions
// skip the lookup, and unresolvable objects degrade to unknown so the
// classifier stays conservative instead of failing the push.
func (uc *notifyUseCase) objectKind(ctx context.Context, event *model.PushEvent) model.ObjectKind {
	if event.ChangeKind() == model.ChangeDelete {
		return model.ObjectDelete
	}

	kind, err := uc.repo.ObjectKind(ctx, event.NewRev)
	if err != nil {
		ctxlog.From(ctx).Warn("failed to resolve object kind",
			"rev", event.NewRev,
			"error", err,
		)
		return model.ObjectUnknown
	}
	return kind
}

// announce posts a one-line chat summary. Failures follow delivery
// semantics: logged, never fatal.
func (uc *notifyUseCase) announce(ctx context.Context, event *model.PushEvent, cls model.Classification, policy *model.PolicyConfig, result *model.NotifyResult) {
	if uc.announcer == nil || result.Composed == 0 {
		return
	}

	text := policy.ModuleName + ": " + string(cls.Ref) + " " + cls.ShortName + " " + actionText(cls.Change)
	if cls.Ref.IsBranch() && cls.Object == model.ObjectCommit {
		perRecipient := result.Composed / max(result.Recipients, 1)
		text += fmt.Sprintf(" (%d commits)", perRecipient)
	}

	if err := uc.announcer.Announce(ctx, text); err != nil {
		ctxlog.From(ctx).Error("chat announcement failed", "error", err)
	}
}

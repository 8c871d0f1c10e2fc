package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/model"
	"github.com/m-mizutani/refpost/pkg/domain/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var bodyTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const dateFormat = time.RFC1123Z

// compose builds the notification messages for one recipient, dispatching on
// the (reference kind, change kind, object kind) classification. Unmatched
// combinations are a deliberate no-op producing zero messages.
func (uc *notifyUseCase) compose(ctx context.Context, event *model.PushEvent, cls model.Classification, policy *model.PolicyConfig, recipient string) ([]*model.NotificationMessage, error) {
	logger := ctxlog.From(ctx)

	switch {
	case cls.Change == model.ChangeDelete && cls.Ref != model.RefUnknown:
		return uc.composeDeletion(ctx, event, cls, policy, recipient)

	case cls.Ref == model.RefBranch && cls.Object == model.ObjectCommit:
		return uc.composeBranchCommits(ctx, event, cls, policy, recipient)

	case cls.Ref == model.RefTrackingBranch && cls.Object == model.ObjectCommit:
		// Tracking branches push automatically; announcing every mirror
		// update is noise. Only their creation is worth a notice.
		if cls.Change == model.ChangeCreate {
			return uc.composeBranchCommits(ctx, event, cls, policy, recipient)
		}
		logger.Debug("tracking branch update, no notification", "ref", event.RefName)
		return nil, nil

	case cls.Ref == model.RefTag && cls.Object == model.ObjectCommit:
		return uc.composeLightweightTag(ctx, event, cls, policy, recipient)

	case cls.Ref == model.RefAnnotatedTag && cls.Object == model.ObjectTag:
		return uc.composeAnnotatedTag(ctx, event, cls, policy, recipient)

	default:
		logger.Info("no notification rule for reference",
			"ref", event.RefName,
			"ref_kind", cls.Ref,
			"change", cls.Change,
			"object", cls.Object,
		)
		return nil, nil
	}
}

// composeBranchCommits emits one message per commit that became reachable
// through the update, oldest first. A branch creation announces the full
// history behind the new tip.
func (uc *notifyUseCase) composeBranchCommits(ctx context.Context, event *model.PushEvent, cls model.Classification, policy *model.PolicyConfig, recipient string) ([]*model.NotificationMessage, error) {
	oldRev := event.OldRev
	if cls.Change == model.ChangeCreate {
		oldRev = ""
	}

	commits, err := uc.repo.ListNewCommits(ctx, oldRev, event.NewRev)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to enumerate new commits", goerr.V("ref", event.RefName))
	}

	msgs := make([]*model.NotificationMessage, 0, len(commits))
	for _, commit := range commits {
		body, err := renderBody("branch_commit.tmpl", map[string]any{
			"Module":        policy.ModuleName,
			"Branch":        cls.DisplayName,
			"Commit":        commit,
			"Author":        commit.Author.String(),
			"AuthorDate":    commit.AuthorDate.Format(dateFormat),
			"Committer":     commit.Committer.String(),
			"CommitDate":    commit.CommitDate.Format(dateFormat),
			"ShowCommitter": commit.Committer != commit.Author,
			"Merge":         commit.IsMerge(),
		})
		if err != nil {
			return nil, err
		}

		headers := baseHeaders(event, cls, policy)
		headers = append(headers,
			model.Header{Name: "X-Git-Commit", Value: commit.Hash},
			model.Header{Name: "X-Git-Author", Value: commit.Author.String()},
			model.Header{Name: "X-Git-Author-Date", Value: commit.AuthorDate.Format(dateFormat)},
			model.Header{Name: "X-Git-Committer", Value: commit.Committer.String()},
			model.Header{Name: "X-Git-Committer-Date", Value: commit.CommitDate.Format(dateFormat)},
		)

		msgs = append(msgs, uc.stamp(&model.NotificationMessage{
			Recipient: recipient,
			Subject:   fmt.Sprintf("%s%s: %s", policy.SubjectPrefix(), cls.ShortName, commit.Title()),
			Headers:   headers,
			Body:      body,
		}))
	}
	return msgs, nil
}

// composeDeletion emits a single notice naming what the deleted reference
// used to point at.
func (uc *notifyUseCase) composeDeletion(ctx context.Context, event *model.PushEvent, cls model.Classification, policy *model.PolicyConfig, recipient string) ([]*model.NotificationMessage, error) {
	summary, err := uc.repo.Summary(ctx, event.OldRev)
	if err != nil {
		// The deleted object may already be pruned; the notice still goes
		// out with just the revision id.
		ctxlog.From(ctx).Warn("failed to summarize deleted revision", "rev", event.OldRev, "error", err)
		summary = event.OldRev
	}

	body, err := renderBody("delete.tmpl", map[string]any{
		"Module":  policy.ModuleName,
		"RefKind": string(cls.Ref),
		"Name":    cls.DisplayName,
		"Summary": summary,
	})
	if err != nil {
		return nil, err
	}

	msg := uc.stamp(&model.NotificationMessage{
		Recipient: recipient,
		Subject:   fmt.Sprintf("%s%s %s deleted", policy.SubjectPrefix(), cls.Ref, cls.ShortName),
		Headers:   baseHeaders(event, cls, policy),
		Body:      body,
	})
	return []*model.NotificationMessage{msg}, nil
}

// composeLightweightTag emits a notice for a plain tag reference pointing
// directly at a commit, naming the commit and its author. No diff is
// included.
func (uc *notifyUseCase) composeLightweightTag(ctx context.Context, event *model.PushEvent, cls model.Classification, policy *model.PolicyConfig, recipient string) ([]*model.NotificationMessage, error) {
	commit, err := uc.repo.Commit(ctx, event.NewRev)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read tagged commit", goerr.V("rev", event.NewRev))
	}

	body, err := renderBody("lightweight_tag.tmpl", map[string]any{
		"Module":     policy.ModuleName,
		"Name":       cls.DisplayName,
		"Action":     actionText(cls.Change),
		"Commit":     commit,
		"Author":     commit.Author.String(),
		"AuthorDate": commit.AuthorDate.Format(dateFormat),
	})
	if err != nil {
		return nil, err
	}

	msg := uc.stamp(&model.NotificationMessage{
		Recipient: recipient,
		Subject:   fmt.Sprintf("%stag %s %s", policy.SubjectPrefix(), cls.ShortName, actionText(cls.Change)),
		Headers:   baseHeaders(event, cls, policy),
		Body:      body,
	})
	return []*model.NotificationMessage{msg}, nil
}

// composeAnnotatedTag emits a notice carrying the tag's own message and
// tagger, plus a short log since the previous tag when one exists on an
// ancestor of the new tag's target.
func (uc *notifyUseCase) composeAnnotatedTag(ctx context.Context, event *model.PushEvent, cls model.Classification, policy *model.PolicyConfig, recipient string) ([]*model.NotificationMessage, error) {
	tag, err := uc.repo.Tag(ctx, event.NewRev)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read tag object", goerr.V("rev", event.NewRev))
	}

	var prevName, prevTarget string
	if tag.TargetKind == model.ObjectCommit {
		prevName, prevTarget, err = uc.repo.NearestTag(ctx, tag.Target)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to look up preceding tag", goerr.V("tag", tag.Name))
		}
	}

	var shortLog []model.LogEntry
	if tag.TargetKind == model.ObjectCommit {
		shortLog, err = uc.repo.ShortLog(ctx, prevTarget, tag.Target)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to build short log", goerr.V("tag", tag.Name))
		}
	}

	body, err := renderBody("annotated_tag.tmpl", map[string]any{
		"Module":   policy.ModuleName,
		"Name":     tag.Name,
		"Action":   actionText(cls.Change),
		"Tagger":   tag.Tagger.String(),
		"TagDate":  tag.TagDate.Format(dateFormat),
		"Message":  tag.Message,
		"Replaces": prevName,
		"ShortLog": shortLog,
	})
	if err != nil {
		return nil, err
	}

	msg := uc.stamp(&model.NotificationMessage{
		Recipient: recipient,
		Subject:   fmt.Sprintf("%sannotated tag %s %s", policy.SubjectPrefix(), cls.ShortName, actionText(cls.Change)),
		Headers:   baseHeaders(event, cls, policy),
		Body:      body,
	})
	return []*model.NotificationMessage{msg}, nil
}

// stamp adds the per-message transport headers: a generated Message-ID and
// the composition date.
func (uc *notifyUseCase) stamp(msg *model.NotificationMessage) *model.NotificationMessage {
	msg.Headers = append(msg.Headers,
		model.Header{Name: "Message-ID", Value: fmt.Sprintf("<%s@%s>", uuid.NewString(), types.AppName)},
		model.Header{Name: "Date", Value: uc.now().Format(dateFormat)},
		model.Header{Name: "MIME-Version", Value: "1.0"},
		model.Header{Name: "Content-Type", Value: "text/plain; charset=utf-8"},
	)
	return msg
}

// baseHeaders is the fixed header set carried by every notification.
func baseHeaders(event *model.PushEvent, cls model.Classification, policy *model.PolicyConfig) []model.Header {
	return []model.Header{
		{Name: "X-Git-Project", Value: policy.ProjectDescription},
		{Name: "X-Git-Module", Value: policy.ModuleName},
		{Name: "X-Git-Refname", Value: event.RefName},
		{Name: "X-Git-Reftype", Value: string(cls.Ref)},
		{Name: "X-Git-Oldrev", Value: event.OldRev},
		{Name: "X-Git-Newrev", Value: event.NewRev},
	}
}

func renderBody(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", goerr.Wrap(err, "failed to render message body", goerr.V("template", name))
	}
	return buf.String(), nil
}

func actionText(change model.ChangeKind) string {
	switch change {
	case model.ChangeCreate:
		return "created"
	case model.ChangeUpdate:
		return "updated"
	case model.ChangeDelete:
		return "deleted"
	default:
		return string(change)
	}
}

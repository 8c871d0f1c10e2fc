package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/domain/model"
	"github.com/m-mizutani/refpost/pkg/domain/types"
	"github.com/m-mizutani/refpost/pkg/usecase"
)

const (
	zeroRev = "0000000000000000000000000000000000000000"
	revA    = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	revB    = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	revC    = "cccccccccccccccccccccccccccccccccccccccc"
	revTag  = "dddddddddddddddddddddddddddddddddddddddd"
)

// fakeRepo serves a linear history A→B→C with optional tag fixtures.
type fakeRepo struct {
	objectKinds map[string]model.ObjectKind
	commits     map[string]*model.Commit
	// newCommits maps "old..new" (old may be empty) to the enumeration
	// result, oldest first.
	newCommits map[string][]*model.Commit
	tags       map[string]*model.Tag
	nearestTag map[string][2]string // target rev -> {name, target}
	mergeBases map[string]string    // "a..b" -> base rev

	listCalls      int
	mergeBaseCalls int
}

func (f *fakeRepo) ObjectKind(ctx context.Context, rev string) (model.ObjectKind, error) {
	if k, ok := f.objectKinds[rev]; ok {
		return k, nil
	}
	return model.ObjectUnknown, nil
}

func (f *fakeRepo) Commit(ctx context.Context, rev string) (*model.Commit, error) {
	if c, ok := f.commits[rev]; ok {
		return c, nil
	}
	return nil, errors.New("commit not found")
}

func (f *fakeRepo) Tag(ctx context.Context, rev string) (*model.Tag, error) {
	if t, ok := f.tags[rev]; ok {
		return t, nil
	}
	return nil, errors.New("tag not found")
}

func (f *fakeRepo) ListNewCommits(ctx context.Context, oldRev, newRev string) ([]*model.Commit, error) {
	f.listCalls++
	return f.newCommits[oldRev+".."+newRev], nil
}

func (f *fakeRepo) ShortLog(ctx context.Context, sinceRev, untilRev string) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	for _, c := range f.newCommits[sinceRev+".."+untilRev] {
		entries = append(entries, model.LogEntry{Hash: c.Hash, Title: c.Title()})
	}
	return entries, nil
}

func (f *fakeRepo) MergeBase(ctx context.Context, a, b string) (string, error) {
	f.mergeBaseCalls++
	return f.mergeBases[a+".."+b], nil
}

func (f *fakeRepo) NearestTag(ctx context.Context, rev string) (string, string, error) {
	if v, ok := f.nearestTag[rev]; ok {
		return v[0], v[1], nil
	}
	return "", "", nil
}

func (f *fakeRepo) Summary(ctx context.Context, rev string) (string, error) {
	if c, ok := f.commits[rev]; ok {
		return c.AbbrevHash() + " " + c.Title(), nil
	}
	return rev[:7] + " (unknown object)", nil
}

var _ interfaces.Repository = (*fakeRepo)(nil)

// recordMailer records every sent message; fail makes all sends error.
type recordMailer struct {
	sent []*model.NotificationMessage
	fail bool
}

func (m *recordMailer) Send(ctx context.Context, msg *model.NotificationMessage) error {
	if m.fail {
		return errors.New("transport down")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newCommit(hash, title string, when time.Time) *model.Commit {
	return &model.Commit{
		Hash:       hash,
		Author:     model.Identity{Name: "Alice", Email: "alice@example.com"},
		AuthorDate: when,
		Committer:  model.Identity{Name: "Alice", Email: "alice@example.com"},
		CommitDate: when,
		Message:    title + "\n\nlonger description\n",
		Parents:    1,
		Diffstat:   " file.go | 2 +-\n 1 file changed\n",
		Patch:      "diff --git a/file.go b/file.go\n",
	}
}

func linearRepo() *fakeRepo {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	a := newCommit(revA, "add parser", base)
	b := newCommit(revB, "fix lexer", base.Add(time.Hour))
	c := newCommit(revC, "add tests", base.Add(2*time.Hour))

	return &fakeRepo{
		objectKinds: map[string]model.ObjectKind{
			revA: model.ObjectCommit,
			revB: model.ObjectCommit,
			revC: model.ObjectCommit,
		},
		commits: map[string]*model.Commit{revA: a, revB: b, revC: c},
		newCommits: map[string][]*model.Commit{
			revA + ".." + revC: {b, c},
			".." + revC:        {a, b, c},
		},
		tags:       map[string]*model.Tag{},
		nearestTag: map[string][2]string{},
		mergeBases: map[string]string{revA + ".." + revC: revA},
	}
}

func defaultPolicy() *model.PolicyConfig {
	return &model.PolicyConfig{
		ModuleName:         "tools",
		ProjectDescription: "Internal tools",
		Recipients:         []string{"dev@example.com"},
	}
}

func TestProcessUpdate_BranchCommitsOldestFirst(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revA, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)

	gt.V(t, result.Composed).Equal(2)
	gt.V(t, result.Sent).Equal(2)
	gt.V(t, len(m.sent)).Equal(2)
	gt.V(t, m.sent[0].Header("X-Git-Commit")).Equal(revB)
	gt.V(t, m.sent[1].Header("X-Git-Commit")).Equal(revC)
	gt.V(t, m.sent[0].Subject).Equal("[tools] main: fix lexer")
	gt.V(t, m.sent[0].Header("X-Git-Reftype")).Equal("branch")
	gt.V(t, m.sent[0].Header("X-Git-Project")).Equal("Internal tools")
	gt.V(t, strings.Contains(m.sent[0].Body, "diff --git")).Equal(true)
}

func TestProcessUpdate_BranchCreateAnnouncesFullHistory(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	event := &model.PushEvent{RefName: "refs/heads/feature", OldRev: zeroRev, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)

	gt.V(t, result.Composed).Equal(3)
	gt.V(t, m.sent[0].Header("X-Git-Commit")).Equal(revA)
}

func TestProcessUpdate_FrozenBranchRejectsBeforeCompose(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	policy := defaultPolicy()
	policy.FrozenEnabled = true
	policy.FrozenBranches = map[string]bool{"release": true}

	event := &model.PushEvent{RefName: "refs/heads/release", OldRev: revA, NewRev: revC}
	_, err := uc.ProcessUpdate(context.Background(), event, policy)
	gt.Error(t, err)
	gt.V(t, errors.Is(err, types.ErrFrozenBranch)).Equal(true)
	gt.V(t, goerr.HasTag(err, types.TagPolicy)).Equal(true)
	gt.V(t, repo.listCalls).Equal(0)
	gt.V(t, len(m.sent)).Equal(0)

	// An unlisted branch passes the same gate.
	event = &model.PushEvent{RefName: "refs/heads/feature", OldRev: revA, NewRev: revC}
	gt.R1(uc.ProcessUpdate(context.Background(), event, policy)).NoError(t)
}

func TestProcessUpdate_FrozenNameDoesNotRejectTags(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	policy := defaultPolicy()
	policy.FrozenEnabled = true
	policy.FrozenBranches = map[string]bool{"release": true}

	event := &model.PushEvent{RefName: "refs/tags/release", OldRev: zeroRev, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, policy)).NoError(t)
	gt.V(t, result.Composed).Equal(1)
}

func TestProcessUpdate_TagDeletionProtection(t *testing.T) {
	t.Run("protected tag deletion rejected", func(t *testing.T) {
		repo := linearRepo()
		m := &recordMailer{}
		uc := usecase.NewNotify(repo, usecase.WithMailer(m))

		policy := defaultPolicy()
		policy.ProtectTagDeletion = true

		event := &model.PushEvent{RefName: "refs/tags/v1.0", OldRev: revA, NewRev: zeroRev}
		_, err := uc.ProcessUpdate(context.Background(), event, policy)
		gt.Error(t, err)
		gt.V(t, errors.Is(err, types.ErrProtectedDeletion)).Equal(true)
		gt.V(t, len(m.sent)).Equal(0)
	})

	t.Run("unprotected deletion sends one notice", func(t *testing.T) {
		repo := linearRepo()
		m := &recordMailer{}
		uc := usecase.NewNotify(repo, usecase.WithMailer(m))

		event := &model.PushEvent{RefName: "refs/tags/v1.0", OldRev: revA, NewRev: zeroRev}
		result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)

		gt.V(t, result.Composed).Equal(1)
		gt.V(t, strings.Contains(m.sent[0].Body, "was deleted")).Equal(true)
		gt.V(t, strings.Contains(m.sent[0].Body, "add parser")).Equal(true)
	})
}

func TestProcessUpdate_ProtectedBranchDeletion(t *testing.T) {
	repo := linearRepo()
	uc := usecase.NewNotify(repo, usecase.WithMailer(&recordMailer{}))

	policy := defaultPolicy()
	policy.ProtectionEnabled = true
	policy.ProtectedBranches = map[string]bool{"main": true}

	event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revA, NewRev: zeroRev}
	_, err := uc.ProcessUpdate(context.Background(), event, policy)
	gt.Error(t, err)
	gt.V(t, errors.Is(err, types.ErrProtectedDeletion)).Equal(true)

	// Deleting an unlisted branch is allowed and produces one notice.
	event = &model.PushEvent{RefName: "refs/heads/scratch", OldRev: revA, NewRev: zeroRev}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, policy)).NoError(t)
	gt.V(t, result.Composed).Equal(1)
}

func TestProcessUpdate_MailBranchOptIn(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	policy := defaultPolicy()
	policy.MailOnlyListed = true
	policy.MailBranches = map[string]bool{"main": true}

	event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revA, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, policy)).NoError(t)
	gt.V(t, result.Sent).Equal(2)

	event = &model.PushEvent{RefName: "refs/heads/scratch", OldRev: revA, NewRev: revC}
	result = gt.R1(uc.ProcessUpdate(context.Background(), event, policy)).NoError(t)
	gt.V(t, result.Composed).Equal(0)
	gt.V(t, result.SkipReason).Equal("branch not in mail list")
}

func TestProcessUpdate_BranchUpdateChecksAncestry(t *testing.T) {
	t.Run("fast-forward update consults the merge base", func(t *testing.T) {
		repo := linearRepo()
		uc := usecase.NewNotify(repo, usecase.WithMailer(&recordMailer{}))

		event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revA, NewRev: revC}
		gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)
		gt.V(t, repo.mergeBaseCalls).Equal(1)
	})

	t.Run("rewound history still delivers", func(t *testing.T) {
		repo := linearRepo()
		repo.newCommits[revC+".."+revB] = []*model.Commit{repo.commits[revB]}
		repo.mergeBases[revC+".."+revB] = revA
		m := &recordMailer{}
		uc := usecase.NewNotify(repo, usecase.WithMailer(m))

		event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revC, NewRev: revB}
		result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)
		gt.V(t, repo.mergeBaseCalls).Equal(1)
		gt.V(t, result.Sent).Equal(1)
	})

	t.Run("branch creation skips the ancestry check", func(t *testing.T) {
		repo := linearRepo()
		uc := usecase.NewNotify(repo, usecase.WithMailer(&recordMailer{}))

		event := &model.PushEvent{RefName: "refs/heads/feature", OldRev: zeroRev, NewRev: revC}
		gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)
		gt.V(t, repo.mergeBaseCalls).Equal(0)
	})
}

func TestProcessUpdate_NoRecipientsIsNotAnError(t *testing.T) {
	repo := linearRepo()
	uc := usecase.NewNotify(repo, usecase.WithMailer(&recordMailer{}))

	policy := defaultPolicy()
	policy.Recipients = nil

	event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revA, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, policy)).NoError(t)
	gt.V(t, result.Composed).Equal(0)
	gt.V(t, result.SkipReason).Equal("no recipients configured")
}

func TestProcessUpdate_DeliveryFailureIsSwallowed(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{fail: true}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revA, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)

	gt.V(t, result.Composed).Equal(2)
	gt.V(t, result.Sent).Equal(0)
}

func TestProcessUpdate_TrackingBranchUpdateIsSilent(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	event := &model.PushEvent{RefName: "refs/remotes/origin/main", OldRev: revA, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)
	gt.V(t, result.Composed).Equal(0)
	gt.V(t, len(m.sent)).Equal(0)
}

func TestProcessUpdate_LightweightTag(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	event := &model.PushEvent{RefName: "refs/tags/v1.0", OldRev: zeroRev, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)

	gt.V(t, result.Composed).Equal(1)
	gt.V(t, m.sent[0].Subject).Equal("[tools] tag v1.0 created")
	gt.V(t, m.sent[0].Header("X-Git-Reftype")).Equal("tag")
	gt.V(t, strings.Contains(m.sent[0].Body, "commit "+revC[:7])).Equal(true)
	gt.V(t, strings.Contains(m.sent[0].Body, "Alice <alice@example.com>")).Equal(true)
	gt.V(t, strings.Contains(m.sent[0].Body, "add tests")).Equal(true)
	gt.V(t, strings.Contains(m.sent[0].Body, "diff --git")).Equal(false)
}

func TestProcessUpdate_AnnotatedTag(t *testing.T) {
	tagDate := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	setup := func() (*fakeRepo, *recordMailer, interfaces.NotifyUseCase) {
		repo := linearRepo()
		repo.objectKinds[revTag] = model.ObjectTag
		repo.tags[revTag] = &model.Tag{
			Name:       "v2.0",
			Hash:       revTag,
			Target:     revC,
			TargetKind: model.ObjectCommit,
			Tagger:     model.Identity{Name: "Bob", Email: "bob@example.com"},
			TagDate:    tagDate,
			Message:    "second release",
		}
		m := &recordMailer{}
		return repo, m, usecase.NewNotify(repo, usecase.WithMailer(m))
	}

	t.Run("replacing an earlier tag names it", func(t *testing.T) {
		repo, m, uc := setup()
		repo.nearestTag[revC] = [2]string{"v1.0", revA}

		event := &model.PushEvent{RefName: "refs/tags/v2.0", OldRev: zeroRev, NewRev: revTag}
		result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)

		gt.V(t, result.Composed).Equal(1)
		gt.V(t, m.sent[0].Subject).Equal("[tools] annotated tag v2.0 created")
		gt.V(t, strings.Contains(m.sent[0].Body, "replaces v1.0")).Equal(true)
		gt.V(t, strings.Contains(m.sent[0].Body, "second release")).Equal(true)
		gt.V(t, strings.Contains(m.sent[0].Body, "Bob <bob@example.com>")).Equal(true)
		gt.V(t, strings.Contains(m.sent[0].Body, "fix lexer")).Equal(true)
	})

	t.Run("first tag omits the replaces line", func(t *testing.T) {
		_, m, uc := setup()

		event := &model.PushEvent{RefName: "refs/tags/v2.0", OldRev: zeroRev, NewRev: revTag}
		gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)

		gt.V(t, strings.Contains(m.sent[0].Body, "replaces")).Equal(false)
		gt.V(t, strings.Contains(m.sent[0].Body, "Commits up to this tag")).Equal(true)
	})
}

func TestProcessUpdate_UnknownPrefixProducesNothing(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	event := &model.PushEvent{RefName: "refs/notes/commits", OldRev: revA, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, defaultPolicy())).NoError(t)
	gt.V(t, result.Composed).Equal(0)
}

func TestProcessUpdate_PerRecipientMessages(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	policy := defaultPolicy()
	policy.Recipients = []string{"dev@example.com", "ops@example.com"}

	event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revA, NewRev: revC}
	result := gt.R1(uc.ProcessUpdate(context.Background(), event, policy)).NoError(t)

	gt.V(t, result.Sent).Equal(4)
	gt.V(t, m.sent[0].Recipient).Equal("dev@example.com")
	gt.V(t, m.sent[2].Recipient).Equal("ops@example.com")
}

func TestProcessUpdate_OmitModulePrefix(t *testing.T) {
	repo := linearRepo()
	m := &recordMailer{}
	uc := usecase.NewNotify(repo, usecase.WithMailer(m))

	policy := defaultPolicy()
	policy.OmitModulePrefix = true

	event := &model.PushEvent{RefName: "refs/heads/main", OldRev: revA, NewRev: revC}
	gt.R1(uc.ProcessUpdate(context.Background(), event, policy)).NoError(t)

	gt.V(t, m.sent[0].Subject).Equal("main: fix lexer")
}

package gitrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/domain/model"
)

// ErrMalformedRevision is returned for revision identifiers that are not
// full lowercase hex object names.
var ErrMalformedRevision = goerr.New("malformed revision identifier")

type client struct {
	repo *git.Repository
}

// New wraps an already opened repository. Used directly by tests that build
// repositories in memory.
func New(repo *git.Repository) interfaces.Repository {
	return &client{repo: repo}
}

// Open opens the repository at the given path, which may be a bare control
// directory or a working tree containing one.
func Open(path string) (interfaces.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open repository", goerr.V("path", path))
	}
	return New(repo), nil
}

// ObjectKind returns the object store's type for the given revision.
func (c *client) ObjectKind(ctx context.Context, rev string) (model.ObjectKind, error) {
	h, err := parseHash(rev)
	if err != nil {
		return model.ObjectUnknown, err
	}

	obj, err := c.repo.Object(plumbing.AnyObject, h)
	if err != nil {
		return model.ObjectUnknown, goerr.Wrap(err, "failed to look up object", goerr.V("rev", rev))
	}

	switch obj.Type() {
	case plumbing.CommitObject:
		return model.ObjectCommit, nil
	case plumbing.TagObject:
		return model.ObjectTag, nil
	default:
		return model.ObjectUnknown, nil
	}
}

// Commit resolves a revision to a commit with its patch and diffstat
// rendered against the first parent.
func (c *client) Commit(ctx context.Context, rev string) (*model.Commit, error) {
	h, err := parseHash(rev)
	if err != nil {
		return nil, err
	}

	co, err := c.repo.CommitObject(h)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve commit", goerr.V("rev", rev))
	}

	return c.convertCommit(ctx, co)
}

// ListNewCommits returns the commits reachable from newRev but not from
// oldRev, oldest first.
func (c *client) ListNewCommits(ctx context.Context, oldRev, newRev string) ([]*model.Commit, error) {
	raw, err := c.walkNewCommits(ctx, oldRev, newRev)
	if err != nil {
		return nil, err
	}

	commits := make([]*model.Commit, 0, len(raw))
	for _, co := range raw {
		converted, err := c.convertCommit(ctx, co)
		if err != nil {
			return nil, err
		}
		commits = append(commits, converted)
	}
	return commits, nil
}

// ShortLog returns one-line entries for sinceRev..untilRev, oldest first.
func (c *client) ShortLog(ctx context.Context, sinceRev, untilRev string) ([]model.LogEntry, error) {
	raw, err := c.walkNewCommits(ctx, sinceRev, untilRev)
	if err != nil {
		return nil, err
	}

	entries := make([]model.LogEntry, 0, len(raw))
	for _, co := range raw {
		entries = append(entries, model.LogEntry{
			Hash:  co.Hash.String(),
			Title: firstLine(co.Message),
		})
	}
	return entries, nil
}

// MergeBase returns the nearest common ancestor of the two revisions, or an
// empty string when the histories are unrelated.
func (c *client) MergeBase(ctx context.Context, a, b string) (string, error) {
	ha, err := parseHash(a)
	if err != nil {
		return "", err
	}
	hb, err := parseHash(b)
	if err != nil {
		return "", err
	}

	ca, err := c.repo.CommitObject(ha)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve commit", goerr.V("rev", a))
	}
	cb, err := c.repo.CommitObject(hb)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve commit", goerr.V("rev", b))
	}

	bases, err := ca.MergeBase(cb)
	if err != nil {
		return "", goerr.Wrap(err, "failed to compute merge base")
	}
	if len(bases) == 0 {
		return "", nil
	}
	return bases[0].Hash.String(), nil
}

// Summary returns a one-line description of a commit or tag object.
func (c *client) Summary(ctx context.Context, rev string) (string, error) {
	h, err := parseHash(rev)
	if err != nil {
		return "", err
	}

	obj, err := c.repo.Object(plumbing.AnyObject, h)
	if err != nil {
		return "", goerr.Wrap(err, "failed to look up object", goerr.V("rev", rev))
	}

	switch o := obj.(type) {
	case *object.Commit:
		return fmt.Sprintf("%.7s %s", o.Hash.String(), firstLine(o.Message)), nil
	case *object.Tag:
		return fmt.Sprintf("%.7s tag %s", o.Hash.String(), o.Name), nil
	default:
		return fmt.Sprintf("%.7s (%s object)", h.String(), obj.Type()), nil
	}
}

// walkNewCommits collects the commits reachable from untilRev but not from
// sinceRev, oldest first. An empty sinceRev walks the full history.
func (c *client) walkNewCommits(ctx context.Context, sinceRev, untilRev string) ([]*object.Commit, error) {
	hUntil, err := parseHash(untilRev)
	if err != nil {
		return nil, err
	}
	until, err := c.repo.CommitObject(hUntil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve commit", goerr.V("rev", untilRev))
	}

	var seen map[plumbing.Hash]bool
	if sinceRev != "" {
		hSince, err := parseHash(sinceRev)
		if err != nil {
			return nil, err
		}
		since, err := c.repo.CommitObject(hSince)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve commit", goerr.V("rev", sinceRev))
		}

		// Exclude everything reachable from the old revision so forced
		// updates do not re-announce commits that were already published.
		seen = map[plumbing.Hash]bool{}
		iter := object.NewCommitPreorderIter(since, nil, nil)
		err = iter.ForEach(func(co *object.Commit) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen[co.Hash] = true
			return nil
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to walk old revision ancestry")
		}
	}

	var newestFirst []*object.Commit
	iter := object.NewCommitIterCTime(until, seen, nil)
	err = iter.ForEach(func(co *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		newestFirst = append(newestFirst, co)
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to walk new revision ancestry")
	}

	// Commit-time order newest first; notifications go out oldest first.
	oldestFirst := make([]*object.Commit, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		oldestFirst = append(oldestFirst, newestFirst[i])
	}
	return oldestFirst, nil
}

// convertCommit renders a commit into the transport-independent model,
// including diffstat and patch. Merge commits carry no diff, matching the
// diff-tree behavior the notification format descends from.
func (c *client) convertCommit(ctx context.Context, co *object.Commit) (*model.Commit, error) {
	converted := &model.Commit{
		Hash:       co.Hash.String(),
		Author:     model.Identity{Name: co.Author.Name, Email: co.Author.Email},
		AuthorDate: co.Author.When,
		Committer:  model.Identity{Name: co.Committer.Name, Email: co.Committer.Email},
		CommitDate: co.Committer.When,
		Message:    strings.TrimRight(co.Message, "\n"),
		Parents:    co.NumParents(),
	}

	if co.NumParents() > 1 {
		return converted, nil
	}

	patch, err := c.patchAgainstParent(ctx, co)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to render patch", goerr.V("rev", converted.Hash))
	}
	if patch != nil {
		converted.Diffstat = patch.Stats().String()
		converted.Patch = patch.String()
	}
	return converted, nil
}

// patchAgainstParent diffs a commit against its first parent, or against the
// empty tree for root commits.
func (c *client) patchAgainstParent(ctx context.Context, co *object.Commit) (*object.Patch, error) {
	if co.NumParents() == 0 {
		tree, err := co.Tree()
		if err != nil {
			return nil, err
		}
		changes, err := object.DiffTreeWithOptions(ctx, nil, tree, object.DefaultDiffTreeOptions)
		if err != nil {
			return nil, err
		}
		return changes.PatchContext(ctx)
	}

	parent, err := co.Parent(0)
	if err != nil {
		return nil, err
	}
	return parent.PatchContext(ctx, co)
}

func parseHash(rev string) (plumbing.Hash, error) {
	if len(rev) != 40 || !isHex(rev) {
		return plumbing.ZeroHash, goerr.Wrap(ErrMalformedRevision, "unsupported revision format", goerr.V("rev", rev))
	}
	return plumbing.NewHash(rev), nil
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

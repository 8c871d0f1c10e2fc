package gitrepo

import (
	"context"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/model"
)

// ErrMalformedTag is returned when a tag object is missing its declared
// fields.
var ErrMalformedTag = goerr.New("malformed tag object")

// Tag resolves a revision to an annotated tag object with its declared
// fields parsed into the model.
func (c *client) Tag(ctx context.Context, rev string) (*model.Tag, error) {
	h, err := parseHash(rev)
	if err != nil {
		return nil, err
	}

	to, err := c.repo.TagObject(h)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve tag object", goerr.V("rev", rev))
	}
	if to.Name == "" {
		return nil, goerr.Wrap(ErrMalformedTag, "tag object has no name", goerr.V("rev", rev))
	}

	kind := model.ObjectUnknown
	switch to.TargetType {
	case plumbing.CommitObject:
		kind = model.ObjectCommit
	case plumbing.TagObject:
		kind = model.ObjectTag
	}

	return &model.Tag{
		Name:       to.Name,
		Hash:       to.Hash.String(),
		Target:     to.Target.String(),
		TargetKind: kind,
		Tagger:     model.Identity{Name: to.Tagger.Name, Email: to.Tagger.Email},
		TagDate:    to.Tagger.When,
		Message:    strings.TrimSpace(to.Message),
	}, nil
}

// NearestTag walks back from the parents of the given revision and returns
// the most recent tag found on an ancestor commit. rev itself is excluded so
// a fresh tag does not report itself as its own predecessor.
func (c *client) NearestTag(ctx context.Context, rev string) (string, string, error) {
	h, err := parseHash(rev)
	if err != nil {
		return "", "", err
	}

	start, err := c.repo.CommitObject(h)
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to resolve commit", goerr.V("rev", rev))
	}

	tagged, err := c.tagsByCommit()
	if err != nil {
		return "", "", err
	}
	if len(tagged) == 0 {
		return "", "", nil
	}

	var foundName, foundTarget string
	iter := object.NewCommitIterCTime(start, nil, nil)
	err = iter.ForEach(func(co *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if co.Hash == start.Hash {
			return nil
		}
		if name, ok := tagged[co.Hash]; ok {
			foundName = name
			foundTarget = co.Hash.String()
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return "", "", goerr.Wrap(err, "failed to walk ancestry for preceding tag")
	}

	return foundName, foundTarget, nil
}

// tagsByCommit maps tagged commit hashes to tag names, resolving annotated
// tags to their targets and taking lightweight tag references as-is.
func (c *client) tagsByCommit() (map[plumbing.Hash]string, error) {
	refs, err := c.repo.Tags()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tag references")
	}

	tagged := map[plumbing.Hash]string{}
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if to, err := c.repo.TagObject(ref.Hash()); err == nil {
			if to.TargetType != plumbing.CommitObject {
				return nil
			}
			target = to.Target
		}
		tagged[target] = ref.Name().Short()
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to index tags")
	}
	return tagged, nil
}

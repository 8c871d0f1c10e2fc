package interfaces

import (
	"context"

	"github.com/m-mizutani/refpost/pkg/domain/model"
)

// Repository defines the read-only queries the hook needs from the object
// store. It is injected so the pipeline can run against a fake in tests
// without a real repository on disk.
type Repository interface {
	// ObjectKind returns the object store's type for the given revision.
	// Object types other than commit and tag map to ObjectUnknown.
	ObjectKind(ctx context.Context, rev string) (model.ObjectKind, error)

	// Commit resolves a revision to a commit, rendering its diffstat and
	// patch against its first parent (or the empty tree for root commits).
	Commit(ctx context.Context, rev string) (*model.Commit, error)

	// Tag resolves a revision to an annotated tag object, rejecting
	// malformed or non-tag objects with an error.
	Tag(ctx context.Context, rev string) (*model.Tag, error)

	// ListNewCommits returns the commits reachable from newRev but not from
	// oldRev, oldest first. An empty oldRev lists every commit reachable
	// from newRev.
	ListNewCommits(ctx context.Context, oldRev, newRev string) ([]*model.Commit, error)

	// ShortLog returns one-line entries for the commits reachable from
	// untilRev but not from sinceRev, oldest first. An empty sinceRev lists
	// the full history.
	ShortLog(ctx context.Context, sinceRev, untilRev string) ([]model.LogEntry, error)

	// MergeBase returns the nearest common ancestor of the two revisions,
	// or an empty string when the histories are unrelated.
	MergeBase(ctx context.Context, a, b string) (string, error)

	// NearestTag walks back from the parents of the given revision and
	// returns the name and target revision of the most recent tag on an
	// ancestor, or empty strings when no such tag exists.
	NearestTag(ctx context.Context, rev string) (name, target string, err error)

	// Summary returns a one-line "abbreviated-hash title" description of a
	// commit or tag object, used for deletion notices.
	Summary(ctx context.Context, rev string) (string, error)
}

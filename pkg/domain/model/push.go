package model

import "strings"

// ChangeKind represents what a reference update did to the reference.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ObjectKind represents the type of the object a reference points at after
// the update. ObjectDelete is a sentinel reused for deletions, where the
// object can no longer be inspected. ObjectUnknown covers unresolvable
// revisions and object types (blob, tree) the hook has no rules for.
type ObjectKind string

const (
	ObjectUnknown ObjectKind = "unknown"
	ObjectCommit  ObjectKind = "commit"
	ObjectTag     ObjectKind = "tag"
	ObjectDelete  ObjectKind = "delete"
)

// RefKind represents the kind of reference being updated, derived from the
// reference name prefix combined with the object kind.
type RefKind string

const (
	RefUnknown        RefKind = "unknown"
	RefBranch         RefKind = "branch"
	RefTag            RefKind = "tag"
	RefAnnotatedTag   RefKind = "annotated tag"
	RefTrackingBranch RefKind = "tracking branch"
)

// Reference name prefixes recognized by the classifier.
const (
	prefixHeads   = "refs/heads/"
	prefixTags    = "refs/tags/"
	prefixRemotes = "refs/remotes/"
)

// ZeroRevision reports whether rev is an all-zero object identifier, the
// value git passes for the missing side of a create or delete.
func ZeroRevision(rev string) bool {
	if rev == "" {
		return false
	}
	for _, c := range rev {
		if c != '0' {
			return false
		}
	}
	return true
}

// PushEvent represents a single reference update received by the hook.
// It is immutable for the lifetime of one invocation.
type PushEvent struct {
	RefName string // Full reference name (e.g. refs/heads/main)
	OldRev  string // Revision before the update; all-zero on create
	NewRev  string // Revision after the update; all-zero on delete
}

// ChangeKind derives the change kind from the revision pair. A create has an
// all-zero old revision, a delete an all-zero new revision; everything else,
// including the degenerate both-zero case, is an update.
func (e *PushEvent) ChangeKind() ChangeKind {
	oldZero := ZeroRevision(e.OldRev)
	newZero := ZeroRevision(e.NewRev)

	switch {
	case oldZero && !newZero:
		return ChangeCreate
	case newZero && !oldZero:
		return ChangeDelete
	default:
		return ChangeUpdate
	}
}

// ShortName returns the final path segment of the reference name, used for
// matching against branch lists.
func (e *PushEvent) ShortName() string {
	if i := strings.LastIndex(e.RefName, "/"); i >= 0 {
		return e.RefName[i+1:]
	}
	return e.RefName
}

// DisplayName returns the reference name with its known prefix stripped,
// used in message text. Unknown prefixes are kept as-is.
func (e *PushEvent) DisplayName() string {
	for _, p := range []string{prefixHeads, prefixTags, prefixRemotes} {
		if strings.HasPrefix(e.RefName, p) {
			return e.RefName[len(p):]
		}
	}
	return e.RefName
}

// Classification is the full classification of one push event. It is a pure
// function of (RefName, OldRev, NewRev, ObjectKind) and carries the derived
// names used by filters and message text.
type Classification struct {
	Change      ChangeKind
	Object      ObjectKind
	Ref         RefKind
	ShortName   string
	DisplayName string
}

// Classify derives the classification of a push event. objectKind is the
// object store's type for the new revision and is ignored for deletions,
// where the sentinel ObjectDelete takes its place.
func Classify(event *PushEvent, objectKind ObjectKind) Classification {
	change := event.ChangeKind()

	object := objectKind
	if change == ChangeDelete {
		object = ObjectDelete
	}

	return Classification{
		Change:      change,
		Object:      object,
		Ref:         classifyRef(event.RefName, object),
		ShortName:   event.ShortName(),
		DisplayName: event.DisplayName(),
	}
}

// classifyRef matches the reference name prefix and object kind against the
// reference kind table. Combinations outside the table are RefUnknown and
// treated conservatively downstream.
func classifyRef(refName string, object ObjectKind) RefKind {
	switch {
	case strings.HasPrefix(refName, prefixTags):
		switch object {
		case ObjectCommit, ObjectDelete:
			return RefTag
		case ObjectTag:
			return RefAnnotatedTag
		}
	case strings.HasPrefix(refName, prefixHeads):
		if object == ObjectCommit || object == ObjectDelete {
			return RefBranch
		}
	case strings.HasPrefix(refName, prefixRemotes):
		if object == ObjectCommit || object == ObjectDelete {
			return RefTrackingBranch
		}
	}
	return RefUnknown
}

// IsBranch reports whether the reference kind is a local or tracking branch.
func (k RefKind) IsBranch() bool {
	return k == RefBranch || k == RefTrackingBranch
}

// IsTag reports whether the reference kind is a plain or annotated tag.
func (k RefKind) IsTag() bool {
	return k == RefTag || k == RefAnnotatedTag
}

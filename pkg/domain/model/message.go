package model

import (
	"strings"
	"time"
)

// Identity represents an author, committer or tagger signature.
type Identity struct {
	Name  string
	Email string
}

// String renders the identity in the usual "Name <email>" mail form.
func (i Identity) String() string {
	if i.Name == "" {
		return "<" + i.Email + ">"
	}
	return i.Name + " <" + i.Email + ">"
}

// Commit holds the fields of a single commit needed for notification mail.
type Commit struct {
	Hash       string
	Author     Identity
	AuthorDate time.Time
	Committer  Identity
	CommitDate time.Time
	Message    string // full commit message
	Parents    int
	Diffstat   string // rendered --stat block, empty for merges
	Patch      string // rendered unified diff, empty for merges
}

// IsMerge reports whether the commit has more than one parent.
func (c *Commit) IsMerge() bool {
	return c.Parents > 1
}

// Title returns the first line of the commit message.
func (c *Commit) Title() string {
	title, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(title)
}

// AbbrevHash returns the abbreviated commit hash used in summaries.
func (c *Commit) AbbrevHash() string {
	return abbrev(c.Hash)
}

// Tag holds the declared fields of an annotated tag object.
type Tag struct {
	Name       string
	Hash       string // hash of the tag object itself
	Target     string // hash of the tagged object
	TargetKind ObjectKind
	Tagger     Identity
	TagDate    time.Time
	Message    string
}

// LogEntry is one line of a short log.
type LogEntry struct {
	Hash  string
	Title string
}

// AbbrevHash returns the abbreviated hash for short log rendering.
func (e LogEntry) AbbrevHash() string {
	return abbrev(e.Hash)
}

func abbrev(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

// Header is a single mail header. Headers are kept as an ordered list so a
// rendered message is stable across runs.
type Header struct {
	Name  string
	Value string
}

// NotificationMessage is one composed mail, transient until handed to the
// transport.
type NotificationMessage struct {
	Recipient string
	Subject   string
	Headers   []Header
	Body      string
}

// Render produces the full RFC-822-style message: To, Subject and the fixed
// header set, a blank line, then the body.
func (m *NotificationMessage) Render() string {
	var sb strings.Builder

	sb.WriteString("To: " + m.Recipient + "\n")
	sb.WriteString("Subject: " + m.Subject + "\n")
	for _, h := range m.Headers {
		sb.WriteString(h.Name + ": " + h.Value + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.Body)
	if !strings.HasSuffix(m.Body, "\n") {
		sb.WriteString("\n")
	}

	return sb.String()
}

// Header returns the value of the named header, or an empty string.
func (m *NotificationMessage) Header(name string) string {
	for _, h := range m.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// NotifyResult summarizes one processed reference update for logging.
type NotifyResult struct {
	Classification Classification
	Recipients     int
	Composed       int
	Sent           int
	SkipReason     string // non-empty when notification was skipped entirely
}

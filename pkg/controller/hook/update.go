package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/domain/model"
	"github.com/m-mizutani/refpost/pkg/domain/types"
	"github.com/mattn/go-isatty"
)

// Controller is the process boundary of the update hook: it validates the
// arguments git passes, runs the notification pipeline and turns policy
// rejections into diagnostics on the pusher's terminal.
type Controller struct {
	loader            interfaces.PolicyLoader
	usecase           interfaces.NotifyUseCase
	fallbackRecipient string
	stderr            io.Writer
}

// New creates the hook controller. fallbackRecipient may be empty, in which
// case repositories without a recipient list send no mail.
func New(loader interfaces.PolicyLoader, uc interfaces.NotifyUseCase, fallbackRecipient string) *Controller {
	return &Controller{
		loader:            loader,
		usecase:           uc,
		fallbackRecipient: fallbackRecipient,
		stderr:            os.Stderr,
	}
}

// SetStderr redirects rejection diagnostics, used by tests.
func (c *Controller) SetStderr(w io.Writer) {
	c.stderr = w
}

// HandleUpdate runs the pipeline for one `update <ref> <old> <new>`
// invocation. The returned error is non-nil exactly when the push must be
// rejected.
func (c *Controller) HandleUpdate(ctx context.Context, args []string) error {
	event, err := ParseEvent(args)
	if err != nil {
		fmt.Fprintf(c.stderr, "refpost: %v\n", err)
		return err
	}

	policy, err := c.loader.Load(ctx, c.fallbackRecipient)
	if err != nil {
		return goerr.Wrap(err, "failed to load repository policy")
	}

	result, err := c.usecase.ProcessUpdate(ctx, event, policy)
	if err != nil {
		if goerr.HasTag(err, types.TagPolicy) {
			c.printRejection(event, err)
		}
		return err
	}

	ctxlog.From(ctx).Info("reference update processed",
		"ref", event.RefName,
		"composed", result.Composed,
		"sent", result.Sent,
		"skip_reason", result.SkipReason,
	)
	return nil
}

// ParseEvent validates the hook arguments: exactly three non-empty values,
// with both revisions full lowercase hex object names (SHA-1 or SHA-256
// length). Violations are usage errors.
func ParseEvent(args []string) (*model.PushEvent, error) {
	if len(args) != 3 {
		return nil, goerr.Wrap(types.ErrUsage, "expected <ref> <old-rev> <new-rev>",
			goerr.V("argc", len(args)),
		)
	}
	for _, a := range args {
		if a == "" {
			return nil, goerr.Wrap(types.ErrUsage, "empty argument")
		}
	}
	for _, rev := range args[1:] {
		if !validRevision(rev) {
			return nil, goerr.Wrap(types.ErrUsage, "malformed revision", goerr.V("rev", rev))
		}
	}

	return &model.PushEvent{
		RefName: args[0],
		OldRev:  args[1],
		NewRev:  args[2],
	}, nil
}

// ResolveControlDir locates the repository control directory: GIT_DIR when
// set (as git sets for hooks), otherwise the working directory. A missing
// directory is a usage error, reported before any side effect.
func ResolveControlDir(gitDir string) (string, error) {
	dir := gitDir
	if dir == "" {
		dir = os.Getenv("GIT_DIR")
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", goerr.Wrap(types.ErrUsage, "no repository context")
		}
		dir = wd
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", goerr.Wrap(types.ErrUsage, "repository control directory not found", goerr.V("dir", dir))
	}
	return dir, nil
}

// printRejection writes the policy diagnostic the pusher sees, colored when
// stderr is a terminal.
func (c *Controller) printRejection(event *model.PushEvent, err error) {
	red := color.New(color.FgRed, color.Bold)
	if f, ok := c.stderr.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		red.DisableColor()
	}

	switch {
	case errors.Is(err, types.ErrFrozenBranch):
		red.Fprintf(c.stderr, "refpost: %s is frozen, push rejected\n", event.RefName)
	case errors.Is(err, types.ErrProtectedDeletion):
		red.Fprintf(c.stderr, "refpost: %s is protected, deletion rejected\n", event.RefName)
	default:
		red.Fprintf(c.stderr, "refpost: push rejected: %v\n", err)
	}
}

func validRevision(rev string) bool {
	if len(rev) != 40 && len(rev) != 64 {
		return false
	}
	for _, ch := range rev {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}

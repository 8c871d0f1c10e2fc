package policy

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/refpost/pkg/domain/interfaces"
	"github.com/m-mizutani/refpost/pkg/domain/model"
)

// Marker and list files read from the repository control directory.
const (
	fileFrozenBranches    = "info/frozen-branches"
	fileProtectedBranches = "info/protected-branches"
	fileProtectTags       = "info/protect-tags"
	fileMailBranches      = "info/mail-branches"
	fileMailRecipients    = "info/mail-recipients"
	fileNoModulePrefix    = "info/no-module-prefix"
	fileDescription       = "description"
)

// unnamedDescription is the stock content git writes into a fresh
// repository's description file.
const unnamedDescription = "Unnamed repository; edit this file"

// unnamedFallback replaces a missing or stock project description.
const unnamedFallback = "UNNAMED PROJECT"

type loader struct {
	controlDir string
}

// NewLoader creates a policy loader reading from the given repository
// control directory (the bare repository root, or the .git directory of a
// working tree).
func NewLoader(controlDir string) interfaces.PolicyLoader {
	return &loader{controlDir: controlDir}
}

// Load builds the immutable per-repository policy. Boolean flags are true
// iff the corresponding file exists; list files hold one entry per line or
// whitespace-separated, with # starting a comment. Read-only, no side
// effects.
func (l *loader) Load(ctx context.Context, fallbackRecipient string) (*model.PolicyConfig, error) {
	cfg := &model.PolicyConfig{
		ModuleName: moduleName(l.controlDir),
	}

	var err error
	if cfg.FrozenBranches, cfg.FrozenEnabled, err = l.readSet(fileFrozenBranches); err != nil {
		return nil, err
	}
	if cfg.ProtectedBranches, cfg.ProtectionEnabled, err = l.readSet(fileProtectedBranches); err != nil {
		return nil, err
	}
	if cfg.MailBranches, cfg.MailOnlyListed, err = l.readSet(fileMailBranches); err != nil {
		return nil, err
	}
	if cfg.ProtectTagDeletion, err = l.exists(fileProtectTags); err != nil {
		return nil, err
	}
	if cfg.OmitModulePrefix, err = l.exists(fileNoModulePrefix); err != nil {
		return nil, err
	}

	recipients, _, err := l.readList(fileMailRecipients)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 && fallbackRecipient != "" {
		recipients = []string{fallbackRecipient}
	}
	cfg.Recipients = recipients

	cfg.ProjectDescription = l.readDescription()

	ctxlog.From(ctx).Debug("loaded repository policy",
		"control_dir", l.controlDir,
		"module", cfg.ModuleName,
		"frozen", cfg.FrozenEnabled,
		"protected", cfg.ProtectionEnabled,
		"protect_tags", cfg.ProtectTagDeletion,
		"mail_opt_in", cfg.MailOnlyListed,
		"recipients", len(cfg.Recipients),
	)
	return cfg, nil
}

// readList returns the file's entries and whether the file exists. A missing
// file is not an error.
func (l *loader) readList(name string) ([]string, bool, error) {
	f, err := os.Open(filepath.Join(l.controlDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, goerr.Wrap(err, "failed to read policy file", goerr.V("file", name))
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		entries = append(entries, strings.Fields(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, true, goerr.Wrap(err, "failed to read policy file", goerr.V("file", name))
	}
	return entries, true, nil
}

func (l *loader) readSet(name string) (map[string]bool, bool, error) {
	entries, exists, err := l.readList(name)
	if err != nil {
		return nil, false, err
	}
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e] = true
	}
	return set, exists, nil
}

func (l *loader) exists(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(l.controlDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check policy marker", goerr.V("file", name))
	}
	return true, nil
}

// readDescription returns the first line of the repository description,
// replacing missing or stock content with the unnamed placeholder.
func (l *loader) readDescription() string {
	data, err := os.ReadFile(filepath.Join(l.controlDir, fileDescription))
	if err != nil {
		return unnamedFallback
	}

	line, _, _ := strings.Cut(string(data), "\n")
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, unnamedDescription) {
		return unnamedFallback
	}
	return line
}

// moduleName derives the module name from the repository directory: the base
// name with a .git suffix stripped, or the parent directory's name when the
// control directory is a working tree's .git.
func moduleName(controlDir string) string {
	abs, err := filepath.Abs(controlDir)
	if err != nil {
		abs = controlDir
	}

	base := filepath.Base(abs)
	if base == ".git" {
		base = filepath.Base(filepath.Dir(abs))
	}
	return strings.TrimSuffix(base, ".git")
}

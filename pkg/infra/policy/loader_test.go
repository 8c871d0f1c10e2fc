package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/refpost/pkg/infra/policy"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	gt.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "")).NoError(t)

	gt.V(t, cfg.FrozenEnabled).Equal(false)
	gt.V(t, cfg.ProtectionEnabled).Equal(false)
	gt.V(t, cfg.ProtectTagDeletion).Equal(false)
	gt.V(t, cfg.MailOnlyListed).Equal(false)
	gt.V(t, cfg.OmitModulePrefix).Equal(false)
	gt.V(t, len(cfg.Recipients)).Equal(0)
	gt.V(t, cfg.ProjectDescription).Equal("UNNAMED PROJECT")
}

func TestLoader_Lists(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "info/frozen-branches", "release hotfix\n")
	writeFile(t, dir, "info/protected-branches", "main\n# comment line\nrelease # trailing comment\n")
	writeFile(t, dir, "info/mail-branches", "main\ndevelop\n")
	writeFile(t, dir, "info/mail-recipients", "dev@example.com\nops@example.com\n")

	cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "fallback@example.com")).NoError(t)

	gt.V(t, cfg.FrozenEnabled).Equal(true)
	gt.V(t, cfg.FrozenBranches["release"]).Equal(true)
	gt.V(t, cfg.FrozenBranches["hotfix"]).Equal(true)
	gt.V(t, cfg.ProtectedBranches["main"]).Equal(true)
	gt.V(t, cfg.ProtectedBranches["release"]).Equal(true)
	gt.V(t, cfg.ProtectedBranches["comment"]).Equal(false)
	gt.V(t, cfg.MailOnlyListed).Equal(true)
	gt.V(t, cfg.MailBranches["develop"]).Equal(true)
	gt.V(t, cfg.Recipients).Equal([]string{"dev@example.com", "ops@example.com"})
}

func TestLoader_Markers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "info/protect-tags", "")
	writeFile(t, dir, "info/no-module-prefix", "content is irrelevant\n")

	cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "")).NoError(t)

	gt.V(t, cfg.ProtectTagDeletion).Equal(true)
	gt.V(t, cfg.OmitModulePrefix).Equal(true)
}

func TestLoader_FallbackRecipient(t *testing.T) {
	t.Run("missing recipients file uses fallback", func(t *testing.T) {
		dir := t.TempDir()
		cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "fallback@example.com")).NoError(t)
		gt.V(t, cfg.Recipients).Equal([]string{"fallback@example.com"})
	})

	t.Run("empty recipients file uses fallback", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "info/mail-recipients", "\n# only comments\n")
		cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "fallback@example.com")).NoError(t)
		gt.V(t, cfg.Recipients).Equal([]string{"fallback@example.com"})
	})

	t.Run("no fallback means zero recipients", func(t *testing.T) {
		dir := t.TempDir()
		cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "")).NoError(t)
		gt.V(t, len(cfg.Recipients)).Equal(0)
	})
}

func TestLoader_Description(t *testing.T) {
	t.Run("first line is the project description", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "description", "Internal tools\nsecond line ignored\n")
		cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "")).NoError(t)
		gt.V(t, cfg.ProjectDescription).Equal("Internal tools")
	})

	t.Run("stock description falls back to placeholder", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "description", "Unnamed repository; edit this file 'description' to name the repository.\n")
		cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "")).NoError(t)
		gt.V(t, cfg.ProjectDescription).Equal("UNNAMED PROJECT")
	})
}

func TestLoader_ModuleName(t *testing.T) {
	t.Run("bare repository strips .git suffix", func(t *testing.T) {
		base := t.TempDir()
		dir := filepath.Join(base, "tools.git")
		gt.NoError(t, os.MkdirAll(dir, 0o755))
		cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "")).NoError(t)
		gt.V(t, cfg.ModuleName).Equal("tools")
	})

	t.Run("working tree .git uses parent directory name", func(t *testing.T) {
		base := t.TempDir()
		dir := filepath.Join(base, "tools", ".git")
		gt.NoError(t, os.MkdirAll(dir, 0o755))
		cfg := gt.R1(policy.NewLoader(dir).Load(context.Background(), "")).NoError(t)
		gt.V(t, cfg.ModuleName).Equal("tools")
	})
}

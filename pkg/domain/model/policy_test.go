package model_test

import (
	"testing"

	"github.com/m-mizutani/refpost/pkg/domain/model"
)

func TestPolicyConfig_Gates(t *testing.T) {
	cfg := &model.PolicyConfig{
		FrozenEnabled:     true,
		FrozenBranches:    map[string]bool{"release": true},
		ProtectionEnabled: true,
		ProtectedBranches: map[string]bool{"main": true},
		MailOnlyListed:    true,
		MailBranches:      map[string]bool{"main": true},
	}

	if !cfg.IsFrozen("release") {
		t.Error("IsFrozen(release) = false, want true")
	}
	if cfg.IsFrozen("feature") {
		t.Error("IsFrozen(feature) = true, want false")
	}
	if !cfg.IsDeletionProtected("main") {
		t.Error("IsDeletionProtected(main) = false, want true")
	}
	if cfg.IsDeletionProtected("scratch") {
		t.Error("IsDeletionProtected(scratch) = true, want false")
	}
	if !cfg.WantsMail("main") {
		t.Error("WantsMail(main) = false, want true")
	}
	if cfg.WantsMail("scratch") {
		t.Error("WantsMail(scratch) = true, want false")
	}
}

func TestPolicyConfig_DisabledGates(t *testing.T) {
	// Lists without their enable flag must not match anything, and the
	// opt-in mail gate defaults to mailing every branch.
	cfg := &model.PolicyConfig{
		FrozenBranches:    map[string]bool{"release": true},
		ProtectedBranches: map[string]bool{"main": true},
	}

	if cfg.IsFrozen("release") {
		t.Error("IsFrozen(release) = true with disabled filter, want false")
	}
	if cfg.IsDeletionProtected("main") {
		t.Error("IsDeletionProtected(main) = true with disabled filter, want false")
	}
	if !cfg.WantsMail("anything") {
		t.Error("WantsMail(anything) = false with disabled opt-in, want true")
	}
}

func TestPolicyConfig_SubjectPrefix(t *testing.T) {
	tests := []struct {
		name string
		cfg  model.PolicyConfig
		want string
	}{
		{
			name: "module prefix",
			cfg:  model.PolicyConfig{ModuleName: "tools"},
			want: "[tools] ",
		},
		{
			name: "suppressed prefix",
			cfg:  model.PolicyConfig{ModuleName: "tools", OmitModulePrefix: true},
			want: "",
		},
		{
			name: "unknown module",
			cfg:  model.PolicyConfig{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.SubjectPrefix(); got != tt.want {
				t.Errorf("SubjectPrefix() = %q, want %q", got, tt.want)
			}
		})
	}
}

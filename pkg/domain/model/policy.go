package model

// PolicyConfig holds the per-repository policy read from marker files in the
// repository control directory. It is loaded exactly once per invocation and
// never mutated afterwards.
type PolicyConfig struct {
	// FrozenEnabled is true when the frozen-branches file exists; the set
	// holds branch short names that reject any push.
	FrozenEnabled  bool
	FrozenBranches map[string]bool

	// ProtectionEnabled is true when the protected-branches file exists; the
	// set holds branch short names that reject deletion.
	ProtectionEnabled bool
	ProtectedBranches map[string]bool

	// ProtectTagDeletion is true when the protect-tags marker exists.
	ProtectTagDeletion bool

	// MailOnlyListed is true when the mail-branches file exists; when set,
	// branches outside MailBranches produce no mail.
	MailOnlyListed bool
	MailBranches   map[string]bool

	// Recipients is the ordered notification recipient list, already
	// including the configured fallback when the repository defines none.
	Recipients []string

	// ProjectDescription is the first line of the repository description,
	// with the stock unnamed-repository content replaced by a placeholder.
	ProjectDescription string

	// ModuleName is the repository directory name with a .git suffix
	// stripped; it prefixes mail subjects unless OmitModulePrefix is set.
	ModuleName       string
	OmitModulePrefix bool
}

// IsFrozen reports whether pushes to the given branch short name are frozen.
func (c *PolicyConfig) IsFrozen(shortName string) bool {
	return c.FrozenEnabled && c.FrozenBranches[shortName]
}

// IsDeletionProtected reports whether the given branch short name may not be
// deleted.
func (c *PolicyConfig) IsDeletionProtected(shortName string) bool {
	return c.ProtectionEnabled && c.ProtectedBranches[shortName]
}

// WantsMail reports whether the given branch short name is eligible for
// notification mail under the opt-in list. All branches are eligible when
// the opt-in list is disabled.
func (c *PolicyConfig) WantsMail(shortName string) bool {
	if !c.MailOnlyListed {
		return true
	}
	return c.MailBranches[shortName]
}

// SubjectPrefix returns the "[module] " subject prefix, or an empty string
// when the module prefix is suppressed or unknown.
func (c *PolicyConfig) SubjectPrefix() string {
	if c.OmitModulePrefix || c.ModuleName == "" {
		return ""
	}
	return "[" + c.ModuleName + "] "
}

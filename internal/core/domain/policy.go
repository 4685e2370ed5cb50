package domain

// ToolPolicy governs how a single tool may be invoked.
type ToolPolicy struct {
	// Enabled allows the tool to execute at all.
	Enabled bool `toml:"enabled"`

	// NeedsApproval requires the orchestration layer to obtain user
	// approval before executing the tool.
	NeedsApproval bool `toml:"needs_approval"`

	// RequireReadBeforeWrite enforces the optimistic read-before-write
	// check for tools that mutate files.
	RequireReadBeforeWrite bool `toml:"require_read_before_write"`
}

// ToolPolicyOverride is a per-tool partial policy. Nil fields inherit
// the toolkit default; set fields always win.
type ToolPolicyOverride struct {
	Enabled                *bool `toml:"enabled"`
	NeedsApproval          *bool `toml:"needs_approval"`
	RequireReadBeforeWrite *bool `toml:"require_read_before_write"`
}

// Apply overlays the override onto a base policy field-by-field.
func (o ToolPolicyOverride) Apply(base ToolPolicy) ToolPolicy {
	if o.Enabled != nil {
		base.Enabled = *o.Enabled
	}
	if o.NeedsApproval != nil {
		base.NeedsApproval = *o.NeedsApproval
	}
	if o.RequireReadBeforeWrite != nil {
		base.RequireReadBeforeWrite = *o.RequireReadBeforeWrite
	}
	return base
}

// ToolkitPolicy holds a toolkit's default policy plus per-tool overrides.
// There is exactly one level of inheritance and no wildcard matching.
type ToolkitPolicy struct {
	Defaults ToolPolicy                    `toml:"defaults"`
	Tools    map[string]ToolPolicyOverride `toml:"tools"`
}

// PolicyConfig maps toolkit names to their policies.
type PolicyConfig map[string]ToolkitPolicy

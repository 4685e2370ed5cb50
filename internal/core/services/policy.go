package services

import (
	"github.com/custodia-labs/workbench/internal/core/domain"
)

// PolicyResolver resolves effective tool policies from static
// configuration. It is a pure function of the config it was built with:
// no side effects, no failure modes. Absent configuration yields the
// all-false (safe) policy.
type PolicyResolver struct {
	config domain.PolicyConfig
}

// NewPolicyResolver creates a resolver over the given policy config.
// A nil config is valid and resolves everything to the safe default.
func NewPolicyResolver(config domain.PolicyConfig) *PolicyResolver {
	return &PolicyResolver{config: config}
}

// PolicyFor merges the toolkit's defaults with the per-tool override.
// The per-tool entry wins field-by-field; there is no deeper inheritance
// and no wildcard matching.
func (r *PolicyResolver) PolicyFor(toolkit, tool string) domain.ToolPolicy {
	tk, ok := r.config[toolkit]
	if !ok {
		return domain.ToolPolicy{}
	}
	policy := tk.Defaults
	if override, ok := tk.Tools[tool]; ok {
		policy = override.Apply(policy)
	}
	return policy
}

// Package policy implements the Policy Engine of spec.md §3: named
// allow/deny rules evaluated against gated tool actions, defaulting to
// deny when nothing matches. It is a small, pure decision function over
// rules the caller loads once per evaluation (or caches) — no tool or
// HTTP concern lives here.
package policy

import "github.com/google/uuid"

// Effect is a rule's outcome when its condition is satisfied.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Rule is one named allow/deny rule. TenantID nil means the rule
// applies globally; a tenant-scoped rule takes precedence over a global
// one for the same action (see Engine.Evaluate).
type Rule struct {
	ID        uuid.UUID
	TenantID  *uuid.UUID
	Action    string
	Effect    Effect
	Condition Condition
	Reason    string
}

// Condition is a simple attribute-equality predicate: every key present
// in it must equal the corresponding attribute passed to Evaluate for
// the rule to match. An empty Condition always matches (unconditional
// rule for its action).
type Condition map[string]string

// Matches reports whether every condition key/value is present and
// equal in attrs.
func (c Condition) Matches(attrs map[string]string) bool {
	for k, v := range c {
		if attrs[k] != v {
			return false
		}
	}
	return true
}

// Decision is the outcome of evaluating an action against the rule set.
type Decision struct {
	Allowed bool
	Reason  string
	// RuleID is the matched rule, empty when the decision is the
	// default deny (no rule matched a gated action).
	RuleID uuid.UUID
}

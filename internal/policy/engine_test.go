package policy

import (
	"testing"

	"github.com/google/uuid"
)

func TestEvaluateDefaultDenyForGatedAction(t *testing.T) {
	engine := NewEngine("send_sms_confirmation")
	decision := engine.Evaluate("send_sms_confirmation", uuid.New(), nil, nil)
	if decision.Allowed {
		t.Fatal("expected default deny for gated action with no matching rule")
	}
}

func TestEvaluateDefaultAllowForUngatedAction(t *testing.T) {
	engine := NewEngine("send_sms_confirmation")
	decision := engine.Evaluate("lookup_booking", uuid.New(), nil, nil)
	if !decision.Allowed {
		t.Fatal("expected default allow for an action not in the gated set")
	}
}

func TestEvaluateGlobalAllowRule(t *testing.T) {
	engine := NewEngine("send_sms_confirmation")
	rules := []Rule{
		{ID: uuid.New(), TenantID: nil, Action: "send_sms_confirmation", Effect: EffectAllow, Reason: "enabled by default"},
	}
	decision := engine.Evaluate("send_sms_confirmation", uuid.New(), nil, rules)
	if !decision.Allowed {
		t.Fatalf("expected global allow rule to permit, got %+v", decision)
	}
}

func TestEvaluateTenantRuleOverridesGlobal(t *testing.T) {
	engine := NewEngine("send_sms_confirmation")
	tenantID := uuid.New()
	rules := []Rule{
		{ID: uuid.New(), TenantID: nil, Action: "send_sms_confirmation", Effect: EffectAllow},
		{ID: uuid.New(), TenantID: &tenantID, Action: "send_sms_confirmation", Effect: EffectDeny, Reason: "tenant opted out"},
	}
	decision := engine.Evaluate("send_sms_confirmation", tenantID, nil, rules)
	if decision.Allowed {
		t.Fatalf("expected tenant-scoped deny to take precedence over global allow, got %+v", decision)
	}

	otherTenant := uuid.New()
	decision = engine.Evaluate("send_sms_confirmation", otherTenant, nil, rules)
	if !decision.Allowed {
		t.Fatalf("expected global rule to apply to a tenant with no override, got %+v", decision)
	}
}

func TestConditionMatchesRequiresAllKeys(t *testing.T) {
	c := Condition{"channel": "sms", "reason": "far_date"}
	if !c.Matches(map[string]string{"channel": "sms", "reason": "far_date", "extra": "ignored"}) {
		t.Fatal("expected condition to match when all keys present and equal")
	}
	if c.Matches(map[string]string{"channel": "sms"}) {
		t.Fatal("expected condition to fail when a required key is missing")
	}
}

func TestEvaluateConditionalRuleOnlyMatchesWhenAttrsSatisfy(t *testing.T) {
	engine := NewEngine("schedule_contact_followup")
	rules := []Rule{
		{ID: uuid.New(), Action: "schedule_contact_followup", Effect: EffectDeny, Condition: Condition{"preferred_contact": "sms"}, Reason: "sms followups disabled"},
	}
	tenantID := uuid.New()

	decision := engine.Evaluate("schedule_contact_followup", tenantID, map[string]string{"preferred_contact": "sms"}, rules)
	if decision.Allowed {
		t.Fatal("expected conditional deny rule to match sms followups")
	}

	decision = engine.Evaluate("schedule_contact_followup", tenantID, map[string]string{"preferred_contact": "email"}, rules)
	if decision.Allowed || decision.RuleID != uuid.Nil {
		t.Fatal("expected email followups to miss the sms-only rule and fall through to the default deny for a gated action")
	}
}

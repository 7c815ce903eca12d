// Package tools implements the Tool-Executor: the seven functions the
// booking agent's LLM can call (spec.md §4.6/§6), each wrapped in
// google.golang.org/adk/tool/functiontool the way the teacher's
// internal/leads/agent/tools.go wraps its lead-triage tools. Every
// handler reads and mutates a shared *tooldeps.Dependencies bag scoped
// to one conversation.
package tools

import (
	"fmt"

	"google.golang.org/adk/tool"

	"bookingagent/internal/agent/tooldeps"
)

// BuildAll constructs the full seven-tool set for one conversation's
// Dependencies bag, in the same createXTool-per-function-then-collect
// shape as the teacher's NewDispatcher.
func BuildAll(deps *tooldeps.Dependencies, notifier ConfirmationSender) ([]tool.Tool, error) {
	builders := []struct {
		name string
		fn   func() (tool.Tool, error)
	}{
		{"check_availability", func() (tool.Tool, error) { return NewCheckAvailabilityTool(deps) }},
		{"hold_slot", func() (tool.Tool, error) { return NewHoldSlotTool(deps) }},
		{"confirm_booking", func() (tool.Tool, error) { return NewConfirmBookingTool(deps, notifier) }},
		{"lookup_booking", func() (tool.Tool, error) { return NewLookupBookingTool(deps) }},
		{"reschedule_booking", func() (tool.Tool, error) { return NewRescheduleBookingTool(deps) }},
		{"cancel_booking", func() (tool.Tool, error) { return NewCancelBookingTool(deps) }},
		{"schedule_contact_followup", func() (tool.Tool, error) { return NewScheduleContactFollowupTool(deps) }},
	}

	tools := make([]tool.Tool, 0, len(builders))
	for _, b := range builders {
		t, err := b.fn()
		if err != nil {
			return nil, fmt.Errorf("build %s tool: %w", b.name, err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}

package flow

import (
	"sort"

	"go-hr/pkg/condition"
)

// SelectFlow picks the flow that governs a request of the given category.
//
// Active flows of the category are tried by priority, highest first, ties broken by creation
// time and then ID so identical inputs always select the same flow. A flow without
// conditions only matches when it is the category default; a flow with conditions matches
// when every condition holds against fields. When nothing matches, the category default
// is returned. The second result is false when there is no flow at all and the caller
// should fall back to manually supplied steps.
func SelectFlow(flows []ApprovalFlowDefinition, category string, fields map[string]interface{}) (*ApprovalFlowDefinition, bool) {
	candidates := make([]ApprovalFlowDefinition, 0, len(flows))
	for _, f := range flows {
		if f.IsActive && f.Category == category {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.Hex() < b.ID.Hex()
	})

	var fallback *ApprovalFlowDefinition
	for i := range candidates {
		f := &candidates[i]
		if len(f.Conditions) == 0 {
			if f.IsDefault {
				return f, true
			}
			continue
		}
		if condition.EvaluateAll(f.Conditions, fields) {
			return f, true
		}
		if f.IsDefault && fallback == nil {
			fallback = f
		}
	}

	if fallback != nil {
		return fallback, true
	}
	return nil, false
}

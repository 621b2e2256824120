package contextengine

import (
	"fmt"

	"github.com/tempohq/tempo/internal/intent"
)

// RelevanceScore weighs how much each context facet matters for the
// current message. Facet scores live in [0,1]; Overall is their fixed
// weighted sum. CriticalFactors lists facets scoring above 0.7, in the
// order they are checked.
type RelevanceScore struct {
	WorkflowState        float64  `json:"workflow_state"`
	ProductivityMetrics  float64  `json:"productivity_metrics"`
	RecentPatterns       float64  `json:"recent_patterns"`
	EnvironmentalFactors float64  `json:"environmental_factors"`
	ContextualInsights   float64  `json:"contextual_insights"`
	Overall              float64  `json:"overall"`
	Reasoning            []string `json:"reasoning"`
	CriticalFactors      []string `json:"critical_factors"`
}

// Facet weights for the overall score. They must sum to 1.0; the test
// suite enforces it.
const (
	weightWorkflow      = 0.25
	weightProductivity  = 0.20
	weightPatterns      = 0.20
	weightEnvironmental = 0.15
	weightInsights      = 0.20
)

// Base scores and deltas are fixed so the same context and intent always
// produce the same score.
const (
	baseWorkflow      = 0.30
	basePatterns      = 0.25
	baseProductivity  = 0.25
	baseEnvironmental = 0.20
	baseInsights      = 0.30

	criticalThreshold = 0.7
)

// Score rates each facet of the context against the message intent.
func Score(ec EnhancedContext, it intent.Intent) RelevanceScore {
	rs := RelevanceScore{
		WorkflowState:        baseWorkflow,
		ProductivityMetrics:  baseProductivity,
		RecentPatterns:       basePatterns,
		EnvironmentalFactors: baseEnvironmental,
		ContextualInsights:   baseInsights,
		Reasoning:            []string{},
		CriticalFactors:      []string{},
	}

	bump := func(score *float64, delta float64, reason string) {
		*score += delta
		rs.Reasoning = append(rs.Reasoning, fmt.Sprintf("%s (+%.2f)", reason, delta))
	}

	if it.Category == intent.CategoryTaskManagement && ec.Workflow.Phase == "executing" {
		bump(&rs.WorkflowState, 0.30, "task request during active execution")
	}
	if it.Category == intent.CategoryTimeTracking {
		bump(&rs.WorkflowState, 0.20, "time tracking depends on session state")
		bump(&rs.EnvironmentalFactors, 0.30, "time tracking is time-of-day sensitive")
	}
	if it.Category == intent.CategoryAnalysis {
		bump(&rs.ProductivityMetrics, 0.35, "analysis questions read the metrics")
		bump(&rs.RecentPatterns, 0.25, "analysis questions read behavioral patterns")
		bump(&rs.ContextualInsights, 0.20, "analysis questions surface insights")
	}
	if it.Category == intent.CategoryPlanning {
		bump(&rs.ProductivityMetrics, 0.15, "planning considers recent throughput")
		bump(&rs.RecentPatterns, 0.15, "planning follows established habits")
		bump(&rs.EnvironmentalFactors, 0.20, "planning is calendar sensitive")
	}
	if it.Urgency == intent.UrgencyHigh {
		bump(&rs.WorkflowState, 0.15, "urgent requests depend on current state")
		bump(&rs.ContextualInsights, 0.15, "urgent requests need active warnings")
	}
	if it.Complexity == intent.ComplexityComplex {
		bump(&rs.ProductivityMetrics, 0.10, "complex requests benefit from metrics")
	}
	if len(ec.Patterns) > 0 {
		bump(&rs.RecentPatterns, 0.10, "stored patterns are available")
	}
	if len(ec.Insights) > 0 {
		bump(&rs.ContextualInsights, 0.10, "active insights are available")
	}
	if !ec.Environment.IsWorkingHours {
		bump(&rs.EnvironmentalFactors, 0.10, "outside configured working hours")
	}

	// Clamp and collect critical facets in a fixed check order.
	checks := []struct {
		name  string
		score *float64
	}{
		{"workflow_state", &rs.WorkflowState},
		{"productivity_metrics", &rs.ProductivityMetrics},
		{"recent_patterns", &rs.RecentPatterns},
		{"environmental_factors", &rs.EnvironmentalFactors},
		{"contextual_insights", &rs.ContextualInsights},
	}
	for _, c := range checks {
		*c.score = clamp01(*c.score)
		if *c.score > criticalThreshold {
			rs.CriticalFactors = append(rs.CriticalFactors, c.name)
		}
	}

	rs.Overall = clamp01(rs.WorkflowState*weightWorkflow +
		rs.ProductivityMetrics*weightProductivity +
		rs.RecentPatterns*weightPatterns +
		rs.EnvironmentalFactors*weightEnvironmental +
		rs.ContextualInsights*weightInsights)

	return rs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

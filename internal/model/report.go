package model

import "time"

// Report is one agent's complaint against a target. A reporter may file at
// most one report per target; distinct reporters accumulate. When the
// distinct-reporter count reaches the configured threshold, the moderation
// engine suspends the agent who owns the target.
type Report struct {
	ReporterID string     `json:"reporterId"`
	TargetID   string     `json:"targetId"`
	TargetType TargetType `json:"targetType"`
	Reason     string     `json:"reason"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// DefaultReportThreshold is the number of distinct reporters that triggers
// auto-suspension of the target's owning agent.
const DefaultReportThreshold = 3

package models

import "time"

// Condition is the comparison an alert applies to incoming values.
type Condition string

const (
	ConditionGreaterThan Condition = "gt"
	ConditionLessThan    Condition = "lt"
)

// Valid reports whether c is one of the supported comparisons.
func (c Condition) Valid() bool {
	return c == ConditionGreaterThan || c == ConditionLessThan
}

// Direction is the human-readable form used in notification messages.
func (c Condition) Direction() string {
	if c == ConditionGreaterThan {
		return "above"
	}
	return "below"
}

// Alert is a user-defined threshold rule over a category.
type Alert struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user"`
	Category  string    `json:"category"`
	Condition Condition `json:"condition"`
	Threshold float64   `json:"threshold"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnerID implements access.Owned.
func (a Alert) OwnerID() string { return a.UserID }

// Triggered reports whether value crosses the alert's threshold.
// Equality never triggers.
func (a Alert) Triggered(value float64) bool {
	switch a.Condition {
	case ConditionGreaterThan:
		return value > a.Threshold
	case ConditionLessThan:
		return value < a.Threshold
	default:
		return false
	}
}

package models

import "time"

// Notification is produced by the alert evaluator and can only be marked read.
type Notification struct {
	ID           string    `json:"_id"`
	UserID       string    `json:"user"`
	Message      string    `json:"message"`
	RelatedAlert string    `json:"relatedAlert,omitempty"`
	Read         bool      `json:"read"`
	Date         time.Time `json:"date"`
}

// OwnerID implements access.Owned.
func (n Notification) OwnerID() string { return n.UserID }

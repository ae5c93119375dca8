package models

import "time"

// DefaultCategory is assigned to data points submitted without a category.
const DefaultCategory = "General"

// DataPoint is a single labeled numeric observation owned by a user.
type DataPoint struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"user"`
	Label     string    `json:"label"`
	Value     float64   `json:"value"`
	Category  string    `json:"category"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// OwnerID implements access.Owned.
func (d DataPoint) OwnerID() string { return d.UserID }

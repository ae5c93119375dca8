package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Number accepts a JSON number or a numeric string.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("value %q is not a number", s)
		}
		return n.set(f)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("value must be a number")
	}
	return n.set(f)
}

// set rejects NaN and the infinities, which JSON cannot encode back out.
func (n *Number) set(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New("value must be a finite number")
	}
	*n = Number(f)
	return nil
}

// Float returns the value as float64.
func (n Number) Float() float64 { return float64(n) }

// AddDataRequest is the body of POST /data/add.
type AddDataRequest struct {
	Label    string  `json:"label" validate:"required,max=200"`
	Value    *Number `json:"value" validate:"required"`
	Category string  `json:"category" validate:"max=100"`
	// Date defaults to the time of ingestion.
	Date *time.Time `json:"date"`
}

// UpdateDataRequest is the body of PUT /data/{id}; nil fields are left untouched.
type UpdateDataRequest struct {
	Label    *string `json:"label" validate:"omitempty,min=1,max=200"`
	Value    *Number `json:"value"`
	Category *string `json:"category" validate:"omitempty,max=100"`
}

// CreateAlertRequest is the body of POST /alerts.
type CreateAlertRequest struct {
	Category  string  `json:"category" validate:"required,max=100"`
	Condition string  `json:"condition" validate:"required,oneof=gt lt"`
	Threshold *Number `json:"threshold" validate:"required"`
}

// KPIWindow summarises one comparison window.
type KPIWindow struct {
	Entries    int     `json:"entries"`
	TotalValue float64 `json:"totalValue"`
	Average    float64 `json:"average"`
}

// KPIChanges holds percent change per metric.
type KPIChanges struct {
	Entries    float64 `json:"entries"`
	TotalValue float64 `json:"totalValue"`
	Average    float64 `json:"average"`
}

// KPIComparison is returned by GET /data/kpi-comparison.
type KPIComparison struct {
	Recent   KPIWindow  `json:"recent"`
	Previous KPIWindow  `json:"previous"`
	Changes  KPIChanges `json:"changes"`
}

// OriginalPoint is the locally known data echoed next to prediction results.
type OriginalPoint struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Category string  `json:"category,omitempty"`
}

// PredictResponse is returned by GET /data/predict.
type PredictResponse struct {
	Category    string          `json:"category"`
	Original    []OriginalPoint `json:"original"`
	Predictions any             `json:"predictions"`
	Model       any             `json:"model"`
}

// SimulateResponse is returned by GET /data/simulate.
type SimulateResponse struct {
	Category    string          `json:"category"`
	Original    []OriginalPoint `json:"original"`
	Predictions any             `json:"predictions"`
	Projected   any             `json:"projected"`
	Multiplier  any             `json:"multiplier"`
	Model       any             `json:"model"`
}

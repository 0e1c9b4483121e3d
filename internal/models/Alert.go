package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type AlertType string

const (
	AlertRouteDeviation  AlertType = "route_deviation"
	AlertRouteBack       AlertType = "route_back"
	AlertProlongedStop   AlertType = "prolonged_stop"
	AlertMovementResumed AlertType = "movement_resumed"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertPosition is the position snapshot embedded in an alert.
type AlertPosition struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Speed     *float64 `json:"speed,omitempty"`
	Address   string   `json:"address,omitempty"`
}

// Alert is a single entry in a trip's append-only alert log.
// Immutable once created.
type Alert struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      AlertType      `json:"type"`
	Severity  AlertSeverity  `json:"severity"`
	Message   string         `json:"message"`
	Position  *AlertPosition `json:"position,omitempty"`
}

// AlertLog stores the alert history as a single JSONB column on the trip row.
// Fine at a 30s tick rate; a separate alert table is the escape hatch if the
// log outgrows one row.
type AlertLog []Alert

func (l AlertLog) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *AlertLog) Scan(value interface{}) error {
	if value == nil {
		*l = AlertLog{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("alert log: unsupported column type")
	}
	if len(raw) == 0 {
		*l = AlertLog{}
		return nil
	}
	return json.Unmarshal(raw, l)
}

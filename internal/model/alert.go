package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Alert types
const (
	AlertLowMargin     = "low_margin"
	AlertHighFoodCost  = "high_food_cost"
	AlertLowStock      = "low_stock"
	AlertPriceIncrease = "price_increase"
	AlertCostDeviation = "cost_deviation"
)

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert statuses
const (
	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

// Entity types an alert can point at
const (
	EntityIngredient = "ingredient"
	EntityRecipe     = "recipe"
)

// AlertPayload carries the metric snapshot that triggered the alert,
// stored as JSONB.
type AlertPayload map[string]interface{}

// Value implements driver.Valuer for JSONB serialization
func (p AlertPayload) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB deserialization
func (p *AlertPayload) Scan(value interface{}) error {
	if value == nil {
		*p = AlertPayload{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for AlertPayload")
	}
	return json.Unmarshal(data, p)
}

// Alert represents a threshold breach tracked as a small state machine:
// active -> acknowledged -> resolved, or active -> resolved directly.
// There is no transition out of resolved; a new breach of the same type
// creates a fresh active alert. Severity is fixed at creation time and
// is not re-evaluated while the alert stays active.
//
// Invariant: at most one active alert per
// (tenant, entity type, entity id, alert type).
type Alert struct {
	ID             uint         `json:"id" gorm:"primarykey"`
	TenantID       uint         `json:"tenant_id" gorm:"index;not null"`
	Type           string       `json:"type" gorm:"type:varchar(30);not null;index"`
	Severity       string       `json:"severity" gorm:"type:varchar(10);not null"`
	Status         string       `json:"status" gorm:"type:varchar(15);not null;index;default:'active'"`
	EntityType     string       `json:"entity_type" gorm:"type:varchar(20);not null"`
	EntityID       uint         `json:"entity_id" gorm:"index;not null"`
	Title          string       `json:"title" gorm:"type:varchar(255)"`
	Message        string       `json:"message" gorm:"type:text"`
	Payload        AlertPayload `json:"payload" gorm:"type:jsonb"`
	CreatedAt      time.Time    `json:"created_at"`
	AcknowledgedAt *time.Time   `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty"`
}

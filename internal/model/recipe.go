package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// RecipeComponent is one line of a recipe's composition. The ingredient
// reference may dangle (ingredient deleted after the recipe was saved);
// the cost engine treats that as a recoverable missing-ingredient
// condition, not a fatal error.
type RecipeComponent struct {
	IngredientID uint    `json:"ingredient_id"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
}

// RecipeComponents is stored as a JSONB column on the recipe row. The
// denormalized representation is purely a serialization concern here;
// domain code only ever sees the slice.
type RecipeComponents []RecipeComponent

// Value implements driver.Valuer for JSONB serialization
func (rc RecipeComponents) Value() (driver.Value, error) {
	if rc == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(rc)
}

// Scan implements sql.Scanner for JSONB deserialization
func (rc *RecipeComponents) Scan(value interface{}) error {
	if value == nil {
		*rc = RecipeComponents{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for RecipeComponents")
	}
	return json.Unmarshal(data, rc)
}

// Recipe represents a sellable dish with its component list and the
// cached result of the last cost calculation. The cached fields are
// derived data, written only by the cost engine; the component list and
// ingredient prices remain the source of truth.
type Recipe struct {
	ID         uint             `json:"id" gorm:"primarykey"`
	TenantID   uint             `json:"tenant_id" gorm:"index;not null;comment:'Tenant this recipe belongs to'"`
	Name       string           `json:"name" gorm:"type:varchar(255);not null"`
	Portions   int              `json:"portions" gorm:"default:1"`
	SalePrice  float64          `json:"sale_price" gorm:"default:0"`
	Components RecipeComponents `json:"components" gorm:"type:jsonb"`
	IsActive   bool             `json:"is_active" gorm:"default:true"`

	// Cached cost fields, maintained by the cost engine
	LastCost       float64    `json:"last_cost" gorm:"default:0"`
	CostPerPortion float64    `json:"cost_per_portion" gorm:"default:0"`
	MarginPct      float64    `json:"margin_pct" gorm:"default:0"`
	FoodCostPct    float64    `json:"food_cost_pct" gorm:"default:0"`
	CostUpdatedAt  *time.Time `json:"cost_updated_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// EffectivePortions returns the portion count used for costing, falling
// back to 1 when the stored value is absent or invalid.
func (r *Recipe) EffectivePortions() int {
	if r.Portions < 1 {
		return 1
	}
	return r.Portions
}

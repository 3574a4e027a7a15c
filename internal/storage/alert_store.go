package storage

import (
	"errors"

	"github.com/klaker79/lacaleta-api/internal/model"
	"gorm.io/gorm"
)

// AlertStore persists alerts. It implements alerting.AlertStore.
type AlertStore struct {
	db *gorm.DB
}

// NewAlertStore creates an alert store over the given handle.
func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

// FindActive returns the single active alert for
// (tenant, entity type, entity id, alert type), or nil when none exists.
func (s *AlertStore) FindActive(tenantID uint, entityType string, entityID uint, alertType string) (*model.Alert, error) {
	var alert model.Alert
	err := s.db.
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ? AND type = ? AND status = ?",
			tenantID, entityType, entityID, alertType, model.StatusActive).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alert, nil
}

// Create inserts a new alert.
func (s *AlertStore) Create(alert *model.Alert) error {
	return s.db.Create(alert).Error
}

// UpdateStatus persists a status transition with its timestamps.
func (s *AlertStore) UpdateStatus(alert *model.Alert) error {
	return s.db.Model(&model.Alert{}).
		Where("id = ? AND tenant_id = ?", alert.ID, alert.TenantID).
		Updates(map[string]interface{}{
			"status":          alert.Status,
			"acknowledged_at": alert.AcknowledgedAt,
			"resolved_at":     alert.ResolvedAt,
		}).Error
}

// Get returns one alert scoped to the tenant.
func (s *AlertStore) Get(alertID, tenantID uint) (*model.Alert, error) {
	var alert model.Alert
	err := s.db.
		Where("id = ? AND tenant_id = ?", alertID, tenantID).
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// List returns the tenant's alerts, newest first, optionally filtered by
// status and type.
func (s *AlertStore) List(tenantID uint, status, alertType string) ([]model.Alert, error) {
	query := s.db.Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if alertType != "" {
		query = query.Where("type = ?", alertType)
	}
	var alerts []model.Alert
	if err := query.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

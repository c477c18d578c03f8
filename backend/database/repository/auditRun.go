package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"reconaudit/backend/database/models"
)

type AuditRunRepository interface {
	Create(item *models.AuditRun) error
	GetByRunID(runID int64) (*models.AuditRun, error)
	List(limit int) ([]*models.AuditRun, error)
	ListByTarget(target string, limit int) ([]*models.AuditRun, error)
}

type auditRunRepository struct {
	db *gorm.DB
}

func NewAuditRunRepository(db *gorm.DB) AuditRunRepository {
	return &auditRunRepository{db: db}
}

func (r *auditRunRepository) Create(item *models.AuditRun) error {
	if err := r.db.Create(item).Error; err != nil {
		return errors.Wrap(err, "save audit run")
	}
	return nil
}

func (r *auditRunRepository) GetByRunID(runID int64) (*models.AuditRun, error) {
	var item models.AuditRun
	if err := r.db.Where("run_id = ?", runID).First(&item).Error; err != nil {
		return nil, errors.Wrapf(err, "find audit run %d", runID)
	}
	return &item, nil
}

func (r *auditRunRepository) List(limit int) ([]*models.AuditRun, error) {
	return r.list(r.db, limit)
}

func (r *auditRunRepository) ListByTarget(target string, limit int) ([]*models.AuditRun, error) {
	return r.list(r.db.Where("target = ?", target), limit)
}

func (r *auditRunRepository) list(tx *gorm.DB, limit int) ([]*models.AuditRun, error) {
	var items []*models.AuditRun
	tx = tx.Order("id desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "list audit runs")
	}
	return items, nil
}

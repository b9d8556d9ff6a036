package repository

import (
	"errors"

	"gorm.io/gorm"

	"procurement-service/internal/apperr"
	"procurement-service/internal/model"
	"procurement-service/internal/sequence"
	"procurement-service/prometheus"
)

// createAttempts bounds the retry loop that closes the sequence-code race.
// Two concurrent creators can compute the same next code; the loser hits the
// unique index and retries with a fresh code.
const createAttempts = 3

// SupplierRepository provides database access for suppliers.
type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create assigns the next supplier number and persists the supplier.
// The email must be unique across suppliers.
func (r *SupplierRepository) Create(supplier *model.Supplier) error {
	var count int64
	if err := r.db.Model(&model.Supplier{}).Where("email = ?", supplier.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("A supplier with this email already exists.")
	}

	if supplier.Status == "" {
		supplier.Status = model.SupplierStatusActive
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := sequence.Supplier.Next(r.db)
		if err != nil {
			return err
		}
		supplier.SupplierNo = code

		err = r.db.Create(supplier).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		// The duplicate may be a raced email rather than a raced code.
		if err := r.db.Model(&model.Supplier{}).Where("email = ?", supplier.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("A supplier with this email already exists.")
		}
		prometheus.RecordSequenceRetry("supplier")
		supplier.ID = 0
	}
	return apperr.Conflict("Could not allocate a unique supplier number, please retry.")
}

// GetByID returns a supplier by its id.
func (r *SupplierRepository) GetByID(id uint) (*model.Supplier, error) {
	var supplier model.Supplier
	err := r.db.First(&supplier, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("No Supplier found with this id")
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// List returns one page of suppliers.
func (r *SupplierRepository) List(page, limit int) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	offset := (page - 1) * limit
	err := r.db.Limit(limit).Offset(offset).Find(&suppliers).Error
	return suppliers, err
}

// Count returns the total number of suppliers.
func (r *SupplierRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Supplier{}).Count(&count).Error
	return count, err
}

// ListActive returns the minimal projection of suppliers with Active status,
// used by the order-creation form.
func (r *SupplierRepository) ListActive() ([]model.SupplierOption, error) {
	var options []model.SupplierOption
	err := r.db.Model(&model.Supplier{}).
		Select("id", "supplier_no", "supplier_name").
		Where("status = ?", model.SupplierStatusActive).
		Find(&options).Error
	return options, err
}

// CountActive returns the number of suppliers with Active status.
func (r *SupplierRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&model.Supplier{}).
		Where("status = ?", model.SupplierStatusActive).
		Count(&count).Error
	return count, err
}

// Update applies a partial patch to a supplier. The supplier number is never
// part of the patch; it is immutable after first save.
func (r *SupplierRepository) Update(id uint, updates map[string]interface{}) (*model.Supplier, error) {
	supplier, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	if email, ok := updates["email"].(string); ok {
		var count int64
		if err := r.db.Model(&model.Supplier{}).
			Where("email = ? AND id != ?", email, id).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, apperr.Conflict("A supplier with this email already exists.")
		}
	}

	if len(updates) > 0 {
		if err := r.db.Model(supplier).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperr.Conflict("A supplier with this email already exists.")
			}
			return nil, err
		}
	}
	return r.GetByID(id)
}

// Delete removes a supplier by id. References from items and orders are left
// dangling; there is no cascade.
func (r *SupplierRepository) Delete(id uint) error {
	result := r.db.Delete(&model.Supplier{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("No Supplier found with this id")
	}
	return nil
}

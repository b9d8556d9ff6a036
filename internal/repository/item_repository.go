package repository

import (
	"errors"

	"gorm.io/gorm"

	"procurement-service/internal/apperr"
	"procurement-service/internal/model"
	"procurement-service/internal/sequence"
	"procurement-service/prometheus"
)

// ItemRepository provides database access for inventory items. It also
// serves as the item resolver for the order pricing engine.
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create assigns the next item number and persists the item with an empty
// image list; images are attached asynchronously after creation. The item
// name must be unique and the referenced supplier must exist.
func (r *ItemRepository) Create(item *model.Item) error {
	var count int64
	if err := r.db.Model(&model.Item{}).Where("item_name = ?", item.ItemName).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("An item with this name already exists.")
	}

	if err := r.supplierExists(item.SupplierID); err != nil {
		return err
	}

	if item.Status == "" {
		item.Status = model.ItemStatusEnabled
	}
	item.ItemImages = model.ImageList{}

	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := sequence.Item.Next(r.db)
		if err != nil {
			return err
		}
		item.ItemNo = code

		err = r.db.Create(item).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		// The duplicate may be a raced item name rather than a raced code.
		if err := r.db.Model(&model.Item{}).Where("item_name = ?", item.ItemName).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("An item with this name already exists.")
		}
		prometheus.RecordSequenceRetry("item")
		item.ID = 0
	}
	return apperr.Conflict("Could not allocate a unique item number, please retry.")
}

// GetByID returns an item with its supplier populated.
func (r *ItemRepository) GetByID(id uint) (*model.Item, error) {
	var item model.Item
	err := r.db.Preload("Supplier").First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("No item found with this id")
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ResolveItem resolves an order-line item reference to its current record.
// The error names the offending reference so a failed order creation tells
// the caller which line was at fault.
func (r *ItemRepository) ResolveItem(id uint) (*model.Item, error) {
	var item model.Item
	err := r.db.First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Item with ID %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns one page of items with suppliers populated.
func (r *ItemRepository) List(page, limit int) ([]model.Item, error) {
	var items []model.Item
	offset := (page - 1) * limit
	err := r.db.Preload("Supplier").Limit(limit).Offset(offset).Find(&items).Error
	return items, err
}

// Count returns the total number of items.
func (r *ItemRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Item{}).Count(&count).Error
	return count, err
}

// ListActive returns the projection of Enabled items used to prefill order
// lines.
func (r *ItemRepository) ListActive() ([]model.ItemOption, error) {
	var options []model.ItemOption
	err := r.db.Model(&model.Item{}).
		Select("id", "item_no", "item_name", "unit_price", "stock_unit").
		Where("status = ?", model.ItemStatusEnabled).
		Find(&options).Error
	return options, err
}

// CountActive returns the number of items with Enabled status.
func (r *ItemRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&model.Item{}).
		Where("status = ?", model.ItemStatusEnabled).
		Count(&count).Error
	return count, err
}

// SetImages replaces the item's image list once the background upload has
// finished.
func (r *ItemRepository) SetImages(id uint, images []string) error {
	return r.db.Model(&model.Item{}).
		Where("id = ?", id).
		Update("item_images", model.ImageList(images)).Error
}

// Update applies a partial patch to an item. The item number is immutable
// after first save; a changed supplier reference must resolve, a changed
// name must remain unique.
func (r *ItemRepository) Update(id uint, updates map[string]interface{}) (*model.Item, error) {
	item, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	if supplierID, ok := updates["supplier_id"].(uint); ok {
		if err := r.supplierExists(supplierID); err != nil {
			return nil, err
		}
	}
	if name, ok := updates["item_name"].(string); ok {
		var count int64
		if err := r.db.Model(&model.Item{}).
			Where("item_name = ? AND id != ?", name, id).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, apperr.Conflict("An item with this name already exists.")
		}
	}

	if len(updates) > 0 {
		if err := r.db.Model(item).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apperr.Conflict("An item with this name already exists.")
			}
			return nil, err
		}
	}
	return r.GetByID(id)
}

// Delete removes an item by id. Existing order lines keep their snapshot
// amounts; their item reference is left dangling.
func (r *ItemRepository) Delete(id uint) error {
	result := r.db.Delete(&model.Item{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("No item found with this id")
	}
	return nil
}

func (r *ItemRepository) supplierExists(id uint) error {
	var count int64
	if err := r.db.Model(&model.Supplier{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("Supplier not found")
	}
	return nil
}

package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"procurement-service/internal/apperr"
	"procurement-service/internal/model"
	"procurement-service/internal/pricing"
	"procurement-service/internal/sequence"
	"procurement-service/prometheus"
)

// CreateOrderInput is the validated input for assembling a new order.
type CreateOrderInput struct {
	SupplierID uint
	OrderDate  time.Time
	Lines      []pricing.RequestedLine
}

// UpdateOrderInput is a partial order patch. A nil Lines slice leaves the
// lines untouched; a non-nil slice replaces them and recomputes the totals
// through the pricing engine, so persisted totals can never go stale.
type UpdateOrderInput struct {
	SupplierID *uint
	OrderDate  *time.Time
	Lines      []pricing.RequestedLine
}

// OrderRepository assembles and stores purchase orders. Creation validates
// the supplier reference, prices the lines, stamps the next order number and
// persists everything in a single transaction.
type OrderRepository struct {
	db     *gorm.DB
	engine *pricing.Engine
}

func NewOrderRepository(db *gorm.DB, items *ItemRepository) *OrderRepository {
	return &OrderRepository{db: db, engine: pricing.NewEngine(items)}
}

// Create builds and persists a new order. Nothing is written when the
// supplier or any line item fails to resolve.
func (r *OrderRepository) Create(input CreateOrderInput) (*model.Order, error) {
	if err := r.supplierExists(input.SupplierID); err != nil {
		return nil, err
	}

	priced, err := r.engine.PriceOrder(input.Lines)
	if err != nil {
		return nil, err
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	var orderID uint
	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := sequence.Order.Next(r.db)
		if err != nil {
			return nil, err
		}

		order := model.Order{
			OrderNo:       code,
			OrderDate:     orderDate,
			SupplierID:    input.SupplierID,
			Lines:         priced.Lines,
			ItemTotal:     priced.ItemTotal,
			DiscountTotal: priced.DiscountTotal,
			NetAmount:     priced.NetAmount,
		}

		err = r.db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&order).Error
		})
		if err == nil {
			orderID = order.ID
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		prometheus.RecordSequenceRetry("order")
		for i := range priced.Lines {
			priced.Lines[i].ID = 0
			priced.Lines[i].OrderID = 0
		}
	}
	if orderID == 0 {
		return nil, apperr.Conflict("Could not allocate a unique order number, please retry.")
	}
	return r.GetByID(orderID)
}

// GetByID returns an order with its supplier and line items populated.
func (r *OrderRepository) GetByID(id uint) (*model.Order, error) {
	var order model.Order
	err := r.db.Preload("Supplier").Preload("Lines.Item").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns one page of orders, fully populated for listing tables.
func (r *OrderRepository) List(page, limit int) ([]model.Order, error) {
	var orders []model.Order
	offset := (page - 1) * limit
	err := r.db.Preload("Supplier").Preload("Lines.Item").
		Limit(limit).Offset(offset).Find(&orders).Error
	return orders, err
}

// ListAll returns every order, populated, for the spreadsheet export.
func (r *OrderRepository) ListAll() ([]model.Order, error) {
	var orders []model.Order
	err := r.db.Preload("Supplier").Preload("Lines.Item").Find(&orders).Error
	return orders, err
}

// Count returns the total number of orders.
func (r *OrderRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Order{}).Count(&count).Error
	return count, err
}

// Update applies a partial patch. When the patch touches the lines, they are
// re-priced and replaced atomically together with the totals. The order
// number is immutable.
func (r *OrderRepository) Update(id uint, input UpdateOrderInput) (*model.Order, error) {
	order, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	if input.SupplierID != nil {
		if err := r.supplierExists(*input.SupplierID); err != nil {
			return nil, err
		}
	}

	var priced *pricing.Result
	if input.Lines != nil {
		priced, err = r.engine.PriceOrder(input.Lines)
		if err != nil {
			return nil, err
		}
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if input.SupplierID != nil {
			updates["supplier_id"] = *input.SupplierID
		}
		if input.OrderDate != nil {
			updates["order_date"] = *input.OrderDate
		}
		if priced != nil {
			updates["item_total"] = priced.ItemTotal
			updates["discount_total"] = priced.DiscountTotal
			updates["net_amount"] = priced.NetAmount
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		if priced != nil {
			if err := tx.Where("order_id = ?", id).Delete(&model.OrderLine{}).Error; err != nil {
				return err
			}
			for i := range priced.Lines {
				priced.Lines[i].OrderID = order.ID
			}
			if err := tx.Create(&priced.Lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// Delete hard-deletes an order and its lines. No referencing records are
// recomputed.
func (r *OrderRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&model.OrderLine{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.Order{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.NotFound("Order not found")
		}
		return nil
	})
}

func (r *OrderRepository) supplierExists(id uint) error {
	var count int64
	if err := r.db.Model(&model.Supplier{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("Supplier not found")
	}
	return nil
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a purchase order with its embedded lines. The monetary
// totals are derived at creation time and persisted for fast listing.
type Order struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	OrderNo       string          `json:"orderNo" gorm:"type:varchar(20);uniqueIndex;not null"`
	OrderDate     time.Time       `json:"orderDate"`
	SupplierID    uint            `json:"supplierId" gorm:"index;not null"`
	Supplier      *Supplier       `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Lines         []OrderLine     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ItemTotal     decimal.Decimal `json:"itemTotal" gorm:"type:decimal(14,2);not null"`
	DiscountTotal decimal.Decimal `json:"discountTotal" gorm:"type:decimal(14,2);not null"`
	NetAmount     decimal.Decimal `json:"netAmount" gorm:"type:decimal(14,2);not null"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// OrderLine is a single priced line on an order. ItemAmount and NetAmount
// snapshot the item's unit price at order time; later price changes do not
// touch existing orders.
type OrderLine struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	OrderID    uint            `json:"orderId" gorm:"index;not null"`
	ItemID     uint            `json:"itemId" gorm:"index;not null"`
	Item       *Item           `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	OrderQty   decimal.Decimal `json:"orderQty" gorm:"type:decimal(12,3);not null"`
	Discount   decimal.Decimal `json:"discount" gorm:"type:decimal(12,2);not null"`
	ItemAmount decimal.Decimal `json:"itemAmount" gorm:"type:decimal(14,2);not null"`
	NetAmount  decimal.Decimal `json:"netAmount" gorm:"type:decimal(14,2);not null"`
}

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Item statuses as exposed through the API.
const (
	ItemStatusEnabled  = "Enabled"
	ItemStatusDisabled = "Disabled"
)

// StockUnits lists the accepted stock units for an item.
var StockUnits = []string{"kg", "g", "liters", "pcs"}

// ImageList stores an ordered list of image paths as a JSON column.
type ImageList []string

// Value implements driver.Valuer.
func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		l = ImageList{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *ImageList) Scan(value interface{}) error {
	if value == nil {
		*l = ImageList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported image list column type %T", value)
	}
}

// Item represents the inventory item model stored in the database.
// ItemNo is assigned once on first save; ItemImages is populated
// asynchronously after creation.
type Item struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	ItemNo            string          `json:"itemNo" gorm:"type:varchar(20);uniqueIndex;not null"`
	ItemName          string          `json:"itemName" gorm:"type:varchar(100);uniqueIndex;not null"`
	InventoryLocation string          `json:"inventoryLocation" gorm:"type:varchar(100)"`
	Brand             string          `json:"brand" gorm:"type:varchar(100)"`
	Category          string          `json:"category" gorm:"type:varchar(100)"`
	SupplierID        uint            `json:"supplierId" gorm:"index;not null"`
	Supplier          *Supplier       `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	StockUnit         string          `json:"stockUnit" gorm:"type:varchar(10);not null"`
	UnitPrice         decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null"`
	ItemImages        ImageList       `json:"itemImages" gorm:"type:text"`
	Status            string          `json:"status" gorm:"type:varchar(20);default:'Enabled'"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ItemOption is the projection used to prefill an order line.
type ItemOption struct {
	ID        uint            `json:"id"`
	ItemNo    string          `json:"itemNo"`
	ItemName  string          `json:"itemName"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	StockUnit string          `json:"stockUnit"`
}

// ValidStockUnit reports whether unit is one of the accepted stock units.
func ValidStockUnit(unit string) bool {
	for _, u := range StockUnits {
		if u == unit {
			return true
		}
	}
	return false
}

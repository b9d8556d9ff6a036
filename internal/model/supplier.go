package model

import "time"

// Supplier statuses as exposed through the API.
const (
	SupplierStatusActive   = "Active"
	SupplierStatusInactive = "Inactive"
	SupplierStatusBlocked  = "Blocked"
)

// Supplier represents the supplier model stored in the database.
// SupplierNo is assigned once on first save and never changes afterwards.
type Supplier struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	SupplierNo   string    `json:"supplierNo" gorm:"type:varchar(20);uniqueIndex;not null"`
	SupplierName string    `json:"supplierName" gorm:"type:varchar(100);index;not null"`
	Address      string    `json:"address" gorm:"type:text"`
	TaxNo        string    `json:"taxNo" gorm:"type:varchar(50)"`
	Country      string    `json:"country" gorm:"type:varchar(50);not null"`
	MobileNo     string    `json:"mobileNo" gorm:"type:varchar(20);not null"`
	Email        string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Status       string    `json:"status" gorm:"type:varchar(20);default:'Active'"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SupplierOption is the minimal projection used by selection widgets.
type SupplierOption struct {
	ID           uint   `json:"id"`
	SupplierNo   string `json:"supplierNo"`
	SupplierName string `json:"supplierName"`
}

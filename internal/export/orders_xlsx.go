// Package export renders orders into a spreadsheet for download.
package export

import (
	"github.com/xuri/excelize/v2"

	"procurement-service/internal/model"
)

const ordersSheet = "Orders"

var ordersHeader = []string{
	"Order No", "Order Date", "Supplier No", "Supplier Name",
	"Line Items", "Item Total", "Discount Total", "Net Amount",
}

// OrdersWorkbook builds an xlsx workbook with one row per order.
func OrdersWorkbook(orders []model.Order) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, err
	}

	for col, title := range ordersHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(ordersSheet, cell, title); err != nil {
			return nil, err
		}
	}

	for row, order := range orders {
		supplierNo, supplierName := "", ""
		if order.Supplier != nil {
			supplierNo = order.Supplier.SupplierNo
			supplierName = order.Supplier.SupplierName
		}
		values := []interface{}{
			order.OrderNo,
			order.OrderDate.Format("2006-01-02"),
			supplierNo,
			supplierName,
			len(order.Lines),
			order.ItemTotal.InexactFloat64(),
			order.DiscountTotal.InexactFloat64(),
			order.NetAmount.InexactFloat64(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(ordersSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(ordersSheet, "A", "H", 18); err != nil {
		return nil, err
	}
	return f, nil
}

// Package pricing computes per-line amounts and order-level totals for a
// purchase order. The engine is a pure computation over resolved item
// snapshots; it never writes and never reserves stock.
package pricing

import (
	"github.com/shopspring/decimal"

	"procurement-service/internal/apperr"
	"procurement-service/internal/model"
)

// RequestedLine is one line of an incoming order request.
type RequestedLine struct {
	ItemID   uint
	OrderQty decimal.Decimal
	Discount decimal.Decimal
}

// ItemResolver resolves an item reference to its current persisted record.
type ItemResolver interface {
	ResolveItem(id uint) (*model.Item, error)
}

// Result carries the priced lines (in request order) and the order totals.
type Result struct {
	Lines         []model.OrderLine
	ItemTotal     decimal.Decimal
	DiscountTotal decimal.Decimal
	NetAmount     decimal.Decimal
}

// Engine prices order requests against an item resolver.
type Engine struct {
	items ItemResolver
}

func NewEngine(items ItemResolver) *Engine {
	return &Engine{items: items}
}

// PriceOrder resolves every requested line and computes the order totals.
// Any unresolvable item fails the whole operation; no partial result is
// returned. A discount larger than the line amount is accepted and yields a
// negative line net amount.
func (e *Engine) PriceOrder(lines []RequestedLine) (*Result, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("Items are required")
	}

	result := &Result{Lines: make([]model.OrderLine, 0, len(lines))}
	for _, line := range lines {
		if !line.OrderQty.IsPositive() {
			return nil, apperr.Validation("orderQty must be a positive number")
		}
		if line.Discount.IsNegative() {
			return nil, apperr.Validation("discount must not be negative")
		}

		item, err := e.items.ResolveItem(line.ItemID)
		if err != nil {
			return nil, err
		}

		// Unit price snapshot at order time; later item price changes
		// must not retroactively affect this order.
		itemAmount := line.OrderQty.Mul(item.UnitPrice)
		netAmount := itemAmount.Sub(line.Discount)

		result.Lines = append(result.Lines, model.OrderLine{
			ItemID:     item.ID,
			OrderQty:   line.OrderQty,
			Discount:   line.Discount,
			ItemAmount: itemAmount,
			NetAmount:  netAmount,
		})
		result.ItemTotal = result.ItemTotal.Add(itemAmount)
		result.DiscountTotal = result.DiscountTotal.Add(line.Discount)
	}

	result.NetAmount = result.ItemTotal.Sub(result.DiscountTotal)
	return result, nil
}

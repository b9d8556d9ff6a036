// Package sequence assigns the human-readable codes (SUP-7, ITM-012, ORD-42)
// stamped onto suppliers, items and orders at creation time.
package sequence

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Kind describes the code scheme for one entity kind.
type Kind struct {
	Prefix string
	Pad    int // minimum digits, 0 for no padding
	table  string
	column string
}

var (
	Supplier = Kind{Prefix: "SUP-", table: "suppliers", column: "supplier_no"}
	Item     = Kind{Prefix: "ITM-", Pad: 3, table: "items", column: "item_no"}
	Order    = Kind{Prefix: "ORD-", table: "orders", column: "order_no"}
)

// Format renders n as a code of this kind.
func (k Kind) Format(n int) string {
	if k.Pad > 0 {
		return fmt.Sprintf("%s%0*d", k.Prefix, k.Pad, n)
	}
	return fmt.Sprintf("%s%d", k.Prefix, n)
}

// NextCode computes the code following lastCode. An empty or unparsable
// lastCode counts as 0, so the first code of a kind is number 1.
func (k Kind) NextCode(lastCode string) string {
	last := 0
	if lastCode != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(lastCode, k.Prefix)); err == nil {
			last = n
		}
	}
	return k.Format(last + 1)
}

// LastCode returns the highest-numbered existing code of this kind, or the
// empty string when none exist. Ordering by length before value compares the
// numeric suffix correctly for a fixed-prefix scheme (SUP-10 > SUP-9).
func (k Kind) LastCode(db *gorm.DB) (string, error) {
	var code string
	err := db.Table(k.table).
		Select(k.column).
		Order(fmt.Sprintf("length(%s) DESC, %s DESC", k.column, k.column)).
		Limit(1).
		Scan(&code).Error
	if err != nil {
		return "", err
	}
	return code, nil
}

// Next reads the current max code and computes its successor. Two concurrent
// creators can read the same max and compute identical codes; the unique
// index on the code column is the backstop, and the repositories retry once
// the insert fails with a duplicate key.
func (k Kind) Next(db *gorm.DB) (string, error) {
	last, err := k.LastCode(db)
	if err != nil {
		return "", err
	}
	return k.NextCode(last), nil
}

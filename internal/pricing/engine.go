// Package pricing computes order totals from catalog snapshots. It is
// deliberately pure: no I/O, no clocks, deterministic for a given input.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/dcastano/orders-ms/internal/domain"
)

// Valuation is the result of pricing a set of requested items against
// catalog snapshots. Line order matches the request order.
type Valuation struct {
	Lines       []domain.OrderItem
	TotalAmount decimal.Decimal
	TotalItems  int
}

// Price resolves each requested item against the snapshots and sums the
// totals. A requested product id with no matching snapshot aborts the whole
// valuation; there are no partial totals. Duplicate product ids across
// lines are each priced independently from the same snapshot.
func Price(items []domain.RequestedItem, snapshots []domain.ProductSnapshot) (*Valuation, error) {
	byID := make(map[string]domain.ProductSnapshot, len(snapshots))
	for _, s := range snapshots {
		byID[s.ID] = s
	}

	v := &Valuation{
		Lines:       make([]domain.OrderItem, 0, len(items)),
		TotalAmount: decimal.Zero,
	}

	for _, item := range items {
		snapshot, ok := byID[item.ProductID]
		if !ok {
			return nil, domain.NewUnknownProductError(item.ProductID)
		}

		v.Lines = append(v.Lines, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     snapshot.Price,
			Name:      snapshot.Name,
		})
		v.TotalAmount = v.TotalAmount.Add(snapshot.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		v.TotalItems += item.Quantity
	}

	return v, nil
}

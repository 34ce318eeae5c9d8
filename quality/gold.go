package quality

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// GoldChecks returns the checks run on the record sets built in a load.
func GoldChecks(g schema.GoldSet) []Check {
	return []Check{
		newUniqueKeyCheck("customer_key_unique", schema.DimCustomers, g.Customers, func(c schema.CustomerDim) string {
			return strconv.FormatInt(c.Key, 10)
		}),
		newUniqueKeyCheck("customer_number_unique", schema.DimCustomers, g.Customers, func(c schema.CustomerDim) string {
			return c.CustomerNumber
		}),
		newUniqueKeyCheck("product_key_unique", schema.DimProducts, g.Products, func(p schema.ProductDim) string {
			return strconv.FormatInt(p.Key, 10)
		}),
		newUniqueKeyCheck("product_number_unique", schema.DimProducts, g.Products, func(p schema.ProductDim) string {
			return p.ProductNumber
		}),
		&ReferentialCheck{gold: g},
		&UnresolvedReferenceCheck{sales: g.Sales},
		&SalesAmountCheck{sales: g.Sales},
		&DateOrderCheck{sales: g.Sales},
	}
}

func newResult(c Check, dataset schema.Table, rows int) Result {
	return Result{
		CheckName: c.Name(),
		CheckType: c.Type(),
		Dataset:   dataset.String(),
		RowCount:  rows,
		CreatedAt: time.Now(),
	}
}

// UniqueKeyCheck verifies that a key occurs at most once in a record set.
type UniqueKeyCheck[T any] struct {
	name    string
	dataset schema.Table
	records []T
	key     func(T) string
}

func newUniqueKeyCheck[T any](name string, dataset schema.Table, records []T, key func(T) string) *UniqueKeyCheck[T] {
	return &UniqueKeyCheck[T]{name: name, dataset: dataset, records: records, key: key}
}

func (c *UniqueKeyCheck[T]) Name() string { return c.name }
func (c *UniqueKeyCheck[T]) Type() string { return "uniqueness" }

func (c *UniqueKeyCheck[T]) Run(ctx context.Context) Result {
	result := newResult(c, c.dataset, len(c.records))

	seen := make(map[string]struct{}, len(c.records))
	duplicates := 0
	for _, r := range c.records {
		k := c.key(r)
		if _, ok := seen[k]; ok {
			duplicates++
			continue
		}
		seen[k] = struct{}{}
	}

	result.Passed = duplicates == 0
	if result.Passed {
		result.Details = fmt.Sprintf("All %d keys are unique", len(c.records))
	} else {
		result.Details = fmt.Sprintf("Found %d duplicate keys", duplicates)
	}
	return result
}

// ReferentialCheck verifies that every non-nil fact key exists in its
// dimension.
type ReferentialCheck struct {
	gold schema.GoldSet
}

func (c *ReferentialCheck) Name() string { return "fact_references_exist" }
func (c *ReferentialCheck) Type() string { return "consistency" }

func (c *ReferentialCheck) Run(ctx context.Context) Result {
	result := newResult(c, schema.FactSales, len(c.gold.Sales))

	customers := make(map[int64]struct{}, len(c.gold.Customers))
	for _, d := range c.gold.Customers {
		customers[d.Key] = struct{}{}
	}
	products := make(map[int64]struct{}, len(c.gold.Products))
	for _, d := range c.gold.Products {
		products[d.Key] = struct{}{}
	}

	dangling := 0
	for _, f := range c.gold.Sales {
		if f.CustomerKey != nil {
			if _, ok := customers[*f.CustomerKey]; !ok {
				dangling++
			}
		}
		if f.ProductKey != nil {
			if _, ok := products[*f.ProductKey]; !ok {
				dangling++
			}
		}
	}

	result.Passed = dangling == 0
	if result.Passed {
		result.Details = "All fact keys reference existing dimension rows"
	} else {
		result.Details = fmt.Sprintf("Found %d keys without a dimension row", dangling)
	}
	return result
}

// UnresolvedReferenceCheck counts sales lines whose customer or product did
// not resolve. The lines are kept with a NULL key.
type UnresolvedReferenceCheck struct {
	sales []schema.SalesFact
}

func (c *UnresolvedReferenceCheck) Name() string { return "fact_references_resolved" }
func (c *UnresolvedReferenceCheck) Type() string { return Completeness }

func (c *UnresolvedReferenceCheck) Run(ctx context.Context) Result {
	result := newResult(c, schema.FactSales, len(c.sales))

	var customers, products int
	for _, f := range c.sales {
		if f.CustomerKey == nil {
			customers++
		}
		if f.ProductKey == nil {
			products++
		}
	}

	result.NullAnomalies = customers + products
	result.Passed = result.NullAnomalies == 0
	result.Details = fmt.Sprintf("%d unresolved customer keys, %d unresolved product keys", customers, products)
	return result
}

// SalesAmountCheck verifies sales = quantity * price on every line with a
// quantity.
type SalesAmountCheck struct {
	sales []schema.SalesFact
}

func (c *SalesAmountCheck) Name() string { return "sales_amount_consistent" }
func (c *SalesAmountCheck) Type() string { return "validity" }

func (c *SalesAmountCheck) Run(ctx context.Context) Result {
	result := newResult(c, schema.FactSales, len(c.sales))

	mismatched := 0
	for _, f := range c.sales {
		if f.Quantity == nil {
			result.NullAnomalies++
			continue
		}
		want := f.Price.Mul(decimal.NewFromInt(*f.Quantity))
		if !f.SalesAmount.Equal(want) {
			mismatched++
		}
	}

	result.Passed = mismatched == 0
	result.Details = fmt.Sprintf("%d lines where sales_amount != quantity * price", mismatched)
	return result
}

// DateOrderCheck verifies that no line ships or falls due before it was
// ordered.
type DateOrderCheck struct {
	sales []schema.SalesFact
}

func (c *DateOrderCheck) Name() string { return "sales_date_order" }
func (c *DateOrderCheck) Type() string { return "validity" }

func (c *DateOrderCheck) Run(ctx context.Context) Result {
	result := newResult(c, schema.FactSales, len(c.sales))

	invalid := 0
	for _, f := range c.sales {
		if f.OrderDate == nil {
			result.NullAnomalies++
			continue
		}
		if before(f.ShippingDate, f.OrderDate) || before(f.DueDate, f.OrderDate) {
			invalid++
		}
	}

	result.Passed = invalid == 0
	result.Details = fmt.Sprintf("%d lines shipped or due before the order date", invalid)
	return result
}

func before(a, b *time.Time) bool {
	return a != nil && b != nil && a.Before(*b)
}

package quality

import (
	"context"
	"fmt"

	"github.com/withObsrvr/medallion-warehouse/schema"
	"github.com/withObsrvr/medallion-warehouse/store"
)

// SQLCheck counts violating rows with a single scalar query. The check
// passes when the count is zero.
type SQLCheck struct {
	name    string
	typ     string
	dataset schema.Table
	query   string
	q       store.Querier
}

func (c *SQLCheck) Name() string  { return c.name }
func (c *SQLCheck) Type() string  { return c.typ }
func (c *SQLCheck) Query() string { return c.query }

func (c *SQLCheck) Run(ctx context.Context) Result {
	result := newResult(c, c.dataset, 0)

	rows, err := c.q.Count(ctx, c.dataset)
	if err != nil {
		result.Details = err.Error()
		return result
	}
	result.RowCount = int(rows)

	violations, err := c.q.QueryInt(ctx, c.query)
	if err != nil {
		result.Details = fmt.Sprintf("query failed: %v", err)
		return result
	}

	result.Passed = violations == 0
	result.Details = fmt.Sprintf("%d violating rows", violations)
	return result
}

// SQLChecks returns the checks that run against a loaded store.
func SQLChecks(q store.Querier) []Check {
	cust := q.Qualified(schema.DimCustomers)
	prod := q.Qualified(schema.DimProducts)
	fact := q.Qualified(schema.FactSales)
	silverCust := q.Qualified(schema.SilverCRMCustomers)
	silverProd := q.Qualified(schema.SilverCRMProducts)
	silverSales := q.Qualified(schema.SilverCRMSales)

	checks := []struct {
		name, typ string
		dataset   schema.Table
		query     string
	}{
		{"silver_customer_key_unique", "uniqueness", schema.SilverCRMCustomers,
			duplicates(silverCust, "cst_key")},
		{"silver_customer_names_trimmed", "validity", schema.SilverCRMCustomers,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE cst_firstname <> TRIM(cst_firstname) OR cst_lastname <> TRIM(cst_lastname)", silverCust)},
		{"silver_product_key_unique", "uniqueness", schema.SilverCRMProducts,
			duplicates(silverProd, "prd_key")},
		{"silver_product_cost_valid", "validity", schema.SilverCRMProducts,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE prd_cost IS NULL OR prd_cost < 0", silverProd)},
		{"silver_product_dates_ordered", "validity", schema.SilverCRMProducts,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE prd_end_dt < prd_start_dt", silverProd)},
		{"silver_sales_dates_ordered", "validity", schema.SilverCRMSales,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE sls_order_dt > sls_ship_dt OR sls_order_dt > sls_due_dt", silverSales)},
		{"customer_key_unique", "uniqueness", schema.DimCustomers,
			duplicates(cust, "customer_key")},
		{"product_key_unique", "uniqueness", schema.DimProducts,
			duplicates(prod, "product_key")},
		{"fact_customer_exists", "consistency", schema.FactSales,
			orphans(fact, cust, "customer_key")},
		{"fact_product_exists", "consistency", schema.FactSales,
			orphans(fact, prod, "product_key")},
		{"fact_references_resolved", Completeness, schema.FactSales,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE customer_key IS NULL OR product_key IS NULL", fact)},
	}

	out := make([]Check, len(checks))
	for i, c := range checks {
		out[i] = &SQLCheck{name: c.name, typ: c.typ, dataset: c.dataset, query: c.query, q: q}
	}
	return out
}

func duplicates(table, column string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM (SELECT %[2]s FROM %[1]s WHERE %[2]s IS NOT NULL GROUP BY %[2]s HAVING COUNT(*) > 1) d", table, column)
}

func orphans(fact, dim, key string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %[1]s f LEFT JOIN %[2]s d ON f.%[3]s = d.%[3]s WHERE f.%[3]s IS NOT NULL AND d.%[3]s IS NULL", fact, dim, key)
}

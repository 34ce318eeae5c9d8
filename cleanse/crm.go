package cleanse

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// Customers cleanses CRM customers and keeps one row per customer key, the
// most recently created.
func Customers(raw []schema.CRMCustomerRaw, processedAt time.Time) []schema.CRMCustomer {
	out := make([]schema.CRMCustomer, 0, len(raw))
	for _, r := range raw {
		key := trimmed(r.Key)
		if key == "" {
			continue
		}
		out = append(out, schema.CRMCustomer{
			ID:            r.ID,
			Key:           key,
			FirstName:     Name(r.FirstName),
			LastName:      Name(r.LastName),
			MaritalStatus: MaritalStatus(r.MaritalStatus),
			Gender:        Gender(r.Gender),
			CreateDate:    r.CreateDate,
			ProcessedAt:   processedAt,
		})
	}

	return latestPerKey(out,
		func(c schema.CRMCustomer) string { return c.Key },
		func(c schema.CRMCustomer) *time.Time { return c.CreateDate })
}

// SplitProductKey splits a raw CRM product key such as "CO-RF-FR-R92B-58"
// into its category code ("CO_RF") and product number ("FR-R92B-58"). Keys
// too short to carry a category are returned as the product number.
func SplitProductKey(raw string) (categoryID, productNumber string) {
	if len(raw) <= 6 {
		return "", raw
	}
	return strings.ReplaceAll(raw[:5], "-", "_"), raw[6:]
}

// Products cleanses CRM products and keeps one row per product number, the
// one with the latest start date.
func Products(raw []schema.CRMProductRaw, processedAt time.Time) []schema.CRMProduct {
	out := make([]schema.CRMProduct, 0, len(raw))
	for _, r := range raw {
		key := trimmed(r.Key)
		if key == "" {
			continue
		}
		categoryID, number := SplitProductKey(key)

		cost := decimal.Zero
		if r.Cost != nil {
			cost = decimal.NewFromInt(*r.Cost)
		}

		end := r.EndDate
		if end != nil && r.StartDate != nil && end.Before(*r.StartDate) {
			end = nil
		}

		out = append(out, schema.CRMProduct{
			ID:          r.ID,
			CategoryID:  categoryID,
			Key:         number,
			Name:        trimmed(r.Name),
			Cost:        cost,
			Line:        ProductLine(r.Line),
			StartDate:   r.StartDate,
			EndDate:     end,
			ProcessedAt: processedAt,
		})
	}

	return latestPerKey(out,
		func(p schema.CRMProduct) string { return p.Key },
		func(p schema.CRMProduct) *time.Time { return p.StartDate })
}

// SalesDate converts a YYYYMMDD integer into a date. Zero, negative,
// wrongly sized or impossible values yield nil.
func SalesDate(v *int64) *time.Time {
	if v == nil || *v <= 0 {
		return nil
	}
	s := strconv.FormatInt(*v, 10)
	if len(s) != 8 {
		return nil
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return nil
	}
	return &t
}

// SalesAmounts repairs a sales line's amount and unit price. The amount must
// equal quantity × |price|; the price is derived from amount / quantity when
// it is missing or not positive.
func SalesAmounts(sales, quantity, price *int64) (amount, unitPrice decimal.Decimal) {
	qty := decimal.Zero
	if quantity != nil {
		qty = decimal.NewFromInt(*quantity)
	}
	absPrice := decimal.Zero
	if price != nil {
		absPrice = decimal.NewFromInt(*price).Abs()
	}
	expected := qty.Mul(absPrice)

	amount = expected
	if sales != nil {
		s := decimal.NewFromInt(*sales)
		if s.IsPositive() && s.Equal(expected) {
			amount = s
		}
	}

	if price != nil && *price > 0 {
		return amount, decimal.NewFromInt(*price)
	}
	if qty.IsZero() {
		return amount, decimal.Zero
	}
	return amount, amount.Div(qty).Round(2)
}

// Sales cleanses CRM sales lines. Lines are never dropped or deduplicated:
// an order may span several lines.
func Sales(raw []schema.CRMSaleRaw, processedAt time.Time) []schema.CRMSale {
	out := make([]schema.CRMSale, 0, len(raw))
	for _, r := range raw {
		amount, price := SalesAmounts(r.Sales, r.Quantity, r.Price)
		out = append(out, schema.CRMSale{
			OrderNumber: trimmed(r.OrderNumber),
			ProductKey:  trimmed(r.ProductKey),
			CustomerID:  r.CustomerID,
			OrderDate:   SalesDate(r.OrderDate),
			ShipDate:    SalesDate(r.ShipDate),
			DueDate:     SalesDate(r.DueDate),
			Sales:       amount,
			Quantity:    r.Quantity,
			Price:       price,
			ProcessedAt: processedAt,
		})
	}
	return out
}

package conform

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// ErrAmbiguousKey means a natural key matched more than one row on the side
// of a join that must be unique. Cleansing guarantees this cannot happen, so
// it is reported as a data-quality violation rather than resolved.
var ErrAmbiguousKey = errors.New("natural key is not unique")

// KeySequence hands out surrogate keys starting at 1. A new sequence is used
// for every rebuild, so keys are only meaningful within one run.
type KeySequence struct {
	next int64
}

func NewKeySequence() *KeySequence {
	return &KeySequence{next: 1}
}

func (s *KeySequence) Next() int64 {
	k := s.next
	s.next++
	return k
}

// CustomerStats describes the customer dimension join.
type CustomerStats struct {
	Rows                int
	DemographicsMatched int
	LocationsMatched    int
	// ERP-only keys are dropped because CRM is the driving set.
	ERPOnlyDemographics int
	ERPOnlyLocations    int
}

// ProductStats describes the product dimension join.
type ProductStats struct {
	Rows              int
	CategoriesMatched int
	UnusedCategories  int
}

// FactStats describes the sales fact join.
type FactStats struct {
	Rows                int
	UnresolvedProducts  int
	UnresolvedCustomers int
}

// uniqueIndex indexes records by key and fails on the first repeated key.
func uniqueIndex[T any](table string, records []T, key func(T) string) (map[string]*T, error) {
	index := make(map[string]*T, len(records))
	for i := range records {
		k := key(records[i])
		if _, dup := index[k]; dup {
			return nil, fmt.Errorf("%w: %s key %q", ErrAmbiguousKey, table, k)
		}
		index[k] = &records[i]
	}
	return index, nil
}

// BuildCustomerDimension left-joins CRM customers to ERP demographics and
// locations. Every CRM customer yields exactly one row; ERP-only customers
// are dropped and counted.
func BuildCustomerDimension(customers []schema.CRMCustomer, demos []schema.ERPDemographic, locs []schema.ERPLocation) ([]schema.CustomerDim, CustomerStats, error) {
	var stats CustomerStats

	if _, err := uniqueIndex(schema.SilverCRMCustomers.String(), customers, func(c schema.CRMCustomer) string { return c.Key }); err != nil {
		return nil, stats, err
	}
	demoIndex, err := uniqueIndex(schema.SilverERPDemographics.String(), demos, func(d schema.ERPDemographic) string { return d.CID })
	if err != nil {
		return nil, stats, err
	}
	locIndex, err := uniqueIndex(schema.SilverERPLocations.String(), locs, func(l schema.ERPLocation) string { return l.CID })
	if err != nil {
		return nil, stats, err
	}

	keys := NewKeySequence()
	dims := make([]schema.CustomerDim, 0, len(customers))
	for _, c := range customers {
		demo := demoIndex[c.Key]
		loc := locIndex[c.Key]
		if demo != nil {
			stats.DemographicsMatched++
		}
		if loc != nil {
			stats.LocationsMatched++
		}

		d := ResolveCustomer(c, demo, loc)
		d.Key = keys.Next()
		dims = append(dims, d)
	}

	stats.Rows = len(dims)
	stats.ERPOnlyDemographics = len(demoIndex) - stats.DemographicsMatched
	stats.ERPOnlyLocations = len(locIndex) - stats.LocationsMatched
	return dims, stats, nil
}

// BuildProductDimension left-joins CRM products to ERP categories on the
// category code.
func BuildProductDimension(products []schema.CRMProduct, categories []schema.ERPCategory) ([]schema.ProductDim, ProductStats, error) {
	var stats ProductStats

	if _, err := uniqueIndex(schema.SilverCRMProducts.String(), products, func(p schema.CRMProduct) string { return p.Key }); err != nil {
		return nil, stats, err
	}
	catIndex, err := uniqueIndex(schema.SilverERPCategories.String(), categories, func(c schema.ERPCategory) string { return c.ID })
	if err != nil {
		return nil, stats, err
	}

	used := make(map[string]struct{})
	keys := NewKeySequence()
	dims := make([]schema.ProductDim, 0, len(products))
	for _, p := range products {
		cat := catIndex[p.CategoryID]
		if cat != nil {
			stats.CategoriesMatched++
			used[p.CategoryID] = struct{}{}
		}

		d := ResolveProduct(p, cat)
		d.Key = keys.Next()
		dims = append(dims, d)
	}

	stats.Rows = len(dims)
	stats.UnusedCategories = len(catIndex) - len(used)
	return dims, stats, nil
}

// BuildSalesFact left-joins sales lines to the dimensions built in the same
// run, on product number and customer id. Lines whose references do not
// resolve keep a nil surrogate key; no line is ever dropped.
func BuildSalesFact(sales []schema.CRMSale, customers []schema.CustomerDim, products []schema.ProductDim) ([]schema.SalesFact, FactStats, error) {
	var stats FactStats

	productIndex, err := uniqueIndex(schema.DimProducts.String(), products, func(p schema.ProductDim) string { return p.ProductNumber })
	if err != nil {
		return nil, stats, err
	}

	withID := make([]schema.CustomerDim, 0, len(customers))
	for _, c := range customers {
		if c.CustomerID != nil {
			withID = append(withID, c)
		}
	}
	customerIndex, err := uniqueIndex(schema.DimCustomers.String(), withID, func(c schema.CustomerDim) string { return idKey(c.CustomerID) })
	if err != nil {
		return nil, stats, err
	}

	facts := make([]schema.SalesFact, 0, len(sales))
	for _, s := range sales {
		f := schema.SalesFact{
			OrderNumber:  s.OrderNumber,
			OrderDate:    s.OrderDate,
			ShippingDate: s.ShipDate,
			DueDate:      s.DueDate,
			SalesAmount:  s.Sales,
			Quantity:     s.Quantity,
			Price:        s.Price,
		}

		if p, ok := productIndex[s.ProductKey]; ok && s.ProductKey != "" {
			key := p.Key
			f.ProductKey = &key
		} else {
			stats.UnresolvedProducts++
		}

		if c, ok := customerIndex[idKey(s.CustomerID)]; ok && s.CustomerID != nil {
			key := c.Key
			f.CustomerKey = &key
		} else {
			stats.UnresolvedCustomers++
		}

		facts = append(facts, f)
	}

	stats.Rows = len(facts)
	return facts, stats, nil
}

func idKey(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

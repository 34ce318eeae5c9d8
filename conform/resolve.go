// Package conform builds the star schema from the cleansed layer: the
// customer and product dimensions with run-local surrogate keys, and the
// sales fact that references them.
package conform

import (
	"github.com/withObsrvr/medallion-warehouse/cleanse"
	"github.com/withObsrvr/medallion-warehouse/schema"
)

// ResolveGender prefers the CRM gender unless it is missing or Unknown, then
// falls back to the ERP gender, then to Unknown.
func ResolveGender(crm, erp string) string {
	if known(crm) {
		return crm
	}
	if known(erp) {
		return erp
	}
	return cleanse.Unknown
}

func known(v string) bool {
	return v != "" && v != cleanse.Unknown
}

// ResolveCustomer merges a CRM customer with its ERP demographic and location
// rows, either of which may be nil. The surrogate key is left at zero.
func ResolveCustomer(c schema.CRMCustomer, demo *schema.ERPDemographic, loc *schema.ERPLocation) schema.CustomerDim {
	d := schema.CustomerDim{
		CustomerID:     c.ID,
		CustomerNumber: c.Key,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Country:        cleanse.Unknown,
		MaritalStatus:  c.MaritalStatus,
		CreateDate:     c.CreateDate,
	}

	erpGender := ""
	if demo != nil {
		d.BirthDate = demo.BirthDate
		erpGender = demo.Gender
	}
	d.Gender = ResolveGender(c.Gender, erpGender)

	if loc != nil && loc.Country != "" {
		d.Country = loc.Country
	}
	return d
}

// ResolveProduct merges a CRM product with its ERP category, which may be
// nil. The surrogate key is left at zero.
func ResolveProduct(p schema.CRMProduct, cat *schema.ERPCategory) schema.ProductDim {
	d := schema.ProductDim{
		ProductID:     p.ID,
		ProductNumber: p.Key,
		Name:          p.Name,
		CategoryID:    p.CategoryID,
		Line:          p.Line,
		Cost:          p.Cost,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
	}
	if cat != nil {
		d.Category = optional(cat.Category)
		d.Subcategory = optional(cat.Subcategory)
		d.Maintenance = optional(cat.Maintenance)
	}
	return d
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

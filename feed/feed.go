// Package feed reads the six raw source extracts and types them into bronze
// records. A feed is "a sequence of rows conforming to a table", independent
// of where the rows are stored.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// Feed is one source extract and the bronze table it loads.
type Feed struct {
	Name   string // bronze table name, also the feed identifier
	System string // source system: crm or erp
	File   string // default file name relative to the feed directory
	Table  schema.Table
}

var (
	CRMCustomers    = Feed{Name: "crm_cust_info", System: "crm", File: "source_crm/cust_info.csv", Table: schema.BronzeCRMCustomers}
	CRMProducts     = Feed{Name: "crm_prd_info", System: "crm", File: "source_crm/prd_info.csv", Table: schema.BronzeCRMProducts}
	CRMSales        = Feed{Name: "crm_sales_details", System: "crm", File: "source_crm/sales_details.csv", Table: schema.BronzeCRMSales}
	ERPDemographics = Feed{Name: "erp_cust_az12", System: "erp", File: "source_erp/CUST_AZ12.csv", Table: schema.BronzeERPDemographics}
	ERPLocations    = Feed{Name: "erp_loc_a101", System: "erp", File: "source_erp/LOC_A101.csv", Table: schema.BronzeERPLocations}
	ERPCategories   = Feed{Name: "erp_px_cat_g1v2", System: "erp", File: "source_erp/PX_CAT_G1V2.csv", Table: schema.BronzeERPCategories}
)

// All returns the six feeds in load order.
func All() []Feed {
	return []Feed{CRMCustomers, CRMProducts, CRMSales, ERPDemographics, ERPLocations, ERPCategories}
}

// Source yields the rows of a feed. Implementations must either return the
// complete feed or an error; a partial RowSet is never returned.
type Source interface {
	Read(ctx context.Context, f Feed) (*RowSet, error)
}

// RowSet holds the header and the data rows of one feed. Empty fields are
// NULL.
type RowSet struct {
	Feed   string
	Header []string
	Rows   [][]string
}

// columnIndex maps the wanted columns to their header positions. Header
// matching is case-insensitive; every wanted column must be present.
func (rs *RowSet) columnIndex(columns []string) (map[string]int, error) {
	positions := make(map[string]int, len(rs.Header))
	for i, h := range rs.Header {
		positions[strings.ToLower(strings.TrimSpace(h))] = i
	}

	index := make(map[string]int, len(columns))
	var missing []string
	for _, c := range columns {
		i, ok := positions[strings.ToLower(c)]
		if !ok {
			missing = append(missing, c)
			continue
		}
		index[c] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("feed %s: missing columns %s", rs.Feed, strings.Join(missing, ", "))
	}
	return index, nil
}

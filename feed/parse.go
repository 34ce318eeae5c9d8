package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// FieldError reports a value that does not fit its declared column type.
type FieldError struct {
	Feed   string
	Row    int // 1-based data row, the header is row 0
	Column string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("feed %s row %d column %s: invalid value %q: %v", e.Feed, e.Row, e.Column, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

var dateLayouts = []string{time.DateOnly, time.DateTime, time.RFC3339, "2006-01-02T15:04:05"}

// rowReader pulls typed values out of one row and keeps the first error.
type rowReader struct {
	feed  string
	line  int
	row   []string
	index map[string]int
	err   error
}

func (r *rowReader) raw(column string) (string, bool) {
	v := r.row[r.index[column]]
	if v == "" {
		return "", false
	}
	return v, true
}

func (r *rowReader) fail(column, value string, err error) {
	if r.err == nil {
		r.err = &FieldError{Feed: r.feed, Row: r.line, Column: column, Value: value, Err: err}
	}
}

func (r *rowReader) text(column string) *string {
	v, ok := r.raw(column)
	if !ok {
		return nil
	}
	return &v
}

func (r *rowReader) integer(column string) *int64 {
	v, ok := r.raw(column)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		r.fail(column, v, err)
		return nil
	}
	return &n
}

func (r *rowReader) date(column string) *time.Time {
	v, ok := r.raw(column)
	if !ok {
		return nil
	}
	s := strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	r.fail(column, v, fmt.Errorf("not a date"))
	return nil
}

func parse[T any](rs *RowSet, table schema.Table, build func(r *rowReader) T) ([]T, error) {
	index, err := rs.columnIndex(table.ColumnNames())
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(rs.Rows))
	for i, row := range rs.Rows {
		if len(row) != len(rs.Header) {
			return nil, fmt.Errorf("feed %s row %d: has %d fields, header has %d", rs.Feed, i+1, len(row), len(rs.Header))
		}
		r := &rowReader{feed: rs.Feed, line: i + 1, row: row, index: index}
		rec := build(r)
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, rec)
	}
	return out, nil
}

func ParseCRMCustomers(rs *RowSet) ([]schema.CRMCustomerRaw, error) {
	return parse(rs, schema.BronzeCRMCustomers, func(r *rowReader) schema.CRMCustomerRaw {
		return schema.CRMCustomerRaw{
			ID:            r.integer("cst_id"),
			Key:           r.text("cst_key"),
			FirstName:     r.text("cst_firstname"),
			LastName:      r.text("cst_lastname"),
			MaritalStatus: r.text("cst_marital_status"),
			Gender:        r.text("cst_gndr"),
			CreateDate:    r.date("cst_create_date"),
		}
	})
}

func ParseCRMProducts(rs *RowSet) ([]schema.CRMProductRaw, error) {
	return parse(rs, schema.BronzeCRMProducts, func(r *rowReader) schema.CRMProductRaw {
		return schema.CRMProductRaw{
			ID:        r.integer("prd_id"),
			Key:       r.text("prd_key"),
			Name:      r.text("prd_nm"),
			Cost:      r.integer("prd_cost"),
			Line:      r.text("prd_line"),
			StartDate: r.date("prd_start_dt"),
			EndDate:   r.date("prd_end_dt"),
		}
	})
}

func ParseCRMSales(rs *RowSet) ([]schema.CRMSaleRaw, error) {
	return parse(rs, schema.BronzeCRMSales, func(r *rowReader) schema.CRMSaleRaw {
		return schema.CRMSaleRaw{
			OrderNumber: r.text("sls_ord_num"),
			ProductKey:  r.text("sls_prd_key"),
			CustomerID:  r.integer("sls_cust_id"),
			OrderDate:   r.integer("sls_order_dt"),
			ShipDate:    r.integer("sls_ship_dt"),
			DueDate:     r.integer("sls_due_dt"),
			Sales:       r.integer("sls_sales"),
			Quantity:    r.integer("sls_quantity"),
			Price:       r.integer("sls_price"),
		}
	})
}

func ParseERPDemographics(rs *RowSet) ([]schema.ERPDemographicRaw, error) {
	return parse(rs, schema.BronzeERPDemographics, func(r *rowReader) schema.ERPDemographicRaw {
		return schema.ERPDemographicRaw{
			CID:       r.text("cid"),
			BirthDate: r.date("bdate"),
			Gender:    r.text("gen"),
		}
	})
}

func ParseERPLocations(rs *RowSet) ([]schema.ERPLocationRaw, error) {
	return parse(rs, schema.BronzeERPLocations, func(r *rowReader) schema.ERPLocationRaw {
		return schema.ERPLocationRaw{
			CID:     r.text("cid"),
			Country: r.text("cntry"),
		}
	})
}

func ParseERPCategories(rs *RowSet) ([]schema.ERPCategoryRaw, error) {
	return parse(rs, schema.BronzeERPCategories, func(r *rowReader) schema.ERPCategoryRaw {
		return schema.ERPCategoryRaw{
			ID:          r.text("id"),
			Category:    r.text("cat"),
			Subcategory: r.text("subcat"),
			Maintenance: r.text("maintenance"),
		}
	})
}

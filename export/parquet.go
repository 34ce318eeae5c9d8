// Package export writes the gold layer to Parquet files for downstream
// analytics tools.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

// CustomerRow is the Parquet layout of gold.dim_customers.
type CustomerRow struct {
	CustomerKey    int64   `parquet:"customer_key"`
	CustomerID     *int64  `parquet:"customer_id,optional"`
	CustomerNumber string  `parquet:"customer_number"`
	FirstName      string  `parquet:"first_name"`
	LastName       string  `parquet:"last_name"`
	Country        string  `parquet:"country"`
	MaritalStatus  string  `parquet:"marital_status"`
	Gender         string  `parquet:"gender"`
	BirthDate      *string `parquet:"birthdate,optional"`
	CreateDate     *string `parquet:"create_date,optional"`
}

// ProductRow is the Parquet layout of gold.dim_products.
type ProductRow struct {
	ProductKey    int64   `parquet:"product_key"`
	ProductID     *int64  `parquet:"product_id,optional"`
	ProductNumber string  `parquet:"product_number"`
	ProductName   string  `parquet:"product_name"`
	CategoryID    string  `parquet:"category_id"`
	Category      *string `parquet:"category,optional"`
	Subcategory   *string `parquet:"subcategory,optional"`
	Maintenance   *string `parquet:"maintenance,optional"`
	ProductLine   string  `parquet:"product_line"`
	Cost          float64 `parquet:"cost"`
	StartDate     *string `parquet:"start_date,optional"`
	EndDate       *string `parquet:"end_date,optional"`
}

// SalesRow is the Parquet layout of gold.fact_sales.
type SalesRow struct {
	OrderNumber  string  `parquet:"order_number"`
	ProductKey   *int64  `parquet:"product_key,optional"`
	CustomerKey  *int64  `parquet:"customer_key,optional"`
	OrderDate    *string `parquet:"order_date,optional"`
	ShippingDate *string `parquet:"shipping_date,optional"`
	DueDate      *string `parquet:"due_date,optional"`
	SalesAmount  float64 `parquet:"sales_amount"`
	Quantity     *int64  `parquet:"quantity,optional"`
	Price        float64 `parquet:"price"`
}

func date(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func CustomerRows(dims []schema.CustomerDim) []CustomerRow {
	rows := make([]CustomerRow, len(dims))
	for i, d := range dims {
		rows[i] = CustomerRow{
			CustomerKey:    d.Key,
			CustomerID:     d.CustomerID,
			CustomerNumber: d.CustomerNumber,
			FirstName:      d.FirstName,
			LastName:       d.LastName,
			Country:        d.Country,
			MaritalStatus:  d.MaritalStatus,
			Gender:         d.Gender,
			BirthDate:      date(d.BirthDate),
			CreateDate:     date(d.CreateDate),
		}
	}
	return rows
}

func ProductRows(dims []schema.ProductDim) []ProductRow {
	rows := make([]ProductRow, len(dims))
	for i, d := range dims {
		rows[i] = ProductRow{
			ProductKey:    d.Key,
			ProductID:     d.ProductID,
			ProductNumber: d.ProductNumber,
			ProductName:   d.Name,
			CategoryID:    d.CategoryID,
			Category:      d.Category,
			Subcategory:   d.Subcategory,
			Maintenance:   d.Maintenance,
			ProductLine:   d.Line,
			Cost:          amount(d.Cost),
			StartDate:     date(d.StartDate),
			EndDate:       date(d.EndDate),
		}
	}
	return rows
}

func SalesRows(facts []schema.SalesFact) []SalesRow {
	rows := make([]SalesRow, len(facts))
	for i, f := range facts {
		rows[i] = SalesRow{
			OrderNumber:  f.OrderNumber,
			ProductKey:   f.ProductKey,
			CustomerKey:  f.CustomerKey,
			OrderDate:    date(f.OrderDate),
			ShippingDate: date(f.ShippingDate),
			DueDate:      date(f.DueDate),
			SalesAmount:  amount(f.SalesAmount),
			Quantity:     f.Quantity,
			Price:        amount(f.Price),
		}
	}
	return rows
}

// Writer writes one Parquet file per gold table into Dir.
type Writer struct {
	Dir    string
	logger *zap.Logger
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{Dir: dir, logger: logger}
}

// Export replaces the three gold files. Each file is written to a temporary
// name and renamed, so readers never see a partial file.
func (w *Writer) Export(ctx context.Context, gold schema.GoldSet) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	files := []struct {
		table schema.Table
		write func(path string) error
	}{
		{schema.DimCustomers, func(p string) error { return parquet.WriteFile(p, CustomerRows(gold.Customers)) }},
		{schema.DimProducts, func(p string) error { return parquet.WriteFile(p, ProductRows(gold.Products)) }},
		{schema.FactSales, func(p string) error { return parquet.WriteFile(p, SalesRows(gold.Sales)) }},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		path := filepath.Join(w.Dir, f.table.Name+".parquet")
		tmp := path + ".tmp"
		if err := f.write(tmp); err != nil {
			os.Remove(tmp)
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return paths, fmt.Errorf("failed to move %s into place: %w", path, err)
		}

		w.logger.Info("Exported table",
			zap.String("table", f.table.String()),
			zap.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

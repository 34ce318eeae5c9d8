package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

func ptr[T any](v T) *T { return &v }

func gold() schema.GoldSet {
	order := time.Date(2010, 12, 29, 0, 0, 0, 0, time.UTC)
	return schema.GoldSet{
		Customers: []schema.CustomerDim{{Key: 1, CustomerID: ptr(int64(11000)), CustomerNumber: "AW00011000", FirstName: "Jon", LastName: "Yang", Country: "Australia", MaritalStatus: "Married", Gender: "Male"}},
		Products:  []schema.ProductDim{{Key: 1, ProductNumber: "FR-R92B-58", Name: "HL Road Frame", CategoryID: "CO_RF", Category: ptr("Components"), Line: "Road", Cost: decimal.RequireFromString("12.50")}},
		Sales: []schema.SalesFact{
			{OrderNumber: "SO43697", ProductKey: ptr(int64(1)), CustomerKey: ptr(int64(1)), OrderDate: &order, SalesAmount: decimal.NewFromInt(3578), Quantity: ptr(int64(1)), Price: decimal.NewFromInt(3578)},
			{OrderNumber: "SO43698"},
		},
	}
}

func TestExportWritesGoldTables(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, zap.NewNop())

	paths, err := w.Export(context.Background(), gold())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "dim_customers.parquet"),
		filepath.Join(dir, "dim_products.parquet"),
		filepath.Join(dir, "fact_sales.parquet"),
	}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}

	sales, err := parquet.ReadFile[SalesRow](paths[2])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if diff := cmp.Diff(SalesRows(gold().Sales), sales); diff != "" {
		t.Errorf("sales round trip (-want +got):\n%s", diff)
	}

	products, err := parquet.ReadFile[ProductRow](paths[1])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(products) != 1 || products[0].Cost != 12.5 || products[0].Subcategory != nil {
		t.Errorf("products = %+v", products)
	}
}

func TestSalesRowsKeepNulls(t *testing.T) {
	rows := SalesRows(gold().Sales)
	if *rows[0].OrderDate != "2010-12-29" || rows[0].SalesAmount != 3578 {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].ProductKey != nil || rows[1].CustomerKey != nil || rows[1].OrderDate != nil {
		t.Errorf("unresolved row should keep NULLs: %+v", rows[1])
	}
}

func TestExportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	paths, err := NewWriter(t.TempDir(), zap.NewNop()).Export(ctx, gold())
	if err == nil || len(paths) != 0 {
		t.Errorf("Export = %v, %v; want no files and an error", paths, err)
	}
}

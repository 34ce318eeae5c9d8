package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerDim is one row of the customer dimension. Key is the run-local
// surrogate key.
type CustomerDim struct {
	Key            int64
	CustomerID     *int64
	CustomerNumber string
	FirstName      string
	LastName       string
	Country        string
	MaritalStatus  string
	Gender         string
	BirthDate      *time.Time
	CreateDate     *time.Time
}

func (d CustomerDim) Values() []any {
	return []any{
		d.Key, nullInt(d.CustomerID), d.CustomerNumber, d.FirstName, d.LastName,
		d.Country, d.MaritalStatus, d.Gender, nullTime(d.BirthDate), nullTime(d.CreateDate),
	}
}

// ProductDim is one row of the product dimension. Category fields are nil
// when the category code has no ERP match.
type ProductDim struct {
	Key           int64
	ProductID     *int64
	ProductNumber string
	Name          string
	CategoryID    string
	Category      *string
	Subcategory   *string
	Maintenance   *string
	Line          string
	Cost          decimal.Decimal
	StartDate     *time.Time
	EndDate       *time.Time
}

func (d ProductDim) Values() []any {
	return []any{
		d.Key, nullInt(d.ProductID), d.ProductNumber, emptyAsNull(d.Name), emptyAsNull(d.CategoryID),
		nullString(d.Category), nullString(d.Subcategory), nullString(d.Maintenance),
		d.Line, money(d.Cost), nullTime(d.StartDate), nullTime(d.EndDate),
	}
}

// SalesFact is one CRM sales line with its dimension references. A nil key
// is an unresolved reference.
type SalesFact struct {
	OrderNumber  string
	ProductKey   *int64
	CustomerKey  *int64
	OrderDate    *time.Time
	ShippingDate *time.Time
	DueDate      *time.Time
	SalesAmount  decimal.Decimal
	Quantity     *int64
	Price        decimal.Decimal
}

func (f SalesFact) Values() []any {
	return []any{
		emptyAsNull(f.OrderNumber), nullInt(f.ProductKey), nullInt(f.CustomerKey),
		nullTime(f.OrderDate), nullTime(f.ShippingDate), nullTime(f.DueDate),
		money(f.SalesAmount), nullInt(f.Quantity), money(f.Price),
	}
}

var (
	DimCustomers = Table{Layer: Gold, Name: "dim_customers", Columns: []Column{
		col("customer_key", typeInt),
		col("customer_id", typeInt),
		col("customer_number", typeText),
		col("first_name", typeText),
		col("last_name", typeText),
		col("country", typeText),
		col("marital_status", typeText),
		col("gender", typeText),
		col("birthdate", typeDate),
		col("create_date", typeDate),
	}}

	DimProducts = Table{Layer: Gold, Name: "dim_products", Columns: []Column{
		col("product_key", typeInt),
		col("product_id", typeInt),
		col("product_number", typeText),
		col("product_name", typeText),
		col("category_id", typeText),
		col("category", typeText),
		col("subcategory", typeText),
		col("maintenance", typeText),
		col("product_line", typeText),
		col("cost", typeMoney),
		col("start_date", typeDate),
		col("end_date", typeDate),
	}}

	FactSales = Table{Layer: Gold, Name: "fact_sales", Columns: []Column{
		col("order_number", typeText),
		col("product_key", typeInt),
		col("customer_key", typeInt),
		col("order_date", typeDate),
		col("shipping_date", typeDate),
		col("due_date", typeDate),
		col("sales_amount", typeMoney),
		col("quantity", typeInt),
		col("price", typeMoney),
	}}
)

// GoldSet holds the three gold record sets built in one run.
type GoldSet struct {
	Customers []CustomerDim
	Products  []ProductDim
	Sales     []SalesFact
}

package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// CRMCustomer is a cleansed CRM customer.
type CRMCustomer struct {
	ID            *int64
	Key           string
	FirstName     string
	LastName      string
	MaritalStatus string
	Gender        string
	CreateDate    *time.Time
	ProcessedAt   time.Time
}

func (r CRMCustomer) Values() []any {
	return []any{
		nullInt(r.ID), r.Key, r.FirstName, r.LastName, r.MaritalStatus, r.Gender,
		nullTime(r.CreateDate), r.ProcessedAt,
	}
}

// CRMProduct is a cleansed CRM product. Key holds the product number; the
// category code split off the raw key is kept in CategoryID.
type CRMProduct struct {
	ID          *int64
	CategoryID  string
	Key         string
	Name        string
	Cost        decimal.Decimal
	Line        string
	StartDate   *time.Time
	EndDate     *time.Time
	ProcessedAt time.Time
}

func (r CRMProduct) Values() []any {
	return []any{
		nullInt(r.ID), emptyAsNull(r.CategoryID), r.Key, emptyAsNull(r.Name), money(r.Cost), r.Line,
		nullTime(r.StartDate), nullTime(r.EndDate), r.ProcessedAt,
	}
}

// CRMSale is a cleansed CRM sales line.
type CRMSale struct {
	OrderNumber string
	ProductKey  string
	CustomerID  *int64
	OrderDate   *time.Time
	ShipDate    *time.Time
	DueDate     *time.Time
	Sales       decimal.Decimal
	Quantity    *int64
	Price       decimal.Decimal
	ProcessedAt time.Time
}

func (r CRMSale) Values() []any {
	return []any{
		emptyAsNull(r.OrderNumber), emptyAsNull(r.ProductKey), nullInt(r.CustomerID),
		nullTime(r.OrderDate), nullTime(r.ShipDate), nullTime(r.DueDate),
		money(r.Sales), nullInt(r.Quantity), money(r.Price), r.ProcessedAt,
	}
}

// ERPDemographic is a cleansed ERP demographic row keyed by customer key.
type ERPDemographic struct {
	CID         string
	BirthDate   *time.Time
	Gender      string
	ProcessedAt time.Time
}

func (r ERPDemographic) Values() []any {
	return []any{r.CID, nullTime(r.BirthDate), r.Gender, r.ProcessedAt}
}

// ERPLocation is a cleansed ERP location row keyed by customer key.
type ERPLocation struct {
	CID         string
	Country     string
	ProcessedAt time.Time
}

func (r ERPLocation) Values() []any {
	return []any{r.CID, r.Country, r.ProcessedAt}
}

// ERPCategory is a cleansed ERP product category.
type ERPCategory struct {
	ID          string
	Category    string
	Subcategory string
	Maintenance string
	ProcessedAt time.Time
}

func (r ERPCategory) Values() []any {
	return []any{r.ID, emptyAsNull(r.Category), emptyAsNull(r.Subcategory), emptyAsNull(r.Maintenance), r.ProcessedAt}
}

const processedAtColumn = "processed_at"

var (
	SilverCRMCustomers = Table{Layer: Silver, Name: "crm_cust_info", Columns: []Column{
		col("cst_id", typeInt),
		col("cst_key", typeText),
		col("cst_firstname", typeText),
		col("cst_lastname", typeText),
		col("cst_marital_status", typeText),
		col("cst_gndr", typeText),
		col("cst_create_date", typeDate),
		col(processedAtColumn, typeTimestamp),
	}}

	SilverCRMProducts = Table{Layer: Silver, Name: "crm_prd_info", Columns: []Column{
		col("prd_id", typeInt),
		col("cat_id", typeText),
		col("prd_key", typeText),
		col("prd_nm", typeText),
		col("prd_cost", typeMoney),
		col("prd_line", typeText),
		col("prd_start_dt", typeDate),
		col("prd_end_dt", typeDate),
		col(processedAtColumn, typeTimestamp),
	}}

	SilverCRMSales = Table{Layer: Silver, Name: "crm_sales_details", Columns: []Column{
		col("sls_ord_num", typeText),
		col("sls_prd_key", typeText),
		col("sls_cust_id", typeInt),
		col("sls_order_dt", typeDate),
		col("sls_ship_dt", typeDate),
		col("sls_due_dt", typeDate),
		col("sls_sales", typeMoney),
		col("sls_quantity", typeInt),
		col("sls_price", typeMoney),
		col(processedAtColumn, typeTimestamp),
	}}

	SilverERPDemographics = Table{Layer: Silver, Name: "erp_cust_az12", Columns: []Column{
		col("cid", typeText),
		col("bdate", typeDate),
		col("gen", typeText),
		col(processedAtColumn, typeTimestamp),
	}}

	SilverERPLocations = Table{Layer: Silver, Name: "erp_loc_a101", Columns: []Column{
		col("cid", typeText),
		col("cntry", typeText),
		col(processedAtColumn, typeTimestamp),
	}}

	SilverERPCategories = Table{Layer: Silver, Name: "erp_px_cat_g1v2", Columns: []Column{
		col("id", typeText),
		col("cat", typeText),
		col("subcat", typeText),
		col("maintenance", typeText),
		col(processedAtColumn, typeTimestamp),
	}}
)

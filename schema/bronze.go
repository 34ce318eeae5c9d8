package schema

import "time"

// Bronze records are typed copies of the source feeds. Every field is
// nullable because the feeds are loaded verbatim.

// CRMCustomerRaw is one row of the CRM customer feed.
type CRMCustomerRaw struct {
	ID            *int64
	Key           *string
	FirstName     *string
	LastName      *string
	MaritalStatus *string
	Gender        *string
	CreateDate    *time.Time
}

func (r CRMCustomerRaw) Values() []any {
	return []any{
		nullInt(r.ID), nullString(r.Key), nullString(r.FirstName), nullString(r.LastName),
		nullString(r.MaritalStatus), nullString(r.Gender), nullTime(r.CreateDate),
	}
}

// CRMProductRaw is one row of the CRM product feed.
type CRMProductRaw struct {
	ID        *int64
	Key       *string
	Name      *string
	Cost      *int64
	Line      *string
	StartDate *time.Time
	EndDate   *time.Time
}

func (r CRMProductRaw) Values() []any {
	return []any{
		nullInt(r.ID), nullString(r.Key), nullString(r.Name), nullInt(r.Cost),
		nullString(r.Line), nullTime(r.StartDate), nullTime(r.EndDate),
	}
}

// CRMSaleRaw is one row of the CRM sales feed. Dates arrive as YYYYMMDD
// integers.
type CRMSaleRaw struct {
	OrderNumber *string
	ProductKey  *string
	CustomerID  *int64
	OrderDate   *int64
	ShipDate    *int64
	DueDate     *int64
	Sales       *int64
	Quantity    *int64
	Price       *int64
}

func (r CRMSaleRaw) Values() []any {
	return []any{
		nullString(r.OrderNumber), nullString(r.ProductKey), nullInt(r.CustomerID),
		nullInt(r.OrderDate), nullInt(r.ShipDate), nullInt(r.DueDate),
		nullInt(r.Sales), nullInt(r.Quantity), nullInt(r.Price),
	}
}

// ERPDemographicRaw is one row of the ERP customer demographic feed.
type ERPDemographicRaw struct {
	CID       *string
	BirthDate *time.Time
	Gender    *string
}

func (r ERPDemographicRaw) Values() []any {
	return []any{nullString(r.CID), nullTime(r.BirthDate), nullString(r.Gender)}
}

// ERPLocationRaw is one row of the ERP customer location feed.
type ERPLocationRaw struct {
	CID     *string
	Country *string
}

func (r ERPLocationRaw) Values() []any {
	return []any{nullString(r.CID), nullString(r.Country)}
}

// ERPCategoryRaw is one row of the ERP product category feed.
type ERPCategoryRaw struct {
	ID          *string
	Category    *string
	Subcategory *string
	Maintenance *string
}

func (r ERPCategoryRaw) Values() []any {
	return []any{nullString(r.ID), nullString(r.Category), nullString(r.Subcategory), nullString(r.Maintenance)}
}

var (
	BronzeCRMCustomers = Table{Layer: Bronze, Name: "crm_cust_info", Columns: []Column{
		col("cst_id", typeInt),
		col("cst_key", typeText),
		col("cst_firstname", typeText),
		col("cst_lastname", typeText),
		col("cst_marital_status", typeText),
		col("cst_gndr", typeText),
		col("cst_create_date", typeDate),
	}}

	BronzeCRMProducts = Table{Layer: Bronze, Name: "crm_prd_info", Columns: []Column{
		col("prd_id", typeInt),
		col("prd_key", typeText),
		col("prd_nm", typeText),
		col("prd_cost", typeInt),
		col("prd_line", typeText),
		col("prd_start_dt", typeDate),
		col("prd_end_dt", typeDate),
	}}

	BronzeCRMSales = Table{Layer: Bronze, Name: "crm_sales_details", Columns: []Column{
		col("sls_ord_num", typeText),
		col("sls_prd_key", typeText),
		col("sls_cust_id", typeInt),
		col("sls_order_dt", typeInt),
		col("sls_ship_dt", typeInt),
		col("sls_due_dt", typeInt),
		col("sls_sales", typeInt),
		col("sls_quantity", typeInt),
		col("sls_price", typeInt),
	}}

	BronzeERPDemographics = Table{Layer: Bronze, Name: "erp_cust_az12", Columns: []Column{
		col("cid", typeText),
		col("bdate", typeDate),
		col("gen", typeText),
	}}

	BronzeERPLocations = Table{Layer: Bronze, Name: "erp_loc_a101", Columns: []Column{
		col("cid", typeText),
		col("cntry", typeText),
	}}

	BronzeERPCategories = Table{Layer: Bronze, Name: "erp_px_cat_g1v2", Columns: []Column{
		col("id", typeText),
		col("cat", typeText),
		col("subcat", typeText),
		col("maintenance", typeText),
	}}
)

package conform

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/withObsrvr/medallion-warehouse/cleanse"
	"github.com/withObsrvr/medallion-warehouse/schema"
)

func num(n int64) *int64 { return &n }

func TestResolveGender(t *testing.T) {
	tests := []struct {
		name     string
		crm, erp string
		want     string
	}{
		{"crm unknown falls back to erp", "Unknown", "Male", "Male"},
		{"crm wins", "Female", "Male", "Female"},
		{"crm wins over unknown erp", "Male", "Unknown", "Male"},
		{"crm empty falls back", "", "Female", "Female"},
		{"both absent", "", "", "Unknown"},
		{"both unknown", "Unknown", "Unknown", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveGender(tt.crm, tt.erp); got != tt.want {
				t.Errorf("ResolveGender(%q, %q) = %q, want %q", tt.crm, tt.erp, got, tt.want)
			}
		})
	}
}

func TestResolveCustomerWithoutERP(t *testing.T) {
	c := schema.CRMCustomer{ID: num(1), Key: "AW009", FirstName: "Ann", LastName: "Lee", MaritalStatus: "Single", Gender: "Unknown"}

	d := ResolveCustomer(c, nil, nil)
	if d.Country != cleanse.Unknown || d.Gender != cleanse.Unknown || d.BirthDate != nil {
		t.Errorf("unmatched customer should get Unknown/NULL ERP fields, got %+v", d)
	}
	if d.CustomerNumber != "AW009" || d.MaritalStatus != "Single" {
		t.Errorf("CRM fields not carried over: %+v", d)
	}
}

func TestResolveProduct(t *testing.T) {
	p := schema.CRMProduct{ID: num(5), CategoryID: "AC_BR", Key: "RA-H123", Name: "Hitch Rack", Cost: decimal.NewFromInt(45), Line: "Other Sales"}

	matched := ResolveProduct(p, &schema.ERPCategory{ID: "AC_BR", Category: "Accessories", Subcategory: "Bike Racks", Maintenance: "No"})
	if matched.Category == nil || *matched.Category != "Accessories" || *matched.Maintenance != "No" {
		t.Errorf("category fields not resolved: %+v", matched)
	}

	unmatched := ResolveProduct(p, nil)
	if unmatched.Category != nil || unmatched.Subcategory != nil || unmatched.Maintenance != nil {
		t.Errorf("unmatched category fields should be nil: %+v", unmatched)
	}
	if unmatched.ProductNumber != "RA-H123" || unmatched.CategoryID != "AC_BR" {
		t.Errorf("CRM fields not carried over: %+v", unmatched)
	}
}

// One CRM customer with an Unknown gender, matching ERP demographic and
// location rows, and a sales line for a product that does not exist.
func TestEndToEndScenario(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	orderDate := time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC)

	customers := []schema.CRMCustomer{{ID: num(1), Key: "AW001", FirstName: "Ada", LastName: "Byron", MaritalStatus: "Single", Gender: "Unknown", ProcessedAt: now}}
	demos := []schema.ERPDemographic{{CID: "AW001", Gender: "Female", ProcessedAt: now}}
	locs := []schema.ERPLocation{{CID: "AW001", Country: "US", ProcessedAt: now}}
	sales := []schema.CRMSale{{OrderNumber: "SO1", ProductKey: "NO-SUCH-PRODUCT", CustomerID: num(1), OrderDate: &orderDate, Sales: decimal.NewFromInt(20), Quantity: num(2), Price: decimal.NewFromInt(10)}}

	custDim, _, err := BuildCustomerDimension(customers, demos, locs)
	if err != nil {
		t.Fatalf("BuildCustomerDimension failed: %v", err)
	}
	if len(custDim) != 1 {
		t.Fatalf("got %d customer rows, want 1", len(custDim))
	}
	if custDim[0].Gender != "Female" || custDim[0].Country != "US" {
		t.Errorf("gender/country = %q/%q, want Female/US", custDim[0].Gender, custDim[0].Country)
	}

	prodDim, _, err := BuildProductDimension(nil, nil)
	if err != nil {
		t.Fatalf("BuildProductDimension failed: %v", err)
	}

	facts, stats, err := BuildSalesFact(sales, custDim, prodDim)
	if err != nil {
		t.Fatalf("BuildSalesFact failed: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}

	f := facts[0]
	if f.ProductKey != nil {
		t.Errorf("product key = %d, want NULL", *f.ProductKey)
	}
	if f.CustomerKey == nil || *f.CustomerKey != custDim[0].Key {
		t.Errorf("customer key = %v, want %d", f.CustomerKey, custDim[0].Key)
	}
	if f.OrderNumber != "SO1" || f.OrderDate == nil || !f.SalesAmount.Equal(decimal.NewFromInt(20)) || *f.Quantity != 2 {
		t.Errorf("fact fields not populated: %+v", f)
	}
	if stats.UnresolvedProducts != 1 || stats.UnresolvedCustomers != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCustomerDimensionDrivenByCRM(t *testing.T) {
	customers := []schema.CRMCustomer{
		{ID: num(10), Key: "AW010", Gender: "Male"},
		{ID: num(11), Key: "AW011", Gender: "Unknown"},
	}
	demos := []schema.ERPDemographic{{CID: "AW011", Gender: "Female"}, {CID: "AW999", Gender: "Male"}}
	locs := []schema.ERPLocation{{CID: "AW998", Country: "Germany"}}

	dims, stats, err := BuildCustomerDimension(customers, demos, locs)
	if err != nil {
		t.Fatalf("BuildCustomerDimension failed: %v", err)
	}
	if len(dims) != len(customers) {
		t.Fatalf("got %d rows, want one per CRM customer (%d)", len(dims), len(customers))
	}
	for i, d := range dims {
		if d.Key != int64(i+1) {
			t.Errorf("row %d has surrogate key %d, want %d", i, d.Key, i+1)
		}
	}
	if stats.ERPOnlyDemographics != 1 || stats.ERPOnlyLocations != 1 || stats.DemographicsMatched != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSalesFactReferentialSoundness(t *testing.T) {
	customers := []schema.CustomerDim{{Key: 1, CustomerID: num(100)}, {Key: 2, CustomerID: num(200)}, {Key: 3}}
	products := []schema.ProductDim{{Key: 1, ProductNumber: "P1"}, {Key: 2, ProductNumber: "P2"}}
	sales := []schema.CRMSale{
		{OrderNumber: "SO1", ProductKey: "P1", CustomerID: num(100)},
		{OrderNumber: "SO1", ProductKey: "P2", CustomerID: num(200)},
		{OrderNumber: "SO2", ProductKey: "P3", CustomerID: num(300)},
		{OrderNumber: "SO3", ProductKey: "", CustomerID: nil},
	}

	facts, stats, err := BuildSalesFact(sales, customers, products)
	if err != nil {
		t.Fatalf("BuildSalesFact failed: %v", err)
	}
	if len(facts) != len(sales) {
		t.Fatalf("got %d facts, want %d: sales lines must never be dropped", len(facts), len(sales))
	}

	custKeys := map[int64]bool{1: true, 2: true, 3: true}
	prodKeys := map[int64]bool{1: true, 2: true}
	for i, f := range facts {
		if f.CustomerKey != nil && !custKeys[*f.CustomerKey] {
			t.Errorf("fact %d references missing customer %d", i, *f.CustomerKey)
		}
		if f.ProductKey != nil && !prodKeys[*f.ProductKey] {
			t.Errorf("fact %d references missing product %d", i, *f.ProductKey)
		}
	}
	if stats.UnresolvedProducts != 2 || stats.UnresolvedCustomers != 2 {
		t.Errorf("stats = %+v, want 2 unresolved of each", stats)
	}
}

func TestAmbiguousKeysAreRejected(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"duplicate crm customer", func() error {
			_, _, err := BuildCustomerDimension([]schema.CRMCustomer{{Key: "A"}, {Key: "A"}}, nil, nil)
			return err
		}},
		{"duplicate erp location", func() error {
			_, _, err := BuildCustomerDimension([]schema.CRMCustomer{{Key: "A"}}, nil, []schema.ERPLocation{{CID: "A"}, {CID: "A"}})
			return err
		}},
		{"duplicate category", func() error {
			_, _, err := BuildProductDimension(nil, []schema.ERPCategory{{ID: "C"}, {ID: "C"}})
			return err
		}},
		{"duplicate dimension customer id", func() error {
			_, _, err := BuildSalesFact(nil, []schema.CustomerDim{{Key: 1, CustomerID: num(7)}, {Key: 2, CustomerID: num(7)}}, nil)
			return err
		}},
		{"duplicate product number", func() error {
			_, _, err := BuildSalesFact(nil, nil, []schema.ProductDim{{Key: 1, ProductNumber: "P"}, {Key: 2, ProductNumber: "P"}})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, ErrAmbiguousKey) {
				t.Errorf("error = %v, want ErrAmbiguousKey", err)
			}
		})
	}
}

func TestKeySequence(t *testing.T) {
	s := NewKeySequence()
	for want := int64(1); want <= 3; want++ {
		if got := s.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
}

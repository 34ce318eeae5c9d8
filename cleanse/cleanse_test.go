package cleanse

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/withObsrvr/medallion-warehouse/schema"
)

var processedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func str(s string) *string { return &s }
func num(n int64) *int64   { return &n }
func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*string) string
		in   *string
		want string
	}{
		{"gender short", Gender, str(" m "), "Male"},
		{"gender long", Gender, str("female"), "Female"},
		{"gender blank", Gender, str(""), Unknown},
		{"gender nil", Gender, nil, Unknown},
		{"gender garbage", Gender, str("x"), Unknown},
		{"marital short", MaritalStatus, str("S"), "Single"},
		{"marital long", MaritalStatus, str("Married"), "Married"},
		{"marital nil", MaritalStatus, nil, Unknown},
		{"line road", ProductLine, str("R "), "Road"},
		{"line other", ProductLine, str("s"), "Other Sales"},
		{"line touring", ProductLine, str("TOURING"), "Touring"},
		{"line nil", ProductLine, nil, Unknown},
		{"country us", Country, str("US"), "United States"},
		{"country usa", Country, str(" usa"), "United States"},
		{"country de", Country, str("DE"), "Germany"},
		{"country title", Country, str("UNITED KINGDOM"), "United Kingdom"},
		{"country blank", Country, str("  "), Unknown},
		{"country nil", Country, nil, Unknown},
		{"name trimmed", Name, str("  Jon "), "Jon"},
		{"name blank", Name, str(""), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCustomersDedupKeepsLatest(t *testing.T) {
	raw := []schema.CRMCustomerRaw{
		{ID: num(1), Key: str("AW001"), FirstName: str("Old"), CreateDate: day(2024, 1, 1)},
		{ID: num(2), Key: str(" AW002 "), FirstName: str("Ann"), Gender: str("F"), MaritalStatus: str("M")},
		{ID: num(1), Key: str("AW001"), FirstName: str("New"), CreateDate: day(2025, 1, 1)},
		{ID: num(1), Key: str("AW001"), FirstName: str("Tie"), CreateDate: day(2025, 1, 1)},
		{ID: num(3), Key: str("  ")},
		{ID: num(1), Key: str("AW001"), FirstName: str("Undated")},
	}

	got := Customers(raw, processedAt)

	want := []schema.CRMCustomer{
		{ID: num(1), Key: "AW001", FirstName: "New", LastName: Unknown, MaritalStatus: Unknown, Gender: Unknown, CreateDate: day(2025, 1, 1), ProcessedAt: processedAt},
		{ID: num(2), Key: "AW002", FirstName: "Ann", LastName: Unknown, MaritalStatus: "Married", Gender: "Female", ProcessedAt: processedAt},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Customers mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitProductKey(t *testing.T) {
	tests := []struct {
		raw, cat, number string
	}{
		{"CO-RF-FR-R92B-58", "CO_RF", "FR-R92B-58"},
		{"AC-HE-HL-U509-R", "AC_HE", "HL-U509-R"},
		{"SHORT", "", "SHORT"},
	}
	for _, tt := range tests {
		cat, number := SplitProductKey(tt.raw)
		if cat != tt.cat || number != tt.number {
			t.Errorf("SplitProductKey(%q) = %q, %q; want %q, %q", tt.raw, cat, number, tt.cat, tt.number)
		}
	}
}

func TestProductsDedupKeepsLaterStartDate(t *testing.T) {
	raw := []schema.CRMProductRaw{
		{ID: num(210), Key: str("CO-RF-FR-R92B-58"), Name: str("HL Road Frame"), Cost: nil, Line: str("R"), StartDate: day(2003, 7, 1), EndDate: day(2011, 6, 30)},
		{ID: num(211), Key: str("CO-RF-FR-R92B-58"), Name: str("HL Road Frame"), Cost: num(12), Line: str("R"), StartDate: day(2012, 7, 1), EndDate: day(2007, 12, 28)},
		{ID: num(212), Key: str("AC-HE-HL-U509-R"), Name: str("Sport-100 Helmet"), Cost: num(12), Line: str("S"), StartDate: day(2011, 7, 1)},
	}

	got := Products(raw, processedAt)
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}

	frame := got[0]
	if *frame.ID != 211 {
		t.Errorf("kept product id %d, want 211 (later start date)", *frame.ID)
	}
	if frame.CategoryID != "CO_RF" || frame.Key != "FR-R92B-58" {
		t.Errorf("key split = %q / %q", frame.CategoryID, frame.Key)
	}
	if frame.EndDate != nil {
		t.Errorf("end date before start date should be cleared, got %v", frame.EndDate)
	}
	if !frame.Cost.Equal(decimal.NewFromInt(12)) || frame.Line != "Road" {
		t.Errorf("cost/line = %s/%s", frame.Cost, frame.Line)
	}
	if got[1].Line != "Other Sales" {
		t.Errorf("line = %q, want Other Sales", got[1].Line)
	}

	missingCost := Products(raw[:1], processedAt)[0]
	if !missingCost.Cost.IsZero() {
		t.Errorf("missing cost should be 0, got %s", missingCost.Cost)
	}
}

func TestSalesDate(t *testing.T) {
	tests := []struct {
		in   *int64
		want *time.Time
	}{
		{num(20101229), day(2010, 12, 29)},
		{num(0), nil},
		{num(-20101229), nil},
		{num(5489), nil},
		{num(20101332), nil},
		{nil, nil},
	}
	for _, tt := range tests {
		got := SalesDate(tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("SalesDate(%v) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestSalesAmounts(t *testing.T) {
	tests := []struct {
		name                   string
		sales, quantity, price *int64
		wantSales, wantPrice   string
	}{
		{"consistent", num(40), num(2), num(20), "40", "20"},
		{"sales missing", nil, num(2), num(20), "40", "20"},
		{"sales inconsistent", num(35), num(2), num(20), "40", "20"},
		{"sales negative", num(-40), num(2), num(20), "40", "20"},
		{"price negative", num(40), num(2), num(-20), "40", "20"},
		{"price missing", num(40), num(3), nil, "0", "0"},
		{"price zero from sales", num(10), num(3), num(0), "0", "0"},
		{"quantity zero", num(10), num(0), nil, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sales, price := SalesAmounts(tt.sales, tt.quantity, tt.price)
			if !sales.Equal(decimal.RequireFromString(tt.wantSales)) {
				t.Errorf("sales = %s, want %s", sales, tt.wantSales)
			}
			if !price.Equal(decimal.RequireFromString(tt.wantPrice)) {
				t.Errorf("price = %s, want %s", price, tt.wantPrice)
			}
		})
	}
}

func TestSalesKeepsEveryLine(t *testing.T) {
	raw := []schema.CRMSaleRaw{
		{OrderNumber: str("SO1"), ProductKey: str("BK-1"), CustomerID: num(1), OrderDate: num(20110101), Sales: num(10), Quantity: num(1), Price: num(10)},
		{OrderNumber: str("SO1"), ProductKey: str("BK-1"), CustomerID: num(1), OrderDate: num(20110101), Sales: num(10), Quantity: num(1), Price: num(10)},
	}
	got := Sales(raw, processedAt)
	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if got[0].OrderDate == nil || got[0].ProcessedAt != processedAt {
		t.Errorf("unexpected line %+v", got[0])
	}
}

func TestDemographics(t *testing.T) {
	raw := []schema.ERPDemographicRaw{
		{CID: str("NASAW00011000"), BirthDate: day(1971, 10, 6), Gender: str("Male")},
		{CID: str("AW00011001"), BirthDate: day(2090, 1, 1), Gender: str(" F")},
		{CID: str("NASAW00011000"), BirthDate: day(1980, 1, 1), Gender: str("Female")},
		{CID: nil},
	}

	got := Demographics(raw, processedAt)
	want := []schema.ERPDemographic{
		{CID: "AW00011000", BirthDate: day(1971, 10, 6), Gender: "Male", ProcessedAt: processedAt},
		{CID: "AW00011001", BirthDate: nil, Gender: "Female", ProcessedAt: processedAt},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Demographics mismatch (-want +got):\n%s", diff)
	}
}

func TestLocationsAndCategories(t *testing.T) {
	locs := Locations([]schema.ERPLocationRaw{
		{CID: str("AW-00011000"), Country: str("US")},
		{CID: str("AW-00011001"), Country: str("")},
		{CID: str("AW-00011000"), Country: str("DE")},
	}, processedAt)

	wantLocs := []schema.ERPLocation{
		{CID: "AW00011000", Country: "United States", ProcessedAt: processedAt},
		{CID: "AW00011001", Country: Unknown, ProcessedAt: processedAt},
	}
	if diff := cmp.Diff(wantLocs, locs); diff != "" {
		t.Errorf("Locations mismatch (-want +got):\n%s", diff)
	}

	cats := Categories([]schema.ERPCategoryRaw{
		{ID: str(" AC_BR "), Category: str("Accessories "), Subcategory: str("Bike Racks"), Maintenance: str("Yes")},
		{ID: str("AC_BR"), Category: str("Dup")},
		{ID: str("")},
	}, processedAt)
	if len(cats) != 1 || cats[0].ID != "AC_BR" || cats[0].Category != "Accessories" {
		t.Errorf("unexpected categories %+v", cats)
	}
}

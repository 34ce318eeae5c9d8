package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/withObsrvr/medallion-warehouse/config"
	"github.com/withObsrvr/medallion-warehouse/feed"
	"github.com/withObsrvr/medallion-warehouse/metrics"
	"github.com/withObsrvr/medallion-warehouse/pipeline"
	"github.com/withObsrvr/medallion-warehouse/schema"
	"github.com/withObsrvr/medallion-warehouse/store"
)

var feedFiles = map[string]string{
	"source_crm/cust_info.csv": "cst_id,cst_key,cst_firstname,cst_lastname,cst_marital_status,cst_gndr,cst_create_date\n" +
		"11000,AW00011000, Jon,Yang ,M,M,2025-10-06\n",
	"source_crm/prd_info.csv": "prd_id,prd_key,prd_nm,prd_cost,prd_line,prd_start_dt,prd_end_dt\n" +
		"210,CO-RF-FR-R92B-58,HL Road Frame - Black- 58,,R,2003-07-01,\n",
	"source_crm/sales_details.csv": "sls_ord_num,sls_prd_key,sls_cust_id,sls_order_dt,sls_ship_dt,sls_due_dt,sls_sales,sls_quantity,sls_price\n" +
		"SO43697,FR-R92B-58,11000,20101229,20110105,20110110,3578,1,3578\n",
	"source_erp/CUST_AZ12.csv": "CID,BDATE,GEN\nNASAW00011000,1971-10-06,Male\n",
	"source_erp/LOC_A101.csv":  "CID,CNTRY\nAW-00011000,Australia\n",
	"source_erp/PX_CAT_G1V2.csv": "ID,CAT,SUBCAT,MAINTENANCE\nCO_RF,Components,Road Frames,Yes\n",
}

func writeFeeds(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range feedFiles {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func writeConfig(t *testing.T, feedDir string) string {
	t.Helper()
	body := "service:\n  health_port: \"0\"\n  log_level: error\nfeeds:\n  dir: " + feedDir + "\nstore:\n  driver: memory\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunLoadPrintsTimings(t *testing.T) {
	var out bytes.Buffer
	opts := &rootOptions{configPath: writeConfig(t, writeFeeds(t))}

	if err := runLoad(opts, false, &out); err != nil {
		t.Fatalf("runLoad failed: %v\n%s", err, out.String())
	}

	for _, want := range []string{"succeeded", "gold.fact_sales", "bronze", "silver", "total"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRunLoadFailsOnMissingFeed(t *testing.T) {
	dir := writeFeeds(t)
	if err := os.Remove(filepath.Join(dir, "source_erp/LOC_A101.csv")); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := runLoad(&rootOptions{configPath: writeConfig(t, dir)}, false, &out)
	if err == nil {
		t.Fatal("expected the load to fail")
	}
	if !strings.Contains(out.String(), "load failed at bronze.erp_loc_a101") {
		t.Errorf("output does not name the failed step:\n%s", out.String())
	}
}

func TestListTables(t *testing.T) {
	mem := store.NewMemory()
	if _, err := mem.Rebuild(context.Background(), schema.LoadRuns, []schema.Row{schema.LoadRun{RunID: "a"}}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := listTables(context.Background(), mem, &out); err != nil {
		t.Fatalf("listTables failed: %v", err)
	}
	if !strings.Contains(out.String(), "audit.etl_load_runs") || !strings.Contains(out.String(), "1 rows") {
		t.Errorf("output:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "customer_key BIGINT") {
		t.Errorf("columns missing:\n%s", out.String())
	}
}

func newTestHealthServer(t *testing.T, run bool) *HealthServer {
	t.Helper()
	dir := writeFeeds(t)
	reg := prometheus.NewRegistry()
	o := pipeline.New(feed.NewCSVDir(dir, nil), store.NewMemory(), zap.NewNop(), pipeline.WithObserver(metrics.NewCollector(reg)))
	if run {
		if _, err := o.Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}
	return NewHealthServer(o, config.Default(), reg, zap.NewNop())
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestHealthServer(t, true)
	router := h.Router()

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/live", http.StatusOK, "live"},
		{"/ready", http.StatusOK, "ready"},
		{"/metrics", http.StatusOK, "warehouse_table_rows"},
		{"/health", http.StatusOK, `"status":"healthy"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q:\n%s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestHealthBeforeFirstRun(t *testing.T) {
	router := newTestHealthServer(t, false).Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready before a load = %d, want 503", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := body["last_run"]; ok {
		t.Error("last_run reported before any run")
	}
}

func TestRunChecksTreatsUnresolvedReferencesAsWarnings(t *testing.T) {
	ctx := context.Background()
	db, err := store.NewDuckDB(ctx, store.DuckDBOptions{}, store.DefaultLayout(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewDuckDB failed: %v", err)
	}
	defer db.Close()
	if err := db.Prepare(ctx, schema.Tables()); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	customerKey := int64(1)
	dims := []schema.Row{schema.CustomerDim{Key: customerKey, CustomerNumber: "AW00011000"}}
	if _, err := db.Rebuild(ctx, schema.DimCustomers, dims); err != nil {
		t.Fatal(err)
	}
	// A sales line whose product did not resolve.
	facts := []schema.Row{schema.SalesFact{OrderNumber: "SO43697", CustomerKey: &customerKey}}
	if _, err := db.Rebuild(ctx, schema.FactSales, facts); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runChecks(ctx, db, zap.NewNop(), &out); err != nil {
		t.Fatalf("runChecks failed on unresolved references: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "WARN") {
		t.Errorf("unresolved references not reported:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "failed loads in run log: 0") {
		t.Errorf("run log count missing:\n%s", out.String())
	}

	// An orphaned key is still an error.
	orphan := int64(99)
	facts = []schema.Row{schema.SalesFact{OrderNumber: "SO43698", CustomerKey: &orphan}}
	if _, err := db.Rebuild(ctx, schema.FactSales, facts); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := runChecks(ctx, db, zap.NewNop(), &out); err == nil {
		t.Errorf("expected runChecks to fail on an orphaned customer key:\n%s", out.String())
	}
}

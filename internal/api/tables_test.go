package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartscan/smartscan/internal/tablestore"
)

func TestListTables(t *testing.T) {
	cfg := testConfig(t, map[string]string{})
	h := NewHandler(cfg, seededDeps(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var body struct {
		Tables []string `json:"tables"`
	}
	decodeJSONBody(t, rr, &body)
	if len(body.Tables) != 1 || body.Tables[0] != "Trades" {
		t.Fatalf("tables = %v", body.Tables)
	}
}

func TestGetTableSchema(t *testing.T) {
	cfg := testConfig(t, map[string]string{})
	h := NewHandler(cfg, seededDeps(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables/Trades/schema", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var body struct {
		TableName  string                    `json:"table_name"`
		Attributes []tablestore.AttributeDef `json:"attributes"`
	}
	decodeJSONBody(t, rr, &body)
	if body.TableName != "Trades" || len(body.Attributes) != 4 {
		t.Fatalf("body = %+v", body)
	}
}

func TestGetTableSchemaNotFound(t *testing.T) {
	cfg := testConfig(t, map[string]string{})
	h := NewHandler(cfg, seededDeps(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables/Missing/schema", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCreateTableValidatesAttributeTypes(t *testing.T) {
	cfg := testConfig(t, map[string]string{})
	h := NewHandler(cfg, seededDeps(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/tables",
		stringsReader(`{"table_name":"Bad","attributes":[{"name":"X","type":"Q"}]}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCreateTableConflict(t *testing.T) {
	cfg := testConfig(t, map[string]string{})
	h := NewHandler(cfg, seededDeps(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/tables",
		stringsReader(`{"table_name":"Trades","attributes":[{"name":"TradeId","type":"S"}]}`)))
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPutItemsThenQueryEndToEnd(t *testing.T) {
	cfg := testConfig(t, map[string]string{})
	deps := seededDeps(t)
	h := NewHandler(cfg, deps)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/tables/Trades/items",
		stringsReader(`{"items":[{"TradeId":"t-9","Amount":9000,"SourceCountry":"DE","TradeDate":"2025-04-01"}]}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", rr.Code, rr.Body.String())
	}

	queryResp := postSmartQuery(t, h, `{"table_name":"Trades","query":"Amount > 5000"}`)
	if queryResp.Code != http.StatusOK {
		t.Fatalf("query status = %d", queryResp.Code)
	}
	var result struct {
		Count int               `json:"count"`
		Items []tablestore.Item `json:"items"`
	}
	decodeJSONBody(t, queryResp, &result)
	if result.Count != 1 || result.Items[0]["TradeId"] != "t-9" {
		t.Fatalf("result = %+v", result)
	}
}

func TestPutItemsUnknownTable(t *testing.T) {
	cfg := testConfig(t, map[string]string{})
	h := NewHandler(cfg, seededDeps(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/tables/Missing/items",
		stringsReader(`{"items":[{"a":1}]}`)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestWriteEndpointsAre501ForReadOnlyStore(t *testing.T) {
	cfg := testConfig(t, map[string]string{})
	h := NewHandler(cfg, Dependencies{Store: readOnlyStore{}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/tables",
		stringsReader(`{"table_name":"X","attributes":[{"name":"A","type":"S"}]}`)))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", rr.Code)
	}
}

type readOnlyStore struct{}

func (readOnlyStore) DescribeSchema(context.Context, string) (tablestore.Schema, error) {
	return tablestore.Schema{}, tablestore.ErrTableNotFound
}

func (readOnlyStore) Scan(context.Context, tablestore.ScanInput) (tablestore.ScanOutput, error) {
	return tablestore.ScanOutput{}, tablestore.ErrTableNotFound
}

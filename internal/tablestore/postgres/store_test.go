package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/smartscan/smartscan/internal/tablestore"
)

const describeQuery = `
SELECT attribute_defs
FROM table_def
WHERE table_name = $1`

const scanQuery = `
SELECT payload
FROM table_item
WHERE table_name = $1
ORDER BY item_id ASC`

func TestDescribeSchema(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(describeQuery)).
		WithArgs("Trades").
		WillReturnRows(sqlmock.NewRows([]string{"attribute_defs"}).
			AddRow(`[{"name":"TradeId","type":"S"},{"name":"Amount","type":"N"}]`))

	schema, err := store.DescribeSchema(context.Background(), "Trades")
	if err != nil {
		t.Fatalf("DescribeSchema() error = %v", err)
	}
	if schema.TableName != "Trades" {
		t.Fatalf("TableName = %q", schema.TableName)
	}
	if len(schema.Attributes) != 2 {
		t.Fatalf("attributes = %d", len(schema.Attributes))
	}
	if schema.Attributes[1].Name != "Amount" || schema.Attributes[1].Type != tablestore.TypeNumber {
		t.Fatalf("attribute[1] = %#v", schema.Attributes[1])
	}
	assertSQLMock(t, mock)
}

func TestDescribeSchemaNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(describeQuery)).
		WithArgs("Missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.DescribeSchema(context.Background(), "Missing")
	if !errors.Is(err, tablestore.ErrTableNotFound) {
		t.Fatalf("error = %v, want ErrTableNotFound", err)
	}
	assertSQLMock(t, mock)
}

func TestScanAppliesFilterInProcess(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(describeQuery)).
		WithArgs("Trades").
		WillReturnRows(sqlmock.NewRows([]string{"attribute_defs"}).
			AddRow(`[{"name":"TradeId","type":"S"},{"name":"Amount","type":"N"}]`))
	mock.ExpectQuery(regexp.QuoteMeta(scanQuery)).
		WithArgs("Trades").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).
			AddRow(`{"TradeId":"t-1","Amount":100}`).
			AddRow(`{"TradeId":"t-2","Amount":2500}`).
			AddRow(`{"TradeId":"t-3","Amount":4000}`))

	out, err := store.Scan(context.Background(), tablestore.ScanInput{
		TableName:        "Trades",
		FilterExpression: "#attr0 > :val0",
		ExpressionNames:  map[string]string{"#attr0": "Amount"},
		ExpressionValues: map[string]any{":val0": float64(1000)},
	})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d", out.Count)
	}
	if out.Items[0]["TradeId"] != "t-2" {
		t.Fatalf("items = %#v", out.Items)
	}
	assertSQLMock(t, mock)
}

func TestScanStopsAtLimit(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(describeQuery)).
		WithArgs("Trades").
		WillReturnRows(sqlmock.NewRows([]string{"attribute_defs"}).
			AddRow(`[{"name":"TradeId","type":"S"}]`))
	mock.ExpectQuery(regexp.QuoteMeta(scanQuery)).
		WithArgs("Trades").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).
			AddRow(`{"TradeId":"t-1"}`).
			AddRow(`{"TradeId":"t-2"}`))

	out, err := store.Scan(context.Background(), tablestore.ScanInput{TableName: "Trades", Limit: 1})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if out.Count != 1 || out.Items[0]["TradeId"] != "t-1" {
		t.Fatalf("out = %#v", out)
	}
	assertSQLMock(t, mock)
}

func TestScanRejectsInvalidExpression(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(describeQuery)).
		WithArgs("Trades").
		WillReturnRows(sqlmock.NewRows([]string{"attribute_defs"}).
			AddRow(`[{"name":"TradeId","type":"S"}]`))

	_, err := store.Scan(context.Background(), tablestore.ScanInput{
		TableName:        "Trades",
		FilterExpression: "#attr0 !! :val0",
		ExpressionNames:  map[string]string{"#attr0": "TradeId"},
		ExpressionValues: map[string]any{":val0": "x"},
	})
	if err == nil {
		t.Fatal("expected expression error")
	}
	assertSQLMock(t, mock)
}

func TestCreateTable(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO table_def (table_name, attribute_defs)
VALUES ($1, $2::jsonb)`)).
		WithArgs("Trades", `[{"name":"TradeId","type":"S"}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.CreateTable(context.Background(), tablestore.Schema{
		TableName:  "Trades",
		Attributes: []tablestore.AttributeDef{{Name: "TradeId", Type: tablestore.TypeString}},
	})
	if err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestCreateTableRequiresAttributes(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	if err := store.CreateTable(context.Background(), tablestore.Schema{TableName: "Empty"}); err == nil {
		t.Fatal("expected validation error")
	}
	assertSQLMock(t, mock)
}

func TestPutItemsWritesInsideTransaction(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(describeQuery)).
		WithArgs("Trades").
		WillReturnRows(sqlmock.NewRows([]string{"attribute_defs"}).
			AddRow(`[{"name":"TradeId","type":"S"}]`))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO table_item (table_name, payload)
VALUES ($1, $2::jsonb)`)).
		WithArgs("Trades", `{"TradeId":"t-1"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO table_item (table_name, payload)
VALUES ($1, $2::jsonb)`)).
		WithArgs("Trades", `{"TradeId":"t-2"}`).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	written, err := store.PutItems(context.Background(), "Trades", []tablestore.Item{
		{"TradeId": "t-1"},
		{"TradeId": "t-2"},
	})
	if err != nil {
		t.Fatalf("PutItems() error = %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d", written)
	}
	assertSQLMock(t, mock)
}

func TestPutItemsUnknownTable(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(describeQuery)).
		WithArgs("Missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.PutItems(context.Background(), "Missing", []tablestore.Item{{"a": 1}})
	if !errors.Is(err, tablestore.ErrTableNotFound) {
		t.Fatalf("error = %v, want ErrTableNotFound", err)
	}
	assertSQLMock(t, mock)
}

func TestListTables(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT table_name
FROM table_def
ORDER BY table_name ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("Shipments").
			AddRow("Trades"))

	names, err := store.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if len(names) != 2 || names[0] != "Shipments" || names[1] != "Trades" {
		t.Fatalf("names = %v", names)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

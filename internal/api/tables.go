package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/smartscan/smartscan/internal/auth"
	"github.com/smartscan/smartscan/internal/observability"
	"github.com/smartscan/smartscan/internal/tablestore"
)

type tableCreateRequest struct {
	TableName  string                    `json:"table_name"`
	Attributes []tablestore.AttributeDef `json:"attributes"`
}

type putItemsRequest struct {
	Items []tablestore.Item `json:"items"`
}

// adminStore gates the write endpoints: read-only backends such as the
// duckdb snapshot store simply do not implement it.
func adminStore(deps Dependencies) (tablestore.Admin, bool) {
	admin, ok := deps.Store.(tablestore.Admin)
	return admin, ok && deps.Store != nil
}

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	admin, ok := adminStore(deps)
	if !ok {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "store does not support table listing", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleQueryReader, auth.RoleTableWriter); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	names, err := admin.ListTables(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "STORE_ERROR", "failed to list tables", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": names})
}

func handleGetTableSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Store == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "store dependency is not configured", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleQueryReader, auth.RoleTableWriter); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	tableName := r.PathValue("table")
	schema, err := deps.Store.DescribeSchema(r.Context(), tableName)
	if err != nil {
		if errors.Is(err, tablestore.ErrTableNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table does not exist", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "STORE_ERROR", "failed to describe table", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table_name": schema.TableName,
		"attributes": schema.Attributes,
	})
}

func handleCreateTable(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	admin, ok := adminStore(deps)
	if !ok {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "store does not support table creation", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleTableWriter); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req tableCreateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid create table request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(req.TableName) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TABLE_NAME_REQUIRED", "table_name is required", false, nil)
		return
	}
	if len(req.Attributes) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "ATTRIBUTES_REQUIRED", "at least one attribute definition is required", false, nil)
		return
	}
	for _, attr := range req.Attributes {
		switch attr.Type {
		case tablestore.TypeString, tablestore.TypeNumber, tablestore.TypeBinary:
		default:
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ATTRIBUTE_TYPE", "attribute type must be S, N or B", false, map[string]any{"attribute": attr.Name})
			return
		}
	}

	schema := tablestore.Schema{TableName: strings.TrimSpace(req.TableName), Attributes: req.Attributes}
	if err := admin.CreateTable(r.Context(), schema); err != nil {
		writeError(r.Context(), w, http.StatusConflict, "TABLE_CREATE_FAILED", err.Error(), false, nil)
		return
	}
	observability.IncrementTablesCreated()
	writeJSON(w, http.StatusCreated, map[string]any{
		"table_name": schema.TableName,
		"attributes": schema.Attributes,
	})
}

func handlePutItems(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	admin, ok := adminStore(deps)
	if !ok {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "store does not support item writes", false, nil)
		return
	}
	if err := requireAnyRole(r, auth.RoleTableWriter); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var req putItemsRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid put items request body", false, map[string]any{"details": err.Error()})
		return
	}
	if len(req.Items) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "ITEMS_REQUIRED", "at least one item is required", false, nil)
		return
	}

	tableName := r.PathValue("table")
	written, err := admin.PutItems(r.Context(), tableName, req.Items)
	if err != nil {
		if errors.Is(err, tablestore.ErrTableNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table does not exist", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "STORE_ERROR", "failed to put items", true, map[string]any{"details": err.Error()})
		return
	}
	observability.AddItemsWritten(written)
	writeJSON(w, http.StatusOK, map[string]any{
		"table_name": tableName,
		"written":    written,
	})
}

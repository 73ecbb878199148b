// Package api provides the HTTP handlers of the permission engine REST API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ArmorCode-Public-Test/metabase/internal/domain"
	"github.com/ArmorCode-Public-Test/metabase/internal/middleware"
	"github.com/ArmorCode-Public-Test/metabase/internal/service"
)

// Handler serves the authorization and administration endpoints.
type Handler struct {
	gate   *service.QueryGateService
	admin  *service.AdminService
	logger *slog.Logger
}

func NewHandler(gate *service.QueryGateService, admin *service.AdminService, logger *slog.Logger) *Handler {
	return &Handler{gate: gate, admin: admin, logger: logger.With("component", "api")}
}

// Routes mounts the authenticated endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/native-query/check", h.checkNativeQuery)
	r.Get("/data-sources/{id}/native-editor", h.nativeEditor)
	r.Get("/data-sources/{id}/tables", h.listTables)
	r.Post("/data-sources", h.createDataSource)
	r.Get("/data-sources/{id}", h.getDataSource)
	r.Post("/data-sources/{id}/tables", h.addTable)
	r.Delete("/data-sources/{id}/tables/{tableID}", h.removeTable)
	r.Put("/permissions", h.setPermission)
	r.Delete("/permissions", h.deletePermission)
	r.Post("/permissions/invalidate", h.invalidate)
	r.Get("/audit", h.listAudit)
}

type checkRequest struct {
	DataSourceID int64  `json:"data_source_id"`
	Query        string `json:"query"`
}

type checkResponse struct {
	Allowed            bool     `json:"allowed"`
	Reason             string   `json:"reason"`
	UnauthorizedTables []string `json:"unauthorized_tables,omitempty"`
}

func (h *Handler) checkNativeQuery(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no principal")
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DataSourceID == 0 {
		writeError(w, http.StatusBadRequest, "data_source_id is required")
		return
	}

	decision, err := h.gate.CheckNativeQuery(r.Context(), domain.NativeQueryRequest{
		Principal:    principal,
		DataSourceID: req.DataSourceID,
		Query:        req.Query,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := checkResponse{Allowed: decision.Allowed(), Reason: decision.Reason}
	for _, t := range decision.UnauthorizedTables {
		resp.UnauthorizedTables = append(resp.UnauthorizedTables, t.QualifiedName())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) nativeEditor(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no principal")
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	allowed, err := h.gate.CanOpenNativeEditor(r.Context(), principal, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}

type dataSourceRequest struct {
	Name   string `json:"name"`
	Engine string `json:"engine"`
}

func (h *Handler) createDataSource(w http.ResponseWriter, r *http.Request) {
	var req dataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ds, err := h.admin.CreateDataSource(r.Context(), req.Name, req.Engine)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dataSourceToAPI(ds))
}

func (h *Handler) getDataSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ds, err := h.admin.GetDataSource(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataSourceToAPI(ds))
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tables, err := h.admin.ListTables(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]tableAPI, len(tables))
	for i, t := range tables {
		out[i] = tableToAPI(t)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": out})
}

type addTableRequest struct {
	SchemaName string `json:"schema_name"`
	TableName  string `json:"table_name"`
}

func (h *Handler) addTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req addTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tbl, err := h.admin.AddTable(r.Context(), id, req.SchemaName, req.TableName)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tableToAPI(*tbl))
}

func (h *Handler) removeTable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tableID, ok := pathID(w, r, "tableID")
	if !ok {
		return
	}
	if err := h.admin.RemoveTable(r.Context(), id, tableID); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type permissionRequest struct {
	Principal    string `json:"principal"`
	DataSourceID int64  `json:"data_source_id"`
	Scope        string `json:"scope"`
	SchemaName   string `json:"schema_name,omitempty"`
	TableID      int64  `json:"table_id,omitempty"`
	Value        string `json:"value,omitempty"`
}

func (r permissionRequest) toEntry() domain.PermissionEntry {
	return domain.PermissionEntry{
		Principal:    r.Principal,
		DataSourceID: r.DataSourceID,
		Scope:        domain.ScopeLevel(r.Scope),
		SchemaName:   r.SchemaName,
		TableID:      r.TableID,
		PermType:     domain.PermTypeCreateQueries,
		Value:        domain.PermValue(r.Value),
	}
}

func (h *Handler) setPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry := req.toEntry()
	if err := entry.Validate(); err != nil {
		// Rejecting client input is a 400; only stored rows are 500s.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.admin.SetPermission(r.Context(), entry); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.admin.DeletePermission(r.Context(), req.toEntry()); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type invalidateRequest struct {
	Principal    *string `json:"principal,omitempty"`
	DataSourceID int64   `json:"data_source_id"`
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DataSourceID == 0 {
		writeError(w, http.StatusBadRequest, "data_source_id is required")
		return
	}
	evicted := h.admin.Invalidate(req.Principal, req.DataSourceID)
	writeJSON(w, http.StatusOK, map[string]int{"evicted": evicted})
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	entries, err := h.gate.RecentDecisions(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]auditAPI, len(entries))
	for i, e := range entries {
		out[i] = auditToAPI(e)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}

// --- response shapes ---

type dataSourceAPI struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Engine string `json:"engine"`
}

type tableAPI struct {
	ID         int64  `json:"id"`
	SchemaName string `json:"schema_name"`
	Name       string `json:"name"`
}

type auditAPI struct {
	ID                 string   `json:"id"`
	Principal          string   `json:"principal"`
	DataSourceID       int64    `json:"data_source_id"`
	Outcome            string   `json:"outcome"`
	Reason             string   `json:"reason"`
	UnauthorizedTables []string `json:"unauthorized_tables,omitempty"`
	CreatedAt          string   `json:"created_at"`
}

func dataSourceToAPI(ds *domain.DataSource) dataSourceAPI {
	return dataSourceAPI{ID: ds.ID, Name: ds.Name, Engine: ds.Engine}
}

func tableToAPI(t domain.Table) tableAPI {
	return tableAPI{ID: t.ID, SchemaName: t.SchemaName, Name: t.Name}
}

func auditToAPI(e domain.AuditEntry) auditAPI {
	return auditAPI{
		ID:                 e.ID,
		Principal:          e.Principal,
		DataSourceID:       e.DataSourceID,
		Outcome:            string(e.Outcome),
		Reason:             e.Reason,
		UnauthorizedTables: e.UnauthorizedTables,
		CreatedAt:          e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// --- plumbing ---

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{"code": status, "message": message})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err)
	}
	writeError(w, status, err.Error())
}

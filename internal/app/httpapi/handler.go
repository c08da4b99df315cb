// Package httpapi exposes the Submission & Batch API (spec.md §6) as chi
// HTTP handlers over internal/submission.Service, in the style of
// malbeclabs-doublezero's lake/api/handlers package: plain
// func(w http.ResponseWriter, r *http.Request) handlers registered as flat
// chi routes, JSON encoded directly onto the response writer.
//
// Import Path: enrichpipe.io/engine/internal/app/httpapi
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"enrichpipe.io/engine/internal/api/middleware"
	"enrichpipe.io/engine/internal/domain"
	apperrors "enrichpipe.io/engine/internal/pkg/errors"
	"enrichpipe.io/engine/internal/submission"
)

// Handler adapts submission.Service to chi routes.
type Handler struct {
	svc *submission.Service
}

// NewHandler builds a Handler over svc.
func NewHandler(svc *submission.Service) *Handler {
	return &Handler{svc: svc}
}

// Register attaches every route onto r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/submissions", h.createSubmission)
	r.Get("/v1/submissions/{id}", h.getSubmissionStatus)
	r.Get("/v1/orgs/{org_id}/entities", h.listEntities)
	r.Get("/v1/entities/{type}/{id}/snapshots", h.listSnapshots)
}

type submitEntityRequest struct {
	EntityType string         `json:"entity_type"`
	Fields     map[string]any `json:"fields"`
}

type submitRequest struct {
	OrgID       string                `json:"org_id"`
	CompanyID   string                `json:"company_id"`
	BlueprintID string                `json:"blueprint_id"`
	Entities    []submitEntityRequest `json:"entities"`
}

func (h *Handler) createSubmission(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"code": apperrors.CodeInvalidRequestField, "message": err.Error(),
		})
		return
	}
	if req.OrgID == "" || req.BlueprintID == "" || len(req.Entities) == 0 {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"code": apperrors.CodeInvalidRequestField, "message": "org_id, blueprint_id, and entities are required",
		})
		return
	}

	entities := make([]domain.SeedEntity, 0, len(req.Entities))
	for _, e := range req.Entities {
		entities = append(entities, domain.SeedEntity{EntityType: domain.EntityType(e.EntityType), Fields: e.Fields})
	}

	sub, err := h.svc.Submit(r.Context(), submission.SubmitRequest{
		OrgID:       req.OrgID,
		CompanyID:   req.CompanyID,
		BlueprintID: req.BlueprintID,
		Entities:    entities,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, sub)
}

func (h *Handler) getSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"code": apperrors.CodeInvalidRequestField, "message": "invalid submission id",
		})
		return
	}
	resp, err := h.svc.Status(r.Context(), submissionID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) listEntities(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org_id")
	entityType := domain.EntityType(r.URL.Query().Get("entity_type"))
	limit, offset := paginationFrom(r)

	records, err := h.svc.QueryEntities(r.Context(), orgID, entityType, limit, offset)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"entities": records})
}

func (h *Handler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	entityType := domain.EntityType(chi.URLParam(r, "type"))
	entityID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"code": apperrors.CodeInvalidRequestField, "message": "invalid entity id",
		})
		return
	}
	orgID := r.URL.Query().Get("org_id")
	limit, offset := paginationFrom(r)

	snaps, err := h.svc.QuerySnapshots(r.Context(), orgID, entityType, entityID, limit, offset)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

func paginationFrom(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}

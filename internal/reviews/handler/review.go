package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medbook/internal/reviews/service"
	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
	"medbook/pkg/middleware"
	"medbook/pkg/model"
)

type ReviewHandler struct {
	service service.ReviewService
	log     *logger.Logger
}

func NewReviewHandler(service service.ReviewService, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		log:     log,
	}
}

func (h *ReviewHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/doctors/:id/reviews", h.ListForDoctor)
	router.POST("/api/reviews", middleware.RequireRole(h.Create, auth.RolePatient))
	router.PATCH("/api/reviews/:id", middleware.RequireRole(h.Update, auth.RolePatient, auth.RoleAdmin))
	router.DELETE("/api/reviews/:id", middleware.RequireRole(h.Delete, auth.RolePatient, auth.RoleAdmin))

	router.GET("/api/admin/reviews", middleware.RequireRole(h.ListAll, auth.RoleAdmin))
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	var review model.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Create(r.Context(), principal.ID, &review); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, review); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *ReviewHandler) ListForDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListForDoctor", err)
		return
	}

	reviews, count, err := h.service.ListForDoctor(r.Context(), ps.ByName("id"), limit, offset)
	if err != nil {
		h.writeError(w, "ListForDoctor", err)
		return
	}

	if err := httputil.WritePaginated(w, reviews, count, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListForDoctor", "error", err)
	}
}

func (h *ReviewHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	reviews, count, err := h.service.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, reviews, count, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "error", err)
	}
}

type updateReviewRequest struct {
	ReviewText string `json:"review_text"`
	Rating     int    `json:"rating"`
}

func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	var req updateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Update(r.Context(), principal, ps.ByName("id"), req.ReviewText, req.Rating); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	if err := h.service.Delete(r.Context(), principal, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReviewHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}

package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medbook/internal/notifications/service"
	"medbook/pkg/auth"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
	"medbook/pkg/middleware"
)

type NotificationHandler struct {
	service service.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log,
	}
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/notifications", middleware.RequireRole(h.List, auth.RolePatient, auth.RoleDoctor))
	router.GET("/api/notifications/unread-count", middleware.RequireRole(h.UnreadCount, auth.RolePatient, auth.RoleDoctor))
	// PATCH for the single mark keeps this subtree clear of the static
	// read-all POST route, which httprouter cannot mix with a wildcard.
	router.PATCH("/api/notifications/:id/read", middleware.RequireRole(h.MarkRead, auth.RolePatient, auth.RoleDoctor))
	router.POST("/api/notifications/read-all", middleware.RequireRole(h.MarkAllRead, auth.RolePatient, auth.RoleDoctor))
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	views, count, err := h.service.List(r.Context(), principal.ID, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, views, count, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	count, err := h.service.UnreadCount(r.Context(), principal.ID)
	if err != nil {
		h.writeError(w, "UnreadCount", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"unread": count}); err != nil {
		h.log.Error("failed to write success response", "handler", "UnreadCount", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	if err := h.service.MarkRead(r.Context(), principal.ID, ps.ByName("id")); err != nil {
		h.writeError(w, "MarkRead", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	count, err := h.service.MarkAllRead(r.Context(), principal.ID)
	if err != nil {
		h.writeError(w, "MarkAllRead", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"marked": count}); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkAllRead", "error", err)
	}
}

func (h *NotificationHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}

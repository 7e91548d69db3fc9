package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"medbook/internal/appointments/service"
	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
	"medbook/pkg/middleware"
	"medbook/pkg/model"
)

const maxUploadMemory = 4 << 20

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/appointments", middleware.RequireRole(h.Book, auth.RolePatient))
	router.GET("/api/appointments", middleware.RequireRole(h.ListMine, auth.RolePatient, auth.RoleDoctor))
	router.GET("/api/appointments/:id", middleware.RequireRole(h.GetByID, auth.RolePatient, auth.RoleDoctor, auth.RoleAdmin))
	router.POST("/api/appointments/:id/cancel", middleware.RequireRole(h.Cancel, auth.RolePatient, auth.RoleDoctor))

	router.POST("/api/doctor/appointments/:id/accept", middleware.RequireRole(h.Accept, auth.RoleDoctor))
	router.POST("/api/doctor/appointments/:id/complete", middleware.RequireRole(h.Complete, auth.RoleDoctor))
	router.POST("/api/doctor/appointments/:id/remedy", middleware.RequireRole(h.SendRemedy, auth.RoleDoctor))
	router.GET("/api/doctor/patients", middleware.RequireRole(h.PatientStats, auth.RoleDoctor))
	router.GET("/api/doctor/dashboard", middleware.RequireRole(h.Dashboard, auth.RoleDoctor))

	router.GET("/api/admin/appointments", middleware.RequireRole(h.ListAll, auth.RoleAdmin))
	router.GET("/api/admin/patients", middleware.RequireRole(h.AdminPatients, auth.RoleAdmin))
	router.GET("/api/admin/dashboard", middleware.RequireRole(h.AdminDashboard, auth.RoleAdmin))
	router.POST("/api/admin/appointments/:id/cancel", middleware.RequireRole(h.Cancel, auth.RoleAdmin))
	router.DELETE("/api/admin/doctors/:id", middleware.RequireRole(h.RemoveDoctor, auth.RoleAdmin))
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Book", apperrors.InvalidInput("Invalid request body"))
		return
	}
	req.UserID = principal.ID

	appt, err := h.service.Book(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, appt); err != nil {
		h.log.Error("failed to write created response", "handler", "Book", "error", err)
	}
}

func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	var appts []*model.Appointment
	var count int64
	if principal.Role == auth.RoleDoctor {
		appts, count, err = h.service.ListForDoctor(r.Context(), principal.ID, limit, offset)
	} else {
		appts, count, err = h.service.ListForUser(r.Context(), principal.ID, limit, offset)
	}
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, appts, count, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	appt, err := h.service.GetByID(r.Context(), principal, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, appt); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	if err := h.service.Cancel(r.Context(), principal, ps.ByName("id")); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) Accept(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	if err := h.service.Accept(r.Context(), principal.ID, ps.ByName("id")); err != nil {
		h.writeError(w, "Accept", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	if err := h.service.Complete(r.Context(), principal.ID, ps.ByName("id")); err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	httputil.WriteNoContent(w)
}

// SendRemedy expects a multipart form with the prescription under "image".
func (h *AppointmentHandler) SendRemedy(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.writeError(w, "SendRemedy", apperrors.InvalidInput("Expected a multipart form upload"))
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.writeError(w, "SendRemedy", apperrors.InvalidInput("Invalid multipart form"))
		return
	}

	var image io.Reader
	imageName := ""
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		image = file
		imageName = header.Filename
	}

	if err := h.service.SendRemedy(r.Context(), principal.ID, ps.ByName("id"), image, imageName); err != nil {
		h.writeError(w, "SendRemedy", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) PatientStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	stats, err := h.service.PatientStats(r.Context(), principal.ID)
	if err != nil {
		h.writeError(w, "PatientStats", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "PatientStats", "error", err)
	}
}

func (h *AppointmentHandler) Dashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	stats, err := h.service.Dashboard(r.Context(), principal.ID)
	if err != nil {
		h.writeError(w, "Dashboard", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "Dashboard", "error", err)
	}
}

func (h *AppointmentHandler) AdminDashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.AdminDashboard(r.Context())
	if err != nil {
		h.writeError(w, "AdminDashboard", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "AdminDashboard", "error", err)
	}
}

func (h *AppointmentHandler) AdminPatients(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.AdminPatientStats(r.Context())
	if err != nil {
		h.writeError(w, "AdminPatients", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "AdminPatients", "error", err)
	}
}

func (h *AppointmentHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	appts, count, err := h.service.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, appts, count, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "error", err)
	}
}

func (h *AppointmentHandler) RemoveDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.RemoveDoctor(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "RemoveDoctor", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}

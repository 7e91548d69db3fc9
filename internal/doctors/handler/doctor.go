package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"medbook/internal/doctors/service"
	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
	"medbook/pkg/middleware"
	"medbook/pkg/model"
)

const maxUploadMemory = 4 << 20

type DoctorHandler struct {
	service service.DoctorService
	tokens  *auth.Manager
	log     *logger.Logger
}

func NewDoctorHandler(service service.DoctorService, tokens *auth.Manager, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{
		service: service,
		tokens:  tokens,
		log:     log,
	}
}

func (h *DoctorHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/doctors", h.List)
	router.GET("/api/doctors/:id", h.GetByID)
	router.POST("/api/doctors/login", h.Login)

	router.POST("/api/admin/doctors", middleware.RequireRole(h.Add, auth.RoleAdmin))
	router.PATCH("/api/admin/doctors/:id/availability", middleware.RequireRole(h.ToggleAvailability, auth.RoleAdmin))

	router.GET("/api/doctor/profile", middleware.RequireRole(h.Profile, auth.RoleDoctor))
	router.PATCH("/api/doctor/profile", middleware.RequireRole(h.UpdateProfile, auth.RoleDoctor))
	router.PATCH("/api/doctor/availability", middleware.RequireRole(h.ToggleOwnAvailability, auth.RoleDoctor))
	router.POST("/api/doctor/change-password", middleware.RequireRole(h.ChangePassword, auth.RoleDoctor))
}

type addDoctorRequest struct {
	model.Doctor
	Password string `json:"password"`
}

// Add registers a doctor. A multipart form may carry a profile image under
// the "image" field; a plain JSON body registers without one.
func (h *DoctorHandler) Add(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req addDoctorRequest
	var image io.Reader
	imageName := ""

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			h.writeError(w, "Add", apperrors.InvalidInput("Invalid multipart form"))
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("doctor")), &req); err != nil {
			h.writeError(w, "Add", apperrors.InvalidInput("Invalid doctor payload in form"))
			return
		}
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			image = file
			imageName = header.Filename
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Add", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Add(r.Context(), &req.Doctor, req.Password, image, imageName); err != nil {
		h.writeError(w, "Add", err)
		return
	}

	req.Doctor.Password = ""
	if err := httputil.WriteCreated(w, req.Doctor); err != nil {
		h.log.Error("failed to write created response", "handler", "Add", "error", err)
	}
}

func (h *DoctorHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	doctors, count, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	// Public listing, contact details stay private.
	for _, d := range doctors {
		d.Email = ""
	}

	if err := httputil.WritePaginated(w, doctors, count, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *DoctorHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctor, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	doctor.Email = ""

	if err := httputil.WriteSuccess(w, doctor); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *DoctorHandler) Profile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	doctor, err := h.service.GetByID(r.Context(), principal.ID)
	if err != nil {
		h.writeError(w, "Profile", err)
		return
	}

	if err := httputil.WriteSuccess(w, doctor); err != nil {
		h.log.Error("failed to write success response", "handler", "Profile", "error", err)
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *DoctorHandler) ChangePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "ChangePassword", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, "ChangePassword", err)
		return
	}

	httputil.WriteNoContent(w)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (h *DoctorHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Login", apperrors.InvalidInput("Invalid request body"))
		return
	}

	doctor, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	token, err := h.tokens.Generate(doctor.ID, auth.RoleDoctor)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	resp := loginResponse{Token: token, ID: doctor.ID, Name: doctor.Name, Role: auth.RoleDoctor}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Login", "error", err)
	}
}

func (h *DoctorHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.toggleAvailability(w, r, ps.ByName("id"))
}

func (h *DoctorHandler) ToggleOwnAvailability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())
	h.toggleAvailability(w, r, principal.ID)
}

func (h *DoctorHandler) toggleAvailability(w http.ResponseWriter, r *http.Request, id string) {
	available, err := h.service.ToggleAvailability(r.Context(), id)
	if err != nil {
		h.writeError(w, "ToggleAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]bool{"available": available}); err != nil {
		h.log.Error("failed to write success response", "handler", "ToggleAvailability", "error", err)
	}
}

func (h *DoctorHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	var updates model.DoctorProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "UpdateProfile", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.UpdateProfile(r.Context(), principal.ID, &updates); err != nil {
		h.writeError(w, "UpdateProfile", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *DoctorHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}

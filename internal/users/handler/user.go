package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"medbook/internal/users/service"
	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
	"medbook/pkg/middleware"
	"medbook/pkg/model"
)

const maxUploadMemory = 4 << 20

type UserHandler struct {
	service service.UserService
	tokens  *auth.Manager
	log     *logger.Logger
}

func NewUserHandler(service service.UserService, tokens *auth.Manager, log *logger.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		tokens:  tokens,
		log:     log,
	}
}

func (h *UserHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/users/register", h.Register)
	router.POST("/api/users/login", h.Login)

	router.GET("/api/users/profile", middleware.RequireRole(h.Profile, auth.RolePatient))
	router.PATCH("/api/users/profile", middleware.RequireRole(h.UpdateProfile, auth.RolePatient))
	router.POST("/api/users/change-password", middleware.RequireRole(h.ChangePassword, auth.RolePatient))

	router.GET("/api/admin/users", middleware.RequireRole(h.List, auth.RoleAdmin))
	router.PATCH("/api/admin/users/:id/block", middleware.RequireRole(h.Block, auth.RoleAdmin))
	router.PATCH("/api/admin/users/:id/unblock", middleware.RequireRole(h.Unblock, auth.RoleAdmin))
}

type registerRequest struct {
	model.User
	Password string `json:"password"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Register", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Register(r.Context(), &req.User, req.Password); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	token, err := h.tokens.Generate(req.User.ID, auth.RolePatient)
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}

	if err := httputil.WriteCreated(w, map[string]string{"token": token, "id": req.User.ID}); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "error", err)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Login", apperrors.InvalidInput("Invalid request body"))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	token, err := h.tokens.Generate(user.ID, auth.RolePatient)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	resp := map[string]string{"token": token, "id": user.ID, "name": user.Name, "role": auth.RolePatient}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Login", "error", err)
	}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	user, err := h.service.GetByID(r.Context(), principal.ID)
	if err != nil {
		h.writeError(w, "Profile", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "Profile", "error", err)
	}
}

// UpdateProfile accepts JSON, or a multipart form with a "profile" JSON field
// and an optional "image" file.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, _ := auth.PrincipalFrom(r.Context())

	var updates model.UserProfileUpdate
	var image io.Reader
	imageName := ""

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			h.writeError(w, "UpdateProfile", apperrors.InvalidInput("Invalid multipart form"))
			return
		}
		if raw := r.FormValue("profile"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &updates); err != nil {
				h.writeError(w, "UpdateProfile", apperrors.InvalidInput("Invalid profile payload in form"))
				return
			}
		}
		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()
			image = file
			imageName = header.Filename
		}
	} else if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "UpdateProfile", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.UpdateProfile(r.Context(), principal.ID, &updates, image, imageName); err != nil {
		h.writeError(w, "UpdateProfile", err)
		return
	}

	httputil.WriteNoContent(w)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	users, count, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, users, count, limit, int(offset)); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setBlocked(w, r, ps.ByName("id"), true)
}

func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setBlocked(w, r, ps.ByName("id"), false)
}

func (h *UserHandler) setBlocked(w http.ResponseWriter, r *http.Request, id string, blocked bool) {
	if err := h.service.SetBlocked(r.Context(), id, blocked); err != nil {
		h.writeError(w, "SetBlocked", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *UserHandler) writeError(w http.ResponseWriter, op string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", op, "error", writeErr)
	}
}

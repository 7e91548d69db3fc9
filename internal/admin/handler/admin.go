package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
	"medbook/pkg/sanitizer"
)

// AdminHandler issues admin tokens against the credentials configured in the
// environment. There is no admin record in the database.
type AdminHandler struct {
	email    string
	password string
	tokens   *auth.Manager
	log      *logger.Logger
}

func NewAdminHandler(email, password string, tokens *auth.Manager, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		email:    email,
		password: password,
		tokens:   tokens,
		log:      log,
	}
}

func (h *AdminHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/admin/login", h.Login)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}

	if h.email == "" || h.password == "" {
		h.writeError(w, apperrors.Unauthorized("Admin login is not configured"))
		return
	}

	email := sanitizer.NormalizeEmail(req.Email)
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(h.email)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) == 1
	if !emailOK || !passOK {
		h.writeError(w, apperrors.Unauthorized("Invalid credentials"))
		return
	}

	token, err := h.tokens.Generate("admin", auth.RoleAdmin)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, loginResponse{Token: token, Role: auth.RoleAdmin}); err != nil {
		h.log.Error("failed to write success response", "handler", "Login", "error", err)
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Login", "error", writeErr)
	}
}

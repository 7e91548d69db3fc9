package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"medbook/pkg/auth"
	apperrors "medbook/pkg/errors"
	httputil "medbook/pkg/http"
	"medbook/pkg/logger"
)

type TokenValidator interface {
	Validate(token string) (auth.Principal, error)
}

// Handler upgrades authenticated connections and parks them in the caller's
// private room. Browsers cannot set an Authorization header on a websocket
// dial, so the token rides the query string.
type Handler struct {
	hub      *Hub
	tokens   TokenValidator
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func NewHandler(hub *Hub, tokens TokenValidator, log *logger.Logger) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/ws", h.Serve)
}

func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	token := r.URL.Query().Get("token")
	if token == "" {
		_ = httputil.WriteError(w, apperrors.Unauthorized("missing token"))
		return
	}

	principal, err := h.tokens.Validate(token)
	if err != nil {
		_ = httputil.WriteError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h.hub, conn, principal.Room(), h.log)
	h.hub.register(client)

	go client.writePump()
	go client.readPump()
}

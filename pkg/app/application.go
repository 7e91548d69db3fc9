package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"medbook/pkg/config"
	"medbook/pkg/contracts"
	"medbook/pkg/middleware"
)

// Closer is a shutdown hook, stopped in registration order after the HTTP
// server drains.
type Closer func()

// Application wires three handler chains onto one server: the full stack for
// /api, a minimal chain for the websocket endpoint (a long-lived upgrade
// cannot sit behind the request timeout), and a minimal chain for health.
type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore *middleware.InMemoryIdempotencyStore
	rateLimiter      *middleware.RateLimiter
	closers          []Closer
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

// OnShutdown registers a hook run during graceful shutdown.
func (a *Application) OnShutdown(c Closer) {
	a.closers = append(a.closers, c)
}

func (a *Application) SetApp(authMw func(http.Handler) http.Handler, wsHandler contracts.Handler, appHandlers ...contracts.Handler) {
	healthChain := a.buildHealthChain()
	wsChain := a.buildWsChain(wsHandler)
	appChain := a.buildAppChain(authMw, appHandlers...)

	mux := http.NewServeMux()
	mux.Handle("/health", healthChain)
	mux.Handle("/ready", healthChain)
	mux.Handle("/ws", wsChain)
	mux.Handle("/", appChain)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

func (a *Application) buildHealthChain() http.Handler {
	router := httprouter.New()
	NewHealthHandler(a.cfg.Client.Mongo, a.cfg.Log).RegisterRoutes(router)

	var chain http.Handler = router
	chain = middleware.RequestLogging(a.cfg.Log)(chain)
	chain = middleware.Recovery(a.cfg.Log)(chain)
	return chain
}

// The websocket chain authenticates in the handler itself (token query
// param) and must skip the timeout and write-capturing middleware.
func (a *Application) buildWsChain(wsHandler contracts.Handler) http.Handler {
	router := httprouter.New()
	wsHandler.RegisterRoutes(router)

	var chain http.Handler = router
	chain = middleware.RequestLogging(a.cfg.Log)(chain)
	chain = middleware.Recovery(a.cfg.Log)(chain)
	return chain
}

func (a *Application) buildAppChain(authMw func(http.Handler) http.Handler, appHandlers ...contracts.Handler) http.Handler {
	router := httprouter.New()
	for _, h := range appHandlers {
		h.RegisterRoutes(router)
	}

	a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	a.rateLimiter = middleware.NewRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow, a.cfg.Log)

	var chain http.Handler = router
	chain = middleware.Idempotency(a.idempotencyStore, "Idempotency-Key")(chain)
	chain = middleware.RequestTimeout(a.cfg.RequestTimeout)(chain)
	chain = middleware.RateLimit(a.rateLimiter)(chain)
	chain = authMw(chain)
	chain = middleware.ContentTypeValidation(a.cfg.Log)(chain)
	chain = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(chain)
	chain = middleware.RequestLogging(a.cfg.Log)(chain)
	chain = middleware.Recovery(a.cfg.Log)(chain)
	return chain
}

func (a *Application) Run() {
	serverErrors := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		a.gracefulShutdown()
	}
}

func (a *Application) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	for _, c := range a.closers {
		c()
	}
	a.cfg.Log.Info("Server stopped gracefully")
}

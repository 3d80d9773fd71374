package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/log"
	stg "github.com/vocdoni/utt-core/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the storage instance and the authority keys
// the burns are checked against.
type APIConfig struct {
	Host    string
	Port    int
	Storage *stg.Storage
	Params  *utt.Params
	BankPK  *utt.RandSigPK
	RegPK   *utt.RegAuthPK
}

// API type represents the API HTTP server.
type API struct {
	router  *chi.Mux
	server  *http.Server
	addr    net.Addr
	storage *stg.Storage
	params  *utt.Params
	bankPK  *utt.RandSigPK
	regPK   *utt.RegAuthPK
}

// New creates a new API instance with the given configuration and starts
// the HTTP server in the background.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Params == nil || conf.BankPK == nil || conf.RegPK == nil {
		return nil, fmt.Errorf("missing parameters or authority keys")
	}
	a := &API{
		storage: conf.Storage,
		params:  conf.Params,
		bankPK:  conf.BankPK,
		regPK:   conf.RegPK,
	}

	// Initialize router
	a.initRouter()

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	a.addr = ln.Addr()
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "addr", a.addr.String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Addr returns the address the server listens on.
func (a *API) Addr() net.Addr {
	return a.addr
}

// Shutdown gracefully stops the HTTP server.
func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", BurnsEndpoint, "method", "POST")
	a.router.Post(BurnsEndpoint, a.newBurn)
	log.Infow("register handler", "endpoint", BurnEndpoint, "method", "GET")
	a.router.Get(BurnEndpoint, a.burnStatus)
	log.Infow("register handler", "endpoint", NullifierRootEndpoint, "method", "GET")
	a.router.Get(NullifierRootEndpoint, a.nullifierRoot)
	log.Infow("register handler", "endpoint", NullifierEndpoint, "method", "GET")
	a.router.Get(NullifierEndpoint, a.nullifier)
	log.Infow("register handler", "endpoint", KeysEndpoint, "method", "GET")
	a.router.Get(KeysEndpoint, a.keys)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", CorrelationIDHeader},
		ExposedHeaders:   []string{CorrelationIDHeader},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.Use(traceRequest)

	// Register the API handlers
	a.registerHandlers()
}

package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vocdoni/utt-core/api"
	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/storage"
)

// shutdownTimeout bounds the time given to in flight requests on Stop.
const shutdownTimeout = 10 * time.Second

// Authorities holds the public parameters every service checks burns
// against.
type Authorities struct {
	Params *utt.Params
	BankPK *utt.RandSigPK
	RegPK  *utt.RegAuthPK
}

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	storage *storage.Storage
	auth    *Authorities
	api     *api.API
	mu      sync.Mutex
	cancel  context.CancelFunc
	host    string
	port    int
}

// NewAPI creates a new APIService instance.
func NewAPI(storage *storage.Storage, auth *Authorities, host string, port int) *APIService {
	return &APIService{
		storage: storage,
		auth:    auth,
		host:    host,
		port:    port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if as.auth == nil {
		return fmt.Errorf("missing authorities")
	}

	// Create API instance with existing storage
	var err error
	as.api, err = api.New(&api.APIConfig{
		Host:    as.host,
		Port:    as.port,
		Storage: as.storage,
		Params:  as.auth.Params,
		BankPK:  as.auth.BankPK,
		RegPK:   as.auth.RegPK,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	ctx, as.cancel = context.WithCancel(ctx)
	srv := as.api
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warnw("API server shutdown", "error", err.Error())
		}
	}()
	return nil
}

// Stop halts the API server. The storage is left open, it belongs to the
// caller.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
	}
}

// HostPort returns the host and port of the API server. Once started, the
// port is the one actually bound, even if 0 was requested.
func (as *APIService) HostPort() (string, int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api != nil && as.cancel != nil {
		if addr, ok := as.api.Addr().(*net.TCPAddr); ok {
			return as.host, addr.Port
		}
	}
	return as.host, as.port
}

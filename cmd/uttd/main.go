package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/service"
	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/validator"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

const (
	// envPrefix is prepended to the upper case flag name to form the
	// environment variable that overrides its default.
	envPrefix = "UTT_"

	bankSecretName      = "bank"
	registrarSecretName = "registrar"
)

// config holds the daemon settings.
type config struct {
	host      string
	port      int
	datadir   string
	logLevel  string
	logOutput string
	workers   int
	cacheSize int
	password  string
	tag       string
}

func parseConfig() *config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c := &config{}
	flag.StringVar(&c.host, "host", "0.0.0.0", "API listen address")
	flag.IntVar(&c.port, "port", 9090, "API listen port")
	flag.StringVar(&c.datadir, "datadir", filepath.Join(home, ".uttd"), "data directory")
	flag.StringVar(&c.logLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&c.logOutput, "logoutput", "stdout", "log output (stdout, stderr or a file path)")
	flag.IntVar(&c.workers, "workers", 0, "parallel burn validations (0 means one per CPU)")
	flag.IntVar(&c.cacheSize, "cachesize", validator.DefaultCacheSize, "number of burn verdicts kept in memory")
	flag.StringVar(&c.password, "password", "", "password protecting the authority keys")
	flag.StringVar(&c.tag, "nullifierDomainTag", utt.DefaultTag, "domain separation tag of the system parameters")
	flag.Parse()

	// environment variables override the defaults, explicit flags win
	flag.VisitAll(func(f *flag.Flag) {
		if f.Changed {
			return
		}
		if v, ok := os.LookupEnv(envPrefix + strings.ToUpper(f.Name)); ok {
			if err := flag.Set(f.Name, v); err != nil {
				log.Fatalf("invalid value for %s%s: %v", envPrefix, strings.ToUpper(f.Name), err)
			}
		}
	})
	return c
}

func main() {
	cfg := parseConfig()
	log.Init(cfg.logLevel, cfg.logOutput, os.Stderr)

	if cfg.password == "" {
		log.Fatalf("a password is required, use --password or %sPASSWORD", envPrefix)
	}
	params, err := utt.NewParamsWithTag(cfg.tag)
	if err != nil {
		log.Fatal(err)
	}

	database, err := metadb.New(db.TypePebble, filepath.Join(cfg.datadir, "db"))
	if err != nil {
		log.Fatal(err)
	}
	stg, err := storage.New(database)
	if err != nil {
		log.Fatal(err)
	}
	defer stg.Close()

	bank, reg, err := loadOrCreateKeys(stg, cfg.password)
	if err != nil {
		log.Fatal(err)
	}
	auth := &service.Authorities{
		Params: params,
		BankPK: bank.PublicKey(),
		RegPK:  reg.PublicKey(),
	}
	// the node only verifies, the secret keys are not kept in memory
	bank.Zeroize()
	reg.Zeroize()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	vs, err := service.NewValidator(stg, auth, validator.Config{
		Workers:   cfg.workers,
		CacheSize: cfg.cacheSize,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := vs.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer vs.Stop()

	api := service.NewAPI(stg, auth, cfg.host, cfg.port)
	if err := api.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer api.Stop()

	log.Infow("uttd started",
		"tag", params.Tag(),
		"datadir", cfg.datadir,
		"pendingBurns", stg.CountPendingBurns(),
	)
	<-ctx.Done()
	log.Infow("shutting down")
	// let the API drain in flight requests
	time.Sleep(100 * time.Millisecond)
}

// loadOrCreateKeys opens the authority keys stored in stg, generating and
// storing new ones on first run.
func loadOrCreateKeys(stg *storage.Storage, password string) (*utt.RandSigSK, *utt.RegAuthSK, error) {
	var bank *utt.RandSigSK
	if err := withSecret(stg, bankSecretName, password, func() ([]byte, error) {
		sk, err := utt.GenerateBankKey()
		if err != nil {
			return nil, err
		}
		defer sk.Zeroize()
		log.Infow("generated new bank key")
		return sk.Marshal(), nil
	}, func(data []byte) (err error) {
		bank, err = utt.UnmarshalRandSigSK(data)
		return err
	}); err != nil {
		return nil, nil, err
	}

	var reg *utt.RegAuthSK
	if err := withSecret(stg, registrarSecretName, password, func() ([]byte, error) {
		sk, err := utt.GenerateRegAuth()
		if err != nil {
			return nil, err
		}
		defer sk.Zeroize()
		log.Infow("generated new registration authority key")
		return sk.Marshal(), nil
	}, func(data []byte) (err error) {
		reg, err = utt.UnmarshalRegAuthSK(data)
		return err
	}); err != nil {
		bank.Zeroize()
		return nil, nil, err
	}
	return bank, reg, nil
}

// withSecret passes the plaintext of the secret called name to use. If the
// secret does not exist yet, it is created with generate and stored first.
// The plaintext buffer is wiped once use returns.
func withSecret(stg *storage.Storage, name, password string,
	generate func() ([]byte, error), use func([]byte) error,
) error {
	data, err := stg.Secret(name, password)
	if errors.Is(err, storage.ErrNotFound) {
		if data, err = generate(); err != nil {
			return err
		}
		if err := stg.SetSecret(name, password, data); err != nil {
			clear(data)
			return err
		}
	} else if err != nil {
		return fmt.Errorf("open %s secret: %w", name, err)
	}
	defer clear(data)
	return use(data)
}

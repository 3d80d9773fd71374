// storage package contains all the artifacts that are stored in the database,
// but also is an abstraction of a queue for the processing of them by different
// services. The storage package includes a prefixed key-value store that allows
// to store the different types of artifacts in the database. The following
// prefixes are used:
//   - 'b/' for pending burn operations (queued)
//   - 'br/' for reservations of pending burns
//   - 'r/' for burn records (status by burn hash)
//   - 'n/' for the spent nullifiers merkle tree
//   - 'k/' for encrypted key material
//
// Note: Not all the prefixes support queue operations, only the ones that are
// used in the processing of the artifacts.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	burnPrefix            = []byte("b/")
	burnReservationPrefix = []byte("br/")
	burnRecordPrefix      = []byte("r/")
	nullifierPrefix       = []byte("n/")
	keyPrefix             = []byte("k/")
)

const (
	// maxKeySize is the maximum size of the key in bytes. It is used to
	// generate the key of the artifacts stored in the database by truncating
	// the hash of the artifact itself.
	maxKeySize = 12
)

var (
	// ErrNotFound is returned when an artifact is not in the database.
	ErrNotFound = errors.New("not found")
	// ErrNoMoreElements is returned when a queue has no available elements.
	ErrNoMoreElements = errors.New("no more elements")
	// ErrAlreadyExists is returned when pushing an artifact that is already
	// stored.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNullifierExists is returned when accepting a burn whose nullifier
	// was already spent.
	ErrNullifierExists = errors.New("nullifier already spent")
)

// Storage is the interface that wraps the basic methods to interact with the
// storage.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	nullifiers *arbo.Tree
}

// New creates a new Storage instance. Reservations left by a previous run
// are released, so interrupted work is picked up again.
func New(database db.Database) (*Storage, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(database, nullifierPrefix),
		MaxLevels:    types.NullifierTreeMaxLevels,
		HashFunction: arbo.HashFunctionSha256,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open nullifier tree: %w", err)
	}
	s := &Storage{db: database, nullifiers: tree}
	released, err := s.releaseReservations(burnReservationPrefix)
	if err != nil {
		return nil, fmt.Errorf("could not release reservations: %w", err)
	}
	if released > 0 {
		log.Infow("released stale burn reservations", "count", released)
	}
	return s, nil
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage", "error", err.Error())
	}
}

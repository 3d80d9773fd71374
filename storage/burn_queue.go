package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/utt-core/log"
	"github.com/vocdoni/utt-core/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// PushBurn stores a new burn operation into the pending burns queue and
// records it as pending under its hash. It returns ErrAlreadyExists if a
// burn with the same hash was already submitted.
func (s *Storage) PushBurn(hash string, pb *PendingBurn) error {
	recordKey, err := burnRecordKey(hash)
	if err != nil {
		return err
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var existing BurnRecord
	if err := s.getArtifact(burnRecordPrefix, recordKey, &existing); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("get burn record: %w", err)
	}

	val, err := encodeArtifact(pb)
	if err != nil {
		return fmt.Errorf("encode burn: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), burnPrefix)
	if err := wTx.Set(hashKey(pb.Data), val); err != nil {
		wTx.Discard()
		return err
	}
	if err := wTx.Commit(); err != nil {
		return err
	}
	return s.setArtifact(burnRecordPrefix, recordKey, &BurnRecord{
		Hash:      hash,
		Status:    BurnStatusPending,
		UpdatedAt: time.Now(),
	})
}

// NextBurn returns the next non-reserved burn, creates a reservation, and
// returns it. It returns the burn, the key, and an error. If no burns are
// available, returns ErrNoMoreElements. The key is used to mark the burn as
// done or rejected after processing.
func (s *Storage) NextBurn() (*PendingBurn, []byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	pr := prefixeddb.NewPrefixedReader(s.db, burnPrefix)
	var chosenKey, chosenVal []byte
	if err := pr.Iterate(nil, func(k, v []byte) bool {
		// check if reserved
		if s.isReserved(burnReservationPrefix, k) {
			return true
		}
		chosenKey = append([]byte(nil), k...)
		chosenVal = append([]byte(nil), v...)
		return false
	}); err != nil {
		return nil, nil, fmt.Errorf("iterate burns: %w", err)
	}
	if chosenVal == nil {
		return nil, nil, ErrNoMoreElements
	}

	var pb PendingBurn
	if err := decodeArtifact(chosenVal, &pb); err != nil {
		return nil, nil, fmt.Errorf("decode burn: %w", err)
	}

	if err := s.setReservation(burnReservationPrefix, chosenKey); err != nil {
		return nil, nil, fmt.Errorf("reserve burn: %w", err)
	}
	return &pb, chosenKey, nil
}

// MarkBurnDone is called once the burn under key k has been validated. Its
// nullifier is added to the spent nullifiers tree and the burn record is
// stored as accepted. If the nullifier was already spent by another burn,
// ErrNullifierExists is returned and the burn stays reserved, so the caller
// can reject it. A nullifier already bound to this same burn means a previous
// call was interrupted after the tree update, and the call completes it.
func (s *Storage) MarkBurnDone(k []byte, rec *BurnRecord) error {
	recordKey, err := burnRecordKey(rec.Hash)
	if err != nil {
		return err
	}
	if len(rec.Nullifier) == 0 {
		return fmt.Errorf("empty nullifier")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	_, owner, err := s.nullifiers.Get(nullifierKey(rec.Nullifier))
	switch {
	case errors.Is(err, arbo.ErrKeyNotFound):
		if err := s.nullifiers.Add(nullifierKey(rec.Nullifier), recordKey); err != nil {
			return fmt.Errorf("add nullifier: %w", err)
		}
	case err != nil:
		return fmt.Errorf("get nullifier: %w", err)
	case !bytes.Equal(owner, recordKey):
		return ErrNullifierExists
	default:
		log.Debugw("resuming accepted burn", "hash", rec.Hash)
	}

	rec.Status = BurnStatusAccepted
	rec.UpdatedAt = time.Now()
	return s.finishBurn(k, recordKey, rec)
}

// MarkBurnRejected removes the burn under key k from the queue and stores
// its record as rejected. The record hash may be empty when the burn could
// not even be decoded, in which case only the queue entry is removed.
func (s *Storage) MarkBurnRejected(k []byte, rec *BurnRecord) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if err := s.removePendingBurn(k); err != nil {
		return err
	}
	if rec.Hash == "" {
		return nil
	}
	recordKey, err := burnRecordKey(rec.Hash)
	if err != nil {
		return err
	}
	rec.Status = BurnStatusRejected
	rec.UpdatedAt = time.Now()
	return s.setArtifact(burnRecordPrefix, recordKey, rec)
}

// ReleaseBurn drops the reservation of the burn under key k, making it
// available again to NextBurn.
func (s *Storage) ReleaseBurn(k []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if err := s.deleteArtifact(burnReservationPrefix, k); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete burn reservation: %w", err)
	}
	return nil
}

// removePendingBurn deletes the reservation and the queue entry of key k.
// The caller must hold the global lock.
func (s *Storage) removePendingBurn(k []byte) error {
	return s.finishBurn(k, nil, nil)
}

// finishBurn deletes the reservation and the queue entry of key k and, if
// rec is not nil, stores it under recordKey, all in a single write
// transaction. The caller must hold the global lock.
func (s *Storage) finishBurn(k, recordKey []byte, rec *BurnRecord) error {
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := wTx.Delete(prefixedKey(burnReservationPrefix, k)); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("delete burn reservation: %w", err)
	}
	if err := wTx.Delete(prefixedKey(burnPrefix, k)); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("delete pending burn: %w", err)
	}
	if rec != nil {
		data, err := encodeArtifact(rec)
		if err != nil {
			return fmt.Errorf("encode burn record: %w", err)
		}
		if err := wTx.Set(prefixedKey(burnRecordPrefix, recordKey), data); err != nil {
			return fmt.Errorf("set burn record: %w", err)
		}
	}
	return wTx.Commit()
}

// BurnStatus returns the record of the burn with the given hash, or
// ErrNotFound.
func (s *Storage) BurnStatus(hash string) (*BurnRecord, error) {
	recordKey, err := burnRecordKey(hash)
	if err != nil {
		return nil, err
	}
	var rec BurnRecord
	if err := s.getArtifact(burnRecordPrefix, recordKey, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountPendingBurns returns the number of burns waiting in the queue,
// reserved or not.
func (s *Storage) CountPendingBurns() int {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	rd := prefixeddb.NewPrefixedReader(s.db, burnPrefix)
	count := 0
	if err := rd.Iterate(nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		log.Warnw("failed to count pending burns", "error", err.Error())
	}
	return count
}

// HasNullifier reports whether the nullifier was already spent by an
// accepted burn.
func (s *Storage) HasNullifier(nullifier []byte) (bool, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.hasNullifier(nullifier)
}

// NullifierBurn returns the hash of the accepted burn that spent the
// nullifier, or ErrNotFound.
func (s *Storage) NullifierBurn(nullifier []byte) (string, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	_, v, err := s.nullifiers.Get(nullifierKey(nullifier))
	if err != nil {
		if errors.Is(err, arbo.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get nullifier: %w", err)
	}
	return hex.EncodeToString(v), nil
}

func (s *Storage) hasNullifier(nullifier []byte) (bool, error) {
	if len(nullifier) == 0 {
		return false, fmt.Errorf("empty nullifier")
	}
	if _, _, err := s.nullifiers.Get(nullifierKey(nullifier)); err != nil {
		if errors.Is(err, arbo.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get nullifier: %w", err)
	}
	return true, nil
}

// NullifierRoot returns the root of the spent nullifiers tree.
func (s *Storage) NullifierRoot() (types.HexBytes, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	root, err := s.nullifiers.Root()
	if err != nil {
		return nil, fmt.Errorf("nullifier root: %w", err)
	}
	return root, nil
}

// nullifierKey maps a nullifier to its leaf key in the nullifiers tree.
func nullifierKey(nullifier []byte) []byte {
	h := sha256.Sum256(nullifier)
	return h[:]
}

// burnRecordKey decodes a burn hash into the key of its record.
func burnRecordKey(hash string) ([]byte, error) {
	key, err := types.HexStringToHexBytes(hash)
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("invalid burn hash %q", hash)
	}
	return key, nil
}

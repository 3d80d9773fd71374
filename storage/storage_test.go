package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/utt-core/util"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
)

func newTestStorage(c *qt.C) *Storage {
	st, err := New(metadb.NewTest(c.TB))
	c.Assert(err, qt.IsNil)
	return st
}

func pendingBurn() (string, *PendingBurn) {
	return util.RandomHex(32), &PendingBurn{
		Data:          util.RandomBytes(64),
		CorrelationID: util.RandomHex(8),
		ReceivedAt:    time.Now(),
	}
}

func TestBurnQueue(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(c)

	_, _, err := st.NextBurn()
	c.Assert(err, qt.Equals, ErrNoMoreElements)

	hash, pb := pendingBurn()
	c.Assert(st.PushBurn(hash, pb), qt.IsNil)
	c.Assert(st.PushBurn(hash, pb), qt.Equals, ErrAlreadyExists)
	c.Assert(st.CountPendingBurns(), qt.Equals, 1)

	rec, err := st.BurnStatus(hash)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, BurnStatusPending)

	got, key, err := st.NextBurn()
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(got.Data), qt.DeepEquals, []byte(pb.Data))
	c.Assert(got.CorrelationID, qt.Equals, pb.CorrelationID)

	// reserved burns are skipped until released
	_, _, err = st.NextBurn()
	c.Assert(err, qt.Equals, ErrNoMoreElements)
	c.Assert(st.ReleaseBurn(key), qt.IsNil)
	_, key, err = st.NextBurn()
	c.Assert(err, qt.IsNil)

	nullifier := util.RandomBytes(32)
	c.Assert(st.MarkBurnDone(key, &BurnRecord{Hash: hash, Value: 10, Pid: "alice", Nullifier: nullifier}), qt.IsNil)
	c.Assert(st.CountPendingBurns(), qt.Equals, 0)

	rec, err = st.BurnStatus(hash)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, BurnStatusAccepted)
	c.Assert(rec.Value, qt.Equals, uint64(10))
	c.Assert(rec.Pid, qt.Equals, "alice")

	_, err = st.BurnStatus(util.RandomHex(32))
	c.Assert(err, qt.Equals, ErrNotFound)
	_, err = st.BurnStatus("")
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestNullifierDoubleSpend(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(c)

	root0, err := st.NullifierRoot()
	c.Assert(err, qt.IsNil)

	nullifier := util.RandomBytes(32)
	spent, err := st.HasNullifier(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsFalse)

	h1, pb1 := pendingBurn()
	h2, pb2 := pendingBurn()
	c.Assert(st.PushBurn(h1, pb1), qt.IsNil)
	c.Assert(st.PushBurn(h2, pb2), qt.IsNil)

	_, k1, err := st.NextBurn()
	c.Assert(err, qt.IsNil)
	_, k2, err := st.NextBurn()
	c.Assert(err, qt.IsNil)

	// the first accepted burn spends the nullifier
	first, second := h1, h2
	c.Assert(st.MarkBurnDone(k1, &BurnRecord{Hash: first, Nullifier: nullifier}), qt.IsNil)
	err = st.MarkBurnDone(k2, &BurnRecord{Hash: second, Nullifier: nullifier})
	c.Assert(errors.Is(err, ErrNullifierExists), qt.IsTrue)
	c.Assert(st.MarkBurnRejected(k2, &BurnRecord{Hash: second, Nullifier: nullifier, Reason: err.Error()}), qt.IsNil)

	spent, err = st.HasNullifier(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsTrue)
	burnHash, err := st.NullifierBurn(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(burnHash, qt.Equals, first)
	_, err = st.NullifierBurn(util.RandomBytes(32))
	c.Assert(err, qt.Equals, ErrNotFound)

	rec, err := st.BurnStatus(second)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, BurnStatusRejected)
	c.Assert(rec.Reason, qt.Not(qt.Equals), "")

	root1, err := st.NullifierRoot()
	c.Assert(err, qt.IsNil)
	c.Assert(root1.String(), qt.Not(qt.Equals), root0.String())
	c.Assert(st.CountPendingBurns(), qt.Equals, 0)
}

var errWriteFault = errors.New("write fault")

// faultyDB fails the commit of any write transaction touching a key under
// failPrefix while armed.
type faultyDB struct {
	db.Database
	failPrefix []byte
	armed      atomic.Bool
}

func (d *faultyDB) WriteTx() db.WriteTx {
	return &faultyTx{WriteTx: d.Database.WriteTx(), db: d}
}

type faultyTx struct {
	db.WriteTx
	db      *faultyDB
	touched bool
}

func (tx *faultyTx) Set(key, value []byte) error {
	tx.touched = tx.touched || bytes.HasPrefix(key, tx.db.failPrefix)
	return tx.WriteTx.Set(key, value)
}

func (tx *faultyTx) Delete(key []byte) error {
	tx.touched = tx.touched || bytes.HasPrefix(key, tx.db.failPrefix)
	return tx.WriteTx.Delete(key)
}

func (tx *faultyTx) Commit() error {
	if tx.touched && tx.db.armed.Load() {
		tx.WriteTx.Discard()
		return errWriteFault
	}
	return tx.WriteTx.Commit()
}

func (tx *faultyTx) Unwrap() db.WriteTx {
	return tx.WriteTx
}

func TestMarkBurnDoneResumesAfterFailure(t *testing.T) {
	c := qt.New(t)
	fdb := &faultyDB{Database: metadb.NewTest(t), failPrefix: burnPrefix}
	st, err := New(fdb)
	c.Assert(err, qt.IsNil)

	hash, pb := pendingBurn()
	nullifier := util.RandomBytes(32)
	c.Assert(st.PushBurn(hash, pb), qt.IsNil)
	_, k, err := st.NextBurn()
	c.Assert(err, qt.IsNil)

	// the tree is updated but the queue and record writes fail
	fdb.armed.Store(true)
	err = st.MarkBurnDone(k, &BurnRecord{Hash: hash, Nullifier: nullifier})
	c.Assert(errors.Is(err, errWriteFault), qt.IsTrue)
	fdb.armed.Store(false)
	spent, err := st.HasNullifier(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(spent, qt.IsTrue)
	rec, err := st.BurnStatus(hash)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, BurnStatusPending)
	c.Assert(st.ReleaseBurn(k), qt.IsNil)

	// the retry completes the same burn instead of seeing a double spend
	_, k2, err := st.NextBurn()
	c.Assert(err, qt.IsNil)
	c.Assert(k2, qt.DeepEquals, k)
	c.Assert(st.MarkBurnDone(k2, &BurnRecord{Hash: hash, Nullifier: nullifier, Value: 7}), qt.IsNil)
	rec, err = st.BurnStatus(hash)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.Status, qt.Equals, BurnStatusAccepted)
	c.Assert(rec.Value, qt.Equals, uint64(7))
	c.Assert(st.CountPendingBurns(), qt.Equals, 0)
	owner, err := st.NullifierBurn(nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(owner, qt.Equals, hash)

	// another burn of the same nullifier is still a double spend
	other, pb2 := pendingBurn()
	c.Assert(st.PushBurn(other, pb2), qt.IsNil)
	_, k3, err := st.NextBurn()
	c.Assert(err, qt.IsNil)
	err = st.MarkBurnDone(k3, &BurnRecord{Hash: other, Nullifier: nullifier})
	c.Assert(errors.Is(err, ErrNullifierExists), qt.IsTrue)
}

func TestNextBurnReservationFailure(t *testing.T) {
	c := qt.New(t)
	fdb := &faultyDB{Database: metadb.NewTest(t), failPrefix: burnReservationPrefix}
	st, err := New(fdb)
	c.Assert(err, qt.IsNil)

	hash, pb := pendingBurn()
	c.Assert(st.PushBurn(hash, pb), qt.IsNil)
	fdb.armed.Store(true)
	_, _, err = st.NextBurn()
	c.Assert(errors.Is(err, errWriteFault), qt.IsTrue)
	c.Assert(errors.Is(err, ErrNoMoreElements), qt.IsFalse)

	fdb.armed.Store(false)
	got, _, err := st.NextBurn()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Data, qt.DeepEquals, pb.Data)
}

func TestReservationsReleasedOnRestart(t *testing.T) {
	c := qt.New(t)
	dbPath := filepath.Join(t.TempDir(), "db")

	database, err := metadb.New(db.TypePebble, dbPath)
	c.Assert(err, qt.IsNil)
	st, err := New(database)
	c.Assert(err, qt.IsNil)

	hash, pb := pendingBurn()
	c.Assert(st.PushBurn(hash, pb), qt.IsNil)
	_, _, err = st.NextBurn()
	c.Assert(err, qt.IsNil)
	_, _, err = st.NextBurn()
	c.Assert(err, qt.Equals, ErrNoMoreElements)
	st.Close()

	database, err = metadb.New(db.TypePebble, dbPath)
	c.Assert(err, qt.IsNil)
	st, err = New(database)
	c.Assert(err, qt.IsNil)
	defer st.Close()

	got, _, err := st.NextBurn()
	c.Assert(err, qt.IsNil)
	c.Assert(got.CorrelationID, qt.Equals, pb.CorrelationID)
}

func TestSecrets(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(c)

	_, err := st.Secret("bank", "pass")
	c.Assert(err, qt.Equals, ErrNotFound)

	secret := util.RandomBytes(100)
	c.Assert(st.SetSecret("bank", "pass", secret), qt.IsNil)

	got, err := st.Secret("bank", "pass")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, secret)

	_, err = st.Secret("bank", "wrong")
	c.Assert(err, qt.Equals, ErrWrongPassword)

	c.Assert(st.SetSecret("bank", "", secret), qt.Not(qt.IsNil))
}

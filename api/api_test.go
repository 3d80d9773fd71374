package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/storage"
	"github.com/vocdoni/utt-core/types"
	"github.com/vocdoni/utt-core/util"
	"github.com/vocdoni/utt-core/validator"
)

type testNode struct {
	api    *API
	stg    *storage.Storage
	params *utt.Params
	bank   *utt.RandSigSK
	reg    *utt.RegAuthSK
}

func newTestNode(c *qt.C) *testNode {
	params, err := utt.NewParams()
	c.Assert(err, qt.IsNil)
	bank, err := utt.GenerateBankKey()
	c.Assert(err, qt.IsNil)
	reg, err := utt.GenerateRegAuth()
	c.Assert(err, qt.IsNil)
	stg, err := storage.New(memdb.New())
	c.Assert(err, qt.IsNil)
	c.Cleanup(stg.Close)

	a, err := New(&APIConfig{
		Host:    "127.0.0.1",
		Port:    0,
		Storage: stg,
		Params:  params,
		BankPK:  bank.PublicKey(),
		RegPK:   reg.PublicKey(),
	})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return &testNode{api: a, stg: stg, params: params, bank: bank, reg: reg}
}

func (n *testNode) burn(c *qt.C, ask *utt.AddrSK, coin *utt.Coin) *utt.BurnOp {
	b, err := utt.NewBurnOp(n.params, ask, coin, n.bank.PublicKey(), n.reg.PublicKey())
	c.Assert(err, qt.IsNil)
	return b
}

func (n *testNode) coin(c *qt.C, pid string, value uint64) (*utt.AddrSK, *utt.Coin) {
	ask, err := n.reg.Register(pid)
	c.Assert(err, qt.IsNil)
	sn, err := utt.NewRandomSerial()
	c.Assert(err, qt.IsNil)
	coin, err := utt.IssueCoin(n.bank, pid, sn, value)
	c.Assert(err, qt.IsNil)
	return ask, coin
}

// request performs a request against the router and decodes the JSON
// response into out, if not nil.
func (n *testNode) request(c *qt.C, method, path string, body any, out any) (int, http.Header) {
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		c.Assert(err, qt.IsNil)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(CorrelationIDHeader, "test-correlation")
	rec := httptest.NewRecorder()
	n.api.Router().ServeHTTP(rec, req)
	if out != nil {
		c.Assert(json.Unmarshal(rec.Body.Bytes(), out), qt.IsNil, qt.Commentf("body %s", rec.Body.String()))
	}
	return rec.Code, rec.Header()
}

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func TestPing(t *testing.T) {
	c := qt.New(t)
	n := newTestNode(c)
	code, header := n.request(c, http.MethodGet, PingEndpoint, nil, nil)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(header.Get(CorrelationIDHeader), qt.Equals, "test-correlation")
}

func TestBurnLifecycle(t *testing.T) {
	c := qt.New(t)
	n := newTestNode(c)
	ask, coin := n.coin(c, "alice", 42)
	burn := n.burn(c, ask, coin)

	var res BurnResponse
	code, _ := n.request(c, http.MethodPost, BurnsEndpoint, &BurnRequest{Burn: burn.Bytes()}, &res)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(res.Hash, qt.Equals, burn.HashHex())
	c.Assert(res.Nullifier.String(), qt.Equals, burn.Nullifier())
	c.Assert(res.CorrelationID, qt.Equals, "test-correlation")

	// same operation twice
	var apiErr errorResponse
	code, _ = n.request(c, http.MethodPost, BurnsEndpoint, &BurnRequest{Burn: burn.Bytes()}, &apiErr)
	c.Assert(code, qt.Equals, http.StatusConflict)
	c.Assert(apiErr.Code, qt.Equals, ErrBurnAlreadyExists.Code)

	var status BurnStatus
	code, _ = n.request(c, http.MethodGet, "/burns/"+res.Hash, nil, &status)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(status.Status, qt.Equals, storage.BurnStatusPending)

	v, err := validator.New(n.stg, n.params, n.bank.PublicKey(), n.reg.PublicKey(), validator.Config{})
	c.Assert(err, qt.IsNil)
	processed, err := v.ProcessPending(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(processed, qt.Equals, 1)

	code, _ = n.request(c, http.MethodGet, "/burns/"+res.Hash, nil, &status)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(status.Status, qt.Equals, storage.BurnStatusAccepted)
	c.Assert(status.Value, qt.Equals, uint64(42))
	c.Assert(status.Pid, qt.Equals, "alice")

	var nf Nullifier
	code, _ = n.request(c, http.MethodGet, "/nullifiers/"+burn.Nullifier(), nil, &nf)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(nf.Spent, qt.IsTrue)
	c.Assert(nf.BurnHash, qt.Equals, res.Hash)

	// a fresh burn of the same coin is refused at submission
	again := n.burn(c, ask, coin)
	code, _ = n.request(c, http.MethodPost, BurnsEndpoint, &BurnRequest{Burn: again.Bytes()}, &apiErr)
	c.Assert(code, qt.Equals, http.StatusConflict)
	c.Assert(apiErr.Code, qt.Equals, ErrNullifierSpent.Code)

	var root NullifierRoot
	code, _ = n.request(c, http.MethodGet, NullifierRootEndpoint, nil, &root)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(root.Root, qt.HasLen, 32)
}

func TestBurnSubmitErrors(t *testing.T) {
	c := qt.New(t)
	n := newTestNode(c)
	ask, coin := n.coin(c, "bob", 1)
	enc := n.burn(c, ask, coin).Bytes()

	var apiErr errorResponse
	code, _ := n.request(c, http.MethodPost, BurnsEndpoint, map[string]string{"burn": "zz"}, &apiErr)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(apiErr.Code, qt.Equals, ErrMalformedBody.Code)

	code, _ = n.request(c, http.MethodPost, BurnsEndpoint, &BurnRequest{Burn: enc[:len(enc)-1]}, &apiErr)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(apiErr.Code, qt.Equals, ErrMalformedBurn.Code)

	code, _ = n.request(c, http.MethodPost, BurnsEndpoint, &BurnRequest{Burn: append(enc, 0)}, &apiErr)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(apiErr.Code, qt.Equals, ErrMalformedBurn.Code)

	code, _ = n.request(c, http.MethodGet, "/burns/xyz", nil, &apiErr)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(apiErr.Code, qt.Equals, ErrMalformedBurnHash.Code)

	code, _ = n.request(c, http.MethodGet, "/burns/"+util.RandomHex(32), nil, &apiErr)
	c.Assert(code, qt.Equals, http.StatusNotFound)
	c.Assert(apiErr.Code, qt.Equals, ErrBurnNotFound.Code)

	code, _ = n.request(c, http.MethodGet, "/nullifiers/"+util.RandomHex(5), nil, &apiErr)
	c.Assert(code, qt.Equals, http.StatusBadRequest)
	c.Assert(apiErr.Code, qt.Equals, ErrMalformedNullifier.Code)

	var nf Nullifier
	code, _ = n.request(c, http.MethodGet, "/nullifiers/"+util.RandomHex(utt.NullifierSize), nil, &nf)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(nf.Spent, qt.IsFalse)
}

func TestBurnTooLarge(t *testing.T) {
	c := qt.New(t)
	n := newTestNode(c)

	var apiErr errorResponse
	// the encoded burn is over the limit
	code, _ := n.request(c, http.MethodPost, BurnsEndpoint,
		&BurnRequest{Burn: util.RandomBytes(types.MaxBurnSize + 1)}, &apiErr)
	c.Assert(code, qt.Equals, http.StatusRequestEntityTooLarge)
	c.Assert(apiErr.Code, qt.Equals, ErrBurnTooLarge.Code)

	// the request body itself is over the reader limit
	code, _ = n.request(c, http.MethodPost, BurnsEndpoint,
		&BurnRequest{Burn: util.RandomBytes(4*types.MaxBurnSize + 1)}, &apiErr)
	c.Assert(code, qt.Equals, http.StatusRequestEntityTooLarge)
	c.Assert(apiErr.Code, qt.Equals, ErrBurnTooLarge.Code)
	c.Assert(n.stg.CountPendingBurns(), qt.Equals, 0)
}

func TestErrorDetails(t *testing.T) {
	c := qt.New(t)
	e := ErrNullifierSpent.Withf("nullifier %s", "0a1b")
	c.Assert(errors.Is(e, ErrNullifierSpent.Err), qt.IsTrue)
	c.Assert(e.Code, qt.Equals, ErrNullifierSpent.Code)

	rec := httptest.NewRecorder()
	e.Write(rec)
	c.Assert(rec.Code, qt.Equals, http.StatusConflict)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json")
	var body errorResponse
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &body), qt.IsNil)
	c.Assert(body.Code, qt.Equals, ErrNullifierSpent.Code)
	c.Assert(body.Error, qt.Equals, e.Error())
}

func TestKeys(t *testing.T) {
	c := qt.New(t)
	n := newTestNode(c)

	var keys Keys
	code, _ := n.request(c, http.MethodGet, KeysEndpoint, nil, &keys)
	c.Assert(code, qt.Equals, http.StatusOK)
	c.Assert(keys.Tag, qt.Equals, utt.DefaultTag)

	bankPK, err := utt.UnmarshalRandSigPK(keys.BankKey)
	c.Assert(err, qt.IsNil)
	c.Assert(bankPK.Equal(n.bank.PublicKey()), qt.IsTrue)
	regPK, err := utt.UnmarshalRegAuthPK(keys.RegistrarKey)
	c.Assert(err, qt.IsNil)
	c.Assert(regPK.Equal(n.reg.PublicKey()), qt.IsTrue)
}

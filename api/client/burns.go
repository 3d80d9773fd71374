package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/utt-core/api"
	"github.com/vocdoni/utt-core/crypto/utt"
	"github.com/vocdoni/utt-core/types"
)

// APIError is an error response returned by the node.
type APIError struct {
	HTTPStatus int
	Code       int    `json:"code"`
	Message    string `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d (code %d: %s)", errCodeNot200, e.HTTPStatus, e.Code, e.Message)
}

// call performs the request and decodes a successful response into out.
// Non 200 responses are returned as *APIError.
func (c *HTTPclient) call(method string, body, out any, urlPath ...string) error {
	data, status, err := c.Request(method, body, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &APIError{HTTPStatus: status}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(data)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}

// SubmitBurn sends a burn operation to the node. The returned response
// carries the hash used to poll its status with BurnStatus.
func (c *HTTPclient) SubmitBurn(b *utt.BurnOp) (*api.BurnResponse, error) {
	if !b.IsValid() {
		return nil, fmt.Errorf("burn operation not constructed")
	}
	res := &api.BurnResponse{}
	if err := c.call(HTTPPOST, &api.BurnRequest{Burn: b.Bytes()}, res, api.BurnsEndpoint); err != nil {
		return nil, err
	}
	return res, nil
}

// BurnStatus returns the processing status of the burn with the given hash.
func (c *HTTPclient) BurnStatus(hash string) (*api.BurnStatus, error) {
	res := &api.BurnStatus{}
	if err := c.call(HTTPGET, nil, res, api.BurnsEndpoint, hash); err != nil {
		return nil, err
	}
	return res, nil
}

// Nullifier reports whether nullifier was already spent on the node.
func (c *HTTPclient) Nullifier(nullifier utt.Nullifier) (*api.Nullifier, error) {
	res := &api.Nullifier{}
	if err := c.call(HTTPGET, nil, res, "nullifiers", nullifier.String()); err != nil {
		return nil, err
	}
	return res, nil
}

// NullifierRoot returns the root of the node's spent nullifiers tree.
func (c *HTTPclient) NullifierRoot() (types.HexBytes, error) {
	res := &api.NullifierRoot{}
	if err := c.call(HTTPGET, nil, res, api.NullifierRootEndpoint); err != nil {
		return nil, err
	}
	return res.Root, nil
}

// Keys fetches and decodes the public parameters of the node.
func (c *HTTPclient) Keys() (*utt.Params, *utt.RandSigPK, *utt.RegAuthPK, error) {
	res := &api.Keys{}
	if err := c.call(HTTPGET, nil, res, api.KeysEndpoint); err != nil {
		return nil, nil, nil, err
	}
	params, err := utt.NewParamsWithTag(res.Tag)
	if err != nil {
		return nil, nil, nil, err
	}
	bankPK, err := utt.UnmarshalRandSigPK(res.BankKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid bank key: %w", err)
	}
	regPK, err := utt.UnmarshalRegAuthPK(res.RegistrarKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid registrar key: %w", err)
	}
	return params, bankPK, regPK, nil
}

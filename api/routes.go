package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// BurnsEndpoint is the endpoint for submitting a burn operation
	BurnsEndpoint = "/burns"
	// BurnEndpoint is the endpoint to get the status of a burn by its hash
	BurnURLParam = "hash"
	BurnEndpoint = "/burns/{" + BurnURLParam + "}"
	// NullifierEndpoint is the endpoint to check if a nullifier is spent
	NullifierURLParam = "nullifier"
	NullifierEndpoint = "/nullifiers/{" + NullifierURLParam + "}"
	// NullifierRootEndpoint is the endpoint to get the root of the spent
	// nullifiers tree
	NullifierRootEndpoint = "/nullifiers/root"
	// KeysEndpoint is the endpoint to get the authority public keys
	KeysEndpoint = "/keys"
)

// CorrelationIDHeader is the request header carrying the caller's
// correlation id. It is echoed back on every response.
const CorrelationIDHeader = "X-Correlation-ID"

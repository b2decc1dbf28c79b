package oracle

import "fmt"

// ConfigError wraps a configuration validation failure.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UpstreamError wraps a failure talking to the exchange API.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ChainRpcError wraps a failure talking to the EVM RPC endpoint.
type ChainRpcError struct {
	Op  string
	Err error
}

func (e *ChainRpcError) Error() string {
	return fmt.Sprintf("chain rpc %s: %v", e.Op, e.Err)
}

func (e *ChainRpcError) Unwrap() error { return e.Err }

// ContractMissing indicates CodeAt returned empty bytecode for the
// configured oracle contract address.
type ContractMissing struct {
	Address string
}

func (e *ContractMissing) Error() string {
	return fmt.Sprintf("no contract code at %s", e.Address)
}

// SignatureExpired indicates an attestation's Deadline has already
// passed by the time the Publisher tried to use it.
type SignatureExpired struct {
	SECID    string
	Deadline int64
	Now      int64
}

func (e *SignatureExpired) Error() string {
	return fmt.Sprintf("signature for %s expired at %d (now %d)", e.SECID, e.Deadline, e.Now)
}

// TxReverted indicates a submitted transaction mined with a failure
// status.
type TxReverted struct {
	TxHash string
	SECID  string
}

func (e *TxReverted) Error() string {
	return fmt.Sprintf("tx %s for %s reverted", e.TxHash, e.SECID)
}

// TxTimeout indicates a submitted transaction did not confirm within
// the configured wait window.
type TxTimeout struct {
	TxHash string
	SECID  string
}

func (e *TxTimeout) Error() string {
	return fmt.Sprintf("tx %s for %s did not confirm before timeout", e.TxHash, e.SECID)
}

// CacheCorruption indicates a cache file on disk could not be parsed
// and was treated as absent rather than fatal.
type CacheCorruption struct {
	Path string
	Err  error
}

func (e *CacheCorruption) Error() string {
	return fmt.Sprintf("cache corrupted at %s: %v", e.Path, e.Err)
}

func (e *CacheCorruption) Unwrap() error { return e.Err }

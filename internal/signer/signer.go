// Package signer implements EIP-712 signing of PriceUpdate structs,
// matching BondOracle.sol's domain separator and struct hash
// construction exactly (see original_source's signature_utils.py).
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/sljivkov/ofz-bond-oracle/internal/nonce"
	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

const (
	domainName    = "BondOracle"
	domainVersion = "1"
)

var (
	domainTypeHash      = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	priceUpdateTypeHash = crypto.Keccak256Hash([]byte("PriceUpdate(string secid,uint160 price,uint256 nonce,uint256 deadline)"))
	nameHash            = crypto.Keccak256Hash([]byte(domainName))
	versionHash         = crypto.Keccak256Hash([]byte(domainVersion))
)

// Signer owns a private key, a chain ID, a verifying contract address
// and its own NonceStore — never read from ambient state, per
// spec.md §9's re-architecting note.
type Signer struct {
	privateKey         *ecdsa.PrivateKey
	address            common.Address
	chainID            *big.Int
	verifyingContract  common.Address
	nonces             *nonce.Store
	expirySeconds      int
	now                func() time.Time
}

// New constructs a Signer. privateKeyHex must be 64 hex chars,
// optionally 0x-prefixed. nonces is owned exclusively by this Signer.
func New(privateKeyHex string, chainID *big.Int, verifyingContract common.Address, nonces *nonce.Store, expirySeconds int) (*Signer, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{
		privateKey:        key,
		address:           crypto.PubkeyToAddress(key.PublicKey),
		chainID:           chainID,
		verifyingContract: verifyingContract,
		nonces:            nonces,
		expirySeconds:     expirySeconds,
		now:               time.Now,
	}, nil
}

// Address returns the signer's Ethereum address.
func (s *Signer) Address() common.Address { return s.address }

// Sign implements spec.md §4.4: issues the next nonce and deadline,
// computes the EIP-712 digest, signs it, normalizes v, and returns the
// ABI-encoded (bytes32 r, bytes32 s, uint8 v) signature as hex.
//
// Side-effecting: advances the nonce even if the caller never
// transmits the resulting attestation.
func (s *Signer) Sign(secid string, scaledPrice *big.Int) (*oracle.SignedAttestation, error) {
	n, err := s.nonces.Next()
	if err != nil {
		return nil, fmt.Errorf("advance nonce: %w", err)
	}
	deadline := s.now().Unix() + int64(s.expirySeconds)

	digest, err := s.digest(secid, scaledPrice, n, deadline)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(digest.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}

	r := new(big.Int).SetBytes(sig[:32])
	sVal := new(big.Int).SetBytes(sig[32:64])
	v := uint8(sig[64])
	if v < 27 {
		v += 27
	}

	encoded, err := encodeSignature(r, sVal, v)
	if err != nil {
		return nil, fmt.Errorf("encode signature: %w", err)
	}

	return &oracle.SignedAttestation{
		SECID:     secid,
		PriceUint: scaledPrice,
		Nonce:     n,
		Deadline:  deadline,
		Signature: "0x" + common.Bytes2Hex(encoded),
	}, nil
}

// digest computes M = keccak256(0x19 0x01 || domainSeparator || structHash).
func (s *Signer) digest(secid string, price *big.Int, n uint64, deadline int64) (common.Hash, error) {
	domainSeparator, err := abiEncode(
		[]string{"bytes32", "bytes32", "bytes32", "uint256", "address"},
		[]interface{}{domainTypeHash, nameHash, versionHash, s.chainID, s.verifyingContract},
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode domain separator: %w", err)
	}
	domainHash := crypto.Keccak256Hash(domainSeparator)

	secidHash := crypto.Keccak256Hash([]byte(secid))
	structEncoded, err := abiEncode(
		[]string{"bytes32", "bytes32", "uint160", "uint256", "uint256"},
		[]interface{}{priceUpdateTypeHash, secidHash, price, new(big.Int).SetUint64(n), big.NewInt(deadline)},
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode struct hash: %w", err)
	}
	structHash := crypto.Keccak256Hash(structEncoded)

	prefix := []byte{0x19, 0x01}
	return crypto.Keccak256Hash(prefix, domainHash.Bytes(), structHash.Bytes()), nil
}

// abiEncode ABI-encodes values against the given Solidity type names,
// mirroring eth_abi.encode(...) in original_source/signature_utils.py.
func abiEncode(types []string, values []interface{}) ([]byte, error) {
	var args abi.Arguments
	for _, t := range types {
		ty, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, fmt.Errorf("abi type %s: %w", t, err)
		}
		args = append(args, abi.Argument{Type: ty})
	}
	return args.Pack(values...)
}

func encodeSignature(r, s *big.Int, v uint8) ([]byte, error) {
	bytes32, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		return nil, err
	}
	uint8Ty, err := abi.NewType("uint8", "", nil)
	if err != nil {
		return nil, err
	}
	args := abi.Arguments{
		{Type: bytes32},
		{Type: bytes32},
		{Type: uint8Ty},
	}
	var rBytes, sBytes [32]byte
	r.FillBytes(rBytes[:])
	s.FillBytes(sBytes[:])
	return args.Pack(rBytes, sBytes, v)
}

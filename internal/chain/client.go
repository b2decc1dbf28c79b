// Package chain wraps JSON-RPC access to the BondOracle contract:
// reading the registry and price feed, sending signed price updates,
// and awaiting receipts.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/sljivkov/ofz-bond-oracle/internal/oracle"
)

// poaMarkers are substrings of an RPC URL that indicate a PoA network
// requiring extraData tolerance, per original_source's Web3Service
// and spec.md §4.8.
var poaMarkers = []string{"rinkeby", "goerli", "polygon", "mumbai"}

// Client wraps ethclient for the oracle contract's specific surface.
type Client struct {
	eth        *ethclient.Client
	contract   common.Address
	abi        abi.ABI
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	isPoA      bool
	gasLimit   uint64
}

// New dials rpcURL and wraps the oracle contract at contractAddr using
// the given ABI. A nil privateKey is valid for read-only use (the
// Provider side never sends transactions).
func New(ctx context.Context, rpcURL string, contractAddr common.Address, contractABI abi.ABI, privateKeyHex string, chainID *big.Int) (*Client, error) {
	ethc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, &oracle.ChainRpcError{Op: "dial", Err: err}
	}

	c := &Client{
		eth:      ethc,
		contract: contractAddr,
		abi:      contractABI,
		chainID:  chainID,
		isPoA:    isPoAURL(rpcURL),
		gasLimit: 200000,
	}

	if privateKeyHex != "" {
		privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")
		key, err := crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("parse publisher private key: %w", err)
		}
		c.privateKey = key
		c.address = crypto.PubkeyToAddress(key.PublicKey)
	}

	return c, nil
}

func isPoAURL(rpcURL string) bool {
	lower := strings.ToLower(rpcURL)
	for _, marker := range poaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// CodeAt asserts the contract is deployed at c.contract; empty code is
// a fatal ContractMissing per spec.md §4.8, §7.
func (c *Client) CodeAt(ctx context.Context) ([]byte, error) {
	code, err := c.eth.CodeAt(ctx, c.contract, nil)
	if err != nil {
		return nil, &oracle.ChainRpcError{Op: "code_at", Err: err}
	}
	if len(code) == 0 {
		return nil, &oracle.ContractMissing{Address: c.contract.Hex()}
	}
	return code, nil
}

// SecidToBond calls secidToBond(string) → address.
func (c *Client) SecidToBond(ctx context.Context, secid string) (common.Address, error) {
	var out common.Address
	if err := c.call(ctx, &out, "secidToBond", secid); err != nil {
		return common.Address{}, err
	}
	return out, nil
}

// PriceFeed is the decoded result of getPriceFeed.
type PriceFeed struct {
	Price       *big.Int
	LastUpdated *big.Int
	MaturityAt  *big.Int
}

// GetPriceFeed calls getPriceFeed(address) → (uint160, uint256, uint256).
func (c *Client) GetPriceFeed(ctx context.Context, bond common.Address) (PriceFeed, error) {
	var out struct {
		Price       *big.Int
		LastUpdated *big.Int
		MaturityAt  *big.Int
	}
	if err := c.call(ctx, &out, "getPriceFeed", bond); err != nil {
		return PriceFeed{}, err
	}
	return PriceFeed(out), nil
}

func (c *Client) call(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: input}, nil)
	if err != nil {
		return &oracle.ChainRpcError{Op: method, Err: err}
	}
	if err := c.abi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return nil
}

// SendUpdate builds, signs and submits updatePriceFeedWithSignature,
// using exactly the signed values — no recomputation, per spec.md
// §4.10's "any mutation would invalidate the signature".
func (c *Client) SendUpdate(ctx context.Context, secid string, priceUint *big.Int, deadline int64, nonce uint64, signature []byte) (common.Hash, error) {
	input, err := c.abi.Pack("updatePriceFeedWithSignature", secid, priceUint, big.NewInt(deadline), new(big.Int).SetUint64(nonce), signature)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack updatePriceFeedWithSignature: %w", err)
	}

	txNonce, err := c.eth.PendingNonceAt(ctx, c.address)
	if err != nil {
		return common.Hash{}, &oracle.ChainRpcError{Op: "get_transaction_count", Err: err}
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, &oracle.ChainRpcError{Op: "gas_price", Err: err}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    txNonce,
		To:       &c.contract,
		Value:    big.NewInt(0),
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
		Data:     input,
	})

	var signed *types.Transaction
	if c.chainID != nil {
		signed, err = types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	} else {
		signed, err = types.SignTx(tx, types.HomesteadSigner{}, c.privateKey)
	}
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, &oracle.ChainRpcError{Op: "send_raw_transaction", Err: err}
	}

	return signed.Hash(), nil
}

// WaitReceipt polls for a transaction receipt for up to timeout,
// surfacing TxReverted on a failed status and TxTimeout if the window
// elapses before confirmation.
func (c *Client) WaitReceipt(ctx context.Context, txHash common.Hash, secid string, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, &oracle.TxReverted{TxHash: txHash.Hex(), SECID: secid}
			}
			return receipt, nil
		}
		if err != ethereum.NotFound {
			return nil, &oracle.ChainRpcError{Op: "get_transaction_receipt", Err: err}
		}

		select {
		case <-ctx.Done():
			return nil, &oracle.TxTimeout{TxHash: txHash.Hex(), SECID: secid}
		case <-ticker.C:
		}
	}
}

// SetGasLimit sets the gas limit used by SendUpdate (GAS_LIMIT_UPDATE_PRICE).
func (c *Client) SetGasLimit(limit uint64) { c.gasLimit = limit }

// IsPoA reports whether the configured RPC URL matched a recognised
// PoA network marker.
func (c *Client) IsPoA() bool { return c.isPoA }

// BindContract adapts abi.ABI + ethclient into a go-ethereum
// bind.ContractCaller-compatible accessor, kept for callers that want
// generated-binding-style access rather than c.call's raw Pack/Unpack,
// matching the teacher's contract.go ContractCaller pattern.
func (c *Client) BindContract() *bind.BoundContract {
	return bind.NewBoundContract(c.contract, c.abi, c.eth, c.eth, c.eth)
}

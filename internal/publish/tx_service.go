package publish

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainSender is the subset of chain.Client TxService needs: submit
// and await one signed update.
type ChainSender interface {
	SendUpdate(ctx context.Context, secid string, priceUint *big.Int, deadline int64, nonce uint64, signature []byte) (common.Hash, error)
	WaitReceipt(ctx context.Context, txHash common.Hash, secid string, timeout time.Duration) (*types.Receipt, error)
}

// TxService builds, signs (via ChainSender), broadcasts and awaits a
// single on-chain price update, per spec.md §4.11.
type TxService struct {
	chain          ChainSender
	receiptTimeout time.Duration
}

// NewTxService builds a TxService.
func NewTxService(chain ChainSender, receiptTimeout time.Duration) *TxService {
	return &TxService{chain: chain, receiptTimeout: receiptTimeout}
}

// SendUpdate submits the signed attestation exactly as received — no
// field may be recomputed, or the signature becomes invalid.
func (t *TxService) SendUpdate(ctx context.Context, secid string, priceUint *big.Int, deadline int64, nonce uint64, signature []byte) (common.Hash, error) {
	txHash, err := t.chain.SendUpdate(ctx, secid, priceUint, deadline, nonce, signature)
	if err != nil {
		return common.Hash{}, fmt.Errorf("send update for %s: %w", secid, err)
	}

	if _, err := t.chain.WaitReceipt(ctx, txHash, secid, t.receiptTimeout); err != nil {
		// TxReverted / TxTimeout propagate as-is so PublishCycle can
		// log and continue to the next SECID without aborting the
		// cycle, per spec.md §4.10 step 3.
		return txHash, err
	}
	return txHash, nil
}

package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Gateway is the ledger access boundary used by the reconcilers. It is
// an explicit constructed dependency, not process-global state.
// Queries are safe to repeat; submissions are final and cannot be
// cancelled, only compensated off-chain.
type Gateway interface {
	// SubmitListing calls listProduct and returns the transaction hash.
	SubmitListing(ctx context.Context, name, description string, priceWei *big.Int, quantity int64) (common.Hash, error)

	// SubmitDeactivation calls deactivateProduct for a listed product.
	SubmitDeactivation(ctx context.Context, productID *big.Int) (common.Hash, error)

	// TransactionReceipt returns the receipt for a mined transaction,
	// or an error if it is not (yet) known to the ledger.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	// WaitForConfirmation polls for a receipt with the requested
	// confirmation depth. It never blocks past timeout and honors
	// context cancellation.
	WaitForConfirmation(ctx context.Context, txHash common.Hash, confirmations uint64, timeout time.Duration) (*types.Receipt, error)

	// SignerAddress is the canonical address of the server-side signer.
	SignerAddress() common.Address
}

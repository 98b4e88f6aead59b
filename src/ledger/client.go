package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/username/reusemarket/backend/src/config"
	"github.com/username/reusemarket/backend/src/logger"
)

// maxPollInterval caps the confirmation-poll backoff.
const maxPollInterval = 8 * time.Second

// Client is the JSON-RPC backed Gateway implementation.
type Client struct {
	eth          *ethclient.Client
	key          *ecdsa.PrivateKey
	signerAddr   common.Address
	contractAddr common.Address
	chainID      *big.Int
	gasLimit     uint64
	gasPrice     *big.Int
	pollInterval time.Duration
}

// NewClient dials the RPC endpoint, loads the signer key and verifies
// that contract code exists at the configured marketplace address.
func NewClient(ctx context.Context, cfg *config.AppConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dialing ledger RPC %s: %w", cfg.RPCURL, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.SignerPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing signer private key: %w", err)
	}
	signerAddr := crypto.PubkeyToAddress(key.PublicKey)

	if !common.IsHexAddress(cfg.MarketplaceAddress) {
		return nil, fmt.Errorf("invalid marketplace address %q", cfg.MarketplaceAddress)
	}
	contractAddr := common.HexToAddress(cfg.MarketplaceAddress)

	code, err := eth.CodeAt(ctx, contractAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("checking marketplace contract code: %w", err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("no contract found at %s", contractAddr.Hex())
	}

	logger.L.Info("Ledger client initialized",
		"rpcUrl", cfg.RPCURL,
		"chainId", cfg.ChainID,
		"marketplace", contractAddr.Hex(),
		"signer", signerAddr.Hex())

	return &Client{
		eth:          eth,
		key:          key,
		signerAddr:   signerAddr,
		contractAddr: contractAddr,
		chainID:      big.NewInt(cfg.ChainID),
		gasLimit:     cfg.GasLimit,
		gasPrice:     new(big.Int).Mul(big.NewInt(cfg.GasPriceGwei), big.NewInt(1e9)),
		pollInterval: cfg.ConfirmationPollInterval,
	}, nil
}

func (c *Client) SignerAddress() common.Address {
	return c.signerAddr
}

func (c *Client) SubmitListing(ctx context.Context, name, description string, priceWei *big.Int, quantity int64) (common.Hash, error) {
	input, err := contractABI.Pack("listProduct", name, description, priceWei, big.NewInt(quantity))
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding listProduct call: %w", err)
	}
	return c.submit(ctx, input, big.NewInt(0))
}

func (c *Client) SubmitDeactivation(ctx context.Context, productID *big.Int) (common.Hash, error) {
	input, err := contractABI.Pack("deactivateProduct", productID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding deactivateProduct call: %w", err)
	}
	return c.submit(ctx, input, big.NewInt(0))
}

func (c *Client) submit(ctx context.Context, input []byte, value *big.Int) (common.Hash, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.signerAddr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetching nonce for %s: %w", c.signerAddr.Hex(), err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contractAddr,
		Value:    value,
		Gas:      c.gasLimit,
		GasPrice: c.gasPrice,
		Data:     input,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("signing transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("sending transaction: %w", err)
	}

	logger.L.Info("Ledger transaction submitted", "hash", signed.Hash().Hex(), "nonce", nonce)
	return signed.Hash(), nil
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("fetching receipt for %s: %w", txHash.Hex(), err)
	}
	return receipt, nil
}

// WaitForConfirmation polls with backoff until the transaction has the
// requested confirmation depth, the timeout elapses, or the context is
// cancelled. The wait is always bounded.
func (c *Client) WaitForConfirmation(ctx context.Context, txHash common.Hash, confirmations uint64, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if confirmations == 0 {
		confirmations = 1
	}

	interval := c.pollInterval
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if confirmations == 1 {
				return receipt, nil
			}
			head, headErr := c.eth.BlockNumber(ctx)
			if headErr == nil && head >= receipt.BlockNumber.Uint64()+confirmations-1 {
				return receipt, nil
			}
		} else if err != nil && !errors.Is(err, ethereum.NotFound) {
			// Transient RPC failure; keep polling until the deadline.
			logger.L.Warn("Receipt poll failed, retrying", "hash", txHash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for confirmation of %s: %w", txHash.Hex(), ctx.Err())
		case <-time.After(interval):
		}

		if interval < maxPollInterval {
			interval = interval * 3 / 2
		}
	}
}

package EVMRPC

import (
	"context"
	"math/big"
	"strings"
	"time"

	"gobridgerelay/config"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

const (
	executeGasLimit = uint64(200000)
	receiptInterval = 3 * time.Second
	receiptTimeout  = 2 * time.Minute
)

// Execute packs a contract call, signs it with the network's key, submits it
// and waits for the confirmation receipt. It returns an error unless the
// transaction was mined with a success status; callers must not commit any
// ledger state before that. The call is retried across the network's RPC
// endpoints, but a transaction that made it to the mempool is never resent.
func (c *Clients) Execute(ctx context.Context, chainID int, contract common.Address, abiJSON, method string, args ...interface{}) (common.Hash, error) {
	signer, ok := c.registry.Signer(chainID)
	if !ok {
		return common.Hash{}, errors.Errorf("no signer configured for chain %d", chainID)
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to parse contract ABI")
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "failed to pack %s call data", method)
	}

	var reterr error
	for i := 0; i < config.EVM_RETRIES; i++ {
		tx, err := c.submit(ctx, chainID, signer, contract, data)
		if err != nil {
			reterr = err
			c.logger.WithError(err).Warnf("error submitting %s tx on chain %d", method, chainID)
			continue
		}

		if err := c.waitMined(ctx, chainID, tx.Hash()); err != nil {
			// the tx is in the mempool, re-sending with the same nonce
			// would race it; surface the error instead
			return tx.Hash(), err
		}
		return tx.Hash(), nil
	}

	return common.Hash{}, reterr
}

func (c *Clients) submit(ctx context.Context, chainID int, signer config.Signer, contract common.Address, data []byte) (*ethtypes.Transaction, error) {
	return WithClient(c, chainID, func(client *ethclient.Client) (*ethtypes.Transaction, error) {
		nonce, err := client.PendingNonceAt(ctx, signer.Address)
		if err != nil {
			return nil, errors.Wrap(err, "error getting nonce for wallet")
		}

		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "error getting suggested gas price")
		}
		// everywhere except Ethereum mainnet the suggestion runs low
		if chainID != 1 {
			gasPrice = gasPrice.Mul(gasPrice, big.NewInt(2))
		}

		tx := ethtypes.NewTransaction(nonce, contract, big.NewInt(0), executeGasLimit, gasPrice, data)
		signedTx, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(big.NewInt(int64(chainID))), signer.Key)
		if err != nil {
			return nil, errors.Wrap(err, "error signing transaction")
		}

		if err := client.SendTransaction(ctx, signedTx); err != nil {
			// another endpoint may have accepted an earlier attempt
			if strings.Contains(err.Error(), "already known") {
				return signedTx, nil
			}
			return nil, errors.Wrap(err, "error sending transaction")
		}
		return signedTx, nil
	})
}

// waitMined polls for the transaction receipt until it appears or the
// timeout elapses, and checks the execution status.
func (c *Clients) waitMined(ctx context.Context, chainID int, txHash common.Hash) error {
	ctx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := WithClient(c, chainID, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
			return client.TransactionReceipt(ctx, txHash)
		})
		if err == nil && receipt != nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return errors.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "timed out waiting for receipt of %s", txHash.Hex())
		case <-ticker.C:
		}
	}
}

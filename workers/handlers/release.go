package handlers

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strings"

	"gobridgerelay/types"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Release is the operator escape hatch: a manual mint/burn-style release
// that bypasses the poller but still goes through the idempotency ledger, so
// replaying a failed transfer cannot double-send one that later succeeded.
func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WithError(err).Error("error reading request body")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return
	}

	var req ReleaseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.WithError(err).Error("error unmarshalling request body")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return
	}

	if req.TokenSymbol == "" {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "tokenSymbol",
			Message: "Token symbol is required",
		}, http.StatusBadRequest)
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "amount",
			Message: "Amount must be a positive integer in smallest units",
		}, http.StatusBadRequest)
		return
	}

	if err := ethav.Validate(req.Recipient); err != nil {
		h.logger.WithError(err).Errorf("error validating recipient address %q", req.Recipient)
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "recipient",
			Message: "No recipient address or invalid address provided",
		}, http.StatusBadRequest)
		return
	}

	keyBytes, err := hexutil.Decode("0x" + strings.TrimPrefix(req.TransactionID, "0x"))
	if err != nil || len(keyBytes) != 32 {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "transactionId",
			Message: "Transaction id must be a 32-byte hex string",
		}, http.StatusBadRequest)
		return
	}

	ev := &types.DecodedEvent{
		Kind:          types.EventManual,
		SourceChain:   req.SourceChain,
		TargetChain:   req.TargetChain,
		Recipient:     common.HexToAddress(req.Recipient),
		TokenSymbol:   strings.ToUpper(req.TokenSymbol),
		Amount:        amount,
		Fee:           big.NewInt(0),
		TransactionID: [32]byte(common.BytesToHash(keyBytes)),
	}

	h.logger.WithField("transactionId", req.TransactionID).Info("manual release requested")

	if err := h.relay.Dispatch(r.Context(), ev); err != nil {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: err.Error(),
		}, http.StatusInternalServerError)
		return
	}

	responseJSON(w, &APIReleaseResponse{
		Status:        "ok",
		TransactionID: req.TransactionID,
	}, http.StatusOK)
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"gobridgerelay/config"
	"gobridgerelay/types"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

const simulateDelay = 5 * time.Second

// SimulateBridge schedules a demo dispatch after a fixed delay and answers
// immediately. The transaction key is derived from a uuid and the clock, not
// from any on-chain commitment; only this explicitly-labeled simulation path
// may use such a key. Real dispatches trust keys decoded from logs only.
func (h *Handler) SimulateBridge(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WithError(err).Error("error reading request body")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error reading request body",
		}, http.StatusBadRequest)
		return
	}

	var req SimulateBridgeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.WithError(err).Error("error unmarshalling request body")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Cannot unmarshal input JSON",
		}, http.StatusBadRequest)
		return
	}

	if req.FromToken == "" || req.ToToken == "" {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "fromToken",
			Message: "Both token symbols are required",
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

	fromChain := req.FromChain
	if config.Config.SimulateSourceChain != 0 {
		fromChain = config.Config.SimulateSourceChain
	}
	if _, ok := h.registry.Resolve(req.ToChain); !ok {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "toChain",
			Message: "Destination chain is not configured",
		}, http.StatusBadRequest)
		return
	}

	// simulation-only key, no relation to any source-chain event
	txID := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s:%d", uuid.New().String(), time.Now().UnixNano())))

	ev := &types.DecodedEvent{
		Kind:           types.EventManual,
		SourceChain:    fromChain,
		TargetChain:    req.ToChain,
		Recipient:      common.HexToAddress(req.Recipient),
		TokenSymbol:    strings.ToUpper(req.FromToken),
		TokenSymbolOut: strings.ToUpper(req.ToToken),
		Amount:         amount,
		Fee:            big.NewInt(0),
		TransactionID:  [32]byte(txID),
	}

	time.AfterFunc(simulateDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		if err := h.relay.Dispatch(ctx, ev); err != nil {
			h.logger.WithError(err).Error("simulated bridge dispatch failed")
		}
	})

	responseJSON(w, &APISimulateResponse{
		Success:       true,
		TransactionID: txID.Hex(),
		Status:        "processing",
		EstimatedTime: simulateDelay.String(),
	}, http.StatusOK)
}

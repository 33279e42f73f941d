package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// prev. bridge implementation compatibility
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &APIStateResponse{
		Status: "ok",
	}, http.StatusOK)
}

// Status reports the active mechanism, the relay wallet per network and the
// processed-transfer counter.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	wallets := make([]WalletInfo, 0)
	for id, network := range h.registry.Networks() {
		address, ok := h.wallets.SignerAddress(id)
		if !ok {
			continue
		}

		info := WalletInfo{
			Network: network.Name,
			ChainID: id,
			Address: address.Hex(),
			Balance: "unavailable",
		}
		if balance, err := h.wallets.NativeBalance(ctx, id, address); err == nil {
			info.Balance = balance.String()
		} else {
			h.logger.WithError(err).Warnf("error reading wallet balance on chain %d", id)
		}
		wallets = append(wallets, info)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].ChainID < wallets[j].ChainID })

	responseJSON(w, &APIStatusResponse{
		Status:     "ok",
		Mechanism:  string(h.registry.Mechanism()),
		WalletInfo: wallets,
		Processed:  h.ledger.ProcessedCount(),
	}, http.StatusOK)
}

// Failed lists dispatches that were dropped without a confirmed destination
// transaction, for operator replay through the release endpoint.
func (h *Handler) Failed(w http.ResponseWriter, r *http.Request) {
	recs, err := h.ledger.ListFailures()
	if err != nil {
		h.logger.WithError(err).Error("error listing failure records")
		responseJSON(w, &APIResponse{
			Status:  "error",
			Message: "Error listing failure records",
		}, http.StatusInternalServerError)
		return
	}

	responseJSON(w, recs, http.StatusOK)
}

package handlers

import (
	"math/big"
	"net/http"
	"strings"
	"time"

	"gobridgerelay/rates"

	"github.com/go-chi/chi"
)

// ExchangeRates exposes the live contract rates and the static fallback
// table the resolver works from.
func (h *Handler) ExchangeRates(w http.ResponseWriter, r *http.Request) {
	responseJSON(w, &APIExchangeRatesResponse{
		ContractRates: h.quoter.ContractRates(r.Context(), h.quoteChain),
		FallbackRates: h.quoter.FallbackTable(),
		Description:   "contract rates are read live from the mock rate contract; fallback rates apply when the contract has no answer for a pair",
	}, http.StatusOK)
}

// Quote computes the destination amount for a prospective cross-token
// bridge. Same resolution order and truncating arithmetic as a real
// dispatch.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	fromToken := strings.ToUpper(chi.URLParam(r, "fromToken"))
	toToken := strings.ToUpper(chi.URLParam(r, "toToken"))
	rawAmount := chi.URLParam(r, "amount")

	if fromToken == "" || toToken == "" {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "fromToken",
			Message: "Both token symbols are required",
		}, http.StatusBadRequest)
		return
	}

	amount, ok := new(big.Int).SetString(rawAmount, 10)
	if !ok || amount.Sign() <= 0 {
		responseJSON(w, &APIResponse{
			Status:  "error",
			Field:   "amount",
			Message: "Amount must be a positive integer in smallest units",
		}, http.StatusBadRequest)
		return
	}

	rate := h.quoter.Resolve(r.Context(), h.quoteChain, fromToken, toToken)
	amountOut := rates.Convert(amount, rate)

	responseJSON(w, &APIQuoteResponse{
		FromToken:    fromToken,
		ToToken:      toToken,
		AmountIn:     amount.String(),
		AmountOut:    amountOut.String(),
		ExchangeRate: rate.Float(),
		Timestamp:    time.Now().Unix(),
	}, http.StatusOK)
}

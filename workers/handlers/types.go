package handlers

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type APIStateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type WalletInfo struct {
	Network string `json:"network"`
	ChainID int    `json:"chainId"`
	Address string `json:"address"`
	// native-coin balance in wei, "unavailable" when the RPC read failed
	Balance string `json:"balance"`
}

type APIStatusResponse struct {
	Status     string       `json:"status"`
	Mechanism  string       `json:"mechanism"`
	WalletInfo []WalletInfo `json:"walletInfo"`
	Processed  int          `json:"processed"`
}

type APIExchangeRatesResponse struct {
	ContractRates map[string]float64 `json:"contractRates"`
	FallbackRates map[string]float64 `json:"fallbackRates"`
	Description   string             `json:"description"`
}

type APIQuoteResponse struct {
	FromToken    string  `json:"fromToken"`
	ToToken      string  `json:"toToken"`
	AmountIn     string  `json:"amountIn"`
	AmountOut    string  `json:"amountOut"`
	ExchangeRate float64 `json:"exchangeRate"`
	Timestamp    int64   `json:"timestamp"`
}

type SimulateBridgeRequest struct {
	FromToken string `json:"fromToken"`
	ToToken   string `json:"toToken"`
	Amount    string `json:"amount"`
	FromChain int    `json:"fromChain"`
	ToChain   int    `json:"toChain"`
	Recipient string `json:"recipient"`
}

type APISimulateResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	EstimatedTime string `json:"estimatedTime"`
}

type ReleaseRequest struct {
	Recipient     string `json:"recipient"`
	Amount        string `json:"amount"`
	TokenSymbol   string `json:"tokenSymbol"`
	SourceChain   int    `json:"sourceChain"`
	TargetChain   int    `json:"targetChain"`
	TransactionID string `json:"transactionId"`
}

type APIReleaseResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transactionId"`
}

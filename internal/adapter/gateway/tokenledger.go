package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// TokenLedgerClient forwards fungible-token transfers to the ledger account
// of a supported token.
type TokenLedgerClient struct {
	baseURL string
	caller  string
	hc      *http.Client
}

func NewTokenLedgerClient(baseURL, caller string) *TokenLedgerClient {
	return &TokenLedgerClient{
		baseURL: baseURL,
		caller:  caller,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

type ftTransferReq struct {
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo,omitempty"`
}

func (c *TokenLedgerClient) Transfer(ctx context.Context, tokenAccount, receiver string, amount decimal.Decimal, memo string) error {
	body, err := json.Marshal(ftTransferReq{ReceiverID: receiver, Amount: amount.String(), Memo: memo})
	if err != nil {
		return err
	}

	url := c.baseURL + "/accounts/" + tokenAccount + "/ft_transfer"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ax-Account-Id", c.caller)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("token ledger: unexpected status %d", resp.StatusCode)
	}
	return nil
}

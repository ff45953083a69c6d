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

// EscrowClient talks to the escrow relay. The relay only honors requests
// carrying the owner identity it was initialized with; owner is sent on
// every call.
type EscrowClient struct {
	baseURL string
	owner   string
	hc      *http.Client
}

func NewEscrowClient(baseURL, owner string) *EscrowClient {
	return &EscrowClient{
		baseURL: baseURL,
		owner:   owner,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

type escrowTransferReq struct {
	FT     string `json:"ft"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type escrowTransferResp struct {
	Unconsumed string `json:"unconsumed"`
}

// RequestTransfer asks the relay to move amount of the given token to
// recipient. The relay reports "0" unconsumed on success and the original
// amount otherwise.
func (c *EscrowClient) RequestTransfer(ctx context.Context, tokenAccount, recipient string, amount decimal.Decimal) (bool, error) {
	body, err := json.Marshal(escrowTransferReq{
		FT:     tokenAccount,
		To:     recipient,
		Amount: amount.String(),
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ax-Account-Id", c.owner)

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("escrow relay: unexpected status %d", resp.StatusCode)
	}

	var out escrowTransferResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Unconsumed == "0", nil
}

package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// piconero per XMR; wallet-rpc reports amounts in atomic units.
const piconero = 1e12

// Client talks JSON-RPC 2.0 to a monero-wallet-rpc endpoint.
type Client struct {
	rpcURL     string
	httpClient *http.Client
}

var _ Gateway = (*Client)(nil)

// Config holds client configuration.
type Config struct {
	RPCURL  string // e.g. http://127.0.0.1:28088/json_rpc
	Timeout time.Duration
}

// NewClient creates a wallet-rpc client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet RPC URL required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		rpcURL:     cfg.RPCURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("wallet rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one RPC round trip. Every failure is reported as
// ErrGatewayUnavailable so callers can treat the wallet as a single opaque
// collaborator.
func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 0, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrGatewayUnavailable, method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", ErrGatewayUnavailable, method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrGatewayUnavailable, method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", ErrGatewayUnavailable, method, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, rpcResp.Error)
	}
	return rpcResp.Result, nil
}

// NewSubaccount mints a receiving account on the wallet.
func (c *Client) NewSubaccount(ctx context.Context) (Subaccount, error) {
	result, err := c.call(ctx, "create_account", map[string]interface{}{})
	if err != nil {
		return Subaccount{}, err
	}
	sub := Subaccount{
		Index:   gjson.GetBytes(result, "account_index").Uint(),
		Address: gjson.GetBytes(result, "address").String(),
	}
	if sub.Address == "" {
		return Subaccount{}, fmt.Errorf("%w: create_account returned no address", ErrGatewayUnavailable)
	}
	return sub, nil
}

// IncomingTransfers returns the subaccount's all-time incoming transactions.
func (c *Client) IncomingTransfers(ctx context.Context, index uint64) ([]Transfer, error) {
	result, err := c.call(ctx, "get_transfers", map[string]interface{}{
		"account_index": index,
		"in":            true,
	})
	if err != nil {
		return nil, err
	}

	entries := gjson.GetBytes(result, "in").Array()
	transfers := make([]Transfer, 0, len(entries))
	for _, entry := range entries {
		transfers = append(transfers, Transfer{
			Amount: float64(entry.Get("amount").Uint()) / piconero,
		})
	}
	return transfers, nil
}

// UnlockedBalance returns the subaccount's currently spendable balance.
func (c *Client) UnlockedBalance(ctx context.Context, index uint64) (float64, error) {
	result, err := c.call(ctx, "get_balance", map[string]interface{}{
		"account_index": index,
	})
	if err != nil {
		return 0, err
	}
	return float64(gjson.GetBytes(result, "unlocked_balance").Uint()) / piconero, nil
}

// SweepAll transfers the subaccount's entire unlocked balance to the
// destination address. Sweeping an already-empty subaccount is a no-op.
func (c *Client) SweepAll(ctx context.Context, index uint64, address string) error {
	_, err := c.call(ctx, "sweep_all", map[string]interface{}{
		"account_index": index,
		"address":       address,
	})
	if err != nil && isEmptySweep(err) {
		return nil
	}
	return err
}

// isEmptySweep matches the wallet-rpc errors raised when there is nothing to
// sweep, which the Gateway contract defines as success.
func isEmptySweep(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no unlocked balance") || strings.Contains(msg, "not enough money")
}

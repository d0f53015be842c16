package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// rpcHandler maps method names to canned result/error payloads.
type rpcHandler map[string]func(params json.RawMessage) (interface{}, *rpcError)

func (h rpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fn, ok := h[req.Method]
	if !ok {
		http.Error(w, "unknown method "+req.Method, http.StatusBadRequest)
		return
	}
	result, rpcErr := fn(req.Params)
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": 0}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func newTestClient(t *testing.T, handler rpcHandler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Config{RPCURL: server.URL + "/json_rpc"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewSubaccount(t *testing.T) {
	client := newTestClient(t, rpcHandler{
		"create_account": func(json.RawMessage) (interface{}, *rpcError) {
			return map[string]interface{}{"account_index": 7, "address": "8subaccount7"}, nil
		},
	})

	sub, err := client.NewSubaccount(context.Background())
	if err != nil {
		t.Fatalf("new subaccount: %v", err)
	}
	if sub.Index != 7 || sub.Address != "8subaccount7" {
		t.Fatalf("unexpected subaccount: %+v", sub)
	}
}

func TestNewSubaccount_MissingAddress(t *testing.T) {
	client := newTestClient(t, rpcHandler{
		"create_account": func(json.RawMessage) (interface{}, *rpcError) {
			return map[string]interface{}{"account_index": 7}, nil
		},
	})

	if _, err := client.NewSubaccount(context.Background()); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestIncomingTransfers_ConvertsPiconero(t *testing.T) {
	var gotParams json.RawMessage
	client := newTestClient(t, rpcHandler{
		"get_transfers": func(params json.RawMessage) (interface{}, *rpcError) {
			gotParams = params
			return map[string]interface{}{
				"in": []map[string]interface{}{
					{"amount": uint64(1500000000000)},
					{"amount": uint64(250000000000)},
				},
			}, nil
		},
	})

	transfers, err := client.IncomingTransfers(context.Background(), 7)
	if err != nil {
		t.Fatalf("incoming transfers: %v", err)
	}
	if len(transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(transfers))
	}
	if transfers[0].Amount != 1.5 || transfers[1].Amount != 0.25 {
		t.Fatalf("unexpected amounts: %+v", transfers)
	}

	var params struct {
		AccountIndex uint64 `json:"account_index"`
		In           bool   `json:"in"`
	}
	if err := json.Unmarshal(gotParams, &params); err != nil {
		t.Fatalf("decode params: %v", err)
	}
	if params.AccountIndex != 7 || !params.In {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestIncomingTransfers_NoHistory(t *testing.T) {
	client := newTestClient(t, rpcHandler{
		"get_transfers": func(json.RawMessage) (interface{}, *rpcError) {
			return map[string]interface{}{}, nil
		},
	})

	transfers, err := client.IncomingTransfers(context.Background(), 7)
	if err != nil {
		t.Fatalf("incoming transfers: %v", err)
	}
	if len(transfers) != 0 {
		t.Fatalf("expected no transfers, got %+v", transfers)
	}
}

func TestUnlockedBalance(t *testing.T) {
	client := newTestClient(t, rpcHandler{
		"get_balance": func(json.RawMessage) (interface{}, *rpcError) {
			return map[string]interface{}{"balance": uint64(2000000000000), "unlocked_balance": uint64(750000000000)}, nil
		},
	})

	balance, err := client.UnlockedBalance(context.Background(), 7)
	if err != nil {
		t.Fatalf("unlocked balance: %v", err)
	}
	if balance != 0.75 {
		t.Fatalf("unexpected balance: %v", balance)
	}
}

func TestCall_RPCError(t *testing.T) {
	client := newTestClient(t, rpcHandler{
		"get_balance": func(json.RawMessage) (interface{}, *rpcError) {
			return nil, &rpcError{Code: -1, Message: "wallet is busy"}
		},
	})

	if _, err := client.UnlockedBalance(context.Background(), 7); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestCall_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	client, err := NewClient(Config{RPCURL: server.URL + "/json_rpc"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.UnlockedBalance(context.Background(), 7); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestSweepAll_EmptySweepIsNoOp(t *testing.T) {
	for _, message := range []string{"No unlocked balance in the specified account", "not enough money"} {
		client := newTestClient(t, rpcHandler{
			"sweep_all": func(json.RawMessage) (interface{}, *rpcError) {
				return nil, &rpcError{Code: -4, Message: message}
			},
		})
		if err := client.SweepAll(context.Background(), 7, "destination"); err != nil {
			t.Fatalf("empty sweep %q: %v", message, err)
		}
	}
}

func TestSweepAll_RealFailure(t *testing.T) {
	client := newTestClient(t, rpcHandler{
		"sweep_all": func(json.RawMessage) (interface{}, *rpcError) {
			return nil, &rpcError{Code: -2, Message: "invalid address"}
		},
	})

	if err := client.SweepAll(context.Background(), 7, "destination"); !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

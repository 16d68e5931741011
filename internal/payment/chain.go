package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
)

// DefaultRPCURL is the chain endpoint used when none is configured.
const DefaultRPCURL = "https://rpc.camp.network"

// Transaction is the subset of an on-chain transaction the verifier reads.
type Transaction struct {
	Hash  string
	From  string
	To    string
	Value *big.Int
}

// Receipt is the subset of a transaction receipt the verifier reads.
type Receipt struct {
	TxHash string
	Status uint64 // 1 = success, 0 = reverted
}

// ChainClient fetches transactions and receipts from the chain.
type ChainClient interface {
	TransactionByHash(ctx context.Context, txHash string) (*Transaction, error)
	TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error)
}

// RPCClient is a minimal JSON-RPC ChainClient over HTTP.
type RPCClient struct {
	endpoint string
	client   *http.Client
	nextID   atomic.Int64
}

// RPCOption configures an RPCClient.
type RPCOption func(*RPCClient)

// WithRPCHTTPClient sets a custom HTTP client.
func WithRPCHTTPClient(client *http.Client) RPCOption {
	return func(c *RPCClient) {
		c.client = client
	}
}

// NewRPCClient creates a JSON-RPC client. An empty endpoint falls back to
// DefaultRPCURL.
func NewRPCClient(endpoint string, opts ...RPCOption) *RPCClient {
	if endpoint == "" {
		endpoint = DefaultRPCURL
	}
	c := &RPCClient{
		endpoint: endpoint,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if string(rpcResp.Result) == "null" {
		return fmt.Errorf("%s: not found", method)
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

type rpcTransaction struct {
	Hash  string `json:"hash"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
}

type rpcReceipt struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
}

func (c *RPCClient) TransactionByHash(ctx context.Context, txHash string) (*Transaction, error) {
	var raw rpcTransaction
	if err := c.call(ctx, "eth_getTransactionByHash", []any{txHash}, &raw); err != nil {
		return nil, err
	}

	value, err := parseHexBig(raw.Value)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txHash, err)
	}
	return &Transaction{
		Hash:  raw.Hash,
		From:  raw.From,
		To:    raw.To,
		Value: value,
	}, nil
}

func (c *RPCClient) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var raw rpcReceipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []any{txHash}, &raw); err != nil {
		return nil, err
	}

	status, err := parseHexBig(raw.Status)
	if err != nil {
		return nil, fmt.Errorf("receipt %s: %w", txHash, err)
	}
	return &Receipt{
		TxHash: raw.TransactionHash,
		Status: status.Uint64(),
	}, nil
}

// parseHexBig decodes a 0x-prefixed hex quantity. Empty strings decode to
// zero, matching how nodes encode absent values.
func parseHexBig(s string) (*big.Int, error) {
	if s == "" || s == "0x" {
		return big.NewInt(0), nil
	}
	trimmed := strings.TrimPrefix(s, "0x")
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return v, nil
}

package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// ErrReceiptTimeout is returned when a transaction is not mined inside
// the confirmation window. The attempt is terminal; the user resubmits.
var ErrReceiptTimeout = errors.New("transaction confirmation timed out")

// RPCClient talks JSON-RPC to an EVM node. Reads go through eth_call;
// joins go through eth_sendTransaction, so the node (or a signer proxy
// in front of it) owns the submitting account.
type RPCClient struct {
	url      string
	contract string
	from     string
	http     *http.Client
	pollTick time.Duration
	reqID    atomic.Int64
}

type RPCOption func(*RPCClient)

func WithPollInterval(d time.Duration) RPCOption {
	return func(c *RPCClient) {
		if d > 0 {
			c.pollTick = d
		}
	}
}

func WithHTTPClient(h *http.Client) RPCOption {
	return func(c *RPCClient) { c.http = h }
}

func NewRPCClient(url, contract, from string, opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		url:      url,
		contract: contract,
		from:     from,
		http:     &http.Client{Timeout: 15 * time.Second},
		pollTick: 2 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("rpc %s: read body: %w", method, err)
	}

	var out rpcResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("rpc %s: decode: %w", method, err)
	}
	if out.Error != nil {
		// provider message travels verbatim to the user
		return nil, fmt.Errorf("rpc %s: %s", method, out.Error.Message)
	}
	return out.Result, nil
}

func (c *RPCClient) ethCall(ctx context.Context, data string) (string, error) {
	res, err := c.call(ctx, "eth_call", map[string]string{
		"to":   c.contract,
		"data": data,
	}, "latest")
	if err != nil {
		return "", err
	}
	var ret string
	if err := json.Unmarshal(res, &ret); err != nil {
		return "", fmt.Errorf("eth_call result: %w", err)
	}
	return ret, nil
}

func (c *RPCClient) SubmitJoin(ctx context.Context, handle, address string) (string, error) {
	from := c.from
	if from == "" {
		from = address
	}
	res, err := c.call(ctx, "eth_sendTransaction", map[string]string{
		"from": from,
		"to":   c.contract,
		"data": callDataJoinMonument(handle),
	})
	if err != nil {
		return "", err
	}
	var txHash string
	if err := json.Unmarshal(res, &txHash); err != nil {
		return "", fmt.Errorf("eth_sendTransaction result: %w", err)
	}
	return txHash, nil
}

func (c *RPCClient) WaitForReceipt(ctx context.Context, txHash string, timeout time.Duration) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollTick)
	defer ticker.Stop()

	for {
		rec, err := c.getReceipt(ctx, txHash)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrReceiptTimeout
			}
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrReceiptTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *RPCClient) getReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	res, err := c.call(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if string(res) == "null" {
		return nil, nil // not mined yet
	}

	var raw struct {
		Status      string `json:"status"`
		BlockNumber string `json:"blockNumber"`
	}
	if err := json.Unmarshal(res, &raw); err != nil {
		return nil, fmt.Errorf("receipt decode: %w", err)
	}

	rec := &Receipt{TxHash: txHash, Status: ReceiptFailure}
	if raw.Status == "0x1" {
		rec.Status = ReceiptSuccess
	}
	if n, err := strconv.ParseUint(strings.TrimPrefix(raw.BlockNumber, "0x"), 16, 64); err == nil {
		rec.BlockNumber = n
	}
	return rec, nil
}

func (c *RPCClient) HasJoined(ctx context.Context, address string) (bool, error) {
	data, err := callDataHasJoined(address)
	if err != nil {
		return false, err
	}
	ret, err := c.ethCall(ctx, data)
	if err != nil {
		return false, err
	}
	return unpackBool(ret)
}

func (c *RPCClient) TotalJoined(ctx context.Context) (uint64, error) {
	ret, err := c.ethCall(ctx, callDataTotalJoined())
	if err != nil {
		return 0, err
	}
	return unpackUint(ret)
}

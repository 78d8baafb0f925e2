package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"cointip-engine-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service is a client for a bitcoind-compatible wallet daemon speaking
// JSON-RPC 1.0 over HTTP. Per-user account balances, account-to-account
// moves and fee-bearing external sends are all daemon-side; this client
// holds no state beyond the connection.
type Service struct {
	url        string
	user       string
	password   string
	httpClient http.Client
}

func NewService(cfg models.WalletConfig) (*Service, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("wallet RPC URL cannot be empty")
	}

	service := &Service{
		url:        cfg.RPCURL,
		user:       cfg.RPCUser,
		password:   cfg.RPCPassword,
		httpClient: createHttpClient(cfg.RequestTimeout),
	}

	return service, nil
}

// Connect verifies the daemon is reachable and pins the network
// transaction fee used by external sends.
func (s *Service) Connect(ctx context.Context, txFee decimal.Decimal) error {
	var info json.RawMessage
	if err := s.call(ctx, "getwalletinfo", nil, &info); err != nil {
		return fmt.Errorf("unable to reach wallet daemon: %w", err)
	}

	zap.L().Info("Setting wallet transaction fee", zap.String("fee", txFee.String()))
	var ok bool
	if err := s.call(ctx, "settxfee", []any{jsonAmount(txFee)}, &ok); err != nil {
		return fmt.Errorf("unable to set transaction fee: %w", err)
	}
	if !ok {
		return fmt.Errorf("wallet daemon rejected transaction fee %s", txFee)
	}

	return nil
}

// Balance returns the account's balance counting only transactions with
// at least minConf confirmations.
func (s *Service) Balance(ctx context.Context, account string, minConf int) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := s.call(ctx, "getbalance", []any{account, minConf}, &balance); err != nil {
		return decimal.Zero, fmt.Errorf("unable to get balance for %s: %w", account, err)
	}
	return balance, nil
}

// Move transfers amount between two daemon accounts. No network
// transaction occurs and no fee applies.
func (s *Service) Move(ctx context.Context, fromAccount, toAccount string, amount decimal.Decimal) error {
	var moved bool
	if err := s.call(ctx, "move", []any{fromAccount, toAccount, jsonAmount(amount)}, &moved); err != nil {
		return fmt.Errorf("unable to move %s from %s to %s: %w", amount, fromAccount, toAccount, err)
	}
	if !moved {
		return fmt.Errorf("wallet daemon refused move of %s from %s to %s", amount, fromAccount, toAccount)
	}

	zap.L().Info("Internal move completed",
		zap.String("from", fromAccount),
		zap.String("to", toAccount),
		zap.String("amount", amount.String()))
	return nil
}

// SendToAddress sends amount from the account to an external address,
// spending only outputs with at least minConf confirmations, and
// returns the network transaction id. The configured fee is charged on
// top of amount.
func (s *Service) SendToAddress(ctx context.Context, fromAccount, address string, amount decimal.Decimal, minConf int) (string, error) {
	var txId string
	if err := s.call(ctx, "sendfrom", []any{fromAccount, address, jsonAmount(amount), minConf}, &txId); err != nil {
		return "", fmt.Errorf("unable to send %s from %s to %s: %w", amount, fromAccount, address, err)
	}

	zap.L().Info("External send completed",
		zap.String("from", fromAccount),
		zap.String("address", address),
		zap.String("amount", amount.String()),
		zap.String("tx_id", txId))
	return txId, nil
}

// ValidateAddress asks the daemon whether address is well-formed for
// its network.
func (s *Service) ValidateAddress(ctx context.Context, address string) (bool, error) {
	var result struct {
		IsValid bool `json:"isvalid"`
	}
	if err := s.call(ctx, "validateaddress", []any{address}, &result); err != nil {
		return false, fmt.Errorf("unable to validate address %s: %w", address, err)
	}
	return result.IsValid, nil
}

// NewAddress generates a fresh deposit address owned by the account.
func (s *Service) NewAddress(ctx context.Context, account string) (string, error) {
	var address string
	if err := s.call(ctx, "getnewaddress", []any{account}, &address); err != nil {
		return "", fmt.Errorf("unable to generate address for %s: %w", account, err)
	}

	zap.L().Info("Generated deposit address",
		zap.String("account", account),
		zap.String("address", address))
	return address, nil
}

type rpcRequest struct {
	Id     string `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (s *Service) call(ctx context.Context, method string, params []any, result any) error {
	if params == nil {
		params = []any{}
	}

	payload, err := json.Marshal(rpcRequest{
		Id:     uuid.New().String(),
		Method: method,
		Params: params,
	})
	if err != nil {
		return fmt.Errorf("unable to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("unable to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.user != "" {
		req.SetBasicAuth(s.user, s.password)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("unable to read %s response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("unable to parse %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: daemon error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unable to decode %s result: %w", method, err)
		}
	}
	return nil
}

// jsonAmount renders a decimal as a bare JSON number; the daemon does
// not accept quoted amounts.
func jsonAmount(amount decimal.Decimal) json.Number {
	return json.Number(amount.String())
}

func createHttpClient(timeout time.Duration) http.Client {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 5,
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}

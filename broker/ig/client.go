// Package ig implements the broker interface against the IG REST API.
package ig

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/fiona-trading/fiona/broker"
)

const (
	// DemoURL is the IG demo/practice gateway.
	DemoURL = "https://demo-api.ig.com/gateway/deal"
	// LiveURL is the IG live gateway.
	LiveURL = "https://api.ig.com/gateway/deal"
)

// Client is an IG REST API client implementing broker.Broker.
type Client struct {
	baseURL    string
	apiKey     string
	identifier string
	password   string
	httpClient *http.Client

	mu            sync.Mutex
	cst           string
	securityToken string
}

// NewClient creates an IG client. Call Login before placing orders.
func NewClient(cfg Config) *Client {
	baseURL := LiveURL
	if cfg.Demo {
		baseURL = DemoURL
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		identifier: cfg.Identifier,
		password:   cfg.Password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type loginResponse struct {
	CurrentAccountID string `json:"currentAccountId"`
}

// Login authenticates with IG and stores the session tokens.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"identifier": c.identifier,
		"password":   c.password,
	})
	if err != nil {
		return fmt.Errorf("marshal login: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-IG-API-KEY", c.apiKey)
	req.Header.Set("Version", "2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return broker.Errorf(broker.CodeTransport, "login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return broker.Errorf(broker.CodeAuth, "login failed (status %d): %s", resp.StatusCode, string(b))
	}

	cst := resp.Header.Get("CST")
	token := resp.Header.Get("X-SECURITY-TOKEN")
	if cst == "" || token == "" {
		return broker.Errorf(broker.CodeAuth, "login response missing session tokens")
	}

	c.mu.Lock()
	c.cst = cst
	c.securityToken = token
	c.mu.Unlock()

	return nil
}

// do executes an authenticated API call and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path, version string, body, out any) error {
	c.mu.Lock()
	cst, token := c.cst, c.securityToken
	c.mu.Unlock()

	if cst == "" || token == "" {
		return broker.Errorf(broker.CodeAuth, "not logged in")
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-IG-API-KEY", c.apiKey)
	req.Header.Set("CST", cst)
	req.Header.Set("X-SECURITY-TOKEN", token)
	req.Header.Set("Version", version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return broker.Errorf(broker.CodeTransport, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		b, _ := io.ReadAll(resp.Body)
		return broker.Errorf(broker.CodeAuth, "API error (status %d): %s", resp.StatusCode, string(b))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return broker.Errorf(broker.CodeTransport, "API error (status %d): %s", resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type accountsResponse struct {
	Accounts []struct {
		AccountID   string `json:"accountId"`
		AccountName string `json:"accountName"`
		Currency    string `json:"currency"`
		Preferred   bool   `json:"preferred"`
		Balance     struct {
			Balance    float64 `json:"balance"`
			Available  float64 `json:"available"`
			Deposit    float64 `json:"deposit"`
			ProfitLoss float64 `json:"profitLoss"`
		} `json:"balance"`
	} `json:"accounts"`
}

// GetAccount returns the preferred account's state.
func (c *Client) GetAccount(ctx context.Context) (broker.AccountState, error) {
	var resp accountsResponse
	if err := c.do(ctx, http.MethodGet, "/accounts", "1", nil, &resp); err != nil {
		return broker.AccountState{}, err
	}
	if len(resp.Accounts) == 0 {
		return broker.AccountState{}, broker.Errorf(broker.CodeNotFound, "no accounts returned")
	}

	acct := resp.Accounts[0]
	for _, a := range resp.Accounts {
		if a.Preferred {
			acct = a
			break
		}
	}

	return broker.AccountState{
		ID:           acct.AccountID,
		Name:         acct.AccountName,
		Balance:      acct.Balance.Balance,
		Available:    acct.Balance.Available,
		Equity:       acct.Balance.Balance + acct.Balance.ProfitLoss,
		MarginUsed:   acct.Balance.Deposit,
		UnrealizedPL: acct.Balance.ProfitLoss,
		Currency:     acct.Currency,
		Timestamp:    time.Now().UTC(),
	}, nil
}

type positionsResponse struct {
	Positions []struct {
		Position struct {
			DealID     string   `json:"dealId"`
			Direction  string   `json:"direction"`
			Size       float64  `json:"size"`
			Level      float64  `json:"level"`
			StopLevel  *float64 `json:"stopLevel"`
			LimitLevel *float64 `json:"limitLevel"`
			Currency   string   `json:"currency"`
			CreatedAt  string   `json:"createdDateUTC"`
		} `json:"position"`
		Market struct {
			Epic           string  `json:"epic"`
			InstrumentName string  `json:"instrumentName"`
			Bid            float64 `json:"bid"`
			Offer          float64 `json:"offer"`
		} `json:"market"`
	} `json:"positions"`
}

// GetOpenPositions lists all open positions on the account.
func (c *Client) GetOpenPositions(ctx context.Context) ([]broker.Position, error) {
	var resp positionsResponse
	if err := c.do(ctx, http.MethodGet, "/positions", "2", nil, &resp); err != nil {
		return nil, err
	}

	positions := make([]broker.Position, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		current := p.Market.Bid
		if broker.Direction(p.Position.Direction) == broker.Sell {
			current = p.Market.Offer
		}

		pl := (current - p.Position.Level) * p.Position.Size
		if broker.Direction(p.Position.Direction) == broker.Sell {
			pl = -pl
		}

		createdAt, _ := time.Parse("2006-01-02T15:04:05", p.Position.CreatedAt)

		positions = append(positions, broker.Position{
			ID:           p.Position.DealID,
			DealID:       p.Position.DealID,
			Epic:         p.Market.Epic,
			MarketName:   p.Market.InstrumentName,
			Direction:    broker.Direction(p.Position.Direction),
			Size:         p.Position.Size,
			OpenPrice:    p.Position.Level,
			CurrentPrice: current,
			UnrealizedPL: pl,
			StopLoss:     p.Position.StopLevel,
			TakeProfit:   p.Position.LimitLevel,
			Currency:     p.Position.Currency,
			CreatedAt:    createdAt,
		})
	}
	return positions, nil
}

type marketResponse struct {
	Instrument struct {
		Name string `json:"name"`
	} `json:"instrument"`
	Snapshot struct {
		Bid              float64  `json:"bid"`
		Offer            float64  `json:"offer"`
		High             *float64 `json:"high"`
		Low              *float64 `json:"low"`
		NetChange        *float64 `json:"netChange"`
		PercentageChange *float64 `json:"percentageChange"`
	} `json:"snapshot"`
}

// GetSymbolPrice returns the current price snapshot for a market.
func (c *Client) GetSymbolPrice(ctx context.Context, epic string) (broker.SymbolPrice, error) {
	if epic == "" {
		return broker.SymbolPrice{}, fmt.Errorf("epic is required")
	}

	var resp marketResponse
	if err := c.do(ctx, http.MethodGet, "/markets/"+epic, "3", nil, &resp); err != nil {
		return broker.SymbolPrice{}, err
	}

	return broker.SymbolPrice{
		Epic:          epic,
		MarketName:    resp.Instrument.Name,
		Bid:           resp.Snapshot.Bid,
		Ask:           resp.Snapshot.Offer,
		Spread:        resp.Snapshot.Offer - resp.Snapshot.Bid,
		High:          resp.Snapshot.High,
		Low:           resp.Snapshot.Low,
		Change:        resp.Snapshot.NetChange,
		ChangePercent: resp.Snapshot.PercentageChange,
		Timestamp:     time.Now().UTC(),
	}, nil
}

type createPositionRequest struct {
	Epic           string   `json:"epic"`
	Expiry         string   `json:"expiry"`
	Direction      string   `json:"direction"`
	Size           float64  `json:"size"`
	OrderType      string   `json:"orderType"`
	Level          *float64 `json:"level,omitempty"`
	GuaranteedStop bool     `json:"guaranteedStop"`
	StopLevel      *float64 `json:"stopLevel,omitempty"`
	LimitLevel     *float64 `json:"limitLevel,omitempty"`
	TrailingStop   bool     `json:"trailingStop"`
	CurrencyCode   string   `json:"currencyCode"`
	ForceOpen      bool     `json:"forceOpen"`
}

type dealReferenceResponse struct {
	DealReference string `json:"dealReference"`
}

type confirmResponse struct {
	DealStatus    string `json:"dealStatus"`
	DealID        string `json:"dealId"`
	Reason        string `json:"reason"`
	AffectedDeals []struct {
		DealID string `json:"dealId"`
	} `json:"affectedDeals"`
}

// PlaceOrder submits an order and confirms the resulting deal.
//
// A transport or auth failure is returned as a *broker.Error. A broker-side
// rejection is not an error: it comes back as an OrderResult with
// Success=false and the rejection reason.
func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	orderType, level := mapOrderType(req)

	create := createPositionRequest{
		Epic:           req.Epic,
		Expiry:         "-",
		Direction:      string(req.Direction),
		Size:           req.Size,
		OrderType:      orderType,
		Level:          level,
		GuaranteedStop: req.GuaranteedStop,
		StopLevel:      req.StopLoss,
		LimitLevel:     req.TakeProfit,
		TrailingStop:   req.TrailingStop,
		CurrencyCode:   req.Currency,
		ForceOpen:      true,
	}

	var created dealReferenceResponse
	if err := c.do(ctx, http.MethodPost, "/positions/otc", "2", create, &created); err != nil {
		return broker.OrderResult{}, err
	}
	if created.DealReference == "" {
		return broker.OrderResult{
			Success:   false,
			Status:    broker.StatusRejected,
			Reason:    "no deal reference returned",
			Timestamp: time.Now().UTC(),
		}, nil
	}

	var confirm confirmResponse
	if err := c.do(ctx, http.MethodGet, "/confirms/"+created.DealReference, "1", nil, &confirm); err != nil {
		return broker.OrderResult{}, err
	}

	if confirm.DealStatus != "ACCEPTED" {
		reason := confirm.Reason
		if reason == "" {
			reason = "order rejected"
		}
		return broker.OrderResult{
			Success:       false,
			DealReference: created.DealReference,
			Status:        broker.StatusRejected,
			Reason:        reason,
			Timestamp:     time.Now().UTC(),
		}, nil
	}

	affected := make([]string, 0, len(confirm.AffectedDeals))
	for _, d := range confirm.AffectedDeals {
		affected = append(affected, d.DealID)
	}

	return broker.OrderResult{
		Success:       true,
		DealID:        confirm.DealID,
		DealReference: created.DealReference,
		Status:        broker.StatusOpen,
		AffectedDeals: affected,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// ClosePosition closes an open position by deal id at market.
func (c *Client) ClosePosition(ctx context.Context, positionID string) (broker.OrderResult, error) {
	var resp positionsResponse
	if err := c.do(ctx, http.MethodGet, "/positions", "2", nil, &resp); err != nil {
		return broker.OrderResult{}, err
	}

	for _, p := range resp.Positions {
		if p.Position.DealID != positionID {
			continue
		}

		// Closing direction is the opposite of the open direction.
		direction := string(broker.Sell)
		if broker.Direction(p.Position.Direction) == broker.Sell {
			direction = string(broker.Buy)
		}

		close := map[string]any{
			"dealId":    positionID,
			"direction": direction,
			"size":      p.Position.Size,
			"orderType": "MARKET",
		}

		var created dealReferenceResponse
		if err := c.do(ctx, http.MethodDelete, "/positions/otc", "1", close, &created); err != nil {
			return broker.OrderResult{}, err
		}

		var confirm confirmResponse
		if err := c.do(ctx, http.MethodGet, "/confirms/"+created.DealReference, "1", nil, &confirm); err != nil {
			return broker.OrderResult{}, err
		}

		return broker.OrderResult{
			Success:       confirm.DealStatus == "ACCEPTED",
			DealID:        confirm.DealID,
			DealReference: created.DealReference,
			Status:        broker.StatusClosed,
			Reason:        confirm.Reason,
			Timestamp:     time.Now().UTC(),
		}, nil
	}

	return broker.OrderResult{}, broker.Errorf(broker.CodeNotFound, "position %q not found", positionID)
}

// mapOrderType converts the order type to IG's orderType plus entry level.
func mapOrderType(req broker.OrderRequest) (string, *float64) {
	switch req.Type {
	case broker.Limit, broker.BuyLimit, broker.SellLimit:
		return "LIMIT", req.LimitPrice
	case broker.Stop, broker.BuyStop, broker.SellStop:
		return "STOP", req.StopPrice
	default:
		return "MARKET", nil
	}
}

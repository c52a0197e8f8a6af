package ig

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiona-trading/fiona/broker"
)

func TestNewClient(t *testing.T) {
	t.Run("demo mode", func(t *testing.T) {
		client := NewClient(Config{APIKey: "key", Demo: true})
		assert.Equal(t, DemoURL, client.baseURL)
		assert.NotNil(t, client.httpClient)
	})

	t.Run("live mode", func(t *testing.T) {
		client := NewClient(Config{APIKey: "key", Demo: false})
		assert.Equal(t, LiveURL, client.baseURL)
	})
}

// testClient returns a client pointed at the mock server with a session
// already established.
func testClient(serverURL string) *Client {
	return &Client{
		baseURL:       serverURL,
		apiKey:        "test-key",
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		cst:           "test-cst",
		securityToken: "test-token",
	}
}

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/session", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-IG-API-KEY"))
		assert.Equal(t, "2", r.Header.Get("Version"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "trader", body["identifier"])

		w.Header().Set("CST", "new-cst")
		w.Header().Set("X-SECURITY-TOKEN", "new-token")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"currentAccountId": "ACC1"})
	}))
	defer server.Close()

	client := &Client{
		baseURL:    server.URL,
		apiKey:     "test-key",
		identifier: "trader",
		password:   "secret",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}

	require.NoError(t, client.Login(context.Background()))
	assert.Equal(t, "new-cst", client.cst)
	assert.Equal(t, "new-token", client.securityToken)
}

func TestLogin_BadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorCode":"error.security.invalid-details"}`))
	}))
	defer server.Close()

	client := &Client{
		baseURL:    server.URL,
		apiKey:     "test-key",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}

	err := client.Login(context.Background())
	require.Error(t, err)

	var brokerErr *broker.Error
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, broker.CodeAuth, brokerErr.Code)
}

func TestGetSymbolPrice_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/CC.D.CL.UNC.IP", r.URL.Path)
		assert.Equal(t, "test-cst", r.Header.Get("CST"))
		assert.Equal(t, "test-token", r.Header.Get("X-SECURITY-TOKEN"))
		assert.Equal(t, "3", r.Header.Get("Version"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"instrument": {"name": "Oil - US Crude"},
			"snapshot": {"bid": 75.48, "offer": 75.52, "high": 76.10, "low": 74.90, "netChange": 0.25, "percentageChange": 0.33}
		}`))
	}))
	defer server.Close()

	price, err := testClient(server.URL).GetSymbolPrice(context.Background(), "CC.D.CL.UNC.IP")
	require.NoError(t, err)

	assert.Equal(t, "Oil - US Crude", price.MarketName)
	assert.InDelta(t, 75.48, price.Bid, 1e-9)
	assert.InDelta(t, 75.52, price.Ask, 1e-9)
	assert.InDelta(t, 75.50, price.Mid(), 1e-9)
	assert.InDelta(t, 0.04, price.Spread, 1e-9)
	require.NotNil(t, price.High)
	assert.InDelta(t, 76.10, *price.High, 1e-9)
}

func TestGetSymbolPrice_RequiresEpic(t *testing.T) {
	_, err := testClient("http://unused").GetSymbolPrice(context.Background(), "")
	assert.Error(t, err)
}

func TestGetSymbolPrice_NotLoggedIn(t *testing.T) {
	client := NewClient(Config{APIKey: "key", Demo: true})

	_, err := client.GetSymbolPrice(context.Background(), "CC.D.CL.UNC.IP")
	require.Error(t, err)

	var brokerErr *broker.Error
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, broker.CodeAuth, brokerErr.Code)
}

func TestPlaceOrder_Accepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/positions/otc":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "2", r.Header.Get("Version"))

			var body createPositionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "CC.D.CL.UNC.IP", body.Epic)
			assert.Equal(t, "BUY", body.Direction)
			assert.Equal(t, "MARKET", body.OrderType)
			assert.True(t, body.ForceOpen)
			require.NotNil(t, body.StopLevel)
			assert.InDelta(t, 74.50, *body.StopLevel, 1e-9)

			json.NewEncoder(w).Encode(map[string]string{"dealReference": "REF-1"})
		case "/confirms/REF-1":
			assert.Equal(t, http.MethodGet, r.Method)
			w.Write([]byte(`{
				"dealStatus": "ACCEPTED",
				"dealId": "DEAL-1",
				"affectedDeals": [{"dealId": "DEAL-1"}]
			}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	stop, target := 74.50, 76.50
	result, err := testClient(server.URL).PlaceOrder(context.Background(), broker.OrderRequest{
		Epic:       "CC.D.CL.UNC.IP",
		Direction:  broker.Buy,
		Size:       1.5,
		Type:       broker.Market,
		StopLoss:   &stop,
		TakeProfit: &target,
		Currency:   "USD",
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "DEAL-1", result.DealID)
	assert.Equal(t, "REF-1", result.DealReference)
	assert.Equal(t, broker.StatusOpen, result.Status)
	assert.Equal(t, []string{"DEAL-1"}, result.AffectedDeals)
}

func TestPlaceOrder_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/positions/otc":
			json.NewEncoder(w).Encode(map[string]string{"dealReference": "REF-1"})
		case "/confirms/REF-1":
			w.Write([]byte(`{"dealStatus": "REJECTED", "reason": "INSUFFICIENT_FUNDS"}`))
		}
	}))
	defer server.Close()

	result, err := testClient(server.URL).PlaceOrder(context.Background(), broker.OrderRequest{
		Epic:      "CC.D.CL.UNC.IP",
		Direction: broker.Buy,
		Size:      1.0,
		Type:      broker.Market,
	})

	// A rejection is a result, not an error.
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, broker.StatusRejected, result.Status)
	assert.Equal(t, "INSUFFICIENT_FUNDS", result.Reason)
}

func TestPlaceOrder_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"errorCode":"system.error"}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).PlaceOrder(context.Background(), broker.OrderRequest{
		Epic:      "CC.D.CL.UNC.IP",
		Direction: broker.Buy,
		Size:      1.0,
		Type:      broker.Market,
	})
	require.Error(t, err)

	var brokerErr *broker.Error
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, broker.CodeTransport, brokerErr.Code)
}

func TestGetOpenPositions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/positions", r.URL.Path)
		w.Write([]byte(`{
			"positions": [{
				"position": {
					"dealId": "DEAL-1",
					"direction": "BUY",
					"size": 2.0,
					"level": 75.00,
					"stopLevel": 74.50,
					"currency": "USD",
					"createdDateUTC": "2024-03-05T14:30:00"
				},
				"market": {
					"epic": "CC.D.CL.UNC.IP",
					"instrumentName": "Oil - US Crude",
					"bid": 75.48,
					"offer": 75.52
				}
			}]
		}`))
	}))
	defer server.Close()

	positions, err := testClient(server.URL).GetOpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	p := positions[0]
	assert.Equal(t, "DEAL-1", p.DealID)
	assert.Equal(t, broker.Buy, p.Direction)
	assert.InDelta(t, 75.48, p.CurrentPrice, 1e-9) // bid side for a long
	assert.InDelta(t, (75.48-75.00)*2.0, p.UnrealizedPL, 1e-9)
	require.NotNil(t, p.StopLoss)
	assert.InDelta(t, 74.50, *p.StopLoss, 1e-9)
	assert.Equal(t, 2024, p.CreatedAt.Year())
}

func TestGetAccount_PrefersPreferred(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts", r.URL.Path)
		w.Write([]byte(`{
			"accounts": [
				{"accountId": "A1", "accountName": "spare", "currency": "USD", "preferred": false,
				 "balance": {"balance": 100, "available": 100, "deposit": 0, "profitLoss": 0}},
				{"accountId": "A2", "accountName": "main", "currency": "USD", "preferred": true,
				 "balance": {"balance": 10000, "available": 9500, "deposit": 500, "profitLoss": 25}}
			]
		}`))
	}))
	defer server.Close()

	acct, err := testClient(server.URL).GetAccount(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "A2", acct.ID)
	assert.InDelta(t, 10000, acct.Balance, 1e-9)
	assert.InDelta(t, 10025, acct.Equity, 1e-9)
	assert.InDelta(t, 500, acct.MarginUsed, 1e-9)
}

func TestClosePosition_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"positions": []}`))
	}))
	defer server.Close()

	_, err := testClient(server.URL).ClosePosition(context.Background(), "DEAL-404")
	require.Error(t, err)

	var brokerErr *broker.Error
	require.True(t, errors.As(err, &brokerErr))
	assert.Equal(t, broker.CodeNotFound, brokerErr.Code)
}

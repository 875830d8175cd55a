package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the IEX Cloud API root.
const DefaultBaseURL = "https://cloud.iexapis.com"

// maxBody caps how much of a quote response is read.
const maxBody = 1 << 20

// Client fetches quotes from an IEX Cloud compatible API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type iexQuote struct {
	CompanyName string          `json:"companyName"`
	Symbol      string          `json:"symbol"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
}

func (c *Client) Lookup(ctx context.Context, symbol string) (domain.Quote, error) {
	addr := fmt.Sprintf("%s/stable/stock/%s/quote?token=%s",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// The error text can contain the token-bearing URL.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return domain.Quote{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Quote{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return domain.Quote{}, fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" || strings.EqualFold(trimmed, "Unknown symbol") {
		return domain.Quote{}, ErrNotFound
	}

	var q iexQuote
	if err := json.Unmarshal(body, &q); err != nil {
		return domain.Quote{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if !q.LatestPrice.IsPositive() {
		return domain.Quote{}, fmt.Errorf("%w: non-positive price %s for %s", ErrUnavailable, q.LatestPrice, symbol)
	}

	canonical := domain.NormalizeSymbol(q.Symbol)
	if canonical == "" {
		canonical = symbol
	}
	name := q.CompanyName
	if name == "" {
		name = canonical
	}
	return domain.Quote{
		Symbol: canonical,
		Name:   name,
		Price:  q.LatestPrice,
	}, nil
}

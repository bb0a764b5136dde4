package supply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nao1215/rpdarchive/internal/fetch"
)

// Getter performs paced GET requests. *fetch.Fetcher implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*fetch.Response, error)
}

// AssetInfo is what the explorer reports for an asset.
type AssetInfo struct {
	// Supply is the current supply as the API printed it.
	Supply    string
	Divisible bool
}

// Client queries the explorer API.
type Client struct {
	getter Getter
	apiURL string
}

// NewClient creates a client for the API rooted at apiURL.
func NewClient(getter Getter, apiURL string) *Client {
	return &Client{getter: getter, apiURL: strings.TrimRight(apiURL, "/")}
}

type assetResponse struct {
	Supply    json.RawMessage `json:"supply"`
	Divisible bool            `json:"divisible"`
}

type destructionsResponse struct {
	Data []struct {
		Status   string          `json:"status"`
		Quantity json.RawMessage `json:"quantity"`
	} `json:"data"`
}

// Asset returns the current supply of asset. A response without a supply
// is an error.
func (c *Client) Asset(ctx context.Context, asset string) (*AssetInfo, error) {
	resp, err := c.getter.Get(ctx, c.apiURL+"/asset/"+url.PathEscape(asset))
	if err != nil {
		return nil, err
	}
	var body assetResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode asset %s: %w", asset, err)
	}
	supply, ok := scalar(body.Supply)
	if !ok {
		return nil, fmt.Errorf("asset %s: no supply in response", asset)
	}
	return &AssetInfo{Supply: supply, Divisible: body.Divisible}, nil
}

// Destroyed returns the sum of the valid destructions of asset. Unparsable
// quantities are skipped.
func (c *Client) Destroyed(ctx context.Context, asset string) (decimal.Decimal, error) {
	resp, err := c.getter.Get(ctx, c.apiURL+"/destructions/"+url.PathEscape(asset))
	if err != nil {
		return decimal.Zero, err
	}
	var body destructionsResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return decimal.Zero, fmt.Errorf("decode destructions %s: %w", asset, err)
	}
	total := decimal.Zero
	for _, item := range body.Data {
		if item.Status != "valid" {
			continue
		}
		s, ok := scalar(item.Quantity)
		if !ok {
			continue
		}
		q, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		total = total.Add(q)
	}
	return total, nil
}

// scalar returns the text of a JSON string or number. Null, missing and
// composite values yield false.
func scalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err != nil {
		return "", false
	}
	return string(raw), true
}

package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
)

const defaultWhaleAlertBaseURL = "https://api.whale-alert.io/v1"

// WhaleAlertSource serves large on-chain transfers. The feed requires an API
// key; callers check Keyed before fetching and fall back to an AI analysis
// when no key is configured.
type WhaleAlertSource struct {
	client  *httpx.Client
	baseURL string
	apiKey  string
}

func NewWhaleAlertSource(client *httpx.Client, baseURL, apiKey string) *WhaleAlertSource {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultWhaleAlertBaseURL
	}

	return &WhaleAlertSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
	}
}

func (s *WhaleAlertSource) Keyed() bool {
	return s.apiKey != ""
}

// Transactions returns recent transfers of at least minValueUSD, newest
// first, capped at limit.
func (s *WhaleAlertSource) Transactions(ctx context.Context, minValueUSD, limit int) ([]entity.WhaleTransaction, error) {
	if !s.Keyed() {
		return nil, fmt.Errorf("whale alert: api key not configured")
	}
	if minValueUSD <= 0 {
		minValueUSD = 1_000_000
	}
	if limit <= 0 {
		limit = 10
	}

	params := map[string]string{
		"api_key":   s.apiKey,
		"min_value": strconv.Itoa(minValueUSD),
		"limit":     strconv.Itoa(limit),
	}

	var payload struct {
		Result       string `json:"result"`
		Transactions []struct {
			Blockchain string  `json:"blockchain"`
			Symbol     string  `json:"symbol"`
			Amount     float64 `json:"amount"`
			AmountUSD  float64 `json:"amount_usd"`
			Timestamp  int64   `json:"timestamp"`
			From       struct {
				Owner string `json:"owner"`
			} `json:"from"`
			To struct {
				Owner string `json:"owner"`
			} `json:"to"`
		} `json:"transactions"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/transactions", params, nil, &payload)
	if err != nil {
		return nil, err
	}

	if payload.Result != "success" {
		return nil, fmt.Errorf("whale alert: result=%s", payload.Result)
	}

	transactions := make([]entity.WhaleTransaction, 0, len(payload.Transactions))
	for _, row := range payload.Transactions {
		if len(transactions) == limit {
			break
		}

		transactions = append(transactions, entity.WhaleTransaction{
			Blockchain: row.Blockchain,
			Symbol:     strings.ToUpper(row.Symbol),
			Amount:     row.Amount,
			AmountUSD:  row.AmountUSD,
			FromOwner:  ownerOrUnknown(row.From.Owner),
			ToOwner:    ownerOrUnknown(row.To.Owner),
			Timestamp:  time.Unix(row.Timestamp, 0).UTC(),
		})
	}

	return transactions, nil
}

func ownerOrUnknown(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "unknown wallet"
	}

	return owner
}

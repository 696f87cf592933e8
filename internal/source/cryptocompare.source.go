package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
)

const defaultCryptoCompareBaseURL = "https://min-api.cryptocompare.com/data"

// CryptoCompareSource serves the latest crypto news headlines.
type CryptoCompareSource struct {
	client  *httpx.Client
	baseURL string
}

func NewCryptoCompareSource(client *httpx.Client, baseURL string) *CryptoCompareSource {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultCryptoCompareBaseURL
	}

	return &CryptoCompareSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// News returns up to limit latest articles, newest first.
func (s *CryptoCompareSource) News(ctx context.Context, limit int) ([]entity.NewsArticle, error) {
	if limit <= 0 {
		limit = 5
	}

	params := map[string]string{
		"lang":      "EN",
		"sortOrder": "latest",
		"limit":     strconv.Itoa(limit),
	}

	var payload struct {
		Data []struct {
			Title       string `json:"title"`
			Source      string `json:"source"`
			URL         string `json:"url"`
			PublishedOn int64  `json:"published_on"`
		} `json:"Data"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/v2/news/", params, nil, &payload)
	if err != nil {
		return nil, err
	}

	articles := make([]entity.NewsArticle, 0, len(payload.Data))
	for _, row := range payload.Data {
		if len(articles) == limit {
			break
		}

		articles = append(articles, entity.NewsArticle{
			Title:       row.Title,
			Source:      row.Source,
			URL:         row.URL,
			PublishedAt: time.Unix(row.PublishedOn, 0).UTC(),
		})
	}

	return articles, nil
}

package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
)

const defaultFearGreedBaseURL = "https://api.alternative.me"

// AlternativeSource serves the crypto fear & greed index.
type AlternativeSource struct {
	client  *httpx.Client
	baseURL string
}

func NewAlternativeSource(client *httpx.Client, baseURL string) *AlternativeSource {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultFearGreedBaseURL
	}

	return &AlternativeSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FearGreed returns the latest index reading. The upstream reports the value
// as a string, so it is parsed and range checked here.
func (s *AlternativeSource) FearGreed(ctx context.Context) (entity.FearGreed, error) {
	var payload struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/fng/", map[string]string{"limit": "1"}, nil, &payload)
	if err != nil {
		return entity.FearGreed{}, err
	}

	if len(payload.Data) == 0 {
		return entity.FearGreed{}, fmt.Errorf("fear greed index: empty data")
	}

	value, err := strconv.Atoi(strings.TrimSpace(payload.Data[0].Value))
	if err != nil {
		return entity.FearGreed{}, fmt.Errorf("fear greed index: invalid value %q: %w", payload.Data[0].Value, err)
	}
	if value < 0 || value > 100 {
		return entity.FearGreed{}, fmt.Errorf("fear greed index: value %d out of range", value)
	}

	return entity.FearGreed{
		Value:          value,
		Classification: payload.Data[0].Classification,
	}, nil
}

// Package detect scans free-text messages for asset mentions and intent
// keywords. Everything here is static table lookup with no I/O, so the
// dispatch layer can be exercised without touching the network.
package detect

import "strings"

// DefaultMaxAssets bounds how many distinct assets one message may pull into
// the price fan-out. Tunable via config.
const DefaultMaxAssets = 3

// Detection reports what one message asked for. Categories are independent:
// any combination can fire on a single message.
type Detection struct {
	// Assets holds canonical ids in the order their aliases appear in the
	// table, capped at the scan's max.
	Assets         []string
	WantsPrice     bool
	WantsMarket    bool
	WantsSentiment bool
}

type aliasEntry struct {
	alias string
	id    string
}

// coinAliases maps user spellings to canonical asset ids. Kept as an ordered
// slice, not a map: the first alias per asset wins and the cap must evict
// deterministically. Aliases cover English tickers and Chinese names.
var coinAliases = []aliasEntry{
	{"btc", "bitcoin"},
	{"比特币", "bitcoin"},
	{"eth", "ethereum"},
	{"以太坊", "ethereum"},
	{"以太", "ethereum"},
	{"sol", "solana"},
	{"索拉纳", "solana"},
	{"bnb", "binancecoin"},
	{"xrp", "ripple"},
	{"瑞波币", "ripple"},
	{"ada", "cardano"},
	{"doge", "dogecoin"},
	{"狗狗币", "dogecoin"},
	{"ton", "the-open-network"},
	{"dot", "polkadot"},
	{"波卡", "polkadot"},
	{"avax", "avalanche-2"},
	{"雪崩", "avalanche-2"},
	{"link", "chainlink"},
	{"uni", "uniswap"},
	{"ltc", "litecoin"},
	{"莱特币", "litecoin"},
	{"shib", "shiba-inu"},
	{"sui", "sui"},
	{"trx", "tron"},
	{"波场", "tron"},
}

var (
	priceKeywords     = []string{"价格", "多少钱", "price", "怎么样", "行情", "最新", "现在", "how much", "quote"}
	marketKeywords    = []string{"市场", "大盘", "market", "趋势", "overview", "trend"}
	sentimentKeywords = []string{"恐惧", "贪婪", "情绪", "fear", "greed", "sentiment"}
)

// Scan matches text against the alias and keyword tables, case
// insensitively, by substring. maxAssets <= 0 falls back to the default.
func Scan(text string, maxAssets int) Detection {
	if maxAssets <= 0 {
		maxAssets = DefaultMaxAssets
	}

	lower := strings.ToLower(text)

	var det Detection
	seen := make(map[string]struct{}, maxAssets)
	for _, entry := range coinAliases {
		if len(det.Assets) == maxAssets {
			break
		}
		if !strings.Contains(lower, entry.alias) {
			continue
		}
		if _, ok := seen[entry.id]; ok {
			continue
		}

		seen[entry.id] = struct{}{}
		det.Assets = append(det.Assets, entry.id)
	}

	det.WantsPrice = containsAny(lower, priceKeywords)
	det.WantsMarket = containsAny(lower, marketKeywords)
	det.WantsSentiment = containsAny(lower, sentimentKeywords)

	return det
}

// CanonicalID maps a single alias to its canonical asset id. Unknown terms
// pass through lowercased, so full ids keep working as command arguments.
func CanonicalID(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, entry := range coinAliases {
		if entry.alias == term {
			return entry.id
		}
	}

	return term
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}

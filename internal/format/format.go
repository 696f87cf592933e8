// Package format renders entities into the Markdown strings the bot sends.
// Everything here is a pure function of its inputs so the dispatch layer can
// be tested against exact strings.
package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/service/chat"
)

const (
	trendingLimit  = 7
	newsLimit      = 5
	whaleLimit     = 5
	newsTitleRunes = 60
	gaugeCells     = 20
)

var printer = message.NewPrinter(language.English)

// PriceMessage renders one card per resolved quote, in the order the ids
// were asked for, with a trailing note for ids that resolved nowhere.
func PriceMessage(ids []string, quotes entity.QuoteSet, at time.Time) string {
	cards := make([]string, 0, len(ids))
	missing := make([]string, 0)
	for _, id := range ids {
		quote, ok := quotes[id]
		if !ok {
			missing = append(missing, id)
			continue
		}

		cards = append(cards, PriceCard(quote, at))
	}

	msg := strings.Join(cards, "\n\n")
	if len(missing) > 0 {
		msg += "\n\n⚠️ No data for: " + strings.Join(missing, ", ")
	}

	return msg
}

// PriceCard renders a single quote. Market cap is omitted when the serving
// source does not report one.
func PriceCard(quote entity.Quote, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 *%s*\n", strings.ToUpper(quote.ID))
	fmt.Fprintf(&b, "Price: %s (%s)\n", moneyUSD(quote.PriceUSD), moneyCNY(quote.PriceCNY))
	fmt.Fprintf(&b, "24h: %+.2f%% %s\n", quote.Change24h, trendEmoji(quote.Change24h))
	fmt.Fprintf(&b, "Volume: %s\n", abbrevUSD(quote.Volume24h))
	if quote.MarketCap > 0 {
		fmt.Fprintf(&b, "Market cap: %s\n", abbrevUSD(quote.MarketCap))
	}
	fmt.Fprintf(&b, "Source: %s\n", quote.Source)
	fmt.Fprintf(&b, "Time: %s", at.UTC().Format("2006-01-02 15:04 UTC"))

	return b.String()
}

// Overview renders the market overview. The global header is skipped when
// the totals endpoint returned nothing.
func Overview(global entity.GlobalMarket, coins []entity.MarketCoin) string {
	var b strings.Builder
	b.WriteString("🌍 *Crypto market overview*\n")

	if global.TotalMarketCapUSD > 0 {
		fmt.Fprintf(&b, "Total market cap: %s (%+.2f%% 24h)\n", abbrevUSD(global.TotalMarketCapUSD), global.MarketCapChange24hPct)
		fmt.Fprintf(&b, "24h volume: %s\n", abbrevUSD(global.TotalVolumeUSD))
		fmt.Fprintf(&b, "BTC dominance: %.1f%%\n", global.BTCDominancePct)
		fmt.Fprintf(&b, "Tracked assets: %s\n", printer.Sprintf("%d", global.ActiveCryptocurrencies))
	}

	fmt.Fprintf(&b, "\n*Top %d by market cap*\n", len(coins))
	for i, coin := range coins {
		fmt.Fprintf(&b, "%d. %s %s %+.2f%% %s\n",
			i+1, strings.ToUpper(coin.Symbol), moneyUSD(coin.PriceUSD), coin.Change24h, trendEmoji(coin.Change24h))
	}

	return strings.TrimRight(b.String(), "\n")
}

// Trending renders the trending-search list, capped at seven entries.
func Trending(coins []entity.TrendingCoin) string {
	if len(coins) > trendingLimit {
		coins = coins[:trendingLimit]
	}

	var b strings.Builder
	b.WriteString("🔥 *Trending searches*\n")
	for i, coin := range coins {
		fmt.Fprintf(&b, "%d. %s (%s)", i+1, strings.ToUpper(coin.Symbol), coin.Name)
		if coin.MarketCapRank > 0 {
			fmt.Fprintf(&b, " rank #%d", coin.MarketCapRank)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// FearGreedGauge renders the index with a 20-cell bar, one cell per 5 points.
func FearGreedGauge(index entity.FearGreed) string {
	filled := index.Value / 5
	if filled < 0 {
		filled = 0
	}
	if filled > gaugeCells {
		filled = gaugeCells
	}

	mood, hint := fearGreedMood(index.Value)

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Fear & Greed index*\n", mood)
	fmt.Fprintf(&b, "%d/100 (%s)\n", index.Value, index.Classification)
	b.WriteString(strings.Repeat("█", filled))
	b.WriteString(strings.Repeat("░", gaugeCells-filled))
	b.WriteString("\n💡 ")
	b.WriteString(hint)

	return b.String()
}

func fearGreedMood(value int) (string, string) {
	switch {
	case value < 25:
		return "😱", "Extreme fear. Historically where bottoms form."
	case value < 45:
		return "😨", "Fear rules the market. Sentiment is cautious."
	case value < 55:
		return "😐", "Neutral. No strong crowd signal either way."
	case value < 75:
		return "😏", "Greed is building. Watch for overheating."
	default:
		return "🤑", "Extreme greed. Corrections often start here."
	}
}

// News renders the latest headlines as Markdown links, capped at five.
func News(articles []entity.NewsArticle) string {
	if len(articles) > newsLimit {
		articles = articles[:newsLimit]
	}

	var b strings.Builder
	b.WriteString("📰 *Latest crypto news*\n")
	for i, article := range articles {
		fmt.Fprintf(&b, "%d. [%s](%s) (%s)\n",
			i+1, TruncateRunes(article.Title, newsTitleRunes), article.URL, article.Source)
	}

	return strings.TrimRight(b.String(), "\n")
}

// WhaleList renders recent large transfers, capped at five.
func WhaleList(txs []entity.WhaleTransaction) string {
	if len(txs) > whaleLimit {
		txs = txs[:whaleLimit]
	}

	var b strings.Builder
	b.WriteString("🐋 *Recent whale transfers*\n")
	for i, tx := range txs {
		fmt.Fprintf(&b, "%d. %s %s (%s) %s → %s at %s\n",
			i+1, printer.Sprintf("%.2f", tx.Amount), strings.ToUpper(tx.Symbol), abbrevUSD(tx.AmountUSD),
			tx.FromOwner, tx.ToOwner, tx.Timestamp.UTC().Format("15:04"))
	}

	return strings.TrimRight(b.String(), "\n")
}

// WhaleAnalysis wraps the AI volume read used when no transfer feed key is
// configured.
func WhaleAnalysis(analysis string) string {
	return "🐋 *Whale watch (AI analysis)*\n\n" + analysis +
		"\n\n_No transfer feed configured; estimated from exchange volume data._"
}

func Welcome() string {
	return strings.Join([]string{
		"👋 *Welcome to CryptoSage!*",
		"",
		"I combine live market data with AI analysis to answer your crypto questions.",
		"",
		"Ask me anything in plain language, or use the commands below:",
		"",
		commandList(),
		"",
		"Or tap a shortcut 👇",
	}, "\n")
}

func Help() string {
	return "📋 *Commands*\n\n" + commandList() +
		"\n\nFree text works too: mention a coin or ask about the market and I will pull live data before answering."
}

func commandList() string {
	return strings.Join([]string{
		"/price <ids>: live quotes (e.g. /price bitcoin solana)",
		"/market: market overview",
		"/trending: trending searches",
		"/fear: fear & greed index",
		"/news: latest headlines",
		"/whale [min USD]: large transfer watch",
		"/clear: forget our conversation",
		"/help: this message",
	}, "\n")
}

func PriceUsage() string {
	return "Usage: /price <asset ids>\nExample: /price bitcoin ethereum solana"
}

func WhaleUsage() string {
	return "Usage: /whale [min USD value]\nExample: /whale 5000000"
}

func Working() string {
	return "⏳ Fetching live data..."
}

func Thinking() string {
	return "🤔 Thinking..."
}

func Cleared() string {
	return "🧹 Conversation history cleared. Fresh start!"
}

func DigestHeader() string {
	return "🕐 *Hourly market digest*"
}

func NoPriceData() string {
	return "❌ No price data available right now. All sources may be busy, try again in a minute."
}

func DataUnavailable() string {
	return "❌ Market data unavailable right now, try again in a minute."
}

func NoWhaleActivity(minValueUSD int) string {
	return printer.Sprintf("🐳 No transfers above $%d spotted recently.", minValueUSD)
}

func ClearFailed() string {
	return "❌ Could not clear the conversation, try again."
}

// ChatFailure maps a conversation error to the user-facing string. Distinct
// failures get distinct copy so users can tell a slow AI from a broken one.
func ChatFailure(err error) string {
	switch {
	case errors.Is(err, chat.ErrTimeout):
		return "⏱ The AI took too long to answer. Try again."
	case errors.Is(err, chat.ErrUpstream):
		return "🤖 The AI service is unavailable right now. Try again later."
	default:
		return "📡 Could not reach the AI service. Check back shortly."
	}
}

// TruncateRunes shortens s to at most n runes, appending an ellipsis when
// anything was cut. Safe on multi-byte text.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n]) + "…"
}

func trendEmoji(change float64) string {
	if change < 0 {
		return "📉"
	}

	return "📈"
}

// moneyUSD groups dollars with commas; sub-dollar prices keep more digits so
// small caps do not render as $0.00.
func moneyUSD(v float64) string {
	if v >= 1 {
		return printer.Sprintf("$%.2f", v)
	}

	return "$" + smallDecimal(v)
}

func moneyCNY(v float64) string {
	if v >= 1 {
		return printer.Sprintf("¥%.2f", v)
	}

	return "¥" + smallDecimal(v)
}

func smallDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "00"
	}

	return s
}

// abbrevUSD compresses large sums to T/B/M so cards stay one line per field.
func abbrevUSD(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return printer.Sprintf("$%.0f", v)
	}
}

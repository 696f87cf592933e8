// Package telegram dispatches bot updates to the services. It speaks both
// transports the gateway offers: long polling by default and webhook receipt
// when a public base URL is configured.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kantxie-coder/cryptosage/internal/constant"
	"github.com/kantxie-coder/cryptosage/internal/detect"
	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/format"
	"github.com/kantxie-coder/cryptosage/internal/service/market"
	"github.com/kantxie-coder/cryptosage/internal/service/price"
	"github.com/kantxie-coder/cryptosage/internal/util"
)

const (
	defaultPollTimeout    = 30 * time.Second
	defaultHandlerTimeout = 60 * time.Second
	defaultWhaleMinUSD    = 1_000_000

	priceCommandMaxIDs = 5
	overviewTopN       = 10
	digestTopN         = 5
	newsFetchLimit     = 5
	whaleFetchLimit    = 10
	digestTimeout      = 30 * time.Second
)

// Gateway is the slice of the bot API the handler drives. *tgbotapi.BotAPI
// satisfies it; tests plug in a recording fake.
type Gateway interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// QuoteResolver resolves asset ids across the source tiers.
type QuoteResolver interface {
	Resolve(ctx context.Context, ids []string) (entity.QuoteSet, error)
}

// MarketService serves overview, trending, sentiment, news and whale data
// plus the context blocks injected into free-text conversations.
type MarketService interface {
	Overview(ctx context.Context, limit int) (market.Overview, error)
	Trending(ctx context.Context) ([]entity.TrendingCoin, error)
	FearGreed(ctx context.Context) (entity.FearGreed, error)
	News(ctx context.Context, limit int) ([]entity.NewsArticle, error)
	WhaleFeedAvailable() bool
	WhaleTransactions(ctx context.Context, minValueUSD, limit int) ([]entity.WhaleTransaction, error)
	ChainActivityContext(ctx context.Context) (string, error)
	ContextBlocks(ctx context.Context, det detect.Detection) []string
}

// ChatService answers free-text questions with conversation memory.
type ChatService interface {
	Reply(ctx context.Context, userID int64, message, marketContext string) (string, error)
	Clear(ctx context.Context, userID int64) error
}

type Options struct {
	// PollTimeout is the long-poll wait passed to getUpdates.
	PollTimeout time.Duration
	// HandlerTimeout bounds the processing of one update.
	HandlerTimeout time.Duration
	// MaxAssets caps how many assets free-text detection may resolve.
	MaxAssets int
	// WhaleMinValueUSD is the default transfer floor for /whale.
	WhaleMinValueUSD int
}

type Handler struct {
	gateway Gateway
	prices  QuoteResolver
	market  MarketService
	chat    ChatService
	opts    Options
}

func NewHandler(gateway Gateway, prices QuoteResolver, marketSvc MarketService, chatSvc ChatService, opts Options) *Handler {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = defaultHandlerTimeout
	}
	if opts.MaxAssets <= 0 {
		opts.MaxAssets = detect.DefaultMaxAssets
	}
	if opts.WhaleMinValueUSD <= 0 {
		opts.WhaleMinValueUSD = defaultWhaleMinUSD
	}

	return &Handler{
		gateway: gateway,
		prices:  prices,
		market:  marketSvc,
		chat:    chatSvc,
		opts:    opts,
	}
}

// Run consumes the long-poll update stream until ctx is canceled. Each
// update is handled on its own goroutine so a slow AI call cannot stall the
// stream.
func (h *Handler) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(h.opts.PollTimeout.Seconds())

	updates := h.gateway.GetUpdatesChan(cfg)
	logrus.Info("telegram long polling started")

	for {
		select {
		case <-ctx.Done():
			h.gateway.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			h.dispatchAsync(update)
		}
	}
}

// WebhookHandler receives one update per POST. It shares the dispatch path
// with long polling, so behavior is identical on both transports.
func (h *Handler) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		defer r.Body.Close()

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			logrus.Warnf("webhook update decode failed: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		h.dispatchAsync(update)
		w.WriteHeader(http.StatusOK)
	}
}

// RunMarketDigest sends the overview plus sentiment gauge to one chat on a
// fixed interval until ctx is canceled.
func (h *Handler) RunMarketDigest(ctx context.Context, chatID int64, interval time.Duration) error {
	if chatID == 0 {
		return nil
	}
	if interval <= 0 {
		interval = time.Hour
	}

	logrus.WithField("chat_id", chatID).Infof("market digest scheduled every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, digestTimeout)
			h.sendDigest(tickCtx, chatID)
			cancel()
		}
	}
}

func (h *Handler) sendDigest(ctx context.Context, chatID int64) {
	overview, err := h.market.Overview(ctx, digestTopN)
	if err != nil {
		logrus.Warnf("market digest skipped: %v", err)
		return
	}

	parts := []string{format.DigestHeader(), format.Overview(overview.Global, overview.Coins)}
	if index, err := h.market.FearGreed(ctx); err == nil {
		parts = append(parts, format.FearGreedGauge(index))
	}

	if err := h.send(chatID, strings.Join(parts, "\n\n")); err != nil {
		logrus.Warnf("market digest send failed: %v", err)
	}
}

func (h *Handler) dispatchAsync(update tgbotapi.Update) {
	go func() {
		logger := logrus.WithFields(logrus.Fields{
			"correlation_id": uuid.NewString(),
			"update_id":      update.UpdateID,
		})

		err := util.ProcessWithTimeout(h.opts.HandlerTimeout, "telegram update", func(ctx context.Context) (err error) {
			defer func() {
				if recovered := recover(); recovered != nil {
					err = fmt.Errorf("update handler panicked: %v", recovered)
				}
			}()

			return h.Dispatch(ctx, update)
		})
		if err != nil {
			logger.Errorf("update handling failed: %v", err)
		}
	}()
}

// Dispatch routes one update. Exported so both transports and the tests
// share the same entry point.
func (h *Handler) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		return h.handleCommand(ctx, update.Message)
	case update.Message != nil && strings.TrimSpace(update.Message.Text) != "":
		return h.handleFreeText(ctx, update.Message)
	default:
		return nil
	}
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case constant.CommandStart:
		return h.sendWelcome(msg.Chat.ID)
	case constant.CommandHelp:
		return h.send(msg.Chat.ID, format.Help())
	case constant.CommandPrice:
		return h.replyPrice(ctx, msg.Chat.ID, args)
	case constant.CommandMarket:
		return h.replyMarket(ctx, msg.Chat.ID)
	case constant.CommandTrending:
		return h.replyTrending(ctx, msg.Chat.ID)
	case constant.CommandFear:
		return h.replyFearGreed(ctx, msg.Chat.ID)
	case constant.CommandNews:
		return h.replyNews(ctx, msg.Chat.ID)
	case constant.CommandWhale:
		return h.replyWhale(ctx, msg.Chat.ID, args)
	case constant.CommandClear:
		return h.replyClear(ctx, msg.Chat.ID)
	default:
		return h.send(msg.Chat.ID, format.Help())
	}
}

func (h *Handler) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Ack first so the client stops its spinner even if the fetch is slow.
	if _, err := h.gateway.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		logrus.Warnf("callback ack failed: %v", err)
	}

	if query.Message == nil {
		return nil
	}

	chatID := query.Message.Chat.ID

	switch {
	case query.Data == constant.CallbackMarket:
		return h.replyMarket(ctx, chatID)
	case query.Data == constant.CallbackTrending:
		return h.replyTrending(ctx, chatID)
	case query.Data == constant.CallbackFearGreed:
		return h.replyFearGreed(ctx, chatID)
	case query.Data == constant.CallbackNews:
		return h.replyNews(ctx, chatID)
	case query.Data == constant.CallbackWhale:
		return h.replyWhale(ctx, chatID, nil)
	case query.Data == constant.CallbackHelp:
		return h.send(chatID, format.Help())
	case strings.HasPrefix(query.Data, constant.CallbackRefreshPricePrefix):
		return h.refreshPrice(ctx, query, strings.TrimPrefix(query.Data, constant.CallbackRefreshPricePrefix))
	default:
		return nil
	}
}

// handleFreeText is the conversational path: detect what the message asks
// about, fetch matching live data, then answer through the AI with that
// data injected.
func (h *Handler) handleFreeText(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID

	if _, err := h.gateway.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logrus.Debugf("typing action failed: %v", err)
	}

	det := detect.Scan(msg.Text, h.opts.MaxAssets)
	blocks := h.market.ContextBlocks(ctx, det)

	answer, err := h.chat.Reply(ctx, chatID, msg.Text, strings.Join(blocks, "\n\n"))
	if err != nil {
		return h.send(chatID, format.ChatFailure(err))
	}

	return h.send(chatID, answer)
}

func (h *Handler) replyPrice(ctx context.Context, chatID int64, args []string) error {
	if len(args) == 0 {
		return h.send(chatID, format.PriceUsage())
	}
	if len(args) > priceCommandMaxIDs {
		args = args[:priceCommandMaxIDs]
	}

	ids := make([]string, 0, len(args))
	for _, arg := range args {
		ids = append(ids, detect.CanonicalID(arg))
	}
	ids = price.NormalizeIDs(ids)

	workingID, err := h.sendWorking(chatID)
	if err != nil {
		return err
	}

	quotes, err := h.prices.Resolve(ctx, ids)
	if err != nil {
		return h.edit(chatID, workingID, format.NoPriceData())
	}

	return h.editWithKeyboard(chatID, workingID, format.PriceMessage(ids, quotes, time.Now()), priceRefreshKeyboard(ids))
}

// refreshPrice re-resolves the quoted ids and edits the card in place,
// keeping the refresh button attached.
func (h *Handler) refreshPrice(ctx context.Context, query *tgbotapi.CallbackQuery, rawIDs string) error {
	ids := price.NormalizeIDs(strings.Split(rawIDs, ","))
	if len(ids) == 0 {
		return nil
	}

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	quotes, err := h.prices.Resolve(ctx, ids)
	if err != nil {
		return h.edit(chatID, messageID, format.NoPriceData())
	}

	return h.editWithKeyboard(chatID, messageID, format.PriceMessage(ids, quotes, time.Now()), priceRefreshKeyboard(ids))
}

func (h *Handler) replyMarket(ctx context.Context, chatID int64) error {
	workingID, err := h.sendWorking(chatID)
	if err != nil {
		return err
	}

	overview, err := h.market.Overview(ctx, overviewTopN)
	if err != nil {
		return h.edit(chatID, workingID, format.DataUnavailable())
	}

	return h.edit(chatID, workingID, format.Overview(overview.Global, overview.Coins))
}

func (h *Handler) replyTrending(ctx context.Context, chatID int64) error {
	workingID, err := h.sendWorking(chatID)
	if err != nil {
		return err
	}

	coins, err := h.market.Trending(ctx)
	if err != nil {
		return h.edit(chatID, workingID, format.DataUnavailable())
	}

	return h.edit(chatID, workingID, format.Trending(coins))
}

func (h *Handler) replyFearGreed(ctx context.Context, chatID int64) error {
	workingID, err := h.sendWorking(chatID)
	if err != nil {
		return err
	}

	index, err := h.market.FearGreed(ctx)
	if err != nil {
		return h.edit(chatID, workingID, format.DataUnavailable())
	}

	return h.edit(chatID, workingID, format.FearGreedGauge(index))
}

func (h *Handler) replyNews(ctx context.Context, chatID int64) error {
	workingID, err := h.sendWorking(chatID)
	if err != nil {
		return err
	}

	articles, err := h.market.News(ctx, newsFetchLimit)
	if err != nil {
		return h.edit(chatID, workingID, format.DataUnavailable())
	}

	return h.edit(chatID, workingID, format.News(articles))
}

// replyWhale serves the transfer feed when keyed. Without a key it degrades
// to an AI read of exchange volume activity instead of failing.
func (h *Handler) replyWhale(ctx context.Context, chatID int64, args []string) error {
	minUSD := h.opts.WhaleMinValueUSD
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed <= 0 {
			return h.send(chatID, format.WhaleUsage())
		}

		minUSD = parsed
	}

	workingID, err := h.sendWorking(chatID)
	if err != nil {
		return err
	}

	if h.market.WhaleFeedAvailable() {
		txs, err := h.market.WhaleTransactions(ctx, minUSD, whaleFetchLimit)
		if err != nil {
			return h.edit(chatID, workingID, format.DataUnavailable())
		}
		if len(txs) == 0 {
			return h.edit(chatID, workingID, format.NoWhaleActivity(minUSD))
		}

		return h.edit(chatID, workingID, format.WhaleList(txs))
	}

	summary, err := h.market.ChainActivityContext(ctx)
	if err != nil {
		return h.edit(chatID, workingID, format.DataUnavailable())
	}

	// The AI call is the slow part; flip the placeholder so the phase change
	// is visible.
	if err := h.edit(chatID, workingID, format.Thinking()); err != nil {
		logrus.Debugf("placeholder edit failed: %v", err)
	}

	analysis, err := h.chat.Reply(ctx, chatID, "Analyze current large transfer and on-chain volume activity in the crypto market.", summary)
	if err != nil {
		return h.edit(chatID, workingID, format.ChatFailure(err))
	}

	return h.edit(chatID, workingID, format.WhaleAnalysis(analysis))
}

func (h *Handler) replyClear(ctx context.Context, chatID int64) error {
	if err := h.chat.Clear(ctx, chatID); err != nil {
		logrus.Warnf("clear conversation failed: %v", err)
		return h.send(chatID, format.ClearFailed())
	}

	return h.send(chatID, format.Cleared())
}

func (h *Handler) sendWelcome(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, format.Welcome())
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = shortcutKeyboard()

	_, err := h.gateway.Send(msg)
	return err
}

func (h *Handler) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	_, err := h.gateway.Send(msg)
	return err
}

// sendWorking posts the placeholder that later gets edited with the result,
// so the user sees progress before any upstream call settles.
func (h *Handler) sendWorking(chatID int64) (int, error) {
	sent, err := h.gateway.Send(tgbotapi.NewMessage(chatID, format.Working()))
	if err != nil {
		return 0, err
	}

	return sent.MessageID, nil
}

func (h *Handler) edit(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.DisableWebPagePreview = true

	_, err := h.gateway.Send(edit)
	return err
}

func (h *Handler) editWithKeyboard(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeMarkdown

	_, err := h.gateway.Send(edit)
	return err
}

func priceRefreshKeyboard(ids []string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Refresh", constant.CallbackRefreshPricePrefix+strings.Join(ids, ",")),
		),
	)
}

func shortcutKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Market", constant.CallbackMarket),
			tgbotapi.NewInlineKeyboardButtonData("🔥 Trending", constant.CallbackTrending),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("😨 Fear & Greed", constant.CallbackFearGreed),
			tgbotapi.NewInlineKeyboardButtonData("📰 News", constant.CallbackNews),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🐋 Whales", constant.CallbackWhale),
			tgbotapi.NewInlineKeyboardButtonData("❓ Help", constant.CallbackHelp),
		),
	)
}

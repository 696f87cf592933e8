package bootstrap

import (
	"context"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kantxie-coder/cryptosage/internal/config"
	"github.com/kantxie-coder/cryptosage/internal/handler/telegram"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
	"github.com/kantxie-coder/cryptosage/internal/infrastructure"
	"github.com/kantxie-coder/cryptosage/internal/repository"
	"github.com/kantxie-coder/cryptosage/internal/service/chat"
	"github.com/kantxie-coder/cryptosage/internal/service/market"
	"github.com/kantxie-coder/cryptosage/internal/service/price"
	"github.com/kantxie-coder/cryptosage/internal/source"
	"github.com/kantxie-coder/cryptosage/internal/util"
)

const defaultWebhookPath = "/telegram/webhook"

func StartBot(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := httpx.New(config.Env.Sources.FetchTimeout)
	usdCNYRate := decimal.NewFromFloat(config.Env.Sources.USDCNYRate)

	binance := source.NewBinanceSource(fetcher, config.Env.Sources.BinanceBaseURL, usdCNYRate)
	okx := source.NewOKXSource(fetcher, config.Env.Sources.OKXBaseURL, usdCNYRate)
	gecko := source.NewCoinGeckoSource(fetcher, config.Env.Sources.CoinGeckoBaseURL, config.Env.Sources.CoinGeckoAPIKey)
	sentiment := source.NewAlternativeSource(fetcher, config.Env.Sources.FearGreedBaseURL)
	news := source.NewCryptoCompareSource(fetcher, config.Env.Sources.CryptoCompareBaseURL)
	whales := source.NewWhaleAlertSource(fetcher, config.Env.Sources.WhaleAlertBaseURL, config.Env.Sources.WhaleAlertAPIKey)

	priceService := price.NewService(binance, okx, gecko)
	marketService := market.NewService(priceService, gecko, sentiment, news, whales, config.Env.Detect.DefaultAssets)

	conversations, rdb := newConversationStore(ctx)

	llmCfg := openai.DefaultConfig(config.Env.DeepSeek.APIKey)
	if strings.TrimSpace(config.Env.DeepSeek.BaseURL) != "" {
		llmCfg.BaseURL = config.Env.DeepSeek.BaseURL
	}

	chatService := chat.NewService(openai.NewClientWithConfig(llmCfg), conversations, chat.Options{
		Model:        config.Env.DeepSeek.Model,
		Temperature:  config.Env.DeepSeek.Temperature,
		MaxTokens:    config.Env.DeepSeek.MaxTokens,
		Timeout:      config.Env.DeepSeek.Timeout,
		HistoryLimit: config.Env.Chat.HistoryLimit,
	})

	bot, err := tgbotapi.NewBotAPI(config.Env.Telegram.Token)
	util.ContinueOrFatal(err)
	logrus.Infof("authorized on telegram as @%s", bot.Self.UserName)

	botHandler := telegram.NewHandler(bot, priceService, marketService, chatService, telegram.Options{
		PollTimeout:      config.Env.Telegram.PollTimeout,
		HandlerTimeout:   config.Env.Telegram.HandlerTimeout,
		MaxAssets:        config.Env.Detect.MaxAssets,
		WhaleMinValueUSD: config.Env.Sources.WhaleMinValueUSD,
	})

	var ready atomic.Bool
	mux := infrastructure.NewServeMux(ready.Load)

	if webhookBase := strings.TrimSpace(config.Env.Telegram.WebhookBaseURL); webhookBase != "" {
		path := strings.TrimSpace(config.Env.Telegram.WebhookPath)
		if path == "" {
			path = defaultWebhookPath
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		mux.HandleFunc(path, botHandler.WebhookHandler())

		webhook, err := tgbotapi.NewWebhook(strings.TrimRight(webhookBase, "/") + path)
		util.ContinueOrFatal(err)
		_, err = bot.Request(webhook)
		util.ContinueOrFatal(err)
		logrus.Infof("telegram webhook registered at %s", path)
	} else {
		// A leftover webhook blocks getUpdates, so drop it before polling.
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logrus.Warnf("delete stale webhook failed: %v", err)
		}

		go func() {
			util.ContinueOrFatal(botHandler.Run(ctx))
		}()
	}

	httpServer := infrastructure.NewHTTPServer(mux)
	go func() {
		util.ContinueOrFatal(httpServer.Start())
	}()

	go infrastructure.KeepAlive(ctx, config.Env.KeepAlive.URL, config.Env.KeepAlive.Interval)

	if config.Env.Alerts.ChatID != 0 {
		go func() {
			_ = botHandler.RunMarketDigest(ctx, config.Env.Alerts.ChatID, config.Env.Alerts.Interval)
		}()
	}

	ready.Store(true)

	ops := map[string]operation{
		"telegram updates": func(ctx context.Context) error {
			cancel()
			return nil
		},
		"http server": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
	}
	if rdb != nil {
		ops["redis connection"] = func(ctx context.Context) error {
			return rdb.Close()
		}
	}

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, ops)

	<-wait
}

// newConversationStore picks the history backend: Redis when a cache DSN is
// configured, otherwise the in-memory store. Only Redis survives restarts.
func newConversationStore(ctx context.Context) (repository.ConversationStore, *redis.Client) {
	redisCfg := config.Env.Redis["cache"]
	if strings.TrimSpace(redisCfg.CacheDSN) == "" {
		logrus.Info("using in-memory conversation store")
		return repository.NewConversationRepository(), nil
	}

	rdb, err := infrastructure.NewRedisClient(ctx, redisCfg.CacheDSN)
	util.ContinueOrFatal(err)

	return repository.NewRedisConversationRepository(rdb, redisCfg.TTL), rdb
}

/*
Copyright © 2025 kantxie
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kantxie-coder/cryptosage/internal/config"
	"github.com/kantxie-coder/cryptosage/internal/detect"
	"github.com/kantxie-coder/cryptosage/internal/format"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
	"github.com/kantxie-coder/cryptosage/internal/service/price"
	"github.com/kantxie-coder/cryptosage/internal/source"
	"github.com/kantxie-coder/cryptosage/internal/util"
)

// quoteCmd represents the quote command
var quoteCmd = &cobra.Command{
	Use:   "quote <asset> [asset...]",
	Short: "Resolve quotes once and print them",
	Long: `Quote resolves the given assets through the same source chain the bot
uses, then prints the result and exits. Symbols and aliases are accepted,
so "quote btc 以太坊" works. Useful for checking source health and config
without talking to Telegram.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fetcher := httpx.New(config.Env.Sources.FetchTimeout)
		usdCNYRate := decimal.NewFromFloat(config.Env.Sources.USDCNYRate)

		resolver := price.NewService(
			source.NewBinanceSource(fetcher, config.Env.Sources.BinanceBaseURL, usdCNYRate),
			source.NewOKXSource(fetcher, config.Env.Sources.OKXBaseURL, usdCNYRate),
			source.NewCoinGeckoSource(fetcher, config.Env.Sources.CoinGeckoBaseURL, config.Env.Sources.CoinGeckoAPIKey),
		)

		ids := make([]string, 0, len(args))
		for _, arg := range args {
			ids = append(ids, detect.CanonicalID(arg))
		}
		ids = price.NormalizeIDs(ids)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		quotes, err := resolver.Resolve(ctx, ids)
		util.ContinueOrFatal(err)

		fmt.Println(format.PriceMessage(ids, quotes, time.Now().UTC()))
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

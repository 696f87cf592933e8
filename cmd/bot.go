/*
Copyright © 2025 kantxie
*/
package cmd

import (
	"github.com/kantxie-coder/cryptosage/internal/bootstrap"
	"github.com/spf13/cobra"
)

// botCmd represents the bot command
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long: `Bot runs the Telegram gateway and everything behind it.

The process:
- Receives updates by long polling, or by webhook when a public base URL is configured
- Resolves quotes across Binance, OKX and CoinGecko with per-asset fallback
- Answers free-text questions through DeepSeek with live market context injected
- Serves /healthz and /readyz for the hosting platform
- Optionally posts a recurring market digest to a configured chat`,
	Run: bootstrap.StartBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

/*
Copyright © 2025 kantxie
*/
package cmd

import (
	"os"

	"github.com/kantxie-coder/cryptosage/internal/config"
	"github.com/kantxie-coder/cryptosage/internal/constant"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cryptosage",
	Short: "Telegram bot that answers crypto questions with live data and AI",
	Long: `CryptoSage answers cryptocurrency questions on Telegram by combining
live market data with an AI analyst.

Quotes resolve across Binance, OKX and CoinGecko in order, so one broken
source never takes the bot down. Free-text questions go to DeepSeek with
the relevant live data injected into the conversation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		logrus.SetReportCaller(config.Env.Log.ShowCaller)

		if config.Env.Env == constant.ProductionEnvironment {
			logrus.SetFormatter(&logrus.JSONFormatter{})
		}

		logLevel, err := logrus.ParseLevel(config.Env.Log.LogLevel)
		if err != nil {
			return err
		}
		logrus.SetLevel(logLevel)

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ./config.yml)")
}

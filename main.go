package main

import (
	"os"

	"github.com/spf13/cobra"

	"telegram-deepseek-bot/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "tgdsbot",
	Short:         "Telegram DeepSeek bot and its environment provisioning tool",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	logging.Init()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"telegram-deepseek-bot/internal/bot"
	"telegram-deepseek-bot/internal/config"
	"telegram-deepseek-bot/internal/convo"
	"telegram-deepseek-bot/internal/deepseek"
	"telegram-deepseek-bot/internal/handler"
	"telegram-deepseek-bot/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Telegram bot(s)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := storage.Init(cfg.DBPath); err != nil {
			return err
		}
		defer storage.Close()

		conv := convo.NewManager(convo.DefaultLimit)
		ds := deepseek.New(cfg.DeepSeekKey, cfg.DeepSeekBaseURL, cfg.Model)
		h := handler.New(conv, ds)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return bot.Run(ctx, cfg.Tokens, h)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

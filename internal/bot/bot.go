// Package bot wires the Telegram transport to the update handler. One
// poller runs per configured token; all pollers share the same handlers,
// conversation memory, and DeepSeek client.
package bot

import (
	"context"
	"fmt"
	"sync"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"telegram-deepseek-bot/internal/handler"
	"telegram-deepseek-bot/internal/logging"
)

// tokenLabel identifies a bot in logs without leaking the full token.
func tokenLabel(token string) string {
	if len(token) > 8 {
		return token[:8]
	}
	return token
}

// Run starts one poller per token and blocks until ctx is cancelled.
func Run(ctx context.Context, tokens []string, h *handler.Handler) error {
	if len(tokens) == 0 {
		return fmt.Errorf("no bot tokens configured")
	}

	bots := make([]*tg.Bot, 0, len(tokens))
	for _, token := range tokens {
		label := tokenLabel(token)
		botCtx := logging.WithBot(ctx, label)

		b, err := tg.New(token, tg.WithDefaultHandler(func(ctx context.Context, b *tg.Bot, upd *models.Update) {
			h.HandleUpdate(logging.WithBot(ctx, label), b, upd)
		}))
		if err != nil {
			return fmt.Errorf("create bot %s: %w", label, err)
		}

		me, err := b.GetMe(botCtx)
		if err != nil {
			return fmt.Errorf("getMe for bot %s: %w", label, err)
		}
		if _, err := b.SetMyCommands(botCtx, &tg.SetMyCommandsParams{Commands: h.Commands()}); err != nil {
			logging.Ctx(botCtx).Warn().Err(err).Msg("failed to register command menu")
		}
		logging.Ctx(botCtx).Info().Str("username", me.Username).Msg("🤖 bot starting")
		bots = append(bots, b)
	}

	var wg sync.WaitGroup
	for _, b := range bots {
		wg.Add(1)
		go func(b *tg.Bot) {
			defer wg.Done()
			b.Start(ctx)
		}(b)
	}
	wg.Wait()
	return nil
}

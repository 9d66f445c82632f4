// Package handler routes Telegram updates to bot commands.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"telegram-deepseek-bot/internal/convo"
	"telegram-deepseek-bot/internal/deepseek"
	"telegram-deepseek-bot/internal/logging"
	"telegram-deepseek-bot/internal/storage"
)

const (
	maxMessageLen = 4000

	systemPrompt = "You are a helpful assistant that remembers the conversation."
)

// API is the subset of the Telegram client used by handlers. *tg.Bot
// satisfies it; tests provide a fake.
type API interface {
	SendMessage(ctx context.Context, params *tg.SendMessageParams) (*models.Message, error)
	SendChatAction(ctx context.Context, params *tg.SendChatActionParams) (bool, error)
}

// Completer produces a model reply for a conversation. *deepseek.Client
// satisfies it.
type Completer interface {
	Chat(ctx context.Context, msgs []deepseek.Message) (string, error)
}

type command struct {
	name string
	desc string
	fn   func(ctx context.Context, api API, msg *models.Message, args string)
}

// Handler holds the command registry and its collaborators.
type Handler struct {
	conv     *convo.Manager
	ds       Completer
	commands []command
}

// New builds a handler with the full command set registered.
func New(conv *convo.Manager, ds Completer) *Handler {
	h := &Handler{conv: conv, ds: ds}
	h.register("chatid", "Show this chat's ID", h.cmdChatID)
	h.register("chat", "Ask DeepSeek anything: /chat <your question>", h.cmdChat)
	h.register("chat_wipe", "Wipe the memory for this chat", h.cmdWipe)
	h.register("chat_context", "Show the current conversation context", h.cmdContext)
	h.register("chat_range", "Show the memory range max turns, /chat_range <number> to set it", h.cmdRange)
	h.register("help", "Show this help message", h.cmdHelp)
	return h
}

func (h *Handler) register(name, desc string, fn func(ctx context.Context, api API, msg *models.Message, args string)) {
	h.commands = append(h.commands, command{name: name, desc: desc, fn: fn})
}

// Commands returns the registry in Telegram command-menu form.
func (h *Handler) Commands() []models.BotCommand {
	out := make([]models.BotCommand, len(h.commands))
	for i, c := range h.commands {
		out[i] = models.BotCommand{Command: c.name, Description: c.desc}
	}
	return out
}

// HandleUpdate processes a Telegram update.
func (h *Handler) HandleUpdate(ctx context.Context, api API, upd *models.Update) {
	ctx = logging.Context(ctx)

	if upd.Message == nil {
		return
	}
	msg := upd.Message
	ctx = logging.WithChat(ctx, msg.Chat.ID)
	log := logging.Ctx(ctx)
	log.Debug().Str("snippet", logging.Snippet(msg.Text, 30)).Msg("incoming message")

	cmd, args, ok := parseCommand(msg)
	if !ok {
		return
	}
	for _, c := range h.commands {
		if c.name == cmd {
			c.fn(ctx, api, msg, args)
			return
		}
	}
	log.Debug().Str("command", cmd).Msg("unknown command")
}

func (h *Handler) cmdChatID(ctx context.Context, api API, msg *models.Message, _ string) {
	reply(ctx, api, msg, fmt.Sprintf("Chat ID is: %d", msg.Chat.ID))
}

func (h *Handler) cmdChat(ctx context.Context, api API, msg *models.Message, args string) {
	chatID := msg.Chat.ID
	log := logging.Ctx(ctx)
	prompt := strings.TrimSpace(args)
	if prompt == "" {
		reply(ctx, api, msg, "Usage: /chat <your question>")
		return
	}

	if err := h.conv.Add(chatID, deepseek.RoleUser, prompt); err != nil {
		log.Error().Err(err).Msg("record user message")
	}

	history, err := h.conv.History(chatID)
	if err != nil {
		log.Error().Err(err).Msg("load history")
	}
	msgs := make([]deepseek.Message, 0, len(history)+1)
	msgs = append(msgs, deepseek.Message{Role: deepseek.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, deepseek.Message{Role: m.Role, Content: m.Content})
	}

	api.SendChatAction(ctx, &tg.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	log.Info().Str("event", "deepseek_request").Str("snippet", logging.Snippet(prompt, 30)).Msg("sending to DeepSeek")
	answer, err := h.ds.Chat(ctx, msgs)
	if err != nil {
		log.Error().Err(err).Msg("deepseek request failed")
		send(ctx, api, chatID, "Error: "+err.Error())
		return
	}

	if err := h.conv.Add(chatID, deepseek.RoleAssistant, answer); err != nil {
		log.Error().Err(err).Msg("record assistant message")
	}
	log.Info().Str("event", "deepseek_response").Str("snippet", logging.Snippet(answer, 30)).Msg("received from DeepSeek")
	sendChunks(ctx, api, chatID, answer)
}

func (h *Handler) cmdWipe(ctx context.Context, api API, msg *models.Message, _ string) {
	dropped, err := h.conv.Clear(msg.Chat.ID)
	if err != nil {
		reply(ctx, api, msg, "Failed to wipe memory: "+err.Error())
		return
	}
	logging.Ctx(ctx).Info().Str("event", "memory_wipe").Int("dropped", dropped).Msg("memory wiped")
	reply(ctx, api, msg, "🧠 Memory wiped for this chat.")
}

func (h *Handler) cmdContext(ctx context.Context, api API, msg *models.Message, _ string) {
	chatID := msg.Chat.ID
	history, err := h.conv.History(chatID)
	if err != nil {
		reply(ctx, api, msg, "Failed to load context: "+err.Error())
		return
	}
	full := []storage.Message{{Role: deepseek.RoleSystem, Content: systemPrompt}}
	full = append(full, history...)

	var b strings.Builder
	fmt.Fprintf(&b, "🧠 Current memory window: %d turns\n", h.conv.Limit(chatID))
	for _, m := range full {
		b.WriteString("\n")
		b.WriteString(strings.ToUpper(m.Role))
		b.WriteString(":\n")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	sendChunks(ctx, api, chatID, b.String())
}

func (h *Handler) cmdRange(ctx context.Context, api API, msg *models.Message, args string) {
	chatID := msg.Chat.ID
	if args == "" {
		send(ctx, api, chatID, fmt.Sprintf("🔁 Current memory range: %d turns\nUse /chat_range <number> to set a new value", h.conv.Limit(chatID)))
		return
	}
	n, err := strconv.Atoi(strings.Fields(args)[0])
	if err != nil {
		send(ctx, api, chatID, fmt.Sprintf("❌ Invalid value. Use: /chat_range 30 (between %d and %d)", convo.MinLimit, convo.MaxLimit))
		return
	}
	old, err := h.conv.SetLimit(chatID, n)
	if errors.Is(err, convo.ErrLimitOutOfRange) {
		send(ctx, api, chatID, fmt.Sprintf("❌ Invalid value. Use: /chat_range 30 (between %d and %d)", convo.MinLimit, convo.MaxLimit))
		return
	}
	if err != nil {
		send(ctx, api, chatID, "Failed to update memory range: "+err.Error())
		return
	}
	logging.Ctx(ctx).Info().Str("event", "memory_range").Int("old", old).Int("new", n).Msg("memory range updated")
	send(ctx, api, chatID, fmt.Sprintf("✅ Memory range updated:\nOld: %d turns\nNew: %d turns", old, n))
}

func (h *Handler) cmdHelp(ctx context.Context, api API, msg *models.Message, _ string) {
	lines := make([]string, len(h.commands))
	for i, c := range h.commands {
		lines[i] = "/" + c.name + " — " + c.desc
	}
	send(ctx, api, msg.Chat.ID, strings.Join(lines, "\n"))
}

func reply(ctx context.Context, api API, msg *models.Message, text string) {
	api.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
}

func send(ctx context.Context, api API, chatID int64, text string) {
	api.SendMessage(ctx, &tg.SendMessageParams{ChatID: chatID, Text: text})
}

func sendChunks(ctx context.Context, api API, chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen) {
		send(ctx, api, chatID, part)
	}
}

// splitMessage cuts s into chunks of at most n bytes, never inside a
// rune. Telegram rejects messages over 4096 characters; 4000 leaves
// headroom.
func splitMessage(s string, n int) []string {
	if s == "" {
		return nil
	}
	var parts []string
	for len(s) > n {
		cut := n
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = n
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	return append(parts, s)
}

func parseCommand(msg *models.Message) (cmd, args string, ok bool) {
	if msg.Text == "" {
		return "", "", false
	}
	for _, e := range msg.Entities {
		if e.Type == models.MessageEntityTypeBotCommand && e.Offset == 0 {
			cmd = strings.TrimPrefix(msg.Text[:e.Length], "/")
			if i := strings.IndexByte(cmd, '@'); i >= 0 {
				cmd = cmd[:i]
			}
			args = strings.TrimSpace(msg.Text[e.Length:])
			return cmd, args, true
		}
	}
	return "", "", false
}

package handler

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"telegram-deepseek-bot/internal/convo"
	"telegram-deepseek-bot/internal/deepseek"
	"telegram-deepseek-bot/internal/logging"
	"telegram-deepseek-bot/internal/storage"
)

// testBot records outgoing traffic for assertions.
type testBot struct {
	sent    []string
	actions int
}

func (b *testBot) SendMessage(_ context.Context, params *tg.SendMessageParams) (*models.Message, error) {
	b.sent = append(b.sent, params.Text)
	return &models.Message{ID: len(b.sent)}, nil
}

func (b *testBot) SendChatAction(_ context.Context, _ *tg.SendChatActionParams) (bool, error) {
	b.actions++
	return true, nil
}

// testCompleter replays canned replies and captures the conversation sent.
type testCompleter struct {
	reply string
	err   error
	msgs  []deepseek.Message
}

func (c *testCompleter) Chat(_ context.Context, msgs []deepseek.Message) (string, error) {
	c.msgs = msgs
	return c.reply, c.err
}

func initStore(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	if err := storage.Init(filepath.Join(dir, "test.db")); err != nil {
		t.Fatalf("storage init: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
}

func newTestHandler(t *testing.T, c Completer) *Handler {
	t.Helper()
	logging.Init()
	initStore(t)
	return New(convo.NewManager(convo.DefaultLimit), c)
}

func commandUpdate(chatID int64, text string) *models.Update {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	return &models.Update{Message: &models.Message{
		ID:   10,
		Text: text,
		Chat: models.Chat{ID: chatID},
		Entities: []models.MessageEntity{
			{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: length},
		},
	}}
}

func TestHandleUpdate_Chat(t *testing.T) {
	c := &testCompleter{reply: "pong"}
	h := newTestHandler(t, c)
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat ping"))

	if b.actions != 1 {
		t.Errorf("typing actions = %d, want 1", b.actions)
	}
	if len(b.sent) != 1 || b.sent[0] != "pong" {
		t.Fatalf("sent = %v, want [pong]", b.sent)
	}
	if len(c.msgs) != 2 || c.msgs[0].Role != deepseek.RoleSystem || c.msgs[1] != (deepseek.Message{Role: deepseek.RoleUser, Content: "ping"}) {
		t.Fatalf("conversation sent to model: %+v", c.msgs)
	}

	hist, err := storage.History(1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 || hist[0].Role != deepseek.RoleUser || hist[1].Role != deepseek.RoleAssistant {
		t.Fatalf("recorded history: %+v", hist)
	}
}

func TestHandleUpdate_ChatCarriesHistory(t *testing.T) {
	c := &testCompleter{reply: "r"}
	h := newTestHandler(t, c)
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat first"))
	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat second"))

	// system + user/assistant from turn one + new user message
	if len(c.msgs) != 4 {
		t.Fatalf("len(msgs) = %d, want 4: %+v", len(c.msgs), c.msgs)
	}
	if c.msgs[3].Content != "second" {
		t.Errorf("last message = %+v", c.msgs[3])
	}
}

func TestHandleUpdate_ChatUsage(t *testing.T) {
	c := &testCompleter{reply: "never"}
	h := newTestHandler(t, c)
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat"))

	if len(b.sent) != 1 || !strings.HasPrefix(b.sent[0], "Usage:") {
		t.Fatalf("sent = %v", b.sent)
	}
	if c.msgs != nil {
		t.Error("model called without a prompt")
	}
}

func TestHandleUpdate_ChatError(t *testing.T) {
	c := &testCompleter{err: errors.New("rate limited")}
	h := newTestHandler(t, c)
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat hi"))

	if len(b.sent) != 1 || !strings.Contains(b.sent[0], "rate limited") {
		t.Fatalf("sent = %v", b.sent)
	}
	hist, _ := storage.History(1)
	if len(hist) != 1 {
		t.Fatalf("history after failed completion: %+v", hist)
	}
}

func TestHandleUpdate_LongReplySplit(t *testing.T) {
	c := &testCompleter{reply: strings.Repeat("x", maxMessageLen+10)}
	h := newTestHandler(t, c)
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat hi"))

	if len(b.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(b.sent))
	}
	if len(b.sent[0]) != maxMessageLen || len(b.sent[1]) != 10 {
		t.Fatalf("chunk sizes = %d, %d", len(b.sent[0]), len(b.sent[1]))
	}
}

func TestHandleUpdate_LongMultibyteReplySplit(t *testing.T) {
	// 2000 three-byte runes, 6000 bytes; a byte-offset cut at 4000 would
	// land mid-rune.
	reply := strings.Repeat("✓", 2000)
	c := &testCompleter{reply: reply}
	h := newTestHandler(t, c)
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat hi"))

	if len(b.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(b.sent))
	}
	for i, part := range b.sent {
		if !utf8.ValidString(part) {
			t.Errorf("chunk %d is not valid UTF-8 (len=%d)", i, len(part))
		}
		if len(part) > maxMessageLen {
			t.Errorf("chunk %d is %d bytes", i, len(part))
		}
	}
	if got := strings.Join(b.sent, ""); got != reply {
		t.Error("chunks do not reassemble into the reply")
	}
}

func TestHandleUpdate_ChatID(t *testing.T) {
	h := newTestHandler(t, &testCompleter{})
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(42, "/chatid"))

	if len(b.sent) != 1 || !strings.Contains(b.sent[0], "42") {
		t.Fatalf("sent = %v", b.sent)
	}
}

func TestHandleUpdate_Wipe(t *testing.T) {
	c := &testCompleter{reply: "r"}
	h := newTestHandler(t, c)
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat hi"))
	b.sent = nil

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat_wipe"))
	if len(b.sent) != 1 || !strings.Contains(b.sent[0], "Memory wiped") {
		t.Fatalf("sent = %v", b.sent)
	}
	hist, _ := storage.History(1)
	if len(hist) != 0 {
		t.Fatalf("history not wiped: %+v", hist)
	}
}

func TestHandleUpdate_Context(t *testing.T) {
	c := &testCompleter{reply: "the answer"}
	h := newTestHandler(t, c)
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat a question"))
	b.sent = nil

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat_context"))
	if len(b.sent) != 1 {
		t.Fatalf("sent = %v", b.sent)
	}
	got := b.sent[0]
	for _, want := range []string{"memory window", "SYSTEM:", "USER:\na question", "ASSISTANT:\nthe answer"} {
		if !strings.Contains(got, want) {
			t.Errorf("context output missing %q:\n%s", want, got)
		}
	}
}

func TestHandleUpdate_Range(t *testing.T) {
	h := newTestHandler(t, &testCompleter{})
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat_range"))
	if len(b.sent) != 1 || !strings.Contains(b.sent[0], "30 turns") {
		t.Fatalf("sent = %v", b.sent)
	}

	b.sent = nil
	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat_range 5"))
	if len(b.sent) != 1 || !strings.Contains(b.sent[0], "New: 5 turns") {
		t.Fatalf("sent = %v", b.sent)
	}

	b.sent = nil
	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat_range banana"))
	if len(b.sent) != 1 || !strings.Contains(b.sent[0], "Invalid value") {
		t.Fatalf("sent = %v", b.sent)
	}

	b.sent = nil
	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat_range 100000"))
	if len(b.sent) != 1 || !strings.Contains(b.sent[0], "Invalid value") {
		t.Fatalf("sent = %v", b.sent)
	}
}

func TestHandleUpdate_RangePersistenceError(t *testing.T) {
	h := newTestHandler(t, &testCompleter{})
	b := &testBot{}

	// A storage failure must not be reported as a bad value.
	storage.Close()
	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/chat_range 5"))
	if len(b.sent) != 1 || !strings.Contains(b.sent[0], "Failed to update memory range") {
		t.Fatalf("sent = %v", b.sent)
	}
}

func TestHandleUpdate_Help(t *testing.T) {
	h := newTestHandler(t, &testCompleter{})
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/help"))
	if len(b.sent) != 1 {
		t.Fatalf("sent = %v", b.sent)
	}
	for _, c := range h.Commands() {
		if !strings.Contains(b.sent[0], "/"+c.Command) {
			t.Errorf("help missing /%s", c.Command)
		}
	}
}

func TestHandleUpdate_Ignored(t *testing.T) {
	h := newTestHandler(t, &testCompleter{})
	b := &testBot{}

	h.HandleUpdate(context.Background(), b, &models.Update{})
	h.HandleUpdate(context.Background(), b, &models.Update{Message: &models.Message{Text: "plain text", Chat: models.Chat{ID: 1}}})
	h.HandleUpdate(context.Background(), b, commandUpdate(1, "/bogus"))

	if len(b.sent) != 0 {
		t.Fatalf("unexpected messages: %v", b.sent)
	}
}

func TestCommands(t *testing.T) {
	h := New(convo.NewManager(convo.DefaultLimit), &testCompleter{})
	cmds := h.Commands()
	if len(cmds) != 6 {
		t.Fatalf("len(commands) = %d, want 6", len(cmds))
	}
	if cmds[0].Command != "chatid" || cmds[len(cmds)-1].Command != "help" {
		t.Fatalf("command order: %+v", cmds)
	}
}

func TestSplitMessage(t *testing.T) {
	parts := splitMessage("abcdef", 2)
	expected := []string{"ab", "cd", "ef"}
	if !reflect.DeepEqual(parts, expected) {
		t.Fatalf("splitMessage got %v want %v", parts, expected)
	}
	if got := splitMessage("", 2); got != nil {
		t.Fatalf("splitMessage(\"\") = %v, want nil", got)
	}
	if got := splitMessage("ab", 10); !reflect.DeepEqual(got, []string{"ab"}) {
		t.Fatalf("splitMessage short = %v", got)
	}
}

func TestSplitMessageRuneBoundary(t *testing.T) {
	// "aé" is three bytes; a cut at 2 would split é.
	parts := splitMessage("aéaé", 2)
	expected := []string{"a", "é", "a", "é"}
	if !reflect.DeepEqual(parts, expected) {
		t.Fatalf("splitMessage got %q want %q", parts, expected)
	}

	s := strings.Repeat("✓", 2000)
	parts = splitMessage(s, 4000)
	for i, part := range parts {
		if !utf8.ValidString(part) {
			t.Errorf("chunk %d is not valid UTF-8 (len=%d)", i, len(part))
		}
		if len(part) > 4000 {
			t.Errorf("chunk %d is %d bytes", i, len(part))
		}
	}
	if strings.Join(parts, "") != s {
		t.Error("chunks do not reassemble into the input")
	}

	// Degenerate limit smaller than one rune still terminates.
	if got := strings.Join(splitMessage("é", 1), ""); got != "é" {
		t.Errorf("splitMessage degenerate = %q", got)
	}
}

func TestParseCommand(t *testing.T) {
	msg := &models.Message{
		Text: "/chat@my_bot  what is up  ",
		Entities: []models.MessageEntity{
			{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: len("/chat@my_bot")},
		},
	}
	cmd, args, ok := parseCommand(msg)
	if !ok || cmd != "chat" || args != "what is up" {
		t.Fatalf("parseCommand = %q, %q, %v", cmd, args, ok)
	}

	if _, _, ok := parseCommand(&models.Message{Text: "no command"}); ok {
		t.Fatal("parseCommand matched plain text")
	}
}

// Package convo keeps per-chat conversation memory with a bounded turn
// window. Histories are persisted through the storage package so memory
// survives restarts. Safe for concurrent use by multiple bots.
package convo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"telegram-deepseek-bot/internal/storage"
)

// ErrLimitOutOfRange reports a memory window value outside
// [MinLimit, MaxLimit]. Callers use it to tell a bad value apart from a
// persistence failure.
var ErrLimitOutOfRange = errors.New("memory window out of range")

const (
	// DefaultLimit is the memory window used until a chat sets its own.
	DefaultLimit = 30
	// MinLimit and MaxLimit bound /chat_range values.
	MinLimit = 1
	MaxLimit = 1000
)

// Manager coordinates access to per-chat histories.
type Manager struct {
	mu           sync.Mutex
	defaultLimit int
}

// NewManager creates a manager with the given default window size. Values
// outside [MinLimit, MaxLimit] fall back to DefaultLimit.
func NewManager(defaultLimit int) *Manager {
	if defaultLimit < MinLimit || defaultLimit > MaxLimit {
		defaultLimit = DefaultLimit
	}
	return &Manager{defaultLimit: defaultLimit}
}

// Limit returns the effective memory window for a chat.
func (m *Manager) Limit(chatID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limitLocked(chatID)
}

func (m *Manager) limitLocked(chatID int64) int {
	limit, err := storage.LoadLimit(chatID)
	if err != nil || limit < MinLimit || limit > MaxLimit {
		return m.defaultLimit
	}
	return limit
}

// SetLimit updates the memory window for a chat and trims the stored
// history to fit. Returns the previous effective limit.
func (m *Manager) SetLimit(chatID int64, limit int) (int, error) {
	if limit < MinLimit || limit > MaxLimit {
		return 0, fmt.Errorf("%w: must be between %d and %d, got %d", ErrLimitOutOfRange, MinLimit, MaxLimit, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.limitLocked(chatID)
	if err := storage.SaveLimit(chatID, limit); err != nil {
		return 0, err
	}
	if err := storage.TrimHistory(chatID, limit); err != nil {
		return 0, err
	}
	return old, nil
}

// Add appends a turn to the chat history and trims it to the window.
func (m *Manager) Add(chatID int64, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := storage.Message{Role: role, Content: content, When: time.Now().Unix()}
	if err := storage.AddMessage(chatID, msg); err != nil {
		return err
	}
	return storage.TrimHistory(chatID, m.limitLocked(chatID))
}

// History returns a copy of the stored window for a chat, oldest first.
func (m *Manager) History(chatID int64) ([]storage.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return storage.History(chatID)
}

// Clear wipes the memory for a chat and reports how many turns were dropped.
func (m *Manager) Clear(chatID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return storage.ClearHistory(chatID)
}

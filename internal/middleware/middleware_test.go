package middleware

import (
	"sync"
	"testing"
	"time"

	"pokerstats/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) SendMessage(_ int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

func commandUpdate(id int, userID int64, text string) tgbotapi.Update {
	name := text
	for i, r := range text {
		if r == ' ' {
			name = text[:i]
			break
		}
	}
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: userID, UserName: "player"},
			Chat:     &tgbotapi.Chat{ID: userID},
			Text:     text,
			Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
		},
	}
}

func testConfig(requests int) *config.Config {
	return &config.Config{
		DebounceInterval: time.Minute,
		RateLimitConfig:  config.RateLimitConfig{Enabled: requests > 0, Requests: requests, Window: time.Minute},
	}
}

func TestDebouncesRepeatedCommand(t *testing.T) {
	m := New(testConfig(0), nil, zap.NewNop())

	calls := 0
	handler := func(tgbotapi.Update) { calls++ }

	m.ProcessWithMiddleware(commandUpdate(1, 7, "/stats"), handler)
	m.ProcessWithMiddleware(commandUpdate(2, 7, "/stats buyin=3"), handler)
	m.ProcessWithMiddleware(commandUpdate(3, 7, "/history"), handler)
	m.ProcessWithMiddleware(commandUpdate(4, 8, "/stats"), handler)

	assert.Equal(t, 3, calls)
}

func TestDocumentsAreNotDebounced(t *testing.T) {
	m := New(testConfig(0), nil, zap.NewNop())

	calls := 0
	for i := 0; i < 3; i++ {
		update := tgbotapi.Update{UpdateID: i, Message: &tgbotapi.Message{
			From:     &tgbotapi.User{ID: 7},
			Chat:     &tgbotapi.Chat{ID: 7},
			Document: &tgbotapi.Document{FileName: "h.html"},
		}}
		m.ProcessWithMiddleware(update, func(tgbotapi.Update) { calls++ })
	}
	assert.Equal(t, 3, calls)
}

func TestDebouncesDoubleClick(t *testing.T) {
	m := New(testConfig(0), nil, zap.NewNop())

	click := func(data string) tgbotapi.Update {
		return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			From:    &tgbotapi.User{ID: 7},
			Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 7}},
			Data:    data,
		}}
	}

	var seen []string
	handler := func(u tgbotapi.Update) { seen = append(seen, u.CallbackQuery.Data) }

	m.ProcessWithMiddleware(click("st|3|0"), handler)
	m.ProcessWithMiddleware(click("st|3|0"), handler)
	m.ProcessWithMiddleware(click("st|3|1"), handler)

	assert.Equal(t, []string{"st|3|0", "st|3|1"}, seen)
}

func TestRateLimit(t *testing.T) {
	notifier := &recordingNotifier{}
	cfg := testConfig(2)
	cfg.DebounceInterval = 0
	m := New(cfg, notifier, zap.NewNop())

	calls := 0
	handler := func(tgbotapi.Update) { calls++ }
	for i, cmd := range []string{"/stats", "/history", "/help"} {
		m.ProcessWithMiddleware(commandUpdate(i, 7, cmd), handler)
	}

	assert.Equal(t, 2, calls)
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, rateLimitMessage, notifier.messages[0])

	m.ProcessWithMiddleware(commandUpdate(10, 8, "/stats"), handler)
	assert.Equal(t, 3, calls)
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute, zap.NewNop())
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow(1))

	now = now.Add(2 * time.Minute)
	rl.Cleanup()
	assert.Empty(t, rl.requests)
}

func TestRecoveryNotifiesUser(t *testing.T) {
	notifier := &recordingNotifier{}
	m := New(testConfig(0), notifier, zap.NewNop())

	assert.NotPanics(t, func() {
		m.ProcessWithMiddleware(commandUpdate(1, 7, "/stats"), func(tgbotapi.Update) {
			panic("boom")
		})
	})
	assert.Equal(t, []string{panicMessage}, notifier.messages)
}

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pokerstats/internal/config"
	"pokerstats/internal/keyboard"
	"pokerstats/internal/service"
	"pokerstats/internal/storage"
	"pokerstats/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"
)

type sentMessage struct {
	chatID  int64
	text    string
	replyTo int
	markup  any
}

type fakeBotAPI struct {
	mu       sync.Mutex
	messages []sentMessage
	edits    []sentMessage
	answers  []string
}

func (f *fakeBotAPI) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text})
	return nil
}

func (f *fakeBotAPI) SendMessageWithMarkup(chatID int64, text string, markup any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text, markup: markup})
	return nil
}

func (f *fakeBotAPI) SendMessageWithReply(chatID int64, text string, replyTo int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sentMessage{chatID: chatID, text: text, replyTo: replyTo})
	return nil
}

func (f *fakeBotAPI) EditMessageWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentMessage{chatID: chatID, text: text, replyTo: messageID, markup: markup})
	return nil
}

func (f *fakeBotAPI) AnswerCallbackQuery(callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, callbackID)
	return nil
}

func (f *fakeBotAPI) GetFileURL(fileID string) (string, error) {
	return "https://files.example/" + fileID, nil
}

func (f *fakeBotAPI) SetBotCommands([]tgbotapi.BotCommand) error { return nil }

func (f *fakeBotAPI) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return sentMessage{}
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeBotAPI) contains(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}

type fakeFetcher struct {
	data []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	f.urls = append(f.urls, rawURL)
	return f.data, f.err
}

// syncPool выполняет задачу сразу в Submit
type syncPool struct {
	submitErr error
	processed int64
	failed    int64
}

func (p *syncPool) Start() {}
func (p *syncPool) Stop()  {}

func (p *syncPool) Submit(job worker.Job) error {
	if p.submitErr != nil {
		return p.submitErr
	}
	if err := job.Run(context.Background()); err != nil {
		p.failed++
	}
	p.processed++
	return nil
}

func (p *syncPool) GetMetrics() worker.Metrics {
	return worker.Metrics{ProcessedJobs: p.processed, FailedJobs: p.failed, QueueCapacity: 4}
}

func (p *syncPool) GetQueueSize() int { return 0 }

type fixture struct {
	handlers *Handlers
	bot      *fakeBotAPI
	fetcher  *fakeFetcher
	pool     *syncPool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewWithDB(db, zap.NewNop())
	require.NoError(t, store.InitSchema(context.Background()))

	cfg := &config.Config{
		AdminUsername:   "boss",
		Timezone:        "UTC",
		RakebackPercent: decimal.NewFromInt(30),
		ImportConfig: config.ImportConfig{
			MaxDocumentSize: 1 << 20,
			Timeout:         time.Minute,
		},
	}

	f := &fixture{bot: &fakeBotAPI{}, fetcher: &fakeFetcher{}, pool: &syncPool{}}
	f.handlers = New(service.NewServices(store, cfg, zap.NewNop()), cfg, keyboard.NewManager(), f.bot, f.fetcher, f.pool, zap.NewNop())
	return f
}

var player = &tgbotapi.User{ID: 7, UserName: "player", FirstName: "Ann"}

func command(from *tgbotapi.User, text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 1,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: 100},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func historyRow(date, buyin, kills, duration, place, prize string) string {
	cells := []string{"Bounty Hunters", date, "Hold'em", "<app-buy-in>" + buyin + "</app-buy-in>", "8", kills, duration, "<ul><li>" + place + "</li></ul>", prize}
	var b strings.Builder
	b.WriteString(`<tr class="cdk-row">`)
	for _, c := range cells {
		b.WriteString(`<td class="cdk-cell">` + c + `</td>`)
	}
	b.WriteString(`</tr>`)
	return b.String()
}

func historyDocument(rows ...string) []byte {
	return []byte(`<html><body><table mat-table class="cdk-table"><tbody>` + strings.Join(rows, "") + `</tbody></table></body></html>`)
}

func (f *fixture) upload(t *testing.T, rows ...string) {
	t.Helper()
	f.fetcher.data = historyDocument(rows...)
	msg := command(player, "")
	msg.Entities = nil
	msg.Document = &tgbotapi.Document{FileID: "file-1", FileName: "history.html", FileSize: len(f.fetcher.data)}
	f.handlers.Document(msg)
}

var (
	rowOne   = historyRow("Aug 14, 18:30", "$1", "2", "12:34", "1st", "<app-prize>$4.00</app-prize>")
	rowThree = historyRow("Aug 15, 20:00", "$3", "1", "40:00", "2nd", "$9")
)

func TestDocumentImport(t *testing.T) {
	f := newFixture(t)

	f.upload(t, rowOne, rowThree)

	assert.Equal(t, []string{"https://files.example/file-1"}, f.fetcher.urls)
	assert.True(t, f.bot.contains("Импорт завершен"))
	assert.True(t, f.bot.contains("Новых турниров: <b>2</b>"))
	assert.True(t, f.bot.contains("принят"))

	f.upload(t, rowOne, rowThree)
	assert.True(t, f.bot.contains("Уже были загружены: 2"))
}

func TestDocumentRejected(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		size     int
		data     []byte
		fetchErr error
		poolErr  error
		want     string
	}{
		{name: "wrong extension", fileName: "history.txt", size: 500, want: ".html"},
		{name: "too large", fileName: "history.html", size: 2 << 20, want: "слишком большой"},
		{name: "queue full", fileName: "history.html", size: 500, poolErr: worker.ErrQueueFull, want: "много файлов"},
		{name: "download failed", fileName: "history.html", size: 500, fetchErr: errors.New("boom"), want: "скачать"},
		{name: "not a history page", fileName: "history.html", size: 500, data: []byte(strings.Repeat("<p>hello</p>", 20)), want: "нет таблицы"},
		{name: "no tournaments", fileName: "history.html", size: 500,
			data: historyDocument(historyRow("foo 14, 18:30", "$1", "0", "10:00", "3rd", "$2")), want: "не найдено ни одного турнира"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fetcher.data = tt.data
			f.fetcher.err = tt.fetchErr
			f.pool.submitErr = tt.poolErr

			msg := command(player, "")
			msg.Entities = nil
			msg.Document = &tgbotapi.Document{FileID: "x", FileName: tt.fileName, FileSize: tt.size}
			f.handlers.Document(msg)

			assert.True(t, f.bot.contains(tt.want), "last message: %q", f.bot.last().text)
			assert.False(t, f.bot.contains("Импорт завершен"))
		})
	}
}

func TestStatsCommand(t *testing.T) {
	f := newFixture(t)
	f.upload(t, rowOne, rowThree)

	f.handlers.Stats(command(player, "/stats"))
	last := f.bot.last()
	assert.Contains(t, last.text, "Турниров: <b>2</b>")
	markup, ok := last.markup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Len(t, markup.InlineKeyboard, 2)

	f.handlers.Stats(command(player, "/stats buyin=3 rakeback=on"))
	last = f.bot.last()
	assert.Contains(t, last.text, "бай-ин $3.00")
	assert.Contains(t, last.text, "Турниров: <b>1</b>")
	assert.Contains(t, last.text, "без рейкбека")

	f.handlers.Stats(command(player, "/stats color=red"))
	assert.Contains(t, f.bot.last().text, "invalid filter")
}

func TestHistoryCommand(t *testing.T) {
	f := newFixture(t)

	f.handlers.History(command(player, "/history"))
	assert.Contains(t, f.bot.last().text, "Турниров не найдено")

	f.upload(t, rowOne, rowThree)

	f.handlers.History(command(player, "/history limit=1"))
	last := f.bot.last()
	assert.Contains(t, last.text, "страница 1 из 2")
	assert.Contains(t, last.text, "15.08")
	require.NotNil(t, last.markup)

	f.handlers.History(command(player, "/history sort=start_time order=asc"))
	last = f.bot.last()
	assert.Less(t, strings.Index(last.text, "14.08"), strings.Index(last.text, "15.08"))
	assert.Nil(t, last.markup)
}

func TestSettingsCommands(t *testing.T) {
	f := newFixture(t)

	f.handlers.Timezone(command(player, "/timezone"))
	assert.Contains(t, f.bot.last().text, "UTC")

	f.handlers.Timezone(command(player, "/timezone Mars/Olympus"))
	assert.Contains(t, f.bot.last().text, "Неизвестный часовой пояс")

	f.handlers.Timezone(command(player, "/timezone Europe/Moscow"))
	assert.Contains(t, f.bot.last().text, "Europe/Moscow")

	f.handlers.Start(command(player, "/start"))
	assert.Contains(t, f.bot.last().text, "Europe/Moscow")

	f.handlers.Rakeback(command(player, "/rakeback 150"))
	assert.Contains(t, f.bot.last().text, "от 0 до 100")

	f.handlers.Rakeback(command(player, "/rakeback 27,5"))
	assert.Contains(t, f.bot.last().text, "27.5%")

	f.handlers.Rakeback(command(player, "/rakeback"))
	assert.Contains(t, f.bot.last().text, "27.5%")
}

func TestResetCommand(t *testing.T) {
	f := newFixture(t)
	f.upload(t, rowOne, rowThree)

	f.handlers.Reset(command(player, "/reset"))
	assert.Contains(t, f.bot.last().text, "/reset confirm")

	f.handlers.Reset(command(player, "/reset confirm"))
	assert.Contains(t, f.bot.last().text, "Удалено турниров: 2")

	f.handlers.Stats(command(player, "/stats"))
	assert.Contains(t, f.bot.last().text, "Турниров не найдено")
}

func TestAdminCommands(t *testing.T) {
	f := newFixture(t)
	f.upload(t, rowOne)

	f.handlers.Users(command(player, "/users"))
	assert.Equal(t, noAdminRights, f.bot.last().text)

	boss := &tgbotapi.User{ID: 1, UserName: "Boss"}
	f.handlers.Start(command(boss, "/start"))

	f.handlers.Users(command(boss, "/users"))
	last := f.bot.last().text
	assert.Contains(t, last, "@player")
	assert.Contains(t, last, "турниров 1")

	f.handlers.UserStats(command(boss, "/userstats 7"))
	assert.Contains(t, f.bot.last().text, "Турниров: <b>1</b>")

	f.handlers.UserStats(command(boss, "/userstats abc"))
	assert.Contains(t, f.bot.last().text, "положительным числом")

	f.handlers.Admin(command(boss, "/admin"))
	assert.Contains(t, f.bot.last().text, "выполнено 1")
}

func TestCallbackQuery(t *testing.T) {
	f := newFixture(t)
	f.upload(t, rowOne, rowThree)

	query := &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    player,
		Message: &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: 100}},
		Data:    "st|3|1",
	}
	f.handlers.CallbackQuery(query)

	require.Len(t, f.bot.edits, 1)
	assert.Equal(t, 42, f.bot.edits[0].replyTo)
	assert.Contains(t, f.bot.edits[0].text, "бай-ин $3.00")
	assert.Equal(t, []string{"cb-1"}, f.bot.answers)

	query.ID = "cb-2"
	query.Data = "hi|2|all"
	f.handlers.CallbackQuery(query)
	require.Len(t, f.bot.edits, 2)
	assert.Contains(t, f.bot.edits[1].text, "страница 2")

	query.ID = "cb-3"
	query.Data = "month_august"
	f.handlers.CallbackQuery(query)
	assert.Len(t, f.bot.edits, 2)
	assert.Equal(t, []string{"cb-1", "cb-2", "cb-3"}, f.bot.answers)
}

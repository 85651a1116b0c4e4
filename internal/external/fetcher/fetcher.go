// Package fetcher скачивает загруженные пользователями файлы выгрузки.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// ErrDocumentTooLarge возвращается, если файл больше допустимого размера
var ErrDocumentTooLarge = errors.New("document is too large")

// Config представляет конфигурацию загрузчика
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int64
	RetryConfig RetryConfig
}

// Fetcher скачивает документы через colly
type Fetcher struct {
	config    Config
	transport http.RoundTripper
	logger    *zap.Logger
}

// New создает новый загрузчик
func New(config Config, logger *zap.Logger) *Fetcher {
	if config.UserAgent == "" {
		config.UserAgent = "pokerstats-bot/1.0"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Fetcher{
		config: config,
		logger: logger,
	}
}

// WithTransport задает HTTP транспорт, используется в тестах
func (f *Fetcher) WithTransport(rt http.RoundTripper) *Fetcher {
	f.transport = rt
	return f
}

// newCollector создает collector на один запрос
func (f *Fetcher) newCollector(ctx context.Context) *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	if f.config.MaxBodySize > 0 {
		// Читаем на байт больше лимита, чтобы отличить обрезанный файл от файла ровно по лимиту
		collector.MaxBodySize = int(f.config.MaxBodySize + 1)
	}
	collector.SetRequestTimeout(f.config.Timeout)
	if f.transport != nil {
		collector.WithTransport(f.transport)
	}
	return collector
}

// Fetch скачивает документ по URL с повторами при временных ошибках
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	host := redactedHost(rawURL)
	var body []byte

	err := WithRetry(ctx, f.logger, f.config.RetryConfig, func() error {
		collector := f.newCollector(ctx)
		status := 0

		collector.OnResponse(func(r *colly.Response) {
			status = r.StatusCode
			body = r.Body
			f.logger.Debug("Received document",
				zap.String("host", host),
				zap.Int("status", r.StatusCode),
				zap.Int("size", len(r.Body)))
		})
		collector.OnError(func(r *colly.Response, err error) {
			if r != nil {
				status = r.StatusCode
			}
		})

		if err := collector.Visit(rawURL); err != nil {
			err = withoutURL(err, host)
			if status >= 400 && status < 500 {
				return Permanent(fmt.Errorf("failed to download document: status %d: %w", status, err))
			}
			return fmt.Errorf("failed to download document: %w", err)
		}

		if f.config.MaxBodySize > 0 && int64(len(body)) > f.config.MaxBodySize {
			return Permanent(fmt.Errorf("%w: more than %d bytes", ErrDocumentTooLarge, f.config.MaxBodySize))
		}
		return nil
	})
	if err != nil {
		f.logger.Warn("Failed to fetch document", zap.String("host", host), zap.Error(err))
		return nil, err
	}

	f.logger.Info("Fetched document", zap.String("host", host), zap.Int("size", len(body)))
	return body, nil
}

// withoutURL убирает полный адрес из ошибки запроса, оставляя только хост
func withoutURL(err error, host string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s %s: %w", urlErr.Op, host, urlErr.Err)
	}
	return err
}

// redactedHost возвращает только хост: в пути файла Telegram есть токен бота
func redactedHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

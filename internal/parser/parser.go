package parser

import (
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Parser разбирает документы истории турниров.
// Не хранит состояния между вызовами и безопасен для конкурентного использования.
type Parser struct {
	logger    *zap.Logger
	now       func() time.Time
	normalize func(RawRow) (Record, []Diagnostic)
}

// New создает новый парсер
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger, now: time.Now, normalize: normalize}
}

// WithClock возвращает копию парсера с другим источником текущего времени.
// Год турнира берется из текущей даты, так как в выгрузке его нет.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	cp := *p
	cp.now = now
	return &cp
}

// Parse разбирает HTML-документ с часовым поясом пользователя
func Parse(document, timezone string) (*Result, error) {
	return New(nil).Parse(document, timezone)
}

// Parse разбирает HTML-документ. Ошибка возвращается только при пустом часовом поясе,
// проблемы отдельных строк попадают в Result.Diagnostics.
func (p *Parser) Parse(document, timezone string) (*Result, error) {
	return p.ParseReader(strings.NewReader(document), timezone)
}

// ParseReader разбирает документ из потока
func (p *Parser) ParseReader(r io.Reader, timezone string) (*Result, error) {
	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return nil, ErrTimezoneRequired
	}

	result := &Result{
		Records:     []Record{},
		Diagnostics: []Diagnostic{},
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		p.logger.Warn("Failed to load timezone, dates will be rejected",
			zap.String("timezone", timezone), zap.Error(err))
		loc = nil
	}

	now := p.now()
	year := now.UTC().Year()
	if loc != nil {
		year = now.In(loc).Year()
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		p.logger.Error("Failed to parse HTML document", zap.Error(err))
		result.Diagnostics = append(result.Diagnostics, Diagnostic{
			Kind:    KindParsingError,
			Message: "failed to parse HTML document",
			Detail:  err.Error(),
		})
		return result, nil
	}

	doc.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		index := i + 1
		result.Stats.Total++

		rec, warnings, failure := p.parseRow(index, row, loc, year)
		for _, w := range warnings {
			p.logger.Debug("Row warning", zap.Int("row", index), zap.String("kind", w.Kind.String()), zap.String("message", w.Message))
		}
		result.Diagnostics = append(result.Diagnostics, warnings...)

		if failure != nil {
			p.logger.Warn("Row skipped",
				zap.Int("row", index),
				zap.String("kind", failure.Kind.String()),
				zap.String("message", failure.Message))
			result.Diagnostics = append(result.Diagnostics, *failure)
			result.Stats.Skipped++
			return
		}

		result.Records = append(result.Records, rec)
		result.Stats.Parsed++
	})

	p.logger.Info("Parsed tournament history",
		zap.String("timezone", timezone),
		zap.Int("total_rows", result.Stats.Total),
		zap.Int("parsed_rows", result.Stats.Parsed),
		zap.Int("skipped_rows", result.Stats.Skipped),
		zap.Int("diagnostics", len(result.Diagnostics)))

	return result, nil
}

// parseRow проводит одну строку через извлечение, дату, нормализацию и хэш.
// Паника внутри строки превращается в PARSING_ERROR.
func (p *Parser) parseRow(index int, row *goquery.Selection, loc *time.Location, year int) (rec Record, warnings []Diagnostic, failure *Diagnostic) {
	defer func() {
		if r := recover(); r != nil {
			rec = Record{}
			failure = &Diagnostic{
				RowIndex: index,
				Kind:     KindParsingError,
				Message:  fmt.Sprintf("failed to process row %d: %v", index, r),
				Detail:   string(debug.Stack()),
			}
		}
	}()

	raw, rowErr := extractRow(index, row)
	if rowErr != nil {
		return Record{}, nil, &rowErr.diag
	}

	date, rowErr := resolveDate(index, raw.StartTime, loc, year)
	if rowErr != nil {
		return Record{}, nil, &rowErr.diag
	}

	rec, warnings = p.normalize(raw)
	rec.StartTime = date.Time.UTC()
	rec.LocalStartTime = date.Local
	rec.Weekday = int(date.Time.Weekday())
	rec.TournamentHash = TournamentHash(date.Local, rec.BuyinTotal, rec.FinishPlace, rec.PrizeTotal, rec.Kills)

	return rec, warnings, nil
}

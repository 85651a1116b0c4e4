package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pokerstats/internal/model"

	"github.com/shopspring/decimal"
)

// ErrInvalidFilter возвращается для неразборчивых аргументов фильтра
var ErrInvalidFilter = errors.New("invalid filter")

const filterDateLayout = "2006-01-02"

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
	"вс": time.Sunday, "пн": time.Monday, "вт": time.Tuesday, "ср": time.Wednesday,
	"чт": time.Thursday, "пт": time.Friday, "сб": time.Saturday,
}

// Query объединяет фильтр, страницу и параметры рейкбека из аргументов команды
type Query struct {
	Filter  model.TournamentFilter
	Page    model.PageRequest
	Options StatsOptions
}

// ParseQuery разбирает аргументы вида key=value. Даты и день недели
// трактуются в поясе пользователя loc.
//
// Ключи: buyin, place, from, to, day, time, sort, order, page, limit, rakeback.
func ParseQuery(userID int64, args []string, loc *time.Location) (Query, error) {
	if loc == nil {
		loc = time.UTC
	}
	q := Query{
		Filter: model.TournamentFilter{UserID: userID},
		Page:   model.PageRequest{Page: 1, SortField: model.SortStartTime, SortDesc: true},
	}

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			return Query{}, fmt.Errorf("%w: expected key=value, got %q", ErrInvalidFilter, arg)
		}

		if err := q.apply(key, value, loc); err != nil {
			return Query{}, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, key, err)
		}
	}

	if err := q.Filter.Validate(); err != nil {
		return Query{}, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return q, nil
}

func (q *Query) apply(key, value string, loc *time.Location) error {
	switch key {
	case "buyin":
		d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimPrefix(value, "$"), ",", "."))
		if err != nil || !d.IsPositive() {
			return fmt.Errorf("not a buy-in amount: %q", value)
		}
		q.Filter.Buyin = decimal.NewNullDecimal(d.Round(2))

	case "place":
		if n, err := strconv.Atoi(value); err == nil {
			if n < 1 {
				return fmt.Errorf("place must be positive")
			}
			q.Filter.FinishPlace = n
			return nil
		}
		place := model.PlaceFilter(strings.ToLower(value))
		if place == model.PlaceAny || !place.IsValid() {
			return fmt.Errorf("unknown place filter %q", value)
		}
		q.Filter.Place = place

	case "from", "to":
		day, err := time.ParseInLocation(filterDateLayout, value, loc)
		if err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD")
		}
		if key == "from" {
			q.Filter.From = day
		} else {
			q.Filter.To = day.AddDate(0, 0, 1).Add(-time.Microsecond)
		}

	case "day":
		wd, err := parseWeekday(value)
		if err != nil {
			return err
		}
		n := int(wd)
		q.Filter.Weekday = &n

	case "time":
		from, to, ok := strings.Cut(value, "-")
		if !ok {
			return fmt.Errorf("time window must be HH:MM-HH:MM")
		}
		q.Filter.ClockFrom = normalizeClock(from)
		q.Filter.ClockTo = normalizeClock(to)

	case "sort":
		desc := strings.HasPrefix(value, "-")
		field, ok := model.ParseSortField(strings.TrimPrefix(value, "-"))
		if !ok {
			return fmt.Errorf("unknown sort field %q", value)
		}
		q.Page.SortField = field
		q.Page.SortDesc = desc

	case "order":
		switch strings.ToLower(value) {
		case "asc":
			q.Page.SortDesc = false
		case "desc":
			q.Page.SortDesc = true
		default:
			return fmt.Errorf("order must be asc or desc")
		}

	case "page", "limit":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("must be a positive number")
		}
		if key == "page" {
			q.Page.Page = n
		} else {
			q.Page.Limit = n
		}

	case "rakeback", "rb":
		switch strings.ToLower(value) {
		case "on", "true", "yes":
			q.Options.IncludeRakeback = true
		case "off", "false", "no":
			q.Options.IncludeRakeback = false
		default:
			percent, err := ParsePercent(value)
			if err != nil {
				return err
			}
			q.Options.IncludeRakeback = true
			q.Options.RakebackPercent = decimal.NewNullDecimal(percent)
		}

	default:
		return fmt.Errorf("unknown key")
	}
	return nil
}

// parseWeekday принимает номер 0-6 (0 - воскресенье) или короткое имя
func parseWeekday(value string) (time.Weekday, error) {
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("day must be between 0 and 6")
		}
		return time.Weekday(n), nil
	}
	name := strings.ToLower(value)
	if len([]rune(name)) > 3 {
		name = string([]rune(name)[:3])
	}
	if wd, ok := weekdayNames[name]; ok {
		return wd, nil
	}
	if wd, ok := weekdayNames[string([]rune(name)[:min(2, len([]rune(name)))])]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("unknown day %q", value)
}

// normalizeClock дополняет час нулем: "9:30" -> "09:30"
func normalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 4 && s[1] == ':' {
		return "0" + s
	}
	return s
}

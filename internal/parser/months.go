package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// localLayout формат локальной даты, из которой строится хэш
const localLayout = "2006-01-02 15:04"

// dateRegex: "авг. 14, 18:30", "Aug 14, 18:30", "августа 14 18:30", "авг.14, 18:30"
var dateRegex = regexp.MustCompile(`([A-Za-zА-Яа-яЁё]+)\.?\s*(\d+),?\s+(\d{2}:\d{2})`)

// monthNumbers сопоставляет названия месяцев с номером месяца
var monthNumbers = map[string]string{
	"янв": "01", "январь": "01", "января": "01",
	"фев": "02", "февр": "02", "февраль": "02", "февраля": "02",
	"мар": "03", "март": "03", "марта": "03",
	"апр": "04", "апрель": "04", "апреля": "04",
	"май": "05", "мая": "05",
	"июн": "06", "июнь": "06", "июня": "06",
	"июл": "07", "июль": "07", "июля": "07",
	"авг": "08", "август": "08", "августа": "08",
	"сен": "09", "сент": "09", "сентябрь": "09", "сентября": "09",
	"окт": "10", "октябрь": "10", "октября": "10",
	"ноя": "11", "нояб": "11", "ноябрь": "11", "ноября": "11",
	"дек": "12", "декабрь": "12", "декабря": "12",

	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "sept": "09", "oct": "10", "nov": "11", "dec": "12",
	"january": "01", "february": "02", "march": "03", "april": "04",
	"june": "06", "july": "07", "august": "08", "september": "09",
	"october": "10", "november": "11", "december": "12",
}

// resolvedDate результат разбора даты строки
type resolvedDate struct {
	// Local строка "YYYY-MM-DD HH:MM" в поясе пользователя, вход для хэша
	Local string
	Time  time.Time
}

// normalizeMonth приводит токен месяца к ключу словаря
func normalizeMonth(token string) string {
	token = strings.TrimSpace(token)
	token = strings.TrimRight(token, ".")
	return cases.Lower(language.Russian).String(token)
}

// MonthNumber возвращает номер месяца по локализованному названию
func MonthNumber(token string) (string, bool) {
	num, ok := monthNumbers[normalizeMonth(token)]
	return num, ok
}

// resolveDate превращает текст ячейки даты в момент времени в поясе loc.
// Если loc == nil, пояс не удалось загрузить и любая дата считается некорректной.
func resolveDate(row int, text string, loc *time.Location, year int) (resolvedDate, *rowError) {
	match := dateRegex.FindStringSubmatch(text)
	if match == nil {
		return resolvedDate{}, newRowError(row, KindInvalidDateFormat,
			fmt.Sprintf("cannot parse date %q", text),
			fmt.Sprintf("text does not match the expected date format: %s", text))
	}

	monthToken := normalizeMonth(match[1])
	month, ok := monthNumbers[monthToken]
	if !ok {
		return resolvedDate{}, newRowError(row, KindUnknownMonth,
			fmt.Sprintf("unknown month %q", monthToken),
			fmt.Sprintf("month %q is missing from the month table", monthToken))
	}

	day := match[2]
	if len(day) < 2 {
		day = "0" + day
	}
	local := fmt.Sprintf("%04d-%s-%s %s", year, month, day, match[3])

	if loc == nil {
		return resolvedDate{}, newRowError(row, KindInvalidDate,
			fmt.Sprintf("invalid date %q: unknown timezone", local),
			"timezone could not be loaded")
	}

	t, err := time.ParseInLocation(localLayout, local, loc)
	if err != nil {
		return resolvedDate{}, newRowError(row, KindInvalidDate,
			fmt.Sprintf("invalid date %q in zone %s", local, loc.String()),
			err.Error())
	}

	return resolvedDate{Local: local, Time: t}, nil
}

package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	rowSelector  = ".cdk-row"
	cellSelector = ".cdk-cell"

	// minCells минимальное число ячеек в строке турнира
	minCells = 9
)

// Позиции ячеек в строке истории
const (
	cellStartTime = 1
	cellBuyin     = 3
	cellKills     = 5
	cellDuration  = 6
	cellPlace     = 7
	cellPrize     = 8
)

// RawRow содержит сырые тексты ячеек одной строки
type RawRow struct {
	Index       int
	StartTime   string
	Buyin       string
	Kills       string
	Duration    string
	Place       string
	PrizeNested string
	PrizeCell   string
}

// cleanText схлопывает пробелы, включая неразрывные
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// preferNested возвращает текст вложенного элемента или, если он пуст, текст ячейки
func preferNested(cell *goquery.Selection, selector string) string {
	if nested := cleanText(cell.Find(selector).Text()); nested != "" {
		return nested
	}
	return cleanText(cell.Text())
}

// extractRow достает тексты полей из строки таблицы
func extractRow(index int, row *goquery.Selection) (RawRow, *rowError) {
	cells := row.Find(cellSelector)
	if cells.Length() < minCells {
		return RawRow{}, newRowError(index, KindInvalidStructure,
			fmt.Sprintf("not enough cells (%d), row skipped", cells.Length()),
			fmt.Sprintf("expected %d or more cells, got %d", minCells, cells.Length()))
	}

	prize := cells.Eq(cellPrize)

	return RawRow{
		Index:       index,
		StartTime:   cleanText(cells.Eq(cellStartTime).Text()),
		Buyin:       preferNested(cells.Eq(cellBuyin), "app-buy-in"),
		Kills:       cleanText(cells.Eq(cellKills).Text()),
		Duration:    cleanText(cells.Eq(cellDuration).Text()),
		Place:       preferNested(cells.Eq(cellPlace), "li"),
		PrizeNested: cleanText(prize.Find("app-prize").Text()),
		PrizeCell:   cleanText(prize.Text()),
	}, nil
}

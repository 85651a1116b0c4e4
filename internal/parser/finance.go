package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyPlaces число знаков после запятой у денежных полей
const moneyPlaces = 2

var (
	ordinalPlaceRegex = regexp.MustCompile(`(?i)(\d+)(?:-м|th|st|nd|rd)`)
	digitsRegex       = regexp.MustCompile(`\d+`)
	leadingNumber     = regexp.MustCompile(`^\d+(?:\.\d+)?`)
	durationRegex     = regexp.MustCompile(`^\d+:\d{2}(?::\d{2})?$`)
	nonDigits         = regexp.MustCompile(`\D`)
	nonAmount         = regexp.MustCompile(`[^0-9.]`)
)

// Доли бай-ина: призовой фонд и комиссия, остаток уходит в баунти
var (
	prizePoolShare  = decimal.RequireFromString("0.50")
	commissionShare = decimal.RequireFromString("0.08")
	bountyShare     = decimal.RequireFromString("0.42")
)

// placePrizes приз за место по бай-ину, ключ - каноническая строка бай-ина
var placePrizes = map[string]map[int]decimal.Decimal{
	"0.25": {1: decimal.RequireFromString("1"), 2: decimal.RequireFromString("0.75"), 3: decimal.RequireFromString("0.5")},
	"1":    {1: decimal.NewFromInt(4), 2: decimal.NewFromInt(3), 3: decimal.NewFromInt(2)},
	"3":    {1: decimal.NewFromInt(12), 2: decimal.NewFromInt(9), 3: decimal.NewFromInt(6)},
	"10":   {1: decimal.NewFromInt(40), 2: decimal.NewFromInt(30), 3: decimal.NewFromInt(20)},
	"25":   {1: decimal.NewFromInt(100), 2: decimal.NewFromInt(75), 3: decimal.NewFromInt(50)},
}

// topBountyThresholds минимальная награда за выбивание, считающаяся топовой
var topBountyThresholds = map[string]decimal.Decimal{
	"0.25": decimal.RequireFromString("2.5"),
	"1":    decimal.NewFromInt(10),
	"3":    decimal.NewFromInt(30),
	"10":   decimal.NewFromInt(100),
	"25":   decimal.NewFromInt(250),
}

// currencySigns символы валют, которые встречаются в выгрузке
const currencySigns = "$€£₽"

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// PlacePrize возвращает приз за место для бай-ина или ноль
func PlacePrize(buyin decimal.Decimal, place int) decimal.Decimal {
	if place < 1 || place > 3 {
		return decimal.Zero
	}
	if prizes, ok := placePrizes[buyin.String()]; ok {
		return prizes[place]
	}
	return decimal.Zero
}

// TopBountyThreshold возвращает порог топ-награды для бай-ина
func TopBountyThreshold(buyin decimal.Decimal) (decimal.Decimal, bool) {
	threshold, ok := topBountyThresholds[buyin.String()]
	return threshold, ok
}

// IsTierBuyin сообщает, входит ли бай-ин в таблицу призов
func IsTierBuyin(buyin decimal.Decimal) bool {
	_, ok := placePrizes[buyin.String()]
	return ok
}

// TierBuyins возвращает бай-ины таблицы призов по возрастанию
func TierBuyins() []decimal.Decimal {
	tiers := make([]decimal.Decimal, 0, len(placePrizes))
	for key := range placePrizes {
		tiers = append(tiers, decimal.RequireFromString(key))
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].LessThan(tiers[j]) })
	return tiers
}

// parseBuyin убирает валюту и читает ведущее число
func parseBuyin(text string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || strings.ContainsRune(currencySigns, r) {
			return -1
		}
		if r == ',' {
			return '.'
		}
		return r
	}, text)

	num := leadingNumber.FindString(cleaned)
	if num == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return roundMoney(d)
}

// parseAmount оставляет только цифры и точку, как в сумме "$1,234.56"
func parseAmount(text string) decimal.Decimal {
	num := leadingNumber.FindString(nonAmount.ReplaceAllString(text, ""))
	if num == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func hasCurrency(text string) bool {
	return strings.ContainsAny(text, currencySigns)
}

// parsePrize выбирает текст приза: вложенный элемент, затем ячейка.
// Прочерк или отсутствие суммы означает ноль.
func parsePrize(nested, cell string) decimal.Decimal {
	switch {
	case hasCurrency(nested):
		return roundMoney(parseAmount(nested))
	case hasCurrency(cell):
		return roundMoney(parseAmount(cell))
	default:
		return decimal.Zero
	}
}

// parsePlace ищет место сначала по порядковому суффиксу, затем по первым цифрам
func parsePlace(text string) int {
	num := ""
	if m := ordinalPlaceRegex.FindStringSubmatch(text); m != nil {
		num = m[1]
	} else {
		num = digitsRegex.FindString(text)
	}
	if num == "" {
		return 0
	}
	place, err := strconv.Atoi(num)
	if err != nil {
		return 0
	}
	return place
}

func parseKills(text string) int {
	kills, err := strconv.Atoi(nonDigits.ReplaceAllString(text, ""))
	if err != nil || kills < 0 {
		return 0
	}
	return kills
}

// DurationSeconds переводит "ЧЧ:ММ:СС" или "ММ:СС" в секунды
func DurationSeconds(duration string) int {
	parts := strings.Split(duration, ":")
	values := make([]int, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			v = 0
		}
		values[i] = v
	}

	switch len(values) {
	case 3:
		return values[0]*3600 + values[1]*60 + values[2]
	case 2:
		return values[0]*60 + values[1]
	default:
		return 0
	}
}

// splitBuyin делит бай-ин на призовой фонд, комиссию и баунти.
// Каждая доля округляется отдельно, сумма может отличаться от бай-ина на цент.
func splitBuyin(total decimal.Decimal) (pool, commission, bounty decimal.Decimal) {
	pool = roundMoney(total.Mul(prizePoolShare))
	commission = roundMoney(total.Mul(commissionShare))
	bounty = roundMoney(total.Mul(bountyShare))
	return pool, commission, bounty
}

// attributeKills раскладывает выбивания по зонам мест
func attributeKills(place, kills int) (money, noMoney int) {
	switch {
	case place >= 1 && place <= 8:
		return kills, 0
	case place >= 9 && place <= 18:
		return 0, kills
	default:
		return 0, 0
	}
}

// normalize заполняет денежные и производные поля записи.
// Предупреждения не прерывают строку и возвращаются вместе с записью.
func normalize(raw RawRow) (Record, []Diagnostic) {
	var warnings []Diagnostic
	warn := func(kind Kind, message, detail string) {
		warnings = append(warnings, Diagnostic{RowIndex: raw.Index, Kind: kind, Message: message, Detail: detail})
	}

	rec := Record{}

	rec.BuyinTotal = parseBuyin(raw.Buyin)
	if !rec.BuyinTotal.IsPositive() {
		rec.BuyinTotal = decimal.Zero
		warn(KindPossibleInvalidBuyin,
			fmt.Sprintf("possibly invalid buy-in %q, converted to 0", raw.Buyin),
			fmt.Sprintf("source text: %q", raw.Buyin))
	}
	rec.BuyinPrizePool, rec.BuyinCommission, rec.BuyinBounty = splitBuyin(rec.BuyinTotal)

	rec.FinishPlace = parsePlace(raw.Place)
	if rec.FinishPlace == 0 {
		warn(KindPlaceNotFound,
			fmt.Sprintf("finish place not found in %q, set to 0", raw.Place),
			fmt.Sprintf("source text: %q", raw.Place))
	}

	rec.Kills = parseKills(raw.Kills)
	rec.KillsMoney, rec.KillsNoMoney = attributeKills(rec.FinishPlace, rec.Kills)

	rec.Duration = raw.Duration
	if !durationRegex.MatchString(raw.Duration) {
		warn(KindUnusualDurationFormat,
			fmt.Sprintf("unusual duration format %q", raw.Duration),
			"expected HH:MM:SS or MM:SS")
	}
	rec.DurationSeconds = DurationSeconds(raw.Duration)

	rec.PrizeTotal = parsePrize(raw.PrizeNested, raw.PrizeCell)
	rec.PrizePlace = roundMoney(PlacePrize(rec.BuyinTotal, rec.FinishPlace))
	if rec.FinishPlace > 0 {
		rec.PrizeBounty = roundMoney(rec.PrizeTotal.Sub(rec.PrizePlace))
	} else {
		rec.PrizeBounty = decimal.Zero
	}
	rec.NetProfit = roundMoney(rec.PrizeTotal.Sub(rec.BuyinTotal))

	if threshold, ok := TopBountyThreshold(rec.BuyinTotal); ok && rec.FinishPlace > 0 {
		rec.IsTopBounty = rec.PrizeBounty.GreaterThanOrEqual(threshold)
	}

	return rec, warnings
}

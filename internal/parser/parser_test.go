package parser

import (
	"fmt"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)

func newTestParser() *Parser {
	return New(zap.NewNop()).WithClock(func() time.Time { return fixedNow })
}

type rowSpec struct {
	date, buyin, kills, duration, place, prize string
}

func (r rowSpec) html() string {
	cells := []string{
		"Bounty Hunters $1",
		r.date,
		"Hold'em",
		fmt.Sprintf("<app-buy-in>%s</app-buy-in>", r.buyin),
		"8",
		r.kills,
		r.duration,
		fmt.Sprintf("<ul><li>%s</li></ul>", r.place),
		r.prize,
	}
	return rawRow(cells...)
}

func rawRow(cells ...string) string {
	var b strings.Builder
	b.WriteString(`<div class="cdk-row" role="row">`)
	for _, c := range cells {
		b.WriteString(`<div class="cdk-cell">`)
		b.WriteString(c)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func document(rows ...string) string {
	return `<html><body><div class="cdk-table" role="table">` + strings.Join(rows, "") + `</div></body></html>`
}

var winRow = rowSpec{
	date:     "авг. 14, 18:30",
	buyin:    "$1",
	kills:    "2",
	duration: "12:34",
	place:    "1st",
	prize:    "<app-prize>$4.00</app-prize>",
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func kinds(diags []Diagnostic) []Kind {
	out := make([]Kind, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Kind)
	}
	return out
}

func TestParse_WinningRow(t *testing.T) {
	result, err := newTestParser().Parse(document(winRow.html()), "UTC")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, time.Date(2025, time.August, 14, 18, 30, 0, 0, time.UTC), rec.StartTime)
	assert.Equal(t, "2025-08-14 18:30", rec.LocalStartTime)
	assert.Equal(t, 4, rec.Weekday)
	assertMoney(t, "1", rec.BuyinTotal, "buyin_total")
	assert.Equal(t, 1, rec.FinishPlace)
	assertMoney(t, "4.00", rec.PrizeTotal, "prize_total")
	assertMoney(t, "4.00", rec.PrizePlace, "prize_place")
	assertMoney(t, "0", rec.PrizeBounty, "prize_bounty")
	assertMoney(t, "3.00", rec.NetProfit, "net_profit")
	assert.Equal(t, 2, rec.KillsMoney)
	assert.Equal(t, 0, rec.KillsNoMoney)
	assert.False(t, rec.IsTopBounty)
	assert.Equal(t, "12:34", rec.Duration)
	assert.Equal(t, 754, rec.DurationSeconds)
	assert.Len(t, rec.TournamentHash, 64)

	assert.Equal(t, RowStats{Total: 1, Parsed: 1, Skipped: 0}, result.Stats)
	assert.Empty(t, result.Diagnostics)
}

func TestParse_OutOfMoneyRow(t *testing.T) {
	row := winRow
	row.place = "9th"
	row.prize = "–"

	result, err := newTestParser().Parse(document(row.html()), "UTC")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, 9, rec.FinishPlace)
	assertMoney(t, "0", rec.PrizeTotal, "prize_total")
	assertMoney(t, "0", rec.PrizePlace, "prize_place")
	assertMoney(t, "0", rec.PrizeBounty, "prize_bounty")
	assertMoney(t, "-1.00", rec.NetProfit, "net_profit")
	assert.Equal(t, 0, rec.KillsMoney)
	assert.Equal(t, 2, rec.KillsNoMoney)
	assert.False(t, rec.IsITM())
}

func TestParse_SkippedRows(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want Kind
	}{
		{
			name: "unparseable date",
			row:  rowSpec{date: "????", buyin: "$1", kills: "0", duration: "10:00", place: "3rd", prize: "$2"}.html(),
			want: KindInvalidDateFormat,
		},
		{
			name: "too few cells",
			row:  rawRow("a", "авг. 14, 18:30", "b", "$1", "0"),
			want: KindInvalidStructure,
		},
		{
			name: "unknown month",
			row:  rowSpec{date: "foo 14, 18:30", buyin: "$1", kills: "0", duration: "10:00", place: "3rd", prize: "$2"}.html(),
			want: KindUnknownMonth,
		},
		{
			name: "day out of range",
			row:  rowSpec{date: "фев. 30, 10:00", buyin: "$1", kills: "0", duration: "10:00", place: "3rd", prize: "$2"}.html(),
			want: KindInvalidDate,
		},
		{
			name: "hour out of range",
			row:  rowSpec{date: "Aug 14, 25:10", buyin: "$1", kills: "0", duration: "10:00", place: "3rd", prize: "$2"}.html(),
			want: KindInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestParser().Parse(document(winRow.html(), tt.row), "UTC")
			require.NoError(t, err)

			assert.Len(t, result.Records, 1)
			assert.Equal(t, RowStats{Total: 2, Parsed: 1, Skipped: 1}, result.Stats)
			require.Len(t, result.Diagnostics, 1)
			assert.Equal(t, tt.want, result.Diagnostics[0].Kind)
			assert.Equal(t, 2, result.Diagnostics[0].RowIndex)
			assert.True(t, tt.want.IsFatal())
		})
	}
}

func TestParse_PanickingRowIsRecovered(t *testing.T) {
	p := newTestParser()
	p.normalize = func(raw RawRow) (Record, []Diagnostic) {
		if raw.Buyin == "$3" {
			panic("broken buy-in cell")
		}
		return normalize(raw)
	}

	broken := winRow
	broken.buyin = "$3"
	later := winRow
	later.date = "авг. 15, 20:00"

	result, err := p.Parse(document(winRow.html(), broken.html(), later.html()), "UTC")
	require.NoError(t, err)

	assert.Equal(t, RowStats{Total: 3, Parsed: 2, Skipped: 1}, result.Stats)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "2025-08-15 20:00", result.Records[1].LocalStartTime)

	require.Len(t, result.Diagnostics, 1)
	diag := result.Diagnostics[0]
	assert.Equal(t, KindParsingError, diag.Kind)
	assert.Equal(t, 2, diag.RowIndex)
	assert.Contains(t, diag.Message, "broken buy-in cell")
	assert.Contains(t, diag.Detail, "parseRow")
	assert.True(t, diag.Kind.IsFatal())
}

func TestParse_AdvisoryDiagnosticsKeepRow(t *testing.T) {
	row := rowSpec{date: "Aug 3, 09:05", buyin: "freeroll", kills: "x", duration: "1h 20m", place: "—", prize: "–"}

	result, err := newTestParser().Parse(document(row.html()), "UTC")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assertMoney(t, "0", rec.BuyinTotal, "buyin_total")
	assert.Equal(t, 0, rec.FinishPlace)
	assert.Equal(t, 0, rec.Kills)
	assert.Equal(t, "1h 20m", rec.Duration)
	assert.Equal(t, 0, rec.DurationSeconds)

	assert.ElementsMatch(t,
		[]Kind{KindPossibleInvalidBuyin, KindPlaceNotFound, KindUnusualDurationFormat},
		kinds(result.Diagnostics))
	for _, d := range result.Diagnostics {
		assert.False(t, d.Kind.IsFatal(), d.Kind.String())
		assert.Equal(t, 1, d.RowIndex)
	}
	assert.Equal(t, RowStats{Total: 1, Parsed: 1}, result.Stats)
}

func TestParse_EmptyDocument(t *testing.T) {
	result, err := newTestParser().Parse("<html><body><p>nothing here</p></body></html>", "UTC")
	require.NoError(t, err)

	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.Stats.Total)
	assert.Empty(t, result.Diagnostics)
	assert.True(t, result.IsEmpty())
}

func TestParse_TimezoneRequired(t *testing.T) {
	for _, tz := range []string{"", "   "} {
		result, err := newTestParser().Parse(document(winRow.html()), tz)
		assert.ErrorIs(t, err, ErrTimezoneRequired)
		assert.Nil(t, result)
	}
}

func TestParse_Timezone(t *testing.T) {
	result, err := newTestParser().Parse(document(winRow.html()), "Europe/Moscow")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	assert.Equal(t, time.Date(2025, time.August, 14, 15, 30, 0, 0, time.UTC), rec.StartTime)
	assert.Equal(t, "2025-08-14 18:30", rec.LocalStartTime)

	utc, err := newTestParser().Parse(document(winRow.html()), "UTC")
	require.NoError(t, err)
	assert.Equal(t, utc.Records[0].TournamentHash, rec.TournamentHash)
}

func TestParse_WeekdayInUserZone(t *testing.T) {
	row := winRow
	row.date = "авг. 14, 01:30"

	result, err := newTestParser().Parse(document(row.html()), "Asia/Tokyo")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	// 01:30 в Токио это среда 16:30 по UTC, день недели берется локальный
	assert.Equal(t, time.Wednesday, result.Records[0].StartTime.Weekday())
	assert.Equal(t, int(time.Thursday), result.Records[0].Weekday)
}

func TestParse_UnknownTimezone(t *testing.T) {
	result, err := newTestParser().Parse(document(winRow.html(), winRow.html()), "Mars/Olympus_Mons")
	require.NoError(t, err)

	assert.Empty(t, result.Records)
	assert.Equal(t, RowStats{Total: 2, Skipped: 2}, result.Stats)
	assert.Equal(t, []Kind{KindInvalidDate, KindInvalidDate}, kinds(result.Diagnostics))
}

func TestParse_TopBounty(t *testing.T) {
	tests := []struct {
		name       string
		row        rowSpec
		wantBounty string
		wantTop    bool
	}{
		{
			name:       "second place with big bounty",
			row:        rowSpec{date: "Aug 1, 10:00", buyin: "$1", kills: "4", duration: "40:00", place: "2nd", prize: "<app-prize>$15.00</app-prize>"},
			wantBounty: "12",
			wantTop:    true,
		},
		{
			name:       "exactly at threshold",
			row:        rowSpec{date: "Aug 1, 10:00", buyin: "$0.25", kills: "1", duration: "40:00", place: "5th", prize: "$2.50"},
			wantBounty: "2.5",
			wantTop:    true,
		},
		{
			name:       "below threshold",
			row:        rowSpec{date: "Aug 1, 10:00", buyin: "$3", kills: "1", duration: "40:00", place: "1st", prize: "$40"},
			wantBounty: "28",
			wantTop:    false,
		},
		{
			name:       "unlisted buy-in never flags",
			row:        rowSpec{date: "Aug 1, 10:00", buyin: "$2", kills: "3", duration: "40:00", place: "4th", prize: "$500"},
			wantBounty: "500",
			wantTop:    false,
		},
		{
			name:       "unknown place never flags",
			row:        rowSpec{date: "Aug 1, 10:00", buyin: "$1", kills: "3", duration: "40:00", place: "?", prize: "$50"},
			wantBounty: "0",
			wantTop:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := newTestParser().Parse(document(tt.row.html()), "UTC")
			require.NoError(t, err)
			require.Len(t, result.Records, 1)

			rec := result.Records[0]
			assertMoney(t, tt.wantBounty, rec.PrizeBounty, "prize_bounty")
			assert.Equal(t, tt.wantTop, rec.IsTopBounty)
		})
	}
}

func TestParse_HashIdempotent(t *testing.T) {
	doc := document(winRow.html(), winRow.html())

	first, err := newTestParser().Parse(doc, "UTC")
	require.NoError(t, err)
	second, err := newTestParser().Parse(doc, "UTC")
	require.NoError(t, err)

	require.Len(t, first.Records, 2)
	assert.Equal(t, first.Records[0].TournamentHash, first.Records[1].TournamentHash)
	assert.Equal(t, first.Records[0].TournamentHash, second.Records[0].TournamentHash)

	other := winRow
	other.kills = "3"
	third, err := newTestParser().Parse(document(other.html()), "UTC")
	require.NoError(t, err)
	assert.NotEqual(t, first.Records[0].TournamentHash, third.Records[0].TournamentHash)
}

func TestParse_DocumentOrder(t *testing.T) {
	var rows []string
	for day := 1; day <= 5; day++ {
		r := winRow
		r.date = fmt.Sprintf("сентября %d 20:00", day)
		rows = append(rows, r.html())
	}

	result, err := newTestParser().Parse(document(rows...), "UTC")
	require.NoError(t, err)
	require.Len(t, result.Records, 5)
	for i, rec := range result.Records {
		assert.Equal(t, i+1, rec.StartTime.Day())
		assert.Equal(t, time.September, rec.StartTime.Month())
	}
}

func TestParse_Invariants(t *testing.T) {
	places := []string{"1st", "2nd", "3rd", "4th", "8th", "9th", "12th", "18th", "19th", "45th", "—"}
	buyins := []string{"$0.25", "$1", "$3", "$10", "$25", "$2.20", "$0.55"}
	prizes := []string{"–", "$0.33", "$1.00", "$7.77", "$123.45"}

	var rows []string
	for _, place := range places {
		for _, buyin := range buyins {
			for _, prize := range prizes {
				rows = append(rows, rowSpec{
					date: "Sep 1, 12:00", buyin: buyin, kills: "3", duration: "1:02:03", place: place, prize: prize,
				}.html())
			}
		}
	}
	rows = append(rows, rawRow("broken"), rowSpec{date: "??", buyin: "$1"}.html())

	result, err := newTestParser().Parse(document(rows...), "UTC")
	require.NoError(t, err)

	assert.Equal(t, result.Stats.Total, result.Stats.Parsed+result.Stats.Skipped)
	assert.Equal(t, len(rows), result.Stats.Total)
	assert.Equal(t, 2, result.Stats.Skipped)

	cent := decimal.RequireFromString("0.01")
	for _, rec := range result.Records {
		shares := rec.BuyinPrizePool.Add(rec.BuyinCommission).Add(rec.BuyinBounty)
		assert.True(t, shares.Sub(rec.BuyinTotal).Abs().LessThanOrEqual(cent), "buy-in shares must add up")

		if rec.FinishPlace > 0 {
			sum := rec.PrizePlace.Add(rec.PrizeBounty)
			assert.True(t, sum.Sub(rec.PrizeTotal).Abs().LessThanOrEqual(cent), "prize split must add up")
		}

		assert.LessOrEqual(t, rec.KillsMoney+rec.KillsNoMoney, rec.Kills)
		assert.False(t, rec.KillsMoney > 0 && rec.KillsNoMoney > 0)
		if rec.FinishPlace >= 1 && rec.FinishPlace <= 18 {
			assert.Equal(t, rec.Kills, rec.KillsMoney+rec.KillsNoMoney)
		} else {
			assert.Zero(t, rec.KillsMoney+rec.KillsNoMoney)
		}

		assert.Equal(t, 3723, rec.DurationSeconds)
		assert.True(t, rec.NetProfit.Equal(rec.PrizeTotal.Sub(rec.BuyinTotal)))
	}
}

func TestParse_ConcurrentCalls(t *testing.T) {
	p := newTestParser()
	doc := document(winRow.html(), winRow.html(), rawRow("x"))

	done := make(chan *Result, 8)
	for i := 0; i < 8; i++ {
		go func() {
			result, err := p.Parse(doc, "UTC")
			if err != nil {
				done <- nil
				return
			}
			done <- result
		}()
	}

	for i := 0; i < 8; i++ {
		result := <-done
		require.NotNil(t, result)
		assert.Equal(t, RowStats{Total: 3, Parsed: 2, Skipped: 1}, result.Stats)
	}
}

func TestResult_Preview(t *testing.T) {
	result := &Result{}
	for i := 1; i <= 12; i++ {
		result.Diagnostics = append(result.Diagnostics, Diagnostic{RowIndex: i, Kind: KindInvalidDate})
	}

	assert.Len(t, result.Preview(5), 5)
	assert.Equal(t, 5, result.Preview(5)[4].RowIndex)
	assert.Len(t, result.Preview(20), 12)
	assert.Len(t, result.Preview(0), 12)
}

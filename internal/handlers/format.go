package handlers

import (
	"fmt"
	"html"
	"strings"
	"time"

	"pokerstats/internal/model"
	"pokerstats/internal/parser"
	"pokerstats/internal/service"

	"github.com/shopspring/decimal"
)

const historyTimeLayout = "02.01.2006 15:04"

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func signedMoney(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + money(d)
	}
	return money(d)
}

// formatStats форматирует статистику для сообщения
func formatStats(stats *service.Stats, buyin decimal.NullDecimal) string {
	var b strings.Builder

	title := "📊 <b>Статистика</b>"
	if buyin.Valid {
		title += fmt.Sprintf(" (бай-ин %s)", money(buyin.Decimal))
	}
	b.WriteString(title + "\n\n")

	if stats.Tournaments == 0 {
		b.WriteString("Турниров не найдено. Загрузите HTML выгрузку истории PokerCraft.")
		return b.String()
	}

	fmt.Fprintf(&b, "🎲 Турниров: <b>%d</b>\n", stats.Tournaments)
	fmt.Fprintf(&b, "💵 Бай-ины: %s (комиссия %s)\n", money(stats.Buyins), money(stats.Commission))
	fmt.Fprintf(&b, "🏆 Призы: %s, из них баунти %s\n", money(stats.Prizes), money(stats.Bounties))
	fmt.Fprintf(&b, "📈 Итог: <b>%s</b>, ROI <b>%s%%</b>\n", signedMoney(stats.Result()), stats.ROI().StringFixed(2))
	if stats.IncludeRakeback {
		fmt.Fprintf(&b, "   без рейкбека: %s, ROI %s%%\n", signedMoney(stats.NetProfit), stats.BaseROI.StringFixed(2))
	}
	fmt.Fprintf(&b, "💸 Рейкбек %s%%: %s\n\n", stats.RakebackPercent.String(), money(stats.RakebackReceived))

	fmt.Fprintf(&b, "🥇 Первых мест: %d\n", stats.FirstPlaces)
	fmt.Fprintf(&b, "🥉 Топ-3: %d, ITM: %d, вне призов: %d\n", stats.Top3, stats.ITM, stats.OutOfMoney)
	fmt.Fprintf(&b, "🔟 Топ-10: %d, дальше: %d\n\n", stats.Top10, stats.OutOfTop10)

	fmt.Fprintf(&b, "🎯 Выбиваний: %d (в призах %d, без приза %d)\n", stats.Knockouts, stats.KnockoutsMoney, stats.KnockoutsNoMoney)
	fmt.Fprintf(&b, "💰 Средняя цена выбивания: %s\n", money(stats.AvgKnockoutPrice))
	fmt.Fprintf(&b, "⭐ Топ-баунти: %d", stats.TopBounties)

	return b.String()
}

// formatHistory форматирует страницу истории в поясе пользователя
func formatHistory(page model.Page[model.Tournament], loc *time.Location) string {
	if page.Total == 0 {
		return "📋 Турниров не найдено."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>История</b>: страница %d из %d, всего %d\n\n", page.Page, page.TotalPages, page.Total)
	for _, t := range page.Items {
		place := "?"
		if t.FinishPlace > 0 {
			place = fmt.Sprintf("%d", t.FinishPlace)
		}
		fmt.Fprintf(&b, "%s  %s  место %s  приз %s  KO %d",
			t.StartTime.In(loc).Format(historyTimeLayout), money(t.BuyinTotal), place, money(t.PrizeTotal), t.Kills)
		if t.IsTopBounty {
			b.WriteString(" ⭐")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatImportSummary форматирует итог импорта
func formatImportSummary(summary *service.ImportSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "✅ <b>Импорт завершен</b>: %s\n\n", html.EscapeString(summary.FileName))
	fmt.Fprintf(&b, "🕐 Часовой пояс: %s\n", html.EscapeString(summary.Timezone))
	fmt.Fprintf(&b, "📄 Строк в таблице: %d, разобрано %d, пропущено %d\n",
		summary.Parse.Total, summary.Parse.Parsed, summary.Parse.Skipped)
	fmt.Fprintf(&b, "➕ Новых турниров: <b>%d</b> (%d%%)\n", summary.Imported, summary.Percentage)
	fmt.Fprintf(&b, "🔁 Уже были загружены: %d\n", summary.Duplicates)
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "❌ Ошибок сохранения: %d\n", summary.Failed)
	}

	if summary.DiagnosticCount > 0 {
		fmt.Fprintf(&b, "\n⚠️ Замечаний при разборе: %d\n", summary.DiagnosticCount)
		writeDiagnostics(&b, summary.Diagnostics)
	}
	return b.String()
}

// formatNoTournaments объясняет, почему из файла ничего не импортировано
func formatNoTournaments(err *service.NoTournamentsError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ В файле не найдено ни одного турнира.\nСтрок в таблице: %d, пропущено: %d\n",
		err.Stats.Total, err.Stats.Skipped)
	if len(err.Diagnostics) > 0 {
		b.WriteString("\n")
		writeDiagnostics(&b, err.Diagnostics)
	}
	return b.String()
}

func writeDiagnostics(b *strings.Builder, diagnostics []parser.Diagnostic) {
	for _, d := range diagnostics {
		fmt.Fprintf(b, "• строка %d: %s\n", d.RowIndex, html.EscapeString(d.Message))
	}
}

// formatUsers форматирует список пользователей для администратора
func formatUsers(users []model.UserSummary) string {
	if len(users) == 0 {
		return "👥 Пользователей нет."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 <b>Пользователи</b>: %d\n\n", len(users))
	for _, u := range users {
		role := ""
		if u.IsAdmin() {
			role = " 🔧"
		}
		fmt.Fprintf(&b, "%s (<code>%d</code>)%s: турниров %d, итог %s\n",
			html.EscapeString(u.DisplayName()), u.ID, role, u.TournamentsCount, signedMoney(u.TotalNetProfit))
	}
	return b.String()
}

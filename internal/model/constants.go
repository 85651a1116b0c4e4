// Package model содержит константы для моделей.
//
// Группа: BASE - Базовые компоненты
// Содержит: Role, SortField, PlaceFilter, ImportOutcome
package model

// Role представляет роль пользователя
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// String возвращает строковое представление роли
func (r Role) String() string {
	return string(r)
}

// IsValid проверяет валидность роли
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// SortField представляет поле сортировки списка турниров
type SortField string

const (
	SortStartTime   SortField = "start_time"
	SortBuyinTotal  SortField = "buyin_total"
	SortPrizeTotal  SortField = "prize_total"
	SortPrizeBounty SortField = "prize_bounty"
	SortFinishPlace SortField = "finish_place"
	SortKills       SortField = "kills"
	SortDuration    SortField = "duration_seconds"
)

// IsValid проверяет, что по полю разрешено сортировать
func (s SortField) IsValid() bool {
	switch s {
	case SortStartTime, SortBuyinTotal, SortPrizeTotal, SortPrizeBounty, SortFinishPlace, SortKills, SortDuration:
		return true
	default:
		return false
	}
}

// ParseSortField разбирает имя поля сортировки, "duration" принимается как синоним
func ParseSortField(s string) (SortField, bool) {
	if s == "duration" {
		return SortDuration, true
	}
	f := SortField(s)
	return f, f.IsValid()
}

// PlaceFilter представляет фильтр по результату турнира
type PlaceFilter string

const (
	PlaceAny    PlaceFilter = ""
	PlaceITM    PlaceFilter = "itm"
	PlaceNoITM  PlaceFilter = "no_itm"
	PlaceTop4_6 PlaceFilter = "top4-6"
)

// IsValid проверяет валидность фильтра
func (p PlaceFilter) IsValid() bool {
	switch p {
	case PlaceAny, PlaceITM, PlaceNoITM, PlaceTop4_6:
		return true
	default:
		return false
	}
}

// ImportOutcome представляет результат сохранения одной записи
type ImportOutcome string

const (
	OutcomeInserted  ImportOutcome = "inserted"
	OutcomeDuplicate ImportOutcome = "duplicate"
	OutcomeFailed    ImportOutcome = "failed"
)

// String возвращает строковое представление результата
func (o ImportOutcome) String() string {
	return string(o)
}

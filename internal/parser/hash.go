package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// TournamentHash строит ключ дедупликации турнира.
// Используется локальная строка даты до перевода в UTC, поэтому одинаковые строки выгрузки
// всегда дают одинаковый хэш.
func TournamentHash(localStart string, buyin decimal.Decimal, place int, prize decimal.Decimal, kills int) string {
	key := strings.Join([]string{
		localStart,
		buyin.String(),
		strconv.Itoa(place),
		prize.String(),
		strconv.Itoa(kills),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

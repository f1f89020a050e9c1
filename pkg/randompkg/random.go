// Package randompkg provides functionality gor generating random applications common items.
package randompkg

import (
	"crypto/rand"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz"
	digits   = "0123456789"
)

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// Float64 is a shortcut for generating a random float between 0 and 1 using crypto/rand.
func Float64() float64 {
	return float64(Intn(1<<32)) / (1 << 32)
}

// IntBetween generates a random integer between min and max inclusive.
func IntBetween(min, max int) int {
	return min + int(Intn(max-min+1))
}

// FloatBetween generates a random decimal number between min and max rounded to 2 decimals.
func FloatBetween(min, max float64) float64 {
	numInRange := min + Float64()*(max-min)
	return math.Floor(numInRange*100) / 100
}

func fromCharset(charset string, n int) string {
	var sb strings.Builder

	k := len(charset)

	for i := 0; i < n; i++ {
		c := charset[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// String generates a random string of length n.
func String(n int) string {
	return fromCharset(alphabet, n)
}

// Digits generates a random numeric string of length n, leading zeros included.
//
// Every digit is drawn from crypto/rand so the result is suitable for one-time codes.
func Digits(n int) string {
	return fromCharset(digits, n)
}

// Owner generates a random owner id.
func Owner() string {
	return String(6)
}

// AccountNumber generates a random German style public account number.
func AccountNumber() string {
	return "DE" + Digits(20)
}

// MoneyAmountBetween generates a random amount of money between min and max rounded to 2 decimals.
func MoneyAmountBetween(min, max float64) decimal.Decimal {
	return decimal.NewFromFloat(FloatBetween(min, max))
}

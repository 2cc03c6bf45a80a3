// Package utils provides shared formatting helpers.
package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatUSD formats an amount as US dollars with thousands separators and two
// decimals, e.g. -$1,234.50.
func FormatUSD(amount float64) string {
	return groupFixed(amount, 2, "$")
}

// FormatPrice formats a quote price. Sub-dollar coins get more decimals so a
// DOGE move is still visible.
func FormatPrice(price float64) string {
	places := int32(2)
	switch abs := math.Abs(price); {
	case abs == 0:
	case abs < 1:
		places = 6
	case abs < 100:
		places = 4
	}
	return groupFixed(price, places, "")
}

// FormatQty formats a crypto quantity with up to eight decimals and no
// trailing zeros.
func FormatQty(qty float64) string {
	return decimal.NewFromFloat(qty).Round(8).String()
}

// groupFixed rounds value to places and inserts thousands separators. prefix
// goes between the sign and the digits.
func groupFixed(value float64, places int32, prefix string) string {
	d := decimal.NewFromFloat(value).Round(places)
	negative := d.IsNegative()
	str := d.Abs().StringFixed(places)

	intPart, decPart, _ := strings.Cut(str, ".")
	out := prefix + groupThousands(intPart)
	if places > 0 {
		out += "." + decPart
	}
	if negative {
		out = "-" + out
	}
	return out
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatPercent formats a percentage value with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatRatio formats a fraction (0.003) as a signed percentage (+0.30%).
func FormatRatio(fraction float64) string {
	return FormatPercent(fraction * 100)
}

// FormatPnL formats P&L with an explicit sign.
func FormatPnL(pnl float64) string {
	formatted := FormatUSD(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatCompact formats large amounts as K/M/B.
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", amount/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", amount/1e6)
	case abs >= 1e4:
		return fmt.Sprintf("$%.1fK", amount/1e3)
	}
	return FormatUSD(amount)
}

// FormatDuration formats a hold time as 4m05s, or 1h02m once past an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

package checkout

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"festreg/src/config"
	"festreg/src/models"
)

// ParsePrice extracts the numeric amount from a display price string such
// as "₹2,999" or "₹499.50". "Free" and anything unparsable yield 0; the
// function never fails.
func ParsePrice(s string) float64 {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.EqualFold(trimmed, "free") {
		return 0
	}
	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

func FormatPrice(v float64) string {
	return fmt.Sprintf("%.2f", Round2(v))
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TotalPrice sums the parsed event prices plus the visitor-pass days at
// the per-day rate. Rounding happens here, exactly once per derivation.
func TotalPrice(events []models.EventCatalogItem, visitorPassDays int) float64 {
	total := float64(visitorPassDays) * config.VISITOR_PASS_DAY_RATE
	for _, ev := range events {
		total += ParsePrice(ev.Price)
	}
	return Round2(total)
}

// FinalPrice applies a discount, floored at zero.
func FinalPrice(total, discount float64) float64 {
	return Round2(math.Max(0, total-discount))
}

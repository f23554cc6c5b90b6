package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPrice formats a price, keeping more precision for penny prices.
func FormatPrice(price float64) string {
	if price >= 10 || price <= -10 {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.4f", price)
}

// FormatVolume formats volume in compact form.
func FormatVolume(volume int64) string {
	switch {
	case volume >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(volume)/1_000_000_000)
	case volume >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(volume)/1_000_000)
	case volume >= 1_000:
		return fmt.Sprintf("%.2fK", float64(volume)/1_000)
	}
	return fmt.Sprintf("%d", volume)
}

// FormatDate formats a date in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FormatDateTime formats a datetime in UTC.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatRiskReward formats a risk-reward ratio.
func FormatRiskReward(rr float64) string {
	return fmt.Sprintf("1:%.2f", rr)
}

// FormatDistance formats how far price sits from a pivot, as a percentage of the pivot.
func FormatDistance(price, pivot float64) string {
	if pivot == 0 {
		return "-"
	}
	return FormatPercent((price - pivot) / pivot * 100)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// PadRight pads a string to the right.
func PadRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// formatComponents renders score components sorted by name, e.g. "depth=15 rim=10".
func formatComponents(components map[string]int) string {
	keys := make([]string, 0, len(components))
	for k := range components {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, components[k])
	}
	return strings.Join(parts, " ")
}

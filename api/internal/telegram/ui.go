package telegram

import (
	"strconv"
	"strings"

	"banknote-reader/api/internal/ocr/types"
)

// FormatResult puts the speech text first and a short detail line under it.
func FormatResult(res types.DetectionResult) string {
	var b strings.Builder
	b.WriteString("🔊 ")
	b.WriteString(strings.TrimSpace(res.SpeechText))
	b.WriteString("\n\n")

	denom := "unknown"
	if res.Denomination != nil {
		denom = "₹" + strconv.Itoa(*res.Denomination)
	}
	valid := "partial"
	if res.FullValidation {
		valid = "full"
	}
	b.WriteString("side: " + string(res.Side) + " | denomination: " + denom + " | validation: " + valid)
	return b.String()
}

package normalization

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Lot normalization statuses.
const (
	LotStatusOK          = "ok"
	LotStatusNeedsReview = "needs_review"
)

// lotPattern matches a compacted lot identifier: LOT prefix, 8-digit date part,
// 3-digit sequence part. Precompiled to avoid recompilation in row loops.
var lotPattern = regexp.MustCompile(`^LOT(\d{8})(\d{3})$`)

// lotSeparators are the separator runs stripped before pattern matching.
var lotSeparators = regexp.MustCompile(`[\s\-_]+`)

// dateLayouts are the accepted date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02.01.2006",
}

// LotNormalization is the result of normalizing a raw lot identifier.
// CanonicalLotID is non-empty if and only if Status is LotStatusOK.
type LotNormalization struct {
	CanonicalLotID string `json:"canonical_lot_id"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
}

// ParseDate parses mixed-format date values into a day-granularity time.
// It never fails hard: the boolean reports success and the string carries the
// reason callers surface to users when a row gets flagged.
func ParseDate(value any) (time.Time, bool, string) {
	if value == nil {
		return time.Time{}, false, "Date is empty"
	}
	if t, ok := value.(time.Time); ok {
		if t.IsZero() {
			return time.Time{}, false, "Date is empty"
		}
		return truncateToDay(t), true, ""
	}

	text := strings.TrimSpace(fmt.Sprintf("%v", value))
	if text == "" {
		return time.Time{}, false, "Date is empty"
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return truncateToDay(t), true, ""
		}
	}
	return time.Time{}, false, fmt.Sprintf("Unparseable date value: '%v'", value)
}

// NormalizeLotID normalizes a raw lot identifier to the canonical
// LOT-YYYYMMDD-XXX format.
//
// Rules:
// - trim whitespace, uppercase
// - correct the common typo prefix L0T -> LOT (zero instead of letter O)
// - strip space/hyphen/underscore separators so compact forms like
//   LOT20260101001 are accepted
// - reject values whose compacted form does not match the expected pattern
//
// The function is deterministic and idempotent: normalizing an already
// canonical identifier returns it unchanged.
func NormalizeLotID(value any) LotNormalization {
	text := ""
	if value != nil {
		text = strings.TrimSpace(fmt.Sprintf("%v", value))
	}
	if text == "" {
		return LotNormalization{Status: LotStatusNeedsReview, Reason: "Lot ID is empty/blank"}
	}

	corrected := strings.ReplaceAll(strings.ToUpper(text), "L0T", "LOT")
	compact := lotSeparators.ReplaceAllString(corrected, "")

	match := lotPattern.FindStringSubmatch(compact)
	if match == nil {
		return LotNormalization{
			Status: LotStatusNeedsReview,
			Reason: fmt.Sprintf("Lot ID does not match expected pattern: '%v'", value),
		}
	}

	return LotNormalization{
		CanonicalLotID: fmt.Sprintf("LOT-%s-%s", match[1], match[2]),
		Status:         LotStatusOK,
	}
}

// TruthyFlag converts mixed indicator values into a boolean flag.
// Accepted truthy values are Yes/Y/True/T/1 (case-insensitive); booleans pass
// through and nil/empty values are false.
func TruthyFlag(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	}

	text := strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	switch text {
	case "yes", "y", "true", "t", "1":
		return true
	}
	return false
}

// truncateToDay drops the time-of-day component.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

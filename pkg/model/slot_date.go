package model

import (
	"fmt"
	"time"
)

// SlotDateLayout is the single canonical storage and wire format for slot
// dates. The legacy "15_03_2025" and "15/03/2025" forms are rejected at the
// boundary.
const SlotDateLayout = "2006-01-02"

// SlotDate is a calendar date in canonical form, used as the key of a
// doctor's slot ledger.
type SlotDate string

func ParseSlotDate(s string) (SlotDate, error) {
	t, err := time.Parse(SlotDateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid slot date %q, must be YYYY-MM-DD: %w", s, err)
	}
	// Round-trip guard: rejects non-normalized inputs like "2025-3-5".
	if t.Format(SlotDateLayout) != s {
		return "", fmt.Errorf("invalid slot date %q, must be YYYY-MM-DD", s)
	}
	return SlotDate(s), nil
}

func NewSlotDate(t time.Time) SlotDate {
	return SlotDate(t.Format(SlotDateLayout))
}

func (d SlotDate) String() string {
	return string(d)
}

// Time returns the date at midnight UTC.
func (d SlotDate) Time() time.Time {
	t, _ := time.Parse(SlotDateLayout, string(d))
	return t
}

func (d SlotDate) IsZero() bool {
	return d == ""
}

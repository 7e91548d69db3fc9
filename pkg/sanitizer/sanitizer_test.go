package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only spaces", "   ", ""},
		{"leading and trailing", "  John Doe  ", "John Doe"},
		{"internal runs", "John \t  Doe", "John Doe"},
		{"newlines", "line\none", "line one"},
		{"already clean", "John Doe", "John Doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain digits", "0501234567", "0501234567"},
		{"e164", "+972501234567", "+972501234567"},
		{"with separators", "+1 (555) 123-4567", "+15551234567"},
		{"letters rejected", "phone123", ""},
		{"bare plus rejected", "+", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	inputs := []string{"+972 50-123-4567", "0501234567", "bad input"}
	for _, in := range inputs {
		once := NormalizePhone(in)
		if twice := NormalizePhone(once); twice != once {
			t.Errorf("NormalizePhone not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeSlotTime(t *testing.T) {
	if got := NormalizeSlotTime("  10:00  am "); got != "10:00 AM" {
		t.Errorf("NormalizeSlotTime = %q", got)
	}
}

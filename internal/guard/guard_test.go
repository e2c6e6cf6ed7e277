package guard

import (
	"strings"
	"testing"
)

func TestIsEmpty(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"oui", false},
		{" . ", false},
	}
	for _, tc := range tests {
		if got := IsEmpty(tc.in); got != tc.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsTooLong(t *testing.T) {
	if IsTooLong(strings.Repeat("a", 500), 500) {
		t.Error("exactly 500 chars should pass")
	}
	if !IsTooLong(strings.Repeat("a", 501), 500) {
		t.Error("501 chars should be rejected")
	}
	// Runes, not bytes: 500 accented chars are 1000 bytes but still fit.
	if IsTooLong(strings.Repeat("é", 500), 500) {
		t.Error("500 accented runes should pass")
	}
	// Non-positive max falls back to the default.
	if IsTooLong(strings.Repeat("a", 500), 0) {
		t.Error("default cap should admit 500 chars")
	}
	if !IsTooLong(strings.Repeat("a", 501), 0) {
		t.Error("default cap should reject 501 chars")
	}
}

func TestIsFrench(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"plain french", "bonjour je voudrais un rendez-vous", true},
		{"short ambiguous", "ok", true},
		{"single english word", "hello", true}, // one marker is not enough
		{"clear english", "hello can you book an appointment please", false},
		{"mixed leans french", "hello bonjour je voudrais un rdv", true},
		{"cyrillic", "Здравствуйте как дела сегодня", false},
		{"empty", "", true},
		{"digits only", "0612345678", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsFrench(tc.in); got != tc.want {
				t.Errorf("IsFrench(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsSpamOrAbuse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"normal", "je voudrais un rendez-vous demain matin", false},
		{"insult", "espèce de connard", true},
		{"url flood", "visitez http://a.example et https://b.example maintenant", true},
		{"single url ok", "mon site est https://exemple.fr", false},
		{"repetition", strings.Repeat("a", 25), true},
		{"noise", strings.Repeat("#$%", 20), true},
		{"short punctuation ok", "!!!", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsSpamOrAbuse(tc.in); got != tc.want {
				t.Errorf("IsSpamOrAbuse(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestCleanVocalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"euh alors je m'appelle Jean Dupont", "je m appelle jean dupont"},
		{"Bah Martin", "martin"},
		{"Jean Dupont", "jean dupont"},
		{"euh hum", ""},
	}
	for _, tc := range tests {
		if got := CleanVocalName(tc.in); got != tc.want {
			t.Errorf("CleanVocalName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

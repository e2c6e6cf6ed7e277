package frtext

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bonjour", "bonjour"},
		{"J'aimerais un RDV", "j aimerais un rdv"},
		{"préférence l'après-midi", "preference l apres-midi"},
		{"ÉÈÊË àâä ç", "eeee aaa c"},
		{"Ça c’est noté", "ca c est note"},
		{"", ""},
		{"123 !?", "123 !?"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Bonjour, je voudrais un rendez-vous.", []string{"bonjour", "je", "voudrais", "un", "rendez-vous"}},
		{"C'est ça !", []string{"c", "est", "ca"}},
		{"  ", nil},
		{"oui", []string{"oui"}},
	}
	for _, tc := range tests {
		got := Tokens(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tokens(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestHasToken(t *testing.T) {
	tests := []struct {
		text  string
		token string
		want  bool
	}{
		{"non merci", "non", true},
		{"nonante", "non", false}, // whole-token only
		{"Oui, parfait", "oui", true},
		{"je dis OUI", "oui", true},
		{"", "oui", false},
	}
	for _, tc := range tests {
		if got := HasToken(tc.text, tc.token); got != tc.want {
			t.Errorf("HasToken(%q, %q) = %v, want %v", tc.text, tc.token, got, tc.want)
		}
	}
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		text   string
		phrase string
		want   bool
	}{
		{"Je voudrais ANNULER mon rendez-vous", "annuler", true},
		{"c'est pas ça du tout", "c est pas ca", true},
		{"à plus tard", "a plus", true},
		{"rien à voir", "annuler", false},
	}
	for _, tc := range tests {
		if got := ContainsPhrase(tc.text, tc.phrase); got != tc.want {
			t.Errorf("ContainsPhrase(%q, %q) = %v, want %v", tc.text, tc.phrase, got, tc.want)
		}
	}
}

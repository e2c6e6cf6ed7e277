package faq

import (
	"context"
	"testing"
)

func testCorpus() map[string][]Entry {
	return map[string][]Entry{
		"cabinet": {
			{
				ID:       "horaires",
				Question: "Quels sont vos horaires d'ouverture ?",
				Patterns: []string{"vous etes ouverts quand", "heures d'ouverture"},
				Answer:   "Nous sommes ouverts de 9h à 17h.",
			},
			{
				ID:       "adresse",
				Question: "Où se trouve le cabinet ?",
				Patterns: []string{"quelle est votre adresse", "comment venir"},
				Answer:   "12 rue de la République, Paris.",
			},
			{
				ID:       "tarifs",
				Question: "Quels sont vos tarifs ?",
				Patterns: []string{"combien coute une consultation", "c'est quel prix"},
				Answer:   "La consultation est à 30 euros.",
			},
		},
	}
}

func TestLexical_Match(t *testing.T) {
	m := NewLexical(testCorpus())
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		wantID   string
		minScore float64
	}{
		{"exact question", "Quels sont vos horaires d'ouverture ?", "horaires", 0.99},
		{"pattern form", "vous êtes ouverts quand ?", "horaires", 0.80},
		{"reordered tokens", "vos horaires d'ouverture c'est quoi", "horaires", 0.55},
		{"address", "quelle est votre adresse exactement", "adresse", 0.55},
		{"price", "combien coûte une consultation ?", "tarifs", 0.90},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := m.Match(ctx, "cabinet", tc.query)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if got.ID != tc.wantID {
				t.Errorf("matched %q (%.2f), want %q", got.ID, got.Score, tc.wantID)
			}
			if got.Score < tc.minScore {
				t.Errorf("score = %.2f, want >= %.2f", got.Score, tc.minScore)
			}
		})
	}
}

func TestLexical_OffTopicScoresLow(t *testing.T) {
	m := NewLexical(testCorpus())
	got, err := m.Match(context.Background(), "cabinet", "je voudrais réserver une table pour deux")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Score >= 0.80 {
		t.Errorf("off-topic query scored %.2f (%q), want below threshold", got.Score, got.ID)
	}
}

func TestLexical_UnknownTenant(t *testing.T) {
	m := NewLexical(testCorpus())
	got, err := m.Match(context.Background(), "nobody", "quels sont vos horaires")
	if err != nil {
		t.Fatalf("unknown tenant must not error: %v", err)
	}
	if got.Score != 0 || got.ID != "" {
		t.Errorf("unknown tenant matched %+v, want zero", got)
	}
}

func TestLexical_EmptyQuery(t *testing.T) {
	m := NewLexical(testCorpus())
	got, err := m.Match(context.Background(), "cabinet", "   ")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Score != 0 {
		t.Errorf("empty query scored %.2f, want 0", got.Score)
	}
}

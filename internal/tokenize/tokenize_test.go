package tokenize

import (
	"testing"
)

func TestTokens(t *testing.T) {
	got := Tokens("  Quantum   Entanglement\tdistance\n")
	want := []string{"quantum", "entanglement", "distance"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"a b c", "a b c", 1},
		{"a b", "c d", 0},
		{"a b c d", "a b", 0.5},
		{"", "", 0},
		{"A B", "a b", 1},
	}
	for _, tt := range tests {
		got := Jaccard(Set(tt.a), Set(tt.b))
		if got != tt.want {
			t.Errorf("Jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestKeyTerms(t *testing.T) {
	terms := KeyTerms("The pattern of the pattern with energy and with mass", DefaultOptions())
	want := []string{"pattern", "energy", "mass"}
	if len(terms) != len(want) {
		t.Fatalf("expected %v, got %v", want, terms)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Errorf("term %d: expected %q, got %q", i, want[i], terms[i])
		}
	}
}

func TestKeyTermsCap(t *testing.T) {
	text := "alpha bravo charlie delta echoes foxtrot golfs hotel india juliet kilo lima"
	terms := KeyTerms(text, DefaultOptions())
	if len(terms) != DefaultMaxTerms {
		t.Fatalf("expected %d terms, got %d: %v", DefaultMaxTerms, len(terms), terms)
	}
	if terms[len(terms)-1] != "juliet" {
		t.Errorf("expected last term juliet, got %q", terms[len(terms)-1])
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("First one. Second one.  . Third")
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %v", len(got), got)
	}
	if got[1] != "Second one" {
		t.Errorf("expected trimmed sentence, got %q", got[1])
	}
}

func TestSentencesEmpty(t *testing.T) {
	if got := Sentences(""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

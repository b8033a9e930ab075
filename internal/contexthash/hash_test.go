package contexthash

import (
	"testing"

	"github.com/conorfennell/lexihash/internal/domain"
)

func TestNormalize(t *testing.T) {
	ex := domain.Example{
		Sentence:    "  Das <em>Haus</em>\r\nist alt. ",
		Translation: "The house is old.\n",
	}
	expected := "Das <em>Haus</em>\nist alt.\x1fThe house is old."
	normalized := Normalize(ex)

	if normalized != expected {
		t.Errorf("Expected normalized string to be %q, but got %q", expected, normalized)
	}
}

func TestHash(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		ex := domain.Example{Sentence: "Q", Translation: "A"}
		// First 16 hex characters of sha256("Q\x1fA")
		expectedHash := "5fda0da59a634285"
		hash := Hash(ex)

		if hash != expectedHash {
			t.Errorf("Expected hash '%s', but got '%s'", expectedHash, hash)
		}
	})

	t.Run("emphasis markers are part of the identity", func(t *testing.T) {
		ex := domain.Example{Sentence: "Das <em>Haus</em> ist alt.", Translation: "The house is old."}
		if got := Hash(ex); got != "6a4dc207c0ca029e" {
			t.Errorf("Expected hash '6a4dc207c0ca029e', but got '%s'", got)
		}
		plain := domain.Example{Sentence: "Das Haus ist alt.", Translation: "The house is old."}
		if Hash(ex) == Hash(plain) {
			t.Error("Expected emphasis markers to change the hash")
		}
	})

	t.Run("hash has fixed length", func(t *testing.T) {
		if got := len(Hash(domain.Example{Sentence: "x"})); got != Length {
			t.Errorf("Expected hash length %d, but got %d", Length, got)
		}
	})

	t.Run("id and bad flag do not affect the hash", func(t *testing.T) {
		a := domain.Example{ID: 1, Sentence: "Test", Translation: "Test"}
		b := domain.Example{ID: 99, Sentence: "Test", Translation: "Test", IsBad: true}
		if Hash(a) != Hash(b) {
			t.Error("Expected hashes to depend only on the text pair")
		}
	})

	t.Run("whitespace normalization produces same hash", func(t *testing.T) {
		a := domain.Example{Sentence: "  Ich gehe. ", Translation: "I go."}
		b := domain.Example{Sentence: "Ich gehe.", Translation: "I go.\r\n"}
		if Hash(a) != Hash(b) {
			t.Error("Expected hashes to be the same after normalization, but they were different.")
		}
	})

	t.Run("fields do not bleed into each other", func(t *testing.T) {
		a := domain.Example{Sentence: "ab", Translation: "c"}
		b := domain.Example{Sentence: "a", Translation: "bc"}
		if Hash(a) == Hash(b) {
			t.Error("Expected different splits of the same text to hash differently")
		}
	})
}

func TestHashPtr(t *testing.T) {
	if HashPtr(nil) != nil {
		t.Error("Expected nil hash for nil example")
	}
	ex := &domain.Example{Sentence: "Q", Translation: "A"}
	got := HashPtr(ex)
	if got == nil || *got != Hash(*ex) {
		t.Errorf("Expected pointer to %q, but got %v", Hash(*ex), got)
	}
}

package contenthash

import (
	"regexp"
	"testing"
)

func TestHashNormalizesCaseAndWhitespace(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{" Hello   World \n\n", "hello world"},
		{"Buy RELIANCE now", "buy reliance now"},
		{"line one\n\n\nline two", "line one\nline two"},
		{"tabs\t\tcollapse", "tabs collapse"},
	}
	for _, tc := range cases {
		if Hash(tc.a) != Hash(tc.b) {
			t.Fatalf("expected %q and %q to hash identically", tc.a, tc.b)
		}
	}
}

func TestHashDistinguishesRealDifferences(t *testing.T) {
	if Hash("Hello World") == Hash("Hello World!") {
		t.Fatal("punctuation change should produce a different hash")
	}
	if Hash("hello world") == Hash("hello, world") {
		t.Fatal("comma should produce a different hash")
	}
}

func TestHashShape(t *testing.T) {
	h := Hash("some content")
	if len(h) != Length {
		t.Fatalf("expected %d hex chars, got %d", Length, len(h))
	}
	if !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(h) {
		t.Fatalf("expected lowercase hex, got %q", h)
	}
}

func TestHashDeterministic(t *testing.T) {
	const content = "Markets closed higher today.\n\nDetails inside."
	if Hash(content) != Hash(content) {
		t.Fatal("hash must be deterministic")
	}
}

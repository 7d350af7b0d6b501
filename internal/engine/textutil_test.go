package engine

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStem(t *testing.T) {
	cases := map[string]string{
		"testing":  "test",
		"managers": "manag", // "ers" strips before "s"
		"builder":  "build",
		"studies":  "stud",
		"tools":    "tool",
		"go":       "go",  // too short to strip
		"ing":      "ing", // stem would drop below 3 chars
		"docker":   "dock",
	}
	for in, want := range cases {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenizeKeepsTechTokens(t *testing.T) {
	toks := Tokenize("c++ and c# plus node.js on k8s-cluster")
	want := map[string]bool{"c++": true, "c#": true, "node.js": true, "k8s-cluster": true}
	found := 0
	for _, tok := range toks {
		if want[tok] {
			found++
		}
	}
	if found != len(want) {
		t.Errorf("Tokenize missed tech tokens, got %v", toks)
	}
}

func TestNormalizeTextSynonyms(t *testing.T) {
	got := NormalizeText("Programme work with K8s and e-mail")
	if got != "program work with kubernetes and email" {
		t.Errorf("NormalizeText = %q", got)
	}
}

func TestCleanDescription(t *testing.T) {
	plain := CleanDescription("  just text  ")
	if plain != "just text" {
		t.Errorf("plain passthrough = %q", plain)
	}

	html := CleanDescription("<p>Build <b>pipelines</b> daily</p>")
	if html == "" {
		t.Fatal("HTML description produced empty text")
	}
	for _, forbidden := range []string{"<p>", "<b>"} {
		if strings.Contains(html, forbidden) {
			t.Errorf("CleanDescription left tag %q in %q", forbidden, html)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Errorf("ASCII cut = %q, want %q", got, "hel")
	}

	// never split a multi-byte rune: "é" occupies bytes 1-2
	if got := Truncate("héllo", 2); got != "h" {
		t.Errorf("rune-boundary cut = %q, want %q", got, "h")
	}
	if got := Truncate("héllo", 3); got != "hé" {
		t.Errorf("rune-boundary cut = %q, want %q", got, "hé")
	}
	for n := 0; n <= 6; n++ {
		if cut := Truncate("日本語", n); !utf8.ValidString(cut) {
			t.Errorf("Truncate(%q, %d) = %q is not valid UTF-8", "日本語", n, cut)
		}
	}
}

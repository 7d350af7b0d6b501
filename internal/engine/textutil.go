package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// tokenRe matches the token alphabet used across extraction: alphanumerics
// plus the symbols that keep "c++", "c#", "node.js" and "k8s" intact.
var tokenRe = regexp.MustCompile(`[a-zA-Z0-9+.#-]+`)

// synonyms normalizes spelling variants before tokenization.
// Word-boundary anchored so "infra" never rewrites "infrastructure".
var synonyms = []struct {
	re *regexp.Regexp
	to string
}{
	{regexp.MustCompile(`\bprogramme\b`), "program"},
	{regexp.MustCompile(`\be-mail\b`), "email"},
	{regexp.MustCompile(`\binfra\b`), "infrastructure"},
	{regexp.MustCompile(`\bk8s\b`), "kubernetes"},
}

// NormalizeText lowercases text and applies the synonym table.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	for _, syn := range synonyms {
		s = syn.re.ReplaceAllString(s, syn.to)
	}
	return s
}

// Tokenize extracts tokens from already-normalized text.
func Tokenize(s string) []string {
	return tokenRe.FindAllString(s, -1)
}

// stemSuffixes are stripped in order; first hit wins.
var stemSuffixes = []string{"ing", "ers", "er", "ies", "s"}

// Stem strips a plural/verb-form suffix when the remaining stem
// keeps at least 3 characters. Deliberately light; not a real stemmer.
func Stem(token string) string {
	for _, suf := range stemSuffixes {
		if strings.HasSuffix(token, suf) && len(token)-len(suf) >= 3 {
			return token[:len(token)-len(suf)]
		}
	}
	return token
}

// StemTokens stems every token in place-order.
func StemTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = Stem(t)
	}
	return out
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// CleanHTML strips HTML tags and trims whitespace.
func CleanHTML(s string) string {
	return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}

// CleanDescription converts a raw posting description to plain text.
// HTML payloads go through the markdown converter; on converter error
// falls back to tag stripping. Plain text passes through trimmed.
func CleanDescription(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return strings.TrimSpace(raw)
	}
	md, err := htmltomarkdown.ConvertString(raw)
	if err != nil {
		return CleanHTML(raw)
	}
	return strings.TrimSpace(md)
}

// Truncate returns the longest prefix of s within n bytes that does not
// split a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Package segment splits text into speakable units for synthesis.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split normalizes whitespace in text and splits it into ordered segments of at
// most maxChars runes. Sentences are packed greedily; a sentence that does not
// fit on its own is split at spaces, and a single word longer than maxChars is
// sliced into maxChars-rune pieces. Segments are never empty. A maxChars of
// zero or less disables the length bound.
func Split(text string, maxChars int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var (
		out []string
		buf string
	)
	flush := func() {
		if s := strings.TrimSpace(buf); s != "" {
			out = append(out, s)
		}
		buf = ""
	}

	for _, sentence := range Sentences(text) {
		trimmed := strings.TrimSpace(sentence)
		if utf8.RuneCountInString(trimmed) > maxChars {
			flush()
			out = append(out, splitWords(trimmed, maxChars)...)
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(buf+sentence)) > maxChars {
			flush()
		}
		buf += sentence
	}
	flush()
	return out
}

// Sentences cuts text after each run of sentence terminators (and any closing
// quotes or brackets that follow), keeping the terminators and the whitespace
// that follows them with the sentence. Concatenating the result yields text.
func Sentences(text string) []string {
	var (
		out   []string
		start int
	)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if !isTerminator(r) {
			continue
		}
		i = skip(text, i, func(r rune) bool { return isTerminator(r) || isCloser(r) })
		i = skip(text, i, unicode.IsSpace)
		out = append(out, text[start:i])
		start = i
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// skip advances i past runes matching pred.
func skip(text string, i int, pred func(rune) bool) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !pred(r) {
			break
		}
		i += size
	}
	return i
}

// splitWords packs space-separated words into pieces of at most maxChars runes.
func splitWords(sentence string, maxChars int) []string {
	var (
		out []string
		buf string
	)
	for _, word := range strings.Fields(sentence) {
		n := utf8.RuneCountInString(word)
		if n > maxChars {
			if buf != "" {
				out = append(out, buf)
				buf = ""
			}
			out = append(out, slice(word, maxChars)...)
			continue
		}
		switch {
		case buf == "":
			buf = word
		case utf8.RuneCountInString(buf)+1+n <= maxChars:
			buf += " " + word
		default:
			out = append(out, buf)
			buf = word
		}
	}
	if buf != "" {
		out = append(out, buf)
	}
	return out
}

// slice hard-cuts s into pieces of size runes; the last piece may be shorter.
func slice(s string, size int) []string {
	runes := []rune(s)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for len(runes) > 0 {
		n := min(size, len(runes))
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}

func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』', '）':
		return true
	}
	return false
}


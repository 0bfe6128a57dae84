package engine

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// maxRepeatPhrase is the longest phrase, in tokens, considered for back-to-back collapse.
const maxRepeatPhrase = 16

var (
	angleTagRe  = regexp.MustCompile(`<[^<>]*>`)
	squareTagRe = regexp.MustCompile(`\[[^\[\]]*\]`)
	// HH:MM:SS / MM:SS with optional fraction, optionally parenthesised.
	timestampRe = regexp.MustCompile(`\(?\b\d{1,2}:\d{2}(?::\d{2})?(?:[.,]\d{1,3})?\b\)?`)
	cueArrowRe  = regexp.MustCompile(`-->`)
	bracketRe   = regexp.MustCompile(`[<>\[\]]`)
	cueIDRe     = regexp.MustCompile(`^\d+$`)
)

// Clean normalizes raw caption fragments into one block of text.
// Never fails; empty input yields empty output.
func Clean(raw RawTranscript) CleanedTranscript {
	texts := make([]string, 0, len(raw.Fragments))
	for _, f := range raw.Fragments {
		texts = append(texts, f.Text)
	}
	return CleanedTranscript{Text: cleanFragments(texts)}
}

// CleanText cleans pasted transcript text as a single fragment.
// Pasted WebVTT or SRT files lose their header and cue numbers first.
func CleanText(s string) CleanedTranscript {
	if isCueFile(s) {
		s = stripCueLines(s)
	}
	return CleanedTranscript{Text: cleanFragments([]string{s})}
}

// isCueFile reports multi-line input that looks like WebVTT or SRT.
// Cleaned text is a single line, so it never matches.
func isCueFile(s string) bool {
	if !strings.Contains(s, "\n") {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(s), "WEBVTT") || strings.Contains(s, "-->")
}

// stripCueLines drops the lines of a cue file that carry no speech.
func stripCueLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		l := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(l, "WEBVTT"),
			strings.HasPrefix(l, "Kind:"),
			strings.HasPrefix(l, "Language:"),
			strings.HasPrefix(l, "NOTE"),
			strings.Contains(l, "-->"), // timing line, may carry cue settings
			cueIDRe.MatchString(l):
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func cleanFragments(texts []string) string {
	var tokens []string
	var prevKey string
	for _, t := range texts {
		words := strings.Fields(stripTimestamps(stripMarkup(t)))
		if len(words) == 0 {
			continue
		}
		// Overlapping auto-captions often repeat the previous line verbatim.
		key := strings.Join(normalizeTokens(words), " ")
		if key == prevKey {
			continue
		}
		prevKey = key
		tokens = append(tokens, words...)
	}
	return strings.Join(collapseRepeats(tokens), " ")
}

// stripMarkup removes tags innermost first until none are left. Unpaired
// brackets are dropped too so joined fragments cannot form a new tag.
func stripMarkup(s string) string {
	for {
		next := angleTagRe.ReplaceAllString(s, " ")
		next = squareTagRe.ReplaceAllString(next, " ")
		if next == s {
			return bracketRe.ReplaceAllString(s, " ")
		}
		s = next
	}
}

func stripTimestamps(s string) string {
	s = timestampRe.ReplaceAllString(s, " ")
	return cueArrowRe.ReplaceAllString(s, " ")
}

// collapseRepeats drops any phrase of up to maxRepeatPhrase tokens that
// immediately repeats the phrase before it, keeping the first occurrence.
// The output never contains such a repeat, so a second pass changes nothing.
func collapseRepeats(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	keys := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok)
		keys = append(keys, normalizeToken(tok))
		// Only a suffix can repeat: everything before it was already clean.
		for n := 1; n <= maxRepeatPhrase && 2*n <= len(keys); n++ {
			l := len(keys)
			if slices.Equal(keys[l-2*n:l-n], keys[l-n:]) {
				out = out[:l-n]
				keys = keys[:l-n]
				break
			}
		}
	}
	return out
}

func normalizeTokens(words []string) []string {
	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = normalizeToken(w)
	}
	return keys
}

// normalizeToken lowercases and trims edge punctuation so "Hello," matches "hello".
func normalizeToken(w string) string {
	trimmed := strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
	if trimmed == "" {
		return w
	}
	return strings.ToLower(trimmed)
}

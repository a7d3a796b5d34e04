package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// Self-harm phrases in plain form. They are canonicalized with CleanText at init so the
// dictionary and the input go through the same normalization.
var baseSelfHarmPhrases = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"take my life",
	"end it all",
	"self harm",
	"cut myself",
	"hurt myself",
	"harm myself",
	"want to die",
	"wish i was dead",
	"not worth living",
	"better off dead",
	"end myself",
	"unalive",
}

var selfHarmPhrases = canonicalize(baseSelfHarmPhrases)

var obfuscationReplacer = strings.NewReplacer(
	"@", "a",
	"4", "a",
	"3", "e",
	"!", "i",
	"1", "i",
	"0", "o",
	"$", "s",
	"5", "s",
	"7", "t",
	"+", "t",
	"а", "a", // Cyrillic
	"е", "e", // Cyrillic
	"і", "i", // Cyrillic
	"о", "o", // Cyrillic
	"р", "p", // Cyrillic
)

var spaceRegex = regexp.MustCompile(`\s+`)

// CleanText folds text into canonical form: lower case, common obfuscations replaced,
// non-letters turned into spaces, repeated letters collapsed and whitespace normalized.
func CleanText(text string) string {
	cleaned := obfuscationReplacer.Replace(strings.ToLower(text))

	var builder strings.Builder
	for _, r := range cleaned {
		if unicode.IsLetter(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}

	cleaned = collapseRepeats(builder.String())
	cleaned = spaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// collapseRepeats reduces runs of the same letter to one ("sooooo" -> "so"). Spaces are kept.
func collapseRepeats(text string) string {
	if len(text) == 0 {
		return text
	}

	var result strings.Builder
	lastChar := rune(0)
	lastWasLetter := false

	for _, char := range text {
		isLetter := unicode.IsLetter(char)
		if isLetter && lastWasLetter && char == lastChar {
			continue
		}
		result.WriteRune(char)
		lastChar = char
		lastWasLetter = isLetter
	}
	return result.String()
}

// ContainsConfirmedWord reports which canonical phrases appear in cleanedText.
// Single words must match a whole word ("skill" does not match "kill"); phrases match as substrings.
func ContainsConfirmedWord(cleanedText string, phrases []string) (bool, []string) {
	var confirmed []string
	words := strings.Fields(cleanedText)

	for _, phrase := range phrases {
		if !strings.Contains(cleanedText, phrase) {
			continue
		}
		if len(strings.Fields(phrase)) > 1 {
			confirmed = append(confirmed, phrase)
			continue
		}
		for _, w := range words {
			if w == phrase {
				confirmed = append(confirmed, phrase)
				break
			}
		}
	}
	return len(confirmed) > 0, confirmed
}

// SafetyReport is the outcome of screening a transcript.
type SafetyReport struct {
	Flagged bool
	Matches []string
}

// ScreenTranscript checks the user's turns of an assembled transcript for self-harm language.
// Companion turns are ignored. The result is informational; it never blocks a submission.
// Phrases match anywhere in the canonical text, so idioms like "take my life seriously" flag too.
func ScreenTranscript(transcript string) SafetyReport {
	var userText strings.Builder
	prefix := models.SourceUser + ":"
	for _, line := range strings.Split(transcript, "\n") {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			userText.WriteString(rest)
			userText.WriteString("\n")
		}
	}

	flagged, matches := ContainsConfirmedWord(CleanText(userText.String()), selfHarmPhrases)
	return SafetyReport{Flagged: flagged, Matches: matches}
}

func canonicalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, CleanText(s))
	}
	return out
}

package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SystemPrompt frames every naming question
const SystemPrompt = "You label columns of scientific result tables. Answer with a short noun phrase of at most four words and nothing else. If the answer cannot be determined, answer UNKNOWN."

// maxAnswerRunes bounds an accepted answer; longer replies are treated as chatter
const maxAnswerRunes = 48

// BuildMetricPrompt asks which quantity a table reports
func BuildMetricPrompt(caption string) string {
	return fmt.Sprintf(`A results table has this caption:

%q

What metric do the numeric cells of this table report (for example Accuracy, F1, BLEU)?`, caption)
}

// BuildSpecificationPrompt asks which dimension a column header is a value of
func BuildSpecificationPrompt(caption, header string) string {
	return fmt.Sprintf(`A results table has this caption:

%q

One of its column headers is %q. The header is a value of some experimental dimension (for example Dataset, Language, Task). Which dimension?`, caption, header)
}

// CleanAnswer normalizes a model reply into a usable name.
// Replies that are empty, UNKNOWN, overlong, or would break the claim
// text grammar are rejected.
func CleanAnswer(text string) (string, bool) {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.Trim(line, " \t\"'`*.:;")

	if line == "" || strings.EqualFold(line, "unknown") {
		return "", false
	}
	if utf8.RuneCountInString(line) > maxAnswerRunes {
		return "", false
	}
	if strings.ContainsAny(line, "|{}") || strings.Contains(line, ", ") {
		return "", false
	}
	return line, true
}

package answerstore

import "strings"

// encodeDocument joins a question and answer into the stored document form.
// The first line is the question; everything after is the answer.
func encodeDocument(question, answer string) string {
	return question + "\n" + answer
}

// parseDocument splits a stored document back into question and answer.
// Returns ok=false when the document has no answer part.
func parseDocument(doc string) (question, answer string, ok bool) {
	question, answer, ok = strings.Cut(doc, "\n")
	if !ok || answer == "" {
		return "", "", false
	}
	return question, answer, true
}

package usecase

import (
	"strings"

	"kothanote/internal/domain"
)

// splitRecognition scans the entries of one recognition event, starting at
// the event's start index. Final entries become a single committed increment;
// interim entries become the transient preview. Either side may be empty.
func splitRecognition(event domain.RecognitionEvent) (committed string, preview string) {
	start := event.StartIndex
	if start < 0 {
		start = 0
	}
	if start >= len(event.Entries) {
		return "", ""
	}

	var finals, interims []string
	for _, entry := range event.Entries[start:] {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		if entry.IsFinal {
			finals = append(finals, text)
		} else {
			interims = append(interims, text)
		}
	}
	return strings.Join(finals, " "), strings.Join(interims, " ")
}

// appendFragment joins a committed fragment onto the transcript with exactly
// one separating space.
func appendFragment(transcript, fragment string) string {
	if fragment == "" {
		return transcript
	}
	if transcript == "" {
		return fragment
	}
	return transcript + " " + fragment
}

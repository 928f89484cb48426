package usecase

import (
	"kothanote/internal/domain"
	"kothanote/internal/ports"
)

// Pane identifiers for the two-pane view.
const (
	PaneTranscript = "transcript"
	PaneResult     = "result"
)

// User-facing status and failure strings. Raw provider errors never reach
// the UI; they are only logged.
const (
	msgListening         = "Listening..."
	msgStopped           = "Stopped"
	msgProcessing        = "Processing..."
	msgCleared           = "Cleared"
	msgPermissionDenied  = "Microphone access was denied. Please allow microphone use."
	msgEngineUnavailable = "Speech recognition is not available on this system."
	msgEngineFailure     = "Speech recognition failed."
	msgNoSpeech          = "No speech was detected."
	msgEnhanceFailed     = "Enhancement failed. Please try again."
	msgTranslateFailed   = "Translation failed. Please try again."
	msgClipboardFailed   = "Could not write to the clipboard."
)

// session is the single in-memory record of one user interaction lifetime.
// All mutations go through NotesController methods under its lock.
type session struct {
	mode         domain.Mode
	transcript   string
	interim      string
	aiOutput     string
	errorMessage string

	// captureToken identifies the live capture. Asynchronous engine
	// notifications carrying a different token are stale and discarded.
	captureToken string
}

// activeCapture bundles the resources of one capture session.
type activeCapture struct {
	token  string
	cancel func()
	mic    ports.AudioSession
	stream ports.RecognitionSession

	eventsDone chan struct{}
	audioDone  chan struct{}
}

func actionFailureMessage(action domain.NoteAction) string {
	if action == domain.ActionTranslate {
		return msgTranslateFailed
	}
	return msgEnhanceFailed
}

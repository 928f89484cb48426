package domain

// Mode models the voice-note session lifecycle.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeListening  Mode = "listening"
	ModeProcessing Mode = "processing"
	ModeError      Mode = "error"
)

// NoteAction identifies an AI post-processing action on the transcript.
type NoteAction string

const (
	ActionPolish    NoteAction = "polish"
	ActionTranslate NoteAction = "translate"
)

// ErrorCode identifies backend failures surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodePermissionDenied  ErrorCode = "permission_denied"
	ErrorCodeEngineUnsupported ErrorCode = "engine_unsupported"
	ErrorCodeEngine            ErrorCode = "engine"
	ErrorCodeNoSpeech          ErrorCode = "no_speech"
	ErrorCodeAudioStream       ErrorCode = "audio_stream"
	ErrorCodeCompletion        ErrorCode = "completion"
	ErrorCodeClipboard         ErrorCode = "clipboard"
)

// Hypothesis is a single recognition alternative within an utterance window.
type Hypothesis struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// RecognitionEvent carries the ordered hypotheses of the current utterance
// window. Entries at or after StartIndex are new since the previous event.
type RecognitionEvent struct {
	StartIndex int          `json:"startIndex"`
	Entries    []Hypothesis `json:"entries"`
}

// EngineError is a classified speech-engine failure.
type EngineError struct {
	Code    ErrorCode
	Message string
}

func (e *EngineError) Error() string { return e.Message }

// Snapshot is the read-only view of the session handed to the UI.
type Snapshot struct {
	Mode         Mode   `json:"mode"`
	Transcript   string `json:"transcript"`
	Interim      string `json:"interim,omitempty"`
	AIOutput     string `json:"aiOutput,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

package ports

import (
	"context"
	"errors"
	"io"

	"kothanote/internal/domain"
)

// ErrSessionClosed reports a send on a recognition session that has already
// been closed. Senders racing a teardown treat it as a quiet end.
var ErrSessionClosed = errors.New("recognition session is closed")

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// RecognitionConfig describes engine-agnostic recognition settings.
type RecognitionConfig struct {
	Language       string
	Encoding       string
	SampleRate     int
	Channels       int
	InterimResults bool
}

// RecognitionSession is an active speech-engine capture session. The events
// channel closes when the engine ends; Wait reports the terminal error, if
// any, after the channel is closed.
type RecognitionSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.RecognitionEvent
	Wait() error
	Close() error
}

// RecognitionEngine starts speech recognition sessions.
type RecognitionEngine interface {
	Start(ctx context.Context, cfg RecognitionConfig) (RecognitionSession, error)
}

// Completer performs the two AI note actions against a completion endpoint.
type Completer interface {
	Polish(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text string) (string, error)
}

// Substitutor transforms text using deterministic rules.
type Substitutor interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink pushes backend state changes to the UI.
type EventSink interface {
	ModeChanged(mode domain.Mode, message string)
	TranscriptChanged(transcript string)
	InterimChanged(preview string)
	ResultReady(action domain.NoteAction, text string)
	SessionError(code domain.ErrorCode, message string)
}

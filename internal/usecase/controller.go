package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"kothanote/internal/domain"
	"kothanote/internal/ports"
)

// ErrBusy is returned when an AI action is requested while another request
// is still outstanding. Requests are rejected, never queued.
var ErrBusy = errors.New("an AI action is already in progress")

// Config controls capture and recognition behavior.
type Config struct {
	Audio           ports.AudioConfig
	Recognition     ports.RecognitionConfig
	ChunkSize       int
	SurfaceNoSpeech bool
}

// NotesController owns the voice-note session. Every state transition is
// funneled through its methods; nothing else mutates the session.
type NotesController struct {
	audio     ports.AudioCapture
	engine    ports.RecognitionEngine
	completer ports.Completer
	subs      ports.Substitutor
	clipboard ports.Clipboard
	events    ports.EventSink
	cfg       Config
	logger    *log.Logger

	mu      sync.Mutex
	sess    session
	capture *activeCapture
}

func NewNotesController(
	audio ports.AudioCapture,
	engine ports.RecognitionEngine,
	completer ports.Completer,
	subs ports.Substitutor,
	clipboard ports.Clipboard,
	events ports.EventSink,
	cfg Config,
) *NotesController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &NotesController{
		audio:     audio,
		engine:    engine,
		completer: completer,
		subs:      subs,
		clipboard: clipboard,
		events:    events,
		cfg:       cfg,
		logger:    log.WithPrefix("session"),
		sess:      session{mode: domain.ModeIdle},
	}
}

// StartListening begins a new capture session. Starting while already
// listening is a no-op; starting while an AI action is in flight is rejected.
func (c *NotesController) StartListening(ctx context.Context) error {
	c.mu.Lock()
	switch c.sess.mode {
	case domain.ModeListening:
		c.mu.Unlock()
		return nil
	case domain.ModeProcessing:
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	captureCtx, cancel := context.WithCancel(ctx)
	stream, err := c.engine.Start(captureCtx, c.cfg.Recognition)
	if err != nil {
		cancel()
		return c.failStart(err)
	}
	mic, err := c.audio.Start(captureCtx, c.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return c.failStart(err)
	}

	capture := &activeCapture{
		token:      uuid.NewString(),
		cancel:     cancel,
		mic:        mic,
		stream:     stream,
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
	}

	// Re-check under the lock: a concurrent start may have won the race
	// while the engine and microphone were being opened. The superseded
	// capture never went live, so its goroutines were never spawned and it
	// is torn down directly.
	c.mu.Lock()
	if c.sess.mode == domain.ModeListening || c.sess.mode == domain.ModeProcessing || c.capture != nil {
		mode := c.sess.mode
		c.mu.Unlock()

		capture.cancel()
		go func() {
			if err := capture.mic.Stop(); err != nil {
				c.logger.Warn("superseded microphone did not stop cleanly", "err", err)
			}
			_ = capture.stream.Close()
		}()

		if mode == domain.ModeProcessing {
			return ErrBusy
		}
		return nil
	}
	c.capture = capture
	c.sess.captureToken = capture.token
	c.sess.mode = domain.ModeListening
	c.sess.errorMessage = ""
	c.mu.Unlock()

	go c.consumeRecognition(capture)
	go pumpAudioChunks(capture.mic, capture.stream, c.cfg.ChunkSize, c.events, capture.audioDone)

	c.events.ModeChanged(domain.ModeListening, msgListening)
	return nil
}

// StopListening is immediate and authoritative. It invalidates the capture
// token so the engine's own ended notification, which may arrive later, is
// discarded as stale.
func (c *NotesController) StopListening() {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.sess.captureToken = ""
	wasListening := c.sess.mode == domain.ModeListening
	if wasListening {
		c.sess.mode = domain.ModeIdle
		c.sess.interim = ""
	}
	c.mu.Unlock()

	if capture != nil {
		go c.teardownCapture(capture)
	}
	if wasListening {
		c.events.InterimChanged("")
		c.events.ModeChanged(domain.ModeIdle, msgStopped)
	}
}

// Polish asks the completion endpoint to clean up grammar and punctuation.
func (c *NotesController) Polish(ctx context.Context) (string, error) {
	return c.runAction(ctx, domain.ActionPolish)
}

// Translate asks the completion endpoint for an English rendering.
func (c *NotesController) Translate(ctx context.Context) (string, error) {
	return c.runAction(ctx, domain.ActionTranslate)
}

func (c *NotesController) runAction(ctx context.Context, action domain.NoteAction) (string, error) {
	c.StopListening()

	c.mu.Lock()
	if c.sess.mode == domain.ModeProcessing {
		c.mu.Unlock()
		return "", ErrBusy
	}
	text := strings.TrimSpace(c.sess.transcript)
	if text == "" {
		c.mu.Unlock()
		return "", nil
	}
	c.sess.mode = domain.ModeProcessing
	c.mu.Unlock()
	c.events.ModeChanged(domain.ModeProcessing, msgProcessing)

	var out string
	var err error
	if action == domain.ActionTranslate {
		out, err = c.completer.Translate(ctx, text)
	} else {
		out, err = c.completer.Polish(ctx, text)
	}

	c.mu.Lock()
	if c.sess.mode != domain.ModeProcessing {
		// Cleared while the request was in flight; drop the result.
		c.mu.Unlock()
		return "", err
	}
	c.sess.mode = domain.ModeIdle
	if err != nil {
		message := actionFailureMessage(action)
		c.sess.errorMessage = message
		c.mu.Unlock()

		c.logger.Error("AI action failed", "action", action, "err", err)
		c.events.SessionError(domain.ErrorCodeCompletion, message)
		c.events.ModeChanged(domain.ModeIdle, message)
		return "", err
	}
	c.sess.aiOutput = out
	c.sess.errorMessage = ""
	c.mu.Unlock()

	c.events.ResultReady(action, out)
	c.events.ModeChanged(domain.ModeIdle, "")
	return out, nil
}

// Clear resets transcript, AI output and error message, and stops capture if
// one is active.
func (c *NotesController) Clear() {
	c.mu.Lock()
	capture := c.capture
	c.capture = nil
	c.sess = session{mode: domain.ModeIdle}
	c.mu.Unlock()

	if capture != nil {
		go c.teardownCapture(capture)
	}

	c.events.TranscriptChanged("")
	c.events.InterimChanged("")
	c.events.ModeChanged(domain.ModeIdle, msgCleared)
}

// Copy writes the requested pane's text to the system clipboard. The raw
// transcript pane goes through the optional substitution rules first; the
// AI result pane is copied verbatim. Empty text is a no-op.
func (c *NotesController) Copy(ctx context.Context, pane string) error {
	c.mu.Lock()
	text := c.sess.transcript
	if pane == PaneResult {
		text = c.sess.aiOutput
	}
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	if pane != PaneResult && c.subs != nil {
		transformed, err := c.subs.Apply(text)
		if err != nil {
			c.logger.Warn("substitution rules failed; copying raw text", "err", err)
		} else {
			text = transformed
		}
	}

	if err := c.clipboard.SetText(ctx, text); err != nil {
		c.logger.Error("clipboard write failed", "err", err)
		c.events.SessionError(domain.ErrorCodeClipboard, msgClipboardFailed)
		return err
	}
	return nil
}

// Snapshot returns the current read-only view of the session.
func (c *NotesController) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Snapshot{
		Mode:         c.sess.mode,
		Transcript:   c.sess.transcript,
		Interim:      c.sess.interim,
		AIOutput:     c.sess.aiOutput,
		ErrorMessage: c.sess.errorMessage,
	}
}

func (c *NotesController) failStart(err error) error {
	code, message := classifyStartError(err)
	c.logger.Error("capture start failed", "code", code, "err", err)

	c.mu.Lock()
	c.sess.mode = domain.ModeError
	c.sess.errorMessage = message
	c.mu.Unlock()

	c.events.SessionError(code, message)
	c.events.ModeChanged(domain.ModeError, message)
	return err
}

func classifyStartError(err error) (domain.ErrorCode, string) {
	var engineErr *domain.EngineError
	if errors.As(err, &engineErr) && engineErr.Code == domain.ErrorCodeEngineUnsupported {
		return domain.ErrorCodeEngineUnsupported, msgEngineUnavailable
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "permission") || strings.Contains(lower, "denied") || strings.Contains(lower, "not authorized") {
		return domain.ErrorCodePermissionDenied, msgPermissionDenied
	}
	return domain.ErrorCodeEngine, msgEngineFailure
}

func (c *NotesController) consumeRecognition(capture *activeCapture) {
	defer close(capture.eventsDone)

	for event := range capture.stream.Events() {
		committed, preview := splitRecognition(event)
		c.applyRecognition(capture.token, committed, preview)
	}

	c.engineEnded(capture)
}

func (c *NotesController) applyRecognition(token, committed, preview string) {
	c.mu.Lock()
	if c.sess.captureToken != token || c.sess.mode != domain.ModeListening {
		c.mu.Unlock()
		return
	}
	changed := committed != ""
	if changed {
		c.sess.transcript = appendFragment(c.sess.transcript, committed)
	}
	c.sess.interim = preview
	transcript := c.sess.transcript
	c.mu.Unlock()

	if changed {
		c.events.TranscriptChanged(transcript)
	}
	c.events.InterimChanged(preview)
}

// engineEnded handles the asynchronous end-of-capture notification. The token
// check discards notifications racing a manual stop or a clear.
func (c *NotesController) engineEnded(capture *activeCapture) {
	err := capture.stream.Wait()

	c.mu.Lock()
	if c.sess.captureToken != capture.token {
		c.mu.Unlock()
		return
	}
	c.capture = nil
	c.sess.captureToken = ""
	c.sess.interim = ""

	// The engine stopped on its own; the microphone must not keep running.
	go c.teardownCapture(capture)

	var engineErr *domain.EngineError
	noSpeech := errors.As(err, &engineErr) && engineErr.Code == domain.ErrorCodeNoSpeech

	if err == nil || noSpeech {
		if c.sess.mode == domain.ModeListening {
			c.sess.mode = domain.ModeIdle
		}
		mode := c.sess.mode
		c.mu.Unlock()

		if noSpeech {
			c.logger.Debug("no speech detected; ignoring", "err", err)
			if c.cfg.SurfaceNoSpeech {
				c.events.SessionError(domain.ErrorCodeNoSpeech, msgNoSpeech)
			}
		}
		c.events.InterimChanged("")
		c.events.ModeChanged(mode, msgStopped)
		return
	}

	code := domain.ErrorCodeEngine
	if errors.As(err, &engineErr) {
		code = engineErr.Code
	}
	message := msgEngineFailure
	if code == domain.ErrorCodePermissionDenied {
		message = msgPermissionDenied
	}

	c.logger.Error("speech engine failed", "code", code, "err", err)
	c.sess.mode = domain.ModeError
	c.sess.errorMessage = message
	c.mu.Unlock()

	c.events.InterimChanged("")
	c.events.SessionError(code, message)
	c.events.ModeChanged(domain.ModeError, message)
}

func (c *NotesController) teardownCapture(capture *activeCapture) {
	capture.cancel()
	if err := capture.mic.Stop(); err != nil {
		c.logger.Warn("microphone did not stop cleanly", "err", err)
	}
	_ = capture.stream.Close()
	<-capture.eventsDone
	<-capture.audioDone
}

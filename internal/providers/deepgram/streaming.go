// Package deepgram implements the speech-engine boundary over Deepgram's
// streaming websocket API.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"kothanote/internal/domain"
	"kothanote/internal/ports"
)

const defaultBaseURL = "https://api.deepgram.com/v1"

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Engine implements ports.RecognitionEngine for Deepgram.
type Engine struct {
	cfg    Config
	logger *log.Logger
}

func NewEngine(cfg Config) *Engine {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Language == "" {
		cfg.Language = "bn"
	}
	return &Engine{cfg: cfg, logger: log.WithPrefix("deepgram")}
}

func (e *Engine) Start(ctx context.Context, cfg ports.RecognitionConfig) (ports.RecognitionSession, error) {
	if strings.TrimSpace(e.cfg.APIKey) == "" {
		return nil, &domain.EngineError{
			Code:    domain.ErrorCodeEngineUnsupported,
			Message: "DEEPGRAM_API_KEY is not configured",
		}
	}

	wsURL, err := buildListenURL(e.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+e.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}

	session := &captureSession{
		conn:   conn,
		logger: e.logger,
		events: make(chan domain.RecognitionEvent, 64),
		audio:  make(chan []byte, 32),
		done:   make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

type captureSession struct {
	conn   *websocket.Conn
	logger *log.Logger

	events chan domain.RecognitionEvent
	audio  chan []byte
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

func (s *captureSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return ports.ErrSessionClosed
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.terminalErr(); err != nil {
			return err
		}
		return ports.ErrSessionClosed
	}
}

func (s *captureSession) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *captureSession) Events() <-chan domain.RecognitionEvent {
	return s.events
}

func (s *captureSession) Wait() error {
	<-s.done
	return s.terminalErr()
}

func (s *captureSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.terminalErr()
}

func (s *captureSession) terminalErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *captureSession) setErr(err error) {
	if err == nil {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *captureSession) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.setErr(classifyTransportError(err))
			return
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(classifyTransportError(err))
	}
}

func (s *captureSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(classifyTransportError(err))
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "deepgram returned an unknown error"
			}
			s.logger.Warn("engine error payload", "message", message)
			s.setErr(classifyEngineMessage(message))
			return
		}

		transcript := extractTranscript(response)
		if transcript == "" {
			continue
		}

		s.emit(domain.RecognitionEvent{
			StartIndex: 0,
			Entries: []domain.Hypothesis{{
				Text:    transcript,
				IsFinal: response.IsFinal || response.SpeechFinal,
			}},
		})
	}
}

func (s *captureSession) emit(event domain.RecognitionEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	}
}

// classifyTransportError maps websocket failures onto engine error codes.
// A close frame reporting that no audio ever arrived counts as no-speech so
// the session layer can swallow it. A clean engine-initiated close is not a
// failure at all and classifies to nil.
func classifyTransportError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		lower := strings.ToLower(closeErr.Text)
		if strings.Contains(lower, "did not receive audio") || strings.Contains(lower, "net-0001") {
			return &domain.EngineError{Code: domain.ErrorCodeNoSpeech, Message: closeErr.Text}
		}
		switch closeErr.Code {
		case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
			return nil
		}
	}
	return &domain.EngineError{
		Code:    domain.ErrorCodeEngine,
		Message: fmt.Sprintf("recognition stream failed: %v", err),
	}
}

func classifyEngineMessage(message string) error {
	lower := strings.ToLower(message)
	code := domain.ErrorCodeEngine
	switch {
	case strings.Contains(lower, "no speech") || strings.Contains(lower, "timeout waiting for audio"):
		code = domain.ErrorCodeNoSpeech
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid credentials"):
		code = domain.ErrorCodeEngineUnsupported
	}
	return &domain.EngineError{Code: code, Message: message}
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func extractTranscript(response listenResponse) string {
	if len(response.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
}

func buildListenURL(engineCfg Config, streamCfg ports.RecognitionConfig) (string, error) {
	base := strings.TrimSpace(engineCfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	language := streamCfg.Language
	if language == "" {
		language = engineCfg.Language
	}

	query := listenURL.Query()
	query.Set("model", engineCfg.Model)
	query.Set("language", language)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	query.Set("channels", strconv.Itoa(streamCfg.Channels))
	query.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(engineCfg.SmartFormat))
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}

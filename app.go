package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"kothanote/internal/bootstrap"
	"kothanote/internal/config"
	"kothanote/internal/domain"
	"kothanote/internal/usecase"
)

const (
	eventState      = "kothanote:state"
	eventTranscript = "kothanote:transcript"
	eventInterim    = "kothanote:interim"
	eventResult     = "kothanote:result"
	eventError      = "kothanote:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.NotesController
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.ModeChanged(domain.ModeIdle, "")
}

// StartListening begins speech capture and live transcription.
func (a *App) StartListening() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	if err := a.controller.StartListening(a.ctx); err != nil {
		return a.controller.Snapshot(), err
	}
	return a.controller.Snapshot(), nil
}

// StopListening ends speech capture. The committed transcript is kept.
func (a *App) StopListening() domain.Snapshot {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}
	}
	a.controller.StopListening()
	return a.controller.Snapshot()
}

// PolishNote sends the transcript for grammar and punctuation cleanup.
func (a *App) PolishNote() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.controller.Polish(a.ctx)
}

// TranslateNote sends the transcript for an English translation.
func (a *App) TranslateNote() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.controller.Translate(a.ctx)
}

// ClearAll wipes the transcript, the AI output and any error state.
func (a *App) ClearAll() domain.Snapshot {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}
	}
	a.controller.Clear()
	return a.controller.Snapshot()
}

// CopyText copies a pane ("transcript" or "result") to the clipboard.
func (a *App) CopyText(pane string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.Copy(a.ctx, pane)
}

// GetSnapshot returns the current session view for the UI.
func (a *App) GetSnapshot() domain.Snapshot {
	if a.controller == nil {
		snap := domain.Snapshot{Mode: domain.ModeIdle}
		if a.bootErr != nil {
			snap.Mode = domain.ModeError
			snap.ErrorMessage = a.bootErr.Error()
		}
		return snap
	}
	return a.controller.Snapshot()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"speechProvider":   "Deepgram",
		"speechModel":      a.cfg.Deepgram.Model,
		"language":         a.cfg.Deepgram.Language,
		"completionModel":  a.cfg.OpenAI.Model,
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ModeChanged emits session mode updates to the frontend.
func (a *App) ModeChanged(mode domain.Mode, message string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"mode":    string(mode),
		"message": message,
	})
}

// TranscriptChanged emits the committed transcript.
func (a *App) TranscriptChanged(transcript string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{"text": transcript})
}

// InterimChanged emits the transient interim preview.
func (a *App) InterimChanged(preview string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventInterim, map[string]string{"text": preview})
}

// ResultReady emits a finished AI action result.
func (a *App) ResultReady(action domain.NoteAction, text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventResult, map[string]string{
		"action": string(action),
		"text":   text,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, message string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"title":   errorTitle(code),
		"message": message,
	})
}

func errorTitle(code domain.ErrorCode) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermissionDenied:
		return "Microphone access denied"
	case domain.ErrorCodeEngineUnsupported:
		return "Speech recognition unavailable"
	case domain.ErrorCodeEngine:
		return "Speech recognition error"
	case domain.ErrorCodeNoSpeech:
		return "No speech detected"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeCompletion:
		return "AI request failed"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		return "Unknown error"
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}

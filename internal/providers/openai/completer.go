// Package openai implements the text-completion boundary used by the two AI
// note actions.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	openai "github.com/sashabaranov/go-openai"
)

// Typed failures returned to the caller. The underlying transport detail is
// logged here and never propagated.
var (
	ErrEnhancementFailed = errors.New("enhancement failed")
	ErrTranslationFailed = errors.New("translation failed")
)

const (
	polishInstruction = "Correct the grammar, spelling, and punctuation of the following Bengali text. " +
		"Preserve a natural, professional tone and do not add conversational filler. " +
		"Return only the corrected text.\n\n"
	translateInstruction = "Translate the following Bengali text into clear, professional English. " +
		"Return only the translation.\n\n"

	polishFallback    = "Could not process the text."
	translateFallback = "Could not translate the text."
)

// Config controls the completion endpoint connection.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Completer sends the fixed polish/translate prompts to a chat-completion
// endpoint. It holds no per-request state.
type Completer struct {
	client *openai.Client
	model  string
	logger *log.Logger
}

func NewCompleter(cfg Config) *Completer {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Completer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: log.WithPrefix("completion"),
	}
}

// Polish asks for a grammar/spelling/punctuation cleanup of text.
func (c *Completer) Polish(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, polishInstruction, text, polishFallback, ErrEnhancementFailed)
}

// Translate asks for an English rendering of text.
func (c *Completer) Translate(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, translateInstruction, text, translateFallback, ErrTranslationFailed)
}

func (c *Completer) complete(ctx context.Context, instruction, text, fallback string, failure error) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: instruction + text,
		}},
	})
	if err != nil {
		c.logger.Error("completion request failed", "err", err)
		return "", failure
	}

	if len(resp.Choices) == 0 {
		return fallback, nil
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return fallback, nil
	}
	return out, nil
}

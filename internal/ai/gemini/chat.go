package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/metrics"
)

var _ ai.ChatStarter = (*Generator)(nil)

// StartChat opens a multi-turn session with the given persona.
func (g *Generator) StartChat(ctx context.Context, cfg ai.ChatConfig) (ai.ChatSession, error) {
	if g == nil || g.chats == nil {
		return nil, errors.New("gemini chat is not initialized")
	}

	config := &genai.GenerateContentConfig{}
	if cfg.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}
	if cfg.Temperature > 0 {
		config.Temperature = genai.Ptr(cfg.Temperature)
	}

	session, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	g.logger.Debug("chat session created", zap.Float32("temperature", cfg.Temperature))
	return &chat{session: session, logger: g.logger}, nil
}

type chat struct {
	session chatSession
	logger  *zap.Logger
}

// Stream sends message and yields the reply as it arrives.
func (c *chat) Stream(ctx context.Context, message string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range c.session.SendMessageStream(ctx, genai.Part{Text: message}) {
			if err != nil {
				metrics.AIRequests.WithLabelValues("chat", "error").Inc()
				c.logger.Warn("chat stream failed", zap.Error(err))
				yield("", err)
				return
			}
			text := chunkText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
		metrics.AIRequests.WithLabelValues("chat", "ok").Inc()
	}
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/logger"
)

var ErrEmptyMessage = errors.New("message must not be empty")

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Conversation keeps the transcript of a chat with a persona. It is not safe
// for concurrent use.
type Conversation struct {
	starter  ai.ChatStarter
	persona  Persona
	session  ai.ChatSession
	messages []Message
	stress   int
	logger   *zap.Logger
}

// NewConversation opens a session for persona and seeds the transcript with its greeting.
func NewConversation(ctx context.Context, starter ai.ChatStarter, persona Persona, log *zap.Logger) (*Conversation, error) {
	if starter == nil {
		return nil, errors.New("chat starter is required")
	}
	c := &Conversation{
		starter: starter,
		persona: persona,
		logger:  logger.Component(log, "chat").With(zap.String("persona", persona.Name)),
	}
	if err := c.Reset(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reset drops the history and starts a fresh session.
func (c *Conversation) Reset(ctx context.Context) error {
	session, err := c.starter.StartChat(ctx, c.persona.Config)
	if err != nil {
		return fmt.Errorf("start chat: %w", err)
	}
	c.session = session
	c.messages = []Message{{Role: RoleModel, Text: c.persona.Greeting}}
	c.stress = c.persona.InitialStress
	return nil
}

// Persona returns the persona the conversation was opened with.
func (c *Conversation) Persona() Persona {
	return c.persona
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Stress reports the current stress level for personas that track it.
func (c *Conversation) Stress() (int, bool) {
	return c.stress, c.persona.TracksStress
}

// Send delivers text and streams the reply. onUpdate receives every display
// snapshot of the reply as it grows. The final reply is returned.
func (c *Conversation) Send(ctx context.Context, text string, onUpdate func(string)) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}

	c.messages = append(c.messages, Message{Role: RoleUser, Text: text})
	c.messages = append(c.messages, Message{Role: RoleModel})
	reply := len(c.messages) - 1

	stream := c.session.Stream(ctx, text)
	if c.persona.TracksStress {
		stream = StripStress(stream, func(level int) {
			c.stress = level
			c.logger.Debug("stress level updated", zap.Int("stress", level))
		})
	} else {
		stream = Accumulate(stream)
	}

	for snapshot, err := range stream {
		if err != nil {
			return c.fail(reply, err), fmt.Errorf("chat reply: %w", err)
		}
		c.messages[reply].Text = snapshot
		if onUpdate != nil {
			onUpdate(snapshot)
		}
	}

	return c.messages[reply].Text, nil
}

// fail records a failed turn and returns the text left visible for it.
func (c *Conversation) fail(reply int, err error) string {
	c.logger.Warn("chat turn failed", zap.Error(err))

	partial := c.messages[reply].Text
	if partial == "" {
		c.messages = c.messages[:reply]
	}
	if c.persona.ErrorReply != "" {
		c.messages = append(c.messages, Message{Role: RoleModel, Text: c.persona.ErrorReply})
		return c.persona.ErrorReply
	}
	return partial
}

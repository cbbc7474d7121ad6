package ai

import (
	"context"
	"time"
	"unicode/utf8"

	chatRepo "smartcalendar/database/repository/chat"
	eventRepo "smartcalendar/database/repository/event"
	"smartcalendar/models"

	"go.uber.org/zap"
)

const defaultSessionID = "default"

// Options configures an Interpreter. Model, Chats and Reminders are optional.
type Options struct {
	Model     LanguageModel
	Events    eventRepo.EventRepository
	Contexts  ContextStore
	Chats     chatRepo.ChatRepository
	Reminders ReminderScheduler
	Logger    *zap.Logger
	Location  *time.Location
	Now       func() time.Time

	// ConfirmDestructive makes single-match cancels and updates wait for a "sim".
	ConfirmDestructive bool
	// HistoryTurns bounds the prior turns sent to the model.
	HistoryTurns int
}

// Interpreter turns utterances into dispatched actions, one session at a time.
type Interpreter struct {
	model     LanguageModel
	events    eventRepo.EventRepository
	contexts  ContextStore
	chats     chatRepo.ChatRepository
	reminders ReminderScheduler
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time

	resolver  *DateResolver
	codec     *ActionCodec
	extractor *ResponseExtractor
	fallback  *FallbackParser

	confirmDestructive bool
	historyTurns       int
	locks              sessionLocks
}

func NewInterpreter(opts Options) *Interpreter {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Contexts == nil {
		opts.Contexts = NewMemoryContextStore(30 * time.Minute)
	}
	if opts.HistoryTurns < 0 {
		opts.HistoryTurns = 0
	}

	resolver := NewDateResolver(opts.Location)
	codec := NewActionCodec(resolver, opts.Now)
	return &Interpreter{
		model:              opts.Model,
		events:             opts.Events,
		contexts:           opts.Contexts,
		chats:              opts.Chats,
		reminders:          opts.Reminders,
		logger:             opts.Logger,
		loc:                opts.Location,
		now:                opts.Now,
		resolver:           resolver,
		codec:              codec,
		extractor:          NewResponseExtractor(codec),
		fallback:           NewFallbackParser(opts.Location, opts.Now),
		confirmDestructive: opts.ConfirmDestructive,
		historyTurns:       opts.HistoryTurns,
	}
}

// Turn processes one utterance for a session. Turns of the same session run
// strictly one after another; every failure degrades to a reply.
func (i *Interpreter) Turn(ctx context.Context, utterance, sessionID string) TurnResult {
	if sessionID == "" {
		sessionID = defaultSessionID
	}
	unlock := i.locks.lock(sessionID)
	defer unlock()

	logger := i.logger.With(zap.String("session", sessionID))

	aiCtx, err := i.contexts.Get(ctx, sessionID)
	if err != nil {
		logger.Warn("Failed to load conversation context, starting fresh", zap.Error(err))
		aiCtx = &models.AIContext{}
	}
	i.appendChat(ctx, logger, sessionID, models.SenderUser, utterance, false)

	out := i.step(ctx, logger, utterance, aiCtx)

	aiCtx.PendingAction = nil
	if out.pending != nil {
		if encoded, err := i.codec.Encode(out.pending); err != nil {
			logger.Error("Failed to encode pending action", zap.Error(err))
			out.result.RequiresConfirmation = false
		} else {
			aiCtx.PendingAction = encoded
		}
	}
	assistant := out.modelText
	if assistant == "" {
		assistant = out.result.Reply
	}
	aiCtx.History = i.trimHistory(append(aiCtx.History,
		models.ChatMessage{Role: "user", Content: utterance},
		models.ChatMessage{Role: "assistant", Content: assistant},
	))
	aiCtx.UpdatedAt = i.now()
	if err := i.contexts.Set(ctx, sessionID, aiCtx); err != nil {
		logger.Warn("Failed to save conversation context", zap.Error(err))
	}

	i.appendChat(ctx, logger, sessionID, models.SenderAssistant, out.result.Reply, out.failed)
	return out.result
}

// Reset drops the session's pending action and history.
func (i *Interpreter) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = defaultSessionID
	}
	unlock := i.locks.lock(sessionID)
	defer unlock()
	return i.contexts.Clear(ctx, sessionID)
}

// History returns the persisted chat log of a session.
func (i *Interpreter) History(ctx context.Context, sessionID string) ([]models.ChatLog, error) {
	if i.chats == nil {
		return []models.ChatLog{}, nil
	}
	if sessionID == "" {
		sessionID = defaultSessionID
	}
	return i.chats.History(ctx, sessionID)
}

// step runs the confirmation state machine, then the interpret/dispatch pipeline.
func (i *Interpreter) step(ctx context.Context, logger *zap.Logger, utterance string, aiCtx *models.AIContext) outcome {
	if aiCtx.HasPending() {
		pending, err := i.codec.Decode(aiCtx.PendingAction)
		if err != nil {
			logger.Warn("Discarding undecodable pending action", zap.Error(err))
		} else {
			switch Classify(utterance) {
			case Affirmative:
				logger.Info("Executing confirmed action", zap.String("action", string(pending.Kind())))
				turnsTotal.WithLabelValues(pathConfirmation).Inc()
				return i.dispatch(ctx, logger, pending, true)
			case Negative:
				logger.Info("Pending action discarded", zap.String("action", string(pending.Kind())))
				turnsTotal.WithLabelValues(pathConfirmation).Inc()
				return replyOutcome(pending.Kind(), "Operação cancelada. Como posso ajudar você agora?")
			}
			logger.Debug("Pending action lapsed", zap.String("action", string(pending.Kind())))
		}
	}

	action, path, raw := i.interpret(ctx, logger, utterance, aiCtx.History)
	turnsTotal.WithLabelValues(path).Inc()
	logger.Info("Interpreted utterance", zap.String("action", string(action.Kind())), zap.String("path", path))
	out := i.dispatch(ctx, logger, action, false)
	out.modelText = raw
	return out
}

// interpret asks the model for an action and falls back to the rule parser
// when the model fails or answers with something that is not an action. raw
// is the model text when the action came from it.
func (i *Interpreter) interpret(ctx context.Context, logger *zap.Logger, utterance string, history []models.ChatMessage) (action models.Action, path, raw string) {
	if i.model == nil {
		return i.fallback.Parse(utterance), pathFallback, ""
	}

	events, err := i.events.ListMatching(ctx, models.EventFilter{})
	if err != nil {
		logger.Warn("Failed to load events for prompt grounding", zap.Error(err))
		events = nil
	}
	prompt := BuildPrompt(utterance, events, i.now(), i.loc)

	text, err := i.model.Complete(ctx, prompt, history)
	if err != nil {
		logger.Warn("Language model unavailable, using fallback parser", zap.Error(err))
		return i.fallback.Parse(utterance), pathFallback, ""
	}

	res := i.extractor.Extract(text)
	if !res.Parsed() {
		logger.Info("Model output not parseable, using fallback parser", zap.String("raw", truncate(text, 200)))
		return i.fallback.Parse(utterance), pathFallback, ""
	}
	return res.Action, pathModel, text
}

func (i *Interpreter) trimHistory(h []models.ChatMessage) []models.ChatMessage {
	limit := i.historyTurns * 2
	if limit == 0 {
		return nil
	}
	if len(h) > limit {
		h = append([]models.ChatMessage(nil), h[len(h)-limit:]...)
	}
	return h
}

func (i *Interpreter) appendChat(ctx context.Context, logger *zap.Logger, sessionID, sender, text string, failed bool) {
	if i.chats == nil {
		return
	}
	entry := models.ChatLog{SessionID: sessionID, Sender: sender, Text: text, Error: failed, Timestamp: i.now()}
	if err := i.chats.Append(ctx, entry); err != nil {
		logger.Warn("Failed to persist chat log", zap.Error(err))
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Package router runs one chat turn: it classifies the inbound message, decides
// between answering, clarifying and escalating, and records the decision in the
// conversation's internal support log.
package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"supportdesk/internal/intent"
	"supportdesk/internal/knowledge"
	"supportdesk/internal/models"
	"supportdesk/internal/utils"

	"github.com/rs/zerolog"
)

const (
	defaultHistoryWindow = 50
	defaultPageSize      = 20
	maxPageSize          = 100

	// lowConfidence is the classification confidence below which a knowledge
	// miss asks for clarification instead of counting towards escalation
	lowConfidence = 0.5
	// maxSearchMisses and maxTroubleshootingAttempts are the prior counts at
	// which the next miss or attempt escalates
	maxSearchMisses            = 2
	maxTroubleshootingAttempts = 2
)

// Outcome bypass reasons
const (
	BypassEscalated            = "conversation_escalated"
	BypassSubscriptionInactive = "subscription_inactive"
)

// Escalation reasons
const (
	ReasonTrigger              = "escalation_trigger"
	ReasonRequestHuman         = "request_human"
	ReasonConfirmationYes      = "confirmation_yes"
	ReasonConfirmationFallback = "fallback_escalation_for_confirmation_yes"
	ReasonSearchMissLimit      = "search_miss_limit"
	ReasonTroubleshootingLimit = "troubleshooting_limit"
	ReasonPricing              = "pricing_negotiation"
	ReasonSensitiveAccount     = "sensitive_account_action"
	ReasonSubscriptionInactive = "subscription_inactive"
)

// ConversationStore persists conversations and their message log
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversationByThreadID(ctx context.Context, threadID string) (*models.Conversation, error)
	UpdateConversationStatus(ctx context.Context, threadID string, status models.ConversationStatus) error
	ListConversations(ctx context.Context, organizationID string, status models.ConversationStatus, limit, offset int) ([]models.Conversation, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	RecentMessages(ctx context.Context, threadID string, limit int) ([]models.Message, error)
	ListMessages(ctx context.Context, threadID string, cursor int64, limit int, includeInternal bool) ([]models.Message, error)
	GetCounters(ctx context.Context, threadID string) (*models.TurnCounters, error)
	CommitTurn(ctx context.Context, commit models.TurnCommit) ([]models.Message, error)
}

// Directory resolves contact sessions and subscriptions owned by the platform
type Directory interface {
	GetContactSession(ctx context.Context, id string) (*models.ContactSession, error)
	GetSubscriptionByOrganizationID(ctx context.Context, organizationID string) (*models.Subscription, error)
}

// KnowledgeSearcher searches an organization's knowledge base
type KnowledgeSearcher interface {
	Search(ctx context.Context, namespace, query string) (knowledge.Result, error)
}

// TextGenerator turns instructions and a prompt into text
type TextGenerator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// Publisher pushes visible messages to the live feed
type Publisher interface {
	Publish(ctx context.Context, msg models.Message) error
}

// Notifier tells operators about escalated conversations
type Notifier interface {
	NotifyEscalation(ctx context.Context, notice models.EscalationNotice) error
}

// Tracker records routing analytics
type Tracker interface {
	Track(ctx context.Context, organizationID, eventType string, metadata map[string]interface{}) error
}

// Config wires a Router. Store, Directory and Searcher are required.
type Config struct {
	Store         ConversationStore
	Directory     Directory
	Searcher      KnowledgeSearcher
	Patterns      *intent.PatternSet
	Locales       *utils.LocaleDetector
	Context       *ContextAnalyzer
	Templates     Templates
	Generator     TextGenerator
	Publisher     Publisher
	Notifier      Notifier
	Tracker       Tracker
	HistoryWindow int
	Logger        zerolog.Logger
}

// Router is the turn orchestrator. It keeps no per-conversation state between
// turns and is safe for concurrent use.
type Router struct {
	store         ConversationStore
	directory     Directory
	searcher      KnowledgeSearcher
	classifier    *intent.Classifier
	triggers      *intent.TriggerDetector
	locales       *utils.LocaleDetector
	context       *ContextAnalyzer
	templates     Templates
	generator     TextGenerator
	publisher     Publisher
	notifier      Notifier
	tracker       Tracker
	historyWindow int
	logger        zerolog.Logger
	now           func() time.Time
}

// New creates a Router, filling optional collaborators with the built-in defaults
func New(cfg Config) (*Router, error) {
	if cfg.Store == nil || cfg.Directory == nil || cfg.Searcher == nil {
		return nil, fmt.Errorf("router requires a store, a directory and a knowledge searcher")
	}

	patterns := cfg.Patterns
	if patterns == nil {
		patterns = intent.DefaultPatternSet()
	}
	r := &Router{
		store:         cfg.Store,
		directory:     cfg.Directory,
		searcher:      cfg.Searcher,
		classifier:    intent.NewClassifier(patterns),
		triggers:      intent.NewTriggerDetector(patterns),
		locales:       cfg.Locales,
		context:       cfg.Context,
		templates:     cfg.Templates,
		generator:     cfg.Generator,
		publisher:     cfg.Publisher,
		notifier:      cfg.Notifier,
		tracker:       cfg.Tracker,
		historyWindow: cfg.HistoryWindow,
		logger:        cfg.Logger.With().Str("component", "router").Logger(),
		now:           time.Now,
	}
	if r.locales == nil {
		r.locales = utils.NewLocaleDetector(utils.LangIndonesian)
	}
	if r.context == nil {
		r.context = DefaultContextAnalyzer()
	}
	if r.templates == nil {
		r.templates = DefaultTemplates()
	}
	if r.historyWindow <= 0 {
		r.historyWindow = defaultHistoryWindow
	}
	return r, nil
}

// SubmitInput is an inbound end-user message
type SubmitInput struct {
	ThreadID         string
	ContactSessionID string
	Text             string
}

// TurnOutcome summarizes what a turn did
type TurnOutcome struct {
	ThreadID        string                    `json:"thread_id"`
	Status          models.ConversationStatus `json:"status"`
	Bypass          string                    `json:"bypass,omitempty"`
	Intent          intent.Intent             `json:"intent,omitempty"`
	Confidence      float64                   `json:"confidence,omitempty"`
	Reason          string                    `json:"reason,omitempty"`
	Locale          string                    `json:"locale,omitempty"`
	Reply           string                    `json:"reply,omitempty"`
	Escalated       bool                      `json:"escalated"`
	EscalationCause string                    `json:"escalation_cause,omitempty"`
	SearchPerformed bool                      `json:"search_performed"`
	SearchHit       *bool                     `json:"search_hit,omitempty"`
	Trigger         string                    `json:"trigger,omitempty"`
}

// turn is the working state of one SubmitMessage call
type turn struct {
	conv           *models.Conversation
	text           string
	locale         string
	classification intent.Result
	signals        ContextSignals
	counters       models.TurnCounters
	baseVersion    int

	reply           string
	escalate        bool
	escalationCause string
	trigger         string
	searchPerformed bool
	searchHit       *bool
	searchScore     float64
	logs            []models.SupportLogEntry
	events          []trackedEvent
}

type trackedEvent struct {
	eventType string
	metadata  map[string]interface{}
}

func (t *turn) escalateWith(reply, cause string) {
	t.reply = reply
	t.escalate = true
	t.escalationCause = cause
}

func (t *turn) track(eventType string, metadata map[string]interface{}) {
	t.events = append(t.events, trackedEvent{eventType: eventType, metadata: metadata})
}

// SubmitMessage runs one turn for an end-user message. Validation failures
// happen before anything is written. Once the user message is stored, later
// failures are returned without rolling it back.
func (r *Router) SubmitMessage(ctx context.Context, in SubmitInput) (*TurnOutcome, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, newError(KindInvalidInput, "message text is required")
	}

	conv, err := r.authorize(ctx, in.ThreadID, in.ContactSessionID)
	if err != nil {
		return nil, err
	}
	if conv.Status == models.StatusResolved {
		return nil, newError(KindInvalidState, "conversation is resolved")
	}

	userMsg := models.Message{
		ThreadID:   conv.ThreadID,
		Role:       models.RoleUser,
		Content:    text,
		Visibility: models.VisibilityUser,
	}

	// Escalated conversations belong to operators
	if conv.Status == models.StatusEscalated {
		if err := r.appendUserMessage(ctx, &userMsg); err != nil {
			return nil, err
		}
		return &TurnOutcome{ThreadID: conv.ThreadID, Status: conv.Status, Bypass: BypassEscalated}, nil
	}

	sub, err := r.directory.GetSubscriptionByOrganizationID(ctx, conv.OrganizationID)
	if err != nil {
		return nil, upstream("failed to load subscription", err)
	}
	if sub == nil || sub.Status != models.SubscriptionActive {
		return r.escalateInactive(ctx, conv, userMsg)
	}

	history, err := r.store.RecentMessages(ctx, conv.ThreadID, r.historyWindow)
	if err != nil {
		return nil, upstream("failed to load message history", err)
	}
	counters, err := r.loadCounters(ctx, conv.ThreadID, history)
	if err != nil {
		return nil, err
	}

	t := &turn{
		conv:           conv,
		text:           text,
		locale:         r.locales.Detect(text).Code,
		classification: r.classifier.Classify(text),
		signals:        r.context.Analyze(history),
		counters:       *counters,
		baseVersion:    counters.Version,
	}
	trigger, triggered := r.triggers.Detect(text)

	if err := r.appendUserMessage(ctx, &userMsg); err != nil {
		return nil, err
	}

	if triggered {
		t.trigger = trigger.Category
		t.escalateWith(r.render(t, TemplateEscalation), ReasonTrigger+":"+trigger.Category)
	} else if err := r.dispatch(ctx, t); err != nil {
		return nil, err
	}

	committed, err := r.commit(ctx, t)
	if err != nil {
		return nil, err
	}

	r.afterTurn(ctx, t, history, userMsg, committed)

	status := conv.Status
	if t.escalate {
		status = models.StatusEscalated
	}
	return &TurnOutcome{
		ThreadID:        conv.ThreadID,
		Status:          status,
		Intent:          t.classification.Intent,
		Confidence:      t.classification.Confidence,
		Reason:          t.classification.Reason,
		Locale:          t.locale,
		Reply:           t.reply,
		Escalated:       t.escalate,
		EscalationCause: t.escalationCause,
		SearchPerformed: t.searchPerformed,
		SearchHit:       t.searchHit,
		Trigger:         t.trigger,
	}, nil
}

func (r *Router) authorize(ctx context.Context, threadID, contactSessionID string) (*models.Conversation, error) {
	session, err := r.validSession(ctx, contactSessionID)
	if err != nil {
		return nil, err
	}

	conv, err := r.store.GetConversationByThreadID(ctx, threadID)
	if err != nil {
		return nil, upstream("failed to load conversation", err)
	}
	if conv == nil {
		return nil, newError(KindNotFound, "conversation not found")
	}
	if conv.OrganizationID != session.OrganizationID || conv.ContactSessionID != session.ID {
		return nil, newError(KindUnauthorized, "incorrect session")
	}
	return conv, nil
}

func (r *Router) validSession(ctx context.Context, contactSessionID string) (*models.ContactSession, error) {
	if contactSessionID == "" {
		return nil, newError(KindUnauthorized, "contact session is required")
	}
	session, err := r.directory.GetContactSession(ctx, contactSessionID)
	if err != nil {
		return nil, upstream("failed to load contact session", err)
	}
	if session == nil || session.Expired(r.now()) {
		return nil, newError(KindUnauthorized, "invalid session")
	}
	return session, nil
}

func (r *Router) appendUserMessage(ctx context.Context, msg *models.Message) error {
	if err := r.store.AppendMessage(ctx, msg); err != nil {
		return upstream("failed to save message", err)
	}
	r.publish(ctx, *msg)
	return nil
}

// escalateInactive hands the conversation to operators without a bot reply
func (r *Router) escalateInactive(ctx context.Context, conv *models.Conversation, userMsg models.Message) (*TurnOutcome, error) {
	if err := r.appendUserMessage(ctx, &userMsg); err != nil {
		return nil, err
	}
	if err := r.store.UpdateConversationStatus(ctx, conv.ThreadID, models.StatusEscalated); err != nil {
		return nil, upstream("failed to escalate conversation", err)
	}

	r.logger.Info().
		Str("thread_id", conv.ThreadID).
		Str("organization_id", conv.OrganizationID).
		Msg("Subscription inactive, conversation escalated")

	r.notify(ctx, conv, ReasonSubscriptionInactive, "", []models.Message{userMsg})
	r.trackEvent(ctx, conv.OrganizationID, models.EventEscalation, map[string]interface{}{"reason": ReasonSubscriptionInactive})

	return &TurnOutcome{
		ThreadID:        conv.ThreadID,
		Status:          models.StatusEscalated,
		Bypass:          BypassSubscriptionInactive,
		Escalated:       true,
		EscalationCause: ReasonSubscriptionInactive,
	}, nil
}

// loadCounters reads the counter record, rebuilding it from the support log
// when no turn has been committed yet
func (r *Router) loadCounters(ctx context.Context, threadID string, history []models.Message) (*models.TurnCounters, error) {
	counters, err := r.store.GetCounters(ctx, threadID)
	if err != nil {
		return nil, upstream("failed to load conversation counters", err)
	}
	if counters == nil {
		replayed := models.CountersFromLog(threadID, history)
		counters = &replayed
	}
	return counters, nil
}

func (r *Router) render(t *turn, name string) string {
	return r.templates.Render(t.locale, r.locales.Default, name)
}

func (r *Router) dispatch(ctx context.Context, t *turn) error {
	switch t.classification.Intent {
	case intent.RequestHuman:
		t.escalateWith(r.render(t, TemplateHumanRequest), ReasonRequestHuman)

	case intent.ConfirmationYes:
		r.confirmYes(t)

	case intent.ConfirmationNo:
		t.reply = r.render(t, TemplateAnythingElse)

	case intent.GeneralConversation:
		if t.classification.Tier == intent.TierGreeting {
			t.reply = r.render(t, TemplateGreeting)
		} else {
			t.reply = r.render(t, TemplateAcknowledgment)
		}

	case intent.FactualKB:
		return r.factual(ctx, t)

	case intent.Troubleshooting:
		if t.counters.TroubleshootingAttempts >= maxTroubleshootingAttempts {
			t.escalateWith(r.render(t, TemplateEscalation), ReasonTroubleshootingLimit)
			return nil
		}
		t.counters.TroubleshootingAttempts++
		t.reply = r.render(t, TemplateTroubleshooting)
		t.logs = append(t.logs, models.SupportLogEntry{
			Type:       models.LogTroubleshootingAttempt,
			Intent:     string(t.classification.Intent),
			Confidence: t.classification.Confidence,
			Locale:     t.locale,
			Count:      t.counters.TroubleshootingAttempts,
		})

	case intent.PricingNegotiation:
		t.escalateWith(r.render(t, TemplatePricing), ReasonPricing)

	case intent.SensitiveAccountAction:
		result, err := r.search(ctx, t)
		if err != nil {
			return err
		}
		if result.Found {
			reply, err := r.answer(ctx, t, result)
			if err != nil {
				return err
			}
			t.reply = reply
			return nil
		}
		t.escalateWith(r.render(t, TemplateSensitiveEscalation), ReasonSensitiveAccount)

	default:
		t.reply = r.render(t, TemplateAnythingElse)
	}
	return nil
}

// confirmYes resolves a bare "yes" against the previous bot turn. Any bot
// history escalates; only a conversation without one gets an acknowledgment.
func (r *Router) confirmYes(t *turn) {
	entry := models.SupportLogEntry{
		Type:       models.LogConfirmationEscalate,
		Intent:     string(t.classification.Intent),
		Confidence: t.classification.Confidence,
		Locale:     t.locale,
	}

	switch {
	case t.signals.LastResort || t.signals.EscalationOffer:
		entry.Signal = "escalation_offer"
		if t.signals.LastResort {
			entry.Signal = "last_resort"
		}
		entry.Reason = "user confirmed escalation offer"
		t.escalateWith("", ReasonConfirmationYes)
	case t.signals.HasBotHistory:
		entry.Signal = "none"
		if t.signals.Clarification {
			entry.Signal = "clarification"
		}
		entry.Reason = ReasonConfirmationFallback
		t.escalateWith("", ReasonConfirmationFallback)
	default:
		t.reply = r.render(t, TemplateGenericAck)
		return
	}
	t.logs = append(t.logs, entry)
}

func (r *Router) factual(ctx context.Context, t *turn) error {
	result, err := r.search(ctx, t)
	if err != nil {
		return err
	}

	switch {
	case result.Found:
		reply, err := r.answer(ctx, t, result)
		if err != nil {
			return err
		}
		t.reply = reply

	case t.classification.Confidence < lowConfidence:
		t.reply = r.render(t, TemplateClarify)
		t.logs = append(t.logs, models.SupportLogEntry{
			Type:       models.LogLowConfidenceClarify,
			Intent:     string(t.classification.Intent),
			Confidence: t.classification.Confidence,
			Reason:     t.classification.Reason,
			Locale:     t.locale,
			Score:      floatPtr(result.Score),
			NumResults: intPtr(result.NumResults),
		})
		t.track(models.EventClarification, map[string]interface{}{"confidence": t.classification.Confidence})

	case t.counters.SearchMisses >= maxSearchMisses:
		t.escalateWith(r.render(t, TemplateEscalation), ReasonSearchMissLimit)

	default:
		t.counters.SearchMisses++
		t.reply = r.render(t, TemplateLastResort)
		t.logs = append(t.logs, models.SupportLogEntry{
			Type:       models.LogSearchMiss,
			Intent:     string(t.classification.Intent),
			Confidence: t.classification.Confidence,
			Locale:     t.locale,
			Score:      floatPtr(result.Score),
			NumResults: intPtr(result.NumResults),
			Count:      t.counters.SearchMisses,
		})
	}
	return nil
}

func (r *Router) search(ctx context.Context, t *turn) (knowledge.Result, error) {
	result, err := r.searcher.Search(ctx, t.conv.OrganizationID, t.text)
	if err != nil {
		return knowledge.Result{}, upstream("knowledge search failed", err)
	}

	t.searchPerformed = true
	t.searchHit = boolPtr(result.Found)
	t.searchScore = result.Score

	event := models.EventSearchMiss
	if result.Found {
		event = models.EventSearchHit
	}
	t.track(event, map[string]interface{}{
		"intent":      string(t.classification.Intent),
		"score":       result.Score,
		"num_results": result.NumResults,
	})
	return result, nil
}

var answerInstructions = map[string]string{
	utils.LangIndonesian: "Anda adalah asisten customer support. Jawab pertanyaan pengguna hanya berdasarkan kutipan yang diberikan, singkat dan ramah, dalam Bahasa Indonesia. Jangan mengarang informasi di luar kutipan.",
	utils.LangEnglish:    "You are a customer support assistant. Answer the user's question using only the provided passages, briefly and politely, in English. Do not invent information that is not in the passages.",
}

// answer turns retrieved passages into the reply, through the text generator
// when one is configured
func (r *Router) answer(ctx context.Context, t *turn, result knowledge.Result) (string, error) {
	if r.generator == nil {
		return result.Text, nil
	}

	system, ok := answerInstructions[t.locale]
	if !ok {
		system = answerInstructions[utils.LangEnglish]
	}
	prompt := fmt.Sprintf("Question:\n%s\n\nPassages:\n%s", t.text, result.Text)

	generated, err := r.generator.GenerateText(ctx, system, prompt)
	if err != nil {
		return "", upstream("failed to generate answer", err)
	}
	if strings.TrimSpace(generated) == "" {
		return result.Text, nil
	}
	return generated, nil
}

// commit writes the support log entries, the visible reply, the intent log and
// the status change in one store transaction
func (r *Router) commit(ctx context.Context, t *turn) ([]models.Message, error) {
	at := r.now().UTC()
	messages := make([]models.Message, 0, len(t.logs)+2)

	for _, entry := range t.logs {
		entry.At = at
		msg, err := models.SupportLogMessage(t.conv.ThreadID, entry)
		if err != nil {
			return nil, upstream("failed to encode support log", err)
		}
		messages = append(messages, msg)
	}

	if t.reply != "" {
		messages = append(messages, models.Message{
			ThreadID:   t.conv.ThreadID,
			Role:       models.RoleAssistant,
			Content:    t.reply,
			Visibility: models.VisibilityUser,
		})
	}

	intentLog, err := models.SupportLogMessage(t.conv.ThreadID, models.SupportLogEntry{
		Type:            models.LogIntent,
		Intent:          string(t.classification.Intent),
		Confidence:      t.classification.Confidence,
		Reason:          t.classification.Reason,
		Locale:          t.locale,
		LastResort:      t.signals.LastResort,
		EscalationOffer: t.signals.EscalationOffer,
		Clarification:   t.signals.Clarification,
		SearchPerformed: t.searchPerformed,
		Escalated:       t.escalate,
		SearchHit:       t.searchHit,
		Trigger:         t.trigger,
		At:              at,
	})
	if err != nil {
		return nil, upstream("failed to encode support log", err)
	}
	messages = append(messages, intentLog)

	commit := models.TurnCommit{
		ThreadID:        t.conv.ThreadID,
		Messages:        messages,
		Counters:        t.counters,
		ExpectedVersion: t.baseVersion,
	}
	commit.Counters.ThreadID = t.conv.ThreadID
	if t.escalate {
		status := models.StatusEscalated
		commit.Status = &status
	}

	committed, err := r.store.CommitTurn(ctx, commit)
	if errors.Is(err, models.ErrStaleCounters) {
		return nil, &Error{Kind: KindConflict, Message: "conversation was updated by a concurrent turn", Err: err}
	}
	if err != nil {
		return nil, upstream("failed to commit turn", err)
	}
	return committed, nil
}

// afterTurn runs side effects of a committed turn. Failures are logged only.
func (r *Router) afterTurn(ctx context.Context, t *turn, history []models.Message, userMsg models.Message, committed []models.Message) {
	var reply *models.Message
	for i := range committed {
		if !committed[i].Internal() {
			reply = &committed[i]
			r.publish(ctx, committed[i])
		}
	}

	logEvent := r.logger.Info().
		Str("thread_id", t.conv.ThreadID).
		Str("intent", string(t.classification.Intent)).
		Float64("confidence", t.classification.Confidence).
		Str("locale", t.locale).
		Bool("escalated", t.escalate).
		Bool("search_performed", t.searchPerformed)
	if t.searchHit != nil {
		logEvent = logEvent.Bool("search_hit", *t.searchHit).Float64("score", t.searchScore)
	}
	if t.trigger != "" {
		logEvent = logEvent.Str("trigger", t.trigger)
	}
	logEvent.Msg("Turn routed")

	orgID := t.conv.OrganizationID
	r.trackEvent(ctx, orgID, models.EventTurn, map[string]interface{}{
		"intent":     string(t.classification.Intent),
		"confidence": t.classification.Confidence,
		"locale":     t.locale,
	})
	for _, event := range t.events {
		r.trackEvent(ctx, orgID, event.eventType, event.metadata)
	}

	if t.escalate {
		r.trackEvent(ctx, orgID, models.EventEscalation, map[string]interface{}{"reason": t.escalationCause})

		transcript := visibleOnly(history)
		transcript = append(transcript, userMsg)
		if reply != nil {
			transcript = append(transcript, *reply)
		}
		r.notify(ctx, t.conv, t.escalationCause, t.locale, transcript)
	}
}

func (r *Router) publish(ctx context.Context, msg models.Message) {
	if r.publisher == nil || msg.Internal() {
		return
	}
	if err := r.publisher.Publish(ctx, msg); err != nil {
		r.logger.Warn().Err(err).Str("thread_id", msg.ThreadID).Msg("Failed to publish message to feed")
	}
}

func (r *Router) notify(ctx context.Context, conv *models.Conversation, reason, locale string, transcript []models.Message) {
	if r.notifier == nil {
		return
	}
	notice := models.EscalationNotice{Conversation: *conv, Reason: reason, Locale: locale, Transcript: transcript}
	notice.Conversation.Status = models.StatusEscalated
	if err := r.notifier.NotifyEscalation(ctx, notice); err != nil {
		r.logger.Warn().Err(err).Str("thread_id", conv.ThreadID).Msg("Failed to send escalation notice")
	}
}

func (r *Router) trackEvent(ctx context.Context, organizationID, eventType string, metadata map[string]interface{}) {
	if r.tracker == nil {
		return
	}
	if err := r.tracker.Track(ctx, organizationID, eventType, metadata); err != nil {
		r.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to track analytics event")
	}
}

func visibleOnly(messages []models.Message) []models.Message {
	visible := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if !msg.Internal() {
			visible = append(visible, msg)
		}
	}
	return visible
}

func boolPtr(v bool) *bool        { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

package router

import (
	"regexp"
	"strings"

	"supportdesk/internal/models"
	"supportdesk/internal/utils"
)

// ContextVocabulary is the phrasing used to recognise what the last bot turn asked
type ContextVocabulary struct {
	LastResort      []string // escalation offer or "tell me more" wording, matched as substrings
	EscalationOffer string   // stricter regexp for an explicit offer to escalate
	Clarification   []string // clarification request wording, matched as substrings
}

// DefaultContextVocabulary covers the Indonesian and English templates
func DefaultContextVocabulary() ContextVocabulary {
	return ContextVocabulary{
		LastResort: []string{
			"eskalasi", "eskalasikan", "tim support", "tim dukungan", "ceritakan lebih detail", "ceritakan lebih lanjut",
			"escalat", "tell me more", "support team", "more detail",
		},
		EscalationOffer: `(?i)\b(mau|ingin|perlu|bisa)\b.{0,40}\b(saya )?(eskalasikan|hubungkan|sambungkan|teruskan)\b` +
			`|\b(would you like|do you want|shall i|should i|want me to)\b.{0,40}\b(escalate|connect|transfer)`,
		Clarification: []string{
			"maksud anda", "maksudnya", "bisa dijelaskan", "lebih spesifik", "jelaskan lebih",
			"could you clarify", "what do you mean", "more specific", "can you clarify",
		},
	}
}

// ContextSignals answers what the last visible bot turn was about
type ContextSignals struct {
	LastResort      bool
	EscalationOffer bool
	Clarification   bool
	HasBotHistory   bool
}

// ContextAnalyzer inspects prior assistant messages
type ContextAnalyzer struct {
	lastResort    []string
	offer         *regexp.Regexp
	clarification []string
}

// NewContextAnalyzer compiles vocab
func NewContextAnalyzer(vocab ContextVocabulary) (*ContextAnalyzer, error) {
	offer, err := regexp.Compile(vocab.EscalationOffer)
	if err != nil {
		return nil, err
	}
	return &ContextAnalyzer{
		lastResort:    foldAll(vocab.LastResort),
		offer:         offer,
		clarification: foldAll(vocab.Clarification),
	}, nil
}

// DefaultContextAnalyzer returns an analyzer over DefaultContextVocabulary
func DefaultContextAnalyzer() *ContextAnalyzer {
	analyzer, err := NewContextAnalyzer(DefaultContextVocabulary())
	if err != nil {
		panic("router: invalid built-in context vocabulary: " + err.Error())
	}
	return analyzer
}

func foldAll(words []string) []string {
	folded := make([]string, len(words))
	for i, w := range words {
		folded[i] = utils.FoldCase(w)
	}
	return folded
}

// lastBotMessage returns the most recent visible assistant message
func lastBotMessage(history []models.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role == models.RoleAssistant && !msg.Internal() {
			return msg.Content, true
		}
	}
	return "", false
}

func containsAny(text string, words []string) bool {
	folded := utils.FoldCase(text)
	for _, w := range words {
		if strings.Contains(folded, w) {
			return true
		}
	}
	return false
}

// IsLastBotMessageLastResort reports whether the last bot message offered
// escalation or asked the user to tell more
func (a *ContextAnalyzer) IsLastBotMessageLastResort(history []models.Message) bool {
	text, ok := lastBotMessage(history)
	return ok && containsAny(text, a.lastResort)
}

// HasEscalationOffer reports whether the last bot message explicitly offered to escalate
func (a *ContextAnalyzer) HasEscalationOffer(history []models.Message) bool {
	text, ok := lastBotMessage(history)
	return ok && a.offer.MatchString(text)
}

// IsLastBotMessageClarification reports whether the last bot message asked for clarification
func (a *ContextAnalyzer) IsLastBotMessageClarification(history []models.Message) bool {
	text, ok := lastBotMessage(history)
	return ok && containsAny(text, a.clarification)
}

// Analyze computes every signal over history
func (a *ContextAnalyzer) Analyze(history []models.Message) ContextSignals {
	_, hasBot := lastBotMessage(history)
	return ContextSignals{
		LastResort:      a.IsLastBotMessageLastResort(history),
		EscalationOffer: a.HasEscalationOffer(history),
		Clarification:   a.IsLastBotMessageClarification(history),
		HasBotHistory:   hasBot,
	}
}

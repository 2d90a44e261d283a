package email

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"supportdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const summarySystemPrompt = "You summarize customer support chats for the support team. " +
	"Write three to five short bullet points covering what the customer needs and what was already tried. " +
	"Use the language of the conversation."

// Summarizer condenses a transcript for the support inbox
type Summarizer interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// sendFunc delivers one message and reports the provider status code and body
type sendFunc func(ctx context.Context, message *mail.SGMailV3) (int, string, error)

// EscalationNotifier emails the support inbox when a conversation is escalated
type EscalationNotifier struct {
	send         sendFunc
	supportEmail string
	summarizer   Summarizer
	logger       zerolog.Logger
	now          func() time.Time
}

// NewEscalationNotifier creates a SendGrid backed notifier. summarizer may be nil.
func NewEscalationNotifier(apiKey, supportEmail string, summarizer Summarizer, logger zerolog.Logger) (*EscalationNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SendGrid API key not configured")
	}
	client := sendgrid.NewSendClient(apiKey)
	send := func(ctx context.Context, message *mail.SGMailV3) (int, string, error) {
		response, err := client.SendWithContext(ctx, message)
		if err != nil {
			return 0, "", err
		}
		return response.StatusCode, response.Body, nil
	}
	return newEscalationNotifier(send, supportEmail, summarizer, logger), nil
}

func newEscalationNotifier(send sendFunc, supportEmail string, summarizer Summarizer, logger zerolog.Logger) *EscalationNotifier {
	if supportEmail == "" {
		supportEmail = "support@example.com"
	}
	return &EscalationNotifier{
		send:         send,
		supportEmail: supportEmail,
		summarizer:   summarizer,
		logger:       logger.With().Str("component", "email").Logger(),
		now:          time.Now,
	}
}

// NotifyEscalation sends the escalation notice with the visible transcript
func (n *EscalationNotifier) NotifyEscalation(ctx context.Context, notice models.EscalationNotice) error {
	transcript := FormatTranscript(notice.Transcript)
	summary := n.summarize(ctx, transcript)

	from := mail.NewEmail("Support Chat", "noreply@"+domainOf(n.supportEmail))
	to := mail.NewEmail("Support Team", n.supportEmail)
	subject := fmt.Sprintf("Chat escalated: %s", notice.Reason)

	body := fmt.Sprintf(`A chat conversation was escalated to the support team.

Organization: %s
Thread: %s
Reason: %s
Locale: %s
Timestamp: %s

Conversation Summary:
%s

Full Conversation:
%s`, notice.Conversation.OrganizationID, notice.Conversation.ThreadID, notice.Reason, notice.Locale,
		n.now().Format(time.RFC3339), summary, transcript)

	message := mail.NewSingleEmail(from, subject, to, body, "<pre>"+html.EscapeString(body)+"</pre>")

	status, responseBody, err := n.send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", status, responseBody)
	}

	n.logger.Info().
		Str("thread_id", notice.Conversation.ThreadID).
		Str("reason", notice.Reason).
		Msg("Escalation email sent")
	return nil
}

// summarize falls back to a fixed line when no summarizer is set or it fails
func (n *EscalationNotifier) summarize(ctx context.Context, transcript string) string {
	if n.summarizer == nil || transcript == "" {
		return "(no summary available)"
	}
	summary, err := n.summarizer.GenerateText(ctx, summarySystemPrompt, transcript)
	if err != nil || strings.TrimSpace(summary) == "" {
		n.logger.Warn().Err(err).Msg("Failed to summarize conversation")
		return "(no summary available)"
	}
	return summary
}

// FormatTranscript renders messages as "Role: content" lines
func FormatTranscript(messages []models.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Internal() {
			continue
		}
		role := "Customer"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", role, msg.Content)
	}
	return b.String()
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "example.com"
}

package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"supportdesk/internal/database"
	"supportdesk/internal/intent"
	"supportdesk/internal/knowledge"
	"supportdesk/internal/models"
	"supportdesk/internal/utils"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const factualQuestion = "bagaimana cara mengatur jadwal pengiriman laporan"

type fakeSearcher struct {
	mu      sync.Mutex
	result  knowledge.Result
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, namespace, query string) (knowledge.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, namespace+"|"+query)
	return f.result, f.err
}

func (f *fakeSearcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeGenerator struct {
	text   string
	err    error
	prompt string
}

func (f *fakeGenerator) GenerateText(_ context.Context, _, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []models.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

type fakeNotifier struct {
	notices []models.EscalationNotice
	err     error
}

func (f *fakeNotifier) NotifyEscalation(_ context.Context, notice models.EscalationNotice) error {
	f.notices = append(f.notices, notice)
	return f.err
}

type fakeTracker struct {
	events []string
}

func (f *fakeTracker) Track(_ context.Context, _ string, eventType string, _ map[string]interface{}) error {
	f.events = append(f.events, eventType)
	return nil
}

type fixture struct {
	store     *database.MemoryStore
	searcher  *fakeSearcher
	publisher *fakePublisher
	notifier  *fakeNotifier
	tracker   *fakeTracker
	router    *Router
	conv      *models.Conversation
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := database.NewMemoryStore()
	store.PutContactSession(models.ContactSession{ID: "cs-1", OrganizationID: "org-1", ExpiresAt: time.Now().Add(time.Hour)})
	store.PutContactSession(models.ContactSession{ID: "cs-2", OrganizationID: "org-1", ExpiresAt: time.Now().Add(time.Hour)})
	store.PutContactSession(models.ContactSession{ID: "cs-expired", OrganizationID: "org-1", ExpiresAt: time.Now().Add(-time.Minute)})
	store.PutSubscription(models.Subscription{OrganizationID: "org-1", Status: models.SubscriptionActive})

	f := &fixture{
		store:     store,
		searcher:  &fakeSearcher{result: knowledge.Result{NumResults: 2, Score: 0.41}},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		tracker:   &fakeTracker{},
	}
	r, err := New(Config{
		Store:     store,
		Directory: store,
		Searcher:  f.searcher,
		Publisher: f.publisher,
		Notifier:  f.notifier,
		Tracker:   f.tracker,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	f.router = r

	conv, err := r.StartConversation(context.Background(), "cs-1")
	require.NoError(t, err)
	f.conv = conv
	return f
}

func (f *fixture) submit(t *testing.T, text string) (*TurnOutcome, error) {
	t.Helper()
	return f.router.SubmitMessage(context.Background(), SubmitInput{ThreadID: f.conv.ThreadID, ContactSessionID: "cs-1", Text: text})
}

func (f *fixture) all(t *testing.T) []models.Message {
	t.Helper()
	messages, err := f.store.ListMessages(context.Background(), f.conv.ThreadID, 0, 0, true)
	require.NoError(t, err)
	return messages
}

func (f *fixture) logEntries(t *testing.T, entryType string) []models.SupportLogEntry {
	t.Helper()
	var entries []models.SupportLogEntry
	for _, msg := range f.all(t) {
		if entry, ok := models.ParseSupportLog(msg.Content); ok && entry.Type == entryType {
			entries = append(entries, entry)
		}
	}
	return entries
}

func (f *fixture) status(t *testing.T) models.ConversationStatus {
	t.Helper()
	conv, err := f.store.GetConversationByThreadID(context.Background(), f.conv.ThreadID)
	require.NoError(t, err)
	return conv.Status
}

func (f *fixture) addBotMessage(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, f.store.AppendMessage(context.Background(), &models.Message{
		ThreadID: f.conv.ThreadID,
		Role:     models.RoleAssistant,
		Content:  content,
	}))
}

func (f *fixture) addLogEntry(t *testing.T, entry models.SupportLogEntry) {
	t.Helper()
	msg, err := models.SupportLogMessage(f.conv.ThreadID, entry)
	require.NoError(t, err)
	require.NoError(t, f.store.AppendMessage(context.Background(), &msg))
}

func id(name string) string {
	return DefaultTemplates().Render(utils.LangIndonesian, utils.LangIndonesian, name)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestSubmitMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input SubmitInput
		want  error
	}{
		{"empty text", SubmitInput{ThreadID: f.conv.ThreadID, ContactSessionID: "cs-1", Text: "   "}, ErrInvalidInput},
		{"missing session", SubmitInput{ThreadID: f.conv.ThreadID, Text: "halo"}, ErrUnauthorized},
		{"unknown session", SubmitInput{ThreadID: f.conv.ThreadID, ContactSessionID: "cs-x", Text: "halo"}, ErrUnauthorized},
		{"expired session", SubmitInput{ThreadID: f.conv.ThreadID, ContactSessionID: "cs-expired", Text: "halo"}, ErrUnauthorized},
		{"other visitor", SubmitInput{ThreadID: f.conv.ThreadID, ContactSessionID: "cs-2", Text: "halo"}, ErrUnauthorized},
		{"unknown thread", SubmitInput{ThreadID: "missing", ContactSessionID: "cs-1", Text: "halo"}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.router.SubmitMessage(ctx, tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.all(t))
}

func TestSubmitMessage_ResolvedConversation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.UpdateConversationStatus(context.Background(), f.conv.ThreadID, models.StatusResolved))

	_, err := f.submit(t, "halo")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Empty(t, f.all(t))
	assert.Zero(t, f.searcher.calls())
}

func TestSubmitMessage_Greeting(t *testing.T) {
	f := newFixture(t)

	out, err := f.submit(t, "halo")
	require.NoError(t, err)

	assert.Equal(t, intent.GeneralConversation, out.Intent)
	assert.Equal(t, id(TemplateGreeting), out.Reply)
	assert.Equal(t, utils.LangIndonesian, out.Locale)
	assert.False(t, out.Escalated)
	assert.False(t, out.SearchPerformed)
	assert.Zero(t, f.searcher.calls())

	messages := f.all(t)
	require.Len(t, messages, 3)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Equal(t, models.RoleAssistant, messages[1].Role)
	entry, ok := models.ParseSupportLog(messages[2].Content)
	require.True(t, ok)
	assert.Equal(t, models.LogIntent, entry.Type)
	assert.Nil(t, entry.SearchHit)

	// only visible messages reach the feed
	require.Len(t, f.publisher.messages, 2)
	for _, msg := range f.publisher.messages {
		assert.False(t, msg.Internal())
	}
}

func TestSubmitMessage_Acknowledgment(t *testing.T) {
	f := newFixture(t)
	out, err := f.submit(t, "terima kasih")
	require.NoError(t, err)
	assert.Equal(t, id(TemplateAcknowledgment), out.Reply)
}

func TestSubmitMessage_TriggerShortCircuits(t *testing.T) {
	f := newFixture(t)

	out, err := f.submit(t, "saya mau bicara dengan agen, saya sangat kecewa")
	require.NoError(t, err)

	assert.True(t, out.Escalated)
	assert.Equal(t, "anger", out.Trigger)
	assert.Equal(t, id(TemplateEscalation), out.Reply)
	assert.Equal(t, models.StatusEscalated, out.Status)
	assert.Equal(t, models.StatusEscalated, f.status(t))
	assert.Zero(t, f.searcher.calls())

	logs := f.logEntries(t, models.LogIntent)
	require.Len(t, logs, 1)
	assert.Equal(t, "anger", logs[0].Trigger)
	assert.True(t, logs[0].Escalated)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, ReasonTrigger+":anger", f.notifier.notices[0].Reason)
	assert.Len(t, f.notifier.notices[0].Transcript, 2)
}

func TestSubmitMessage_RequestHuman(t *testing.T) {
	f := newFixture(t)
	out, err := f.submit(t, "saya mau bicara dengan agen")
	require.NoError(t, err)
	assert.Equal(t, intent.RequestHuman, out.Intent)
	assert.Equal(t, id(TemplateHumanRequest), out.Reply)
	assert.True(t, out.Escalated)
	assert.Equal(t, models.StatusEscalated, f.status(t))
}

func TestSubmitMessage_Pricing(t *testing.T) {
	f := newFixture(t)

	out, err := f.submit(t, "harga berapa?")
	require.NoError(t, err)

	assert.Equal(t, intent.PricingNegotiation, out.Intent)
	assert.Equal(t, utils.LangIndonesian, out.Locale)
	assert.Equal(t, id(TemplatePricing), out.Reply)
	assert.True(t, out.Escalated)
	assert.Equal(t, models.StatusEscalated, f.status(t))
	assert.Zero(t, f.searcher.calls())
}

func TestSubmitMessage_ConfirmationNo(t *testing.T) {
	f := newFixture(t)
	out, err := f.submit(t, "tidak")
	require.NoError(t, err)
	assert.Equal(t, id(TemplateAnythingElse), out.Reply)
	assert.False(t, out.Escalated)
}

func TestSubmitMessage_FactualHit(t *testing.T) {
	f := newFixture(t)
	f.searcher.result = knowledge.Result{Found: true, Text: "Buka menu Laporan lalu pilih Jadwal.", Score: 0.78, NumResults: 1}

	out, err := f.submit(t, factualQuestion)
	require.NoError(t, err)

	assert.Equal(t, "Buka menu Laporan lalu pilih Jadwal.", out.Reply)
	assert.True(t, out.SearchPerformed)
	require.NotNil(t, out.SearchHit)
	assert.True(t, *out.SearchHit)
	assert.Equal(t, []string{"org-1|" + factualQuestion}, f.searcher.queries)
	assert.Empty(t, f.logEntries(t, models.LogSearchMiss))
	assert.Contains(t, f.tracker.events, models.EventSearchHit)
}

func TestSubmitMessage_FactualHitWithGenerator(t *testing.T) {
	f := newFixture(t)
	f.searcher.result = knowledge.Result{Found: true, Text: "passage", Score: 0.9, NumResults: 1}
	gen := &fakeGenerator{text: "Jawaban ringkas."}
	f.router.generator = gen

	out, err := f.submit(t, factualQuestion)
	require.NoError(t, err)
	assert.Equal(t, "Jawaban ringkas.", out.Reply)
	assert.Contains(t, gen.prompt, "passage")
	assert.Contains(t, gen.prompt, factualQuestion)

	gen.err = errors.New("model unavailable")
	_, err = f.submit(t, factualQuestion)
	assert.ErrorIs(t, err, ErrUpstreamFailure)
}

func TestSubmitMessage_SearchMissesEscalateOnThird(t *testing.T) {
	f := newFixture(t)

	for i := 1; i <= 2; i++ {
		out, err := f.submit(t, factualQuestion)
		require.NoError(t, err)
		assert.Equal(t, id(TemplateLastResort), out.Reply)
		assert.False(t, out.Escalated)

		misses := f.logEntries(t, models.LogSearchMiss)
		require.Len(t, misses, i)
		assert.Equal(t, i, misses[i-1].Count)
		require.NotNil(t, misses[i-1].Score)
		assert.InDelta(t, 0.41, *misses[i-1].Score, 1e-9)
		require.NotNil(t, misses[i-1].NumResults)
		assert.Equal(t, 2, *misses[i-1].NumResults)
	}

	out, err := f.submit(t, factualQuestion)
	require.NoError(t, err)
	assert.True(t, out.Escalated)
	assert.Equal(t, id(TemplateEscalation), out.Reply)
	assert.Equal(t, ReasonSearchMissLimit, out.EscalationCause)
	assert.Len(t, f.logEntries(t, models.LogSearchMiss), 2)
	assert.Equal(t, models.StatusEscalated, f.status(t))

	counters, err := f.store.GetCounters(context.Background(), f.conv.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, 3, counters.Version)
	assert.Equal(t, 2, counters.SearchMisses)
}

func TestSubmitMessage_SearchMissesReplayedFromLog(t *testing.T) {
	f := newFixture(t)
	f.addLogEntry(t, models.SupportLogEntry{Type: models.LogSearchMiss, Count: 1})
	f.addLogEntry(t, models.SupportLogEntry{Type: models.LogSearchMiss, Count: 2})

	out, err := f.submit(t, factualQuestion)
	require.NoError(t, err)
	assert.True(t, out.Escalated)
	assert.Len(t, f.logEntries(t, models.LogSearchMiss), 2)
}

func TestSubmitMessage_LowConfidenceClarifies(t *testing.T) {
	f := newFixture(t)

	out, err := f.submit(t, "abc?")
	require.NoError(t, err)

	assert.Equal(t, intent.FactualKB, out.Intent)
	assert.Less(t, out.Confidence, 0.5)
	assert.Equal(t, id(TemplateClarify), out.Reply)
	assert.Len(t, f.logEntries(t, models.LogLowConfidenceClarify), 1)
	assert.Empty(t, f.logEntries(t, models.LogSearchMiss))
}

func TestSubmitMessage_ConfirmationYesAfterLastResort(t *testing.T) {
	f := newFixture(t)
	f.addBotMessage(t, id(TemplateLastResort))

	out, err := f.submit(t, "ya")
	require.NoError(t, err)

	assert.Equal(t, intent.ConfirmationYes, out.Intent)
	assert.True(t, out.Escalated)
	assert.Empty(t, out.Reply)
	assert.Equal(t, ReasonConfirmationYes, out.EscalationCause)
	assert.Equal(t, models.StatusEscalated, f.status(t))

	entries := f.logEntries(t, models.LogConfirmationEscalate)
	require.Len(t, entries, 1)
	assert.Equal(t, "last_resort", entries[0].Signal)

	// no new bot reply
	bots := 0
	for _, msg := range f.all(t) {
		if msg.Role == models.RoleAssistant {
			bots++
		}
	}
	assert.Equal(t, 1, bots)
}

func TestSubmitMessage_ConfirmationYesAfterEnglishLastResort(t *testing.T) {
	f := newFixture(t)
	en := DefaultTemplates()[utils.LangEnglish]

	out, err := f.submit(t, "how do I schedule the weekly report export")
	require.NoError(t, err)
	assert.Equal(t, utils.LangEnglish, out.Locale)
	assert.Equal(t, intent.FactualKB, out.Intent)
	assert.Equal(t, 0.5, out.Confidence)
	assert.False(t, out.Escalated)
	assert.Equal(t, en[TemplateLastResort], out.Reply)
	assert.Len(t, f.logEntries(t, models.LogSearchMiss), 1)

	out, err = f.submit(t, "yes")
	require.NoError(t, err)
	assert.Equal(t, intent.ConfirmationYes, out.Intent)
	assert.True(t, out.Escalated)
	assert.Empty(t, out.Reply)
	assert.Equal(t, ReasonConfirmationYes, out.EscalationCause)
	assert.Equal(t, models.StatusEscalated, f.status(t))

	entries := f.logEntries(t, models.LogConfirmationEscalate)
	require.Len(t, entries, 1)
	assert.Equal(t, "last_resort", entries[0].Signal)
}

func TestSubmitMessage_ConfirmationYesFallback(t *testing.T) {
	f := newFixture(t)
	f.addBotMessage(t, "Laporan bisa diunduh dari menu Ekspor.")

	out, err := f.submit(t, "ya")
	require.NoError(t, err)

	assert.True(t, out.Escalated)
	assert.Empty(t, out.Reply)
	assert.Equal(t, ReasonConfirmationFallback, out.EscalationCause)

	entries := f.logEntries(t, models.LogConfirmationEscalate)
	require.Len(t, entries, 1)
	assert.Equal(t, ReasonConfirmationFallback, entries[0].Reason)
}

func TestSubmitMessage_ConfirmationYesWithoutHistory(t *testing.T) {
	f := newFixture(t)

	out, err := f.submit(t, "ya")
	require.NoError(t, err)
	assert.False(t, out.Escalated)
	assert.Equal(t, id(TemplateGenericAck), out.Reply)
	assert.Empty(t, f.logEntries(t, models.LogConfirmationEscalate))
	assert.Equal(t, models.StatusUnresolved, f.status(t))
}

func TestSubmitMessage_Troubleshooting(t *testing.T) {
	f := newFixture(t)

	for i := 1; i <= 2; i++ {
		out, err := f.submit(t, "aplikasi saya gagal dibuka")
		require.NoError(t, err)
		assert.Equal(t, intent.Troubleshooting, out.Intent)
		assert.Equal(t, id(TemplateTroubleshooting), out.Reply)
		assert.Len(t, f.logEntries(t, models.LogTroubleshootingAttempt), i)
	}

	out, err := f.submit(t, "aplikasi saya gagal dibuka")
	require.NoError(t, err)
	assert.True(t, out.Escalated)
	assert.Equal(t, ReasonTroubleshootingLimit, out.EscalationCause)
}

func TestSubmitMessage_SensitiveAccount(t *testing.T) {
	t.Run("miss escalates", func(t *testing.T) {
		f := newFixture(t)
		out, err := f.submit(t, "saya lupa password akun")
		require.NoError(t, err)
		assert.Equal(t, intent.SensitiveAccountAction, out.Intent)
		assert.Equal(t, id(TemplateSensitiveEscalation), out.Reply)
		assert.True(t, out.Escalated)
		assert.Equal(t, 1, f.searcher.calls())
	})

	t.Run("hit answers", func(t *testing.T) {
		f := newFixture(t)
		f.searcher.result = knowledge.Result{Found: true, Text: "Gunakan tautan Lupa Sandi.", Score: 0.8, NumResults: 1}
		out, err := f.submit(t, "saya lupa password akun")
		require.NoError(t, err)
		assert.Equal(t, "Gunakan tautan Lupa Sandi.", out.Reply)
		assert.False(t, out.Escalated)
	})
}

func TestSubmitMessage_SearchFailureKeepsUserMessage(t *testing.T) {
	f := newFixture(t)
	f.searcher.err = errors.New("qdrant unavailable")

	_, err := f.submit(t, factualQuestion)
	assert.ErrorIs(t, err, ErrUpstreamFailure)

	messages := f.all(t)
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleUser, messages[0].Role)
	assert.Empty(t, f.logEntries(t, models.LogIntent))
}

func TestSubmitMessage_EscalatedBypassesRouting(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.UpdateConversationStatus(context.Background(), f.conv.ThreadID, models.StatusEscalated))

	out, err := f.submit(t, factualQuestion)
	require.NoError(t, err)

	assert.Equal(t, BypassEscalated, out.Bypass)
	assert.Zero(t, f.searcher.calls())
	messages := f.all(t)
	require.Len(t, messages, 1)
	assert.Equal(t, factualQuestion, messages[0].Content)
}

func TestSubmitMessage_InactiveSubscription(t *testing.T) {
	f := newFixture(t)
	f.store.PutSubscription(models.Subscription{OrganizationID: "org-1", Status: "past_due"})

	out, err := f.submit(t, "halo")
	require.NoError(t, err)

	assert.Equal(t, BypassSubscriptionInactive, out.Bypass)
	assert.True(t, out.Escalated)
	assert.Empty(t, out.Reply)
	assert.Equal(t, models.StatusEscalated, f.status(t))

	messages := f.all(t)
	require.Len(t, messages, 1)
	assert.Equal(t, models.RoleUser, messages[0].Role)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, ReasonSubscriptionInactive, f.notifier.notices[0].Reason)
}

func TestSubmitMessage_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("sendgrid down")

	out, err := f.submit(t, "harga berapa?")
	require.NoError(t, err)
	assert.True(t, out.Escalated)
}

type staleStore struct {
	*database.MemoryStore
}

func (s staleStore) GetCounters(context.Context, string) (*models.TurnCounters, error) {
	return &models.TurnCounters{Version: 0}, nil
}

func TestSubmitMessage_ConcurrentTurnConflict(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.CommitTurn(context.Background(), models.TurnCommit{ThreadID: f.conv.ThreadID})
	require.NoError(t, err)

	r, err := New(Config{Store: staleStore{f.store}, Directory: f.store, Searcher: f.searcher, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = r.SubmitMessage(context.Background(), SubmitInput{ThreadID: f.conv.ThreadID, ContactSessionID: "cs-1", Text: "halo"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, models.ErrStaleCounters)
	assert.Empty(t, f.logEntries(t, models.LogIntent))
}

func TestSubmitMessage_EnglishLocale(t *testing.T) {
	f := newFixture(t)
	out, err := f.submit(t, "how much is the price for this?")
	require.NoError(t, err)
	assert.Equal(t, utils.LangEnglish, out.Locale)
	assert.Equal(t, DefaultTemplates()[utils.LangEnglish][TemplatePricing], out.Reply)
}

func TestSubmitMessage_OneIntentLogPerTurn(t *testing.T) {
	f := newFixture(t)
	for _, text := range []string{"halo", factualQuestion, "ya"} {
		_, err := f.submit(t, text)
		require.NoError(t, err)
	}
	assert.Len(t, f.logEntries(t, models.LogIntent), 3)
}

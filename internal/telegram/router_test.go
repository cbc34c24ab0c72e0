package telegram

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/emocare/emobot/internal/domain"
	"github.com/emocare/emobot/internal/store"
)

type fakeBot struct {
	sent []tgbotapi.Chattable
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

// lastText returns the text of the most recently sent message.
func (f *fakeBot) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("last sent is not a MessageConfig: %T", f.sent[len(f.sent)-1])
	}
	return msg.Text
}

type fakeCompleter struct {
	reply    string
	messages []string
	topics   []string
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, message string, _ domain.Persona, lastTopic string, _ []domain.Turn) string {
	f.messages = append(f.messages, message)
	f.topics = append(f.topics, lastTopic)
	return f.reply
}

func newTestRouter(t *testing.T) (*Router, *fakeBot, *store.FileStore, *fakeCompleter) {
	t.Helper()
	bot := &fakeBot{}
	fs := store.New(filepath.Join(t.TempDir(), "users.json"), zap.NewNop())
	completer := &fakeCompleter{reply: "Me alegra que me escribas."}
	r := NewRouter(bot, zap.NewNop(), fs, completer, time.UTC)
	return r, bot, fs, completer
}

func msgUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			Chat: &tgbotapi.Chat{ID: chatID},
		},
	}
}

func mustLoadUser(t *testing.T, fs *store.FileStore, uid string) *domain.UserProfile {
	t.Helper()
	users, err := fs.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	u, ok := users[uid]
	if !ok {
		t.Fatalf("user %s not in store", uid)
	}
	return u
}

func TestRegistration_HappyPath(t *testing.T) {
	r, bot, fs, completer := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, msgUpdate(42, "/start"))
	if got := bot.lastText(t); got != startText {
		t.Fatalf("want start prompt, got %q", got)
	}

	r.HandleUpdate(ctx, msgUpdate(42, "María"))
	if got := bot.lastText(t); got != askTimeslotText {
		t.Fatalf("want timeslot prompt, got %q", got)
	}

	r.HandleUpdate(ctx, msgUpdate(42, "Tarde"))
	if got := bot.lastText(t); got != askPersonaText {
		t.Fatalf("want persona prompt, got %q", got)
	}

	r.HandleUpdate(ctx, msgUpdate(42, "wuen"))

	u := mustLoadUser(t, fs, "42")
	if u.Name != "María" || u.Timeslot != domain.TimeslotTarde || u.Persona != domain.PersonaWuen {
		t.Fatalf("profile fields wrong: %+v", u)
	}
	if len(u.History) != 0 || u.LastTopic != "" || u.LastSentDate != "" {
		t.Fatalf("new profile must start clean: %+v", u)
	}

	// Confirmation, then the opening completion reply.
	if got := bot.lastText(t); got != completer.reply {
		t.Fatalf("want opening reply last, got %q", got)
	}
	if len(completer.messages) != 1 || completer.messages[0] != greetingPrompt {
		t.Fatalf("want one greeting completion, got %v", completer.messages)
	}
}

func TestRegistration_InvalidTimeslotReprompts(t *testing.T) {
	r, bot, fs, _ := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, msgUpdate(7, "/start"))
	r.HandleUpdate(ctx, msgUpdate(7, "Luis"))

	for i := 0; i < 2; i++ {
		r.HandleUpdate(ctx, msgUpdate(7, "madrugada"))
		if got := bot.lastText(t); got != invalidTimeslotText {
			t.Fatalf("want re-prompt, got %q", got)
		}
	}

	users, err := fs.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("invalid input must not create a profile: %+v", users)
	}

	// Still in the same state: a valid timeslot moves on.
	r.HandleUpdate(ctx, msgUpdate(7, "noche"))
	if got := bot.lastText(t); got != askPersonaText {
		t.Fatalf("want persona prompt after valid retry, got %q", got)
	}
}

func TestRegistration_InvalidPersonaReprompts(t *testing.T) {
	r, bot, fs, _ := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, msgUpdate(7, "/start"))
	r.HandleUpdate(ctx, msgUpdate(7, "Luis"))
	r.HandleUpdate(ctx, msgUpdate(7, "mañana"))
	r.HandleUpdate(ctx, msgUpdate(7, "Ana"))

	if got := bot.lastText(t); got != invalidPersonaText {
		t.Fatalf("want re-prompt, got %q", got)
	}
	users, err := fs.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("invalid persona must not create a profile")
	}
}

func TestRegistration_AyudaCancels(t *testing.T) {
	r, bot, fs, _ := newTestRouter(t)
	ctx := context.Background()

	r.HandleUpdate(ctx, msgUpdate(9, "/start"))
	r.HandleUpdate(ctx, msgUpdate(9, "Luis"))
	r.HandleUpdate(ctx, msgUpdate(9, "/ayuda"))
	if got := bot.lastText(t); got != ayudaText {
		t.Fatalf("want help text, got %q", got)
	}

	users, err := fs.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(users) != 0 {
		t.Fatal("canceled dialogue must not create a profile")
	}

	// The dialogue is over: free text now hits the unregistered notice.
	r.HandleUpdate(ctx, msgUpdate(9, "hola"))
	if got := bot.lastText(t); got != notRegisteredText {
		t.Fatalf("want unregistered notice, got %q", got)
	}
}

func TestStart_AlreadyRegistered(t *testing.T) {
	r, bot, fs, _ := newTestRouter(t)
	if err := fs.Save(domain.Users{"5": {Name: "Eva", Timeslot: domain.TimeslotTarde, Persona: domain.PersonaPeter}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r.HandleUpdate(context.Background(), msgUpdate(5, "/start"))
	if got := bot.lastText(t); got != alreadyRegisteredText {
		t.Fatalf("want already-registered notice, got %q", got)
	}
	if _, ok := r.session(5); ok {
		t.Fatal("no session must be opened for a registered user")
	}
}

func TestMessageTurn_PersistsBothTurns(t *testing.T) {
	r, bot, fs, completer := newTestRouter(t)
	if err := fs.Save(domain.Users{"5": {Name: "Eva", Timeslot: domain.TimeslotTarde, Persona: domain.PersonaPeter}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r.HandleUpdate(context.Background(), msgUpdate(5, "Hoy rendí el examen. Creo que me fue bien"))

	u := mustLoadUser(t, fs, "5")
	if len(u.History) != 2 {
		t.Fatalf("want user+assistant turns, got %+v", u.History)
	}
	if u.History[0].Role != domain.RoleUser || u.History[1].Role != domain.RoleAssistant {
		t.Fatalf("turn roles wrong: %+v", u.History)
	}
	if u.History[1].Content != completer.reply {
		t.Fatalf("assistant turn content wrong: %q", u.History[1].Content)
	}
	if u.LastTopic != "Hoy rendí el examen" {
		t.Fatalf("topic not extracted: %q", u.LastTopic)
	}
	if u.LastMessageDate == "" {
		t.Fatal("last message date must be recorded")
	}
	if got := bot.lastText(t); got != completer.reply {
		t.Fatalf("reply not sent: %q", got)
	}
}

func TestMessageTurn_FallbackReplyStillPersisted(t *testing.T) {
	r, _, fs, completer := newTestRouter(t)
	completer.reply = "Lo siento, no puedo conectarme con el servicio de IA ahora mismo."
	if err := fs.Save(domain.Users{"5": {Name: "Eva", Timeslot: domain.TimeslotTarde, Persona: domain.PersonaPeter}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r.HandleUpdate(context.Background(), msgUpdate(5, "hola"))

	u := mustLoadUser(t, fs, "5")
	if len(u.History) != 2 || u.History[1].Content != completer.reply {
		t.Fatalf("fallback turn must be persisted too: %+v", u.History)
	}
}

func TestMessageTurn_HistoryBounded(t *testing.T) {
	r, _, fs, _ := newTestRouter(t)
	var history []domain.Turn
	for i := 0; i < domain.MaxHistory; i++ {
		history = domain.AppendTurn(history, domain.RoleAssistant, "x")
	}
	if err := fs.Save(domain.Users{"5": {Name: "Eva", Timeslot: domain.TimeslotTarde, Persona: domain.PersonaPeter, History: history}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r.HandleUpdate(context.Background(), msgUpdate(5, "hola"))

	u := mustLoadUser(t, fs, "5")
	if len(u.History) != domain.MaxHistory {
		t.Fatalf("history must stay bounded at %d, got %d", domain.MaxHistory, len(u.History))
	}
}

func TestMessageTurn_Unregistered(t *testing.T) {
	r, bot, _, completer := newTestRouter(t)

	r.HandleUpdate(context.Background(), msgUpdate(11, "hola"))
	if got := bot.lastText(t); got != notRegisteredText {
		t.Fatalf("want register notice, got %q", got)
	}
	if len(completer.messages) != 0 {
		t.Fatal("no completion call for unregistered users")
	}
}

func TestPerfil(t *testing.T) {
	r, bot, fs, _ := newTestRouter(t)
	if err := fs.Save(domain.Users{"5": {
		Name:      "Eva",
		Timeslot:  domain.TimeslotNoche,
		Persona:   domain.PersonaWuen,
		LastTopic: "mi mudanza",
	}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r.HandleUpdate(context.Background(), msgUpdate(5, "/perfil"))
	got := bot.lastText(t)
	for _, want := range []string{"Eva", "Wuen", "noche", "mi mudanza"} {
		if !strings.Contains(got, want) {
			t.Fatalf("profile text missing %q: %q", want, got)
		}
	}

	r.HandleUpdate(context.Background(), msgUpdate(12, "/perfil"))
	if got := bot.lastText(t); got != notRegisteredText {
		t.Fatalf("want unregistered notice, got %q", got)
	}
}

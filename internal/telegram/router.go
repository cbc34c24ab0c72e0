package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/emocare/emobot/internal/domain"
	"github.com/emocare/emobot/internal/llm"
)

// botAPI is the slice of the Telegram client the router uses. *tgbotapi.BotAPI
// satisfies it.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Store is the slice of the user store the router uses.
type Store interface {
	Load() (domain.Users, error)
	Update(fn func(users domain.Users)) error
}

// Registration dialogue states.
type regState int

const (
	awaitingName regState = iota
	awaitingTimeslot
	awaitingPersona
)

// regSession holds a chat's in-progress registration dialogue. Sessions live
// in memory only; an unfinished dialogue leaves no trace in the store.
type regSession struct {
	state    regState
	name     string
	timeslot domain.Timeslot
}

// Router wires Telegram updates to handlers and holds the per-chat
// registration sessions.
type Router struct {
	bot      botAPI
	log      *zap.Logger
	store    Store
	llm      llm.Completer
	loc      *time.Location
	sessions map[int64]*regSession
	mu       sync.Mutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot botAPI, log *zap.Logger, store Store, completer llm.Completer, loc *time.Location) *Router {
	return &Router{
		bot:      bot,
		log:      log,
		store:    store,
		llm:      completer,
		loc:      loc,
		sessions: make(map[int64]*regSession),
	}
}

// session returns the chat's registration session, if any.
func (r *Router) session(chatID int64) (*regSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	return s, ok
}

func (r *Router) setSession(chatID int64, s *regSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[chatID] = s
}

func (r *Router) clearSession(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, chatID)
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	chatID := upd.Message.Chat.ID
	text := strings.TrimSpace(upd.Message.Text)
	if text == "" {
		return
	}

	switch {
	case strings.HasPrefix(text, "/start"):
		r.handleStart(ctx, chatID)
	case strings.HasPrefix(text, "/perfil"):
		r.handlePerfil(ctx, chatID)
	case strings.HasPrefix(text, "/ayuda"):
		r.handleAyuda(ctx, chatID)
	case strings.HasPrefix(text, "/"):
		// Unknown command: not valid registration input nor a chat turn.
	default:
		if sess, ok := r.session(chatID); ok {
			r.handleRegistrationStep(ctx, chatID, text, sess)
			return
		}
		r.handleMessage(ctx, chatID, text)
	}
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy scheduler.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Error("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/emocare/emobot/internal/domain"
)

// chatKey is the store key for a chat.
func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// --- Commands ---

// handleStart begins the registration dialogue. Registered users are pointed
// at /perfil instead: persona and timeslot are set exactly once.
func (r *Router) handleStart(ctx context.Context, chatID int64) {
	users, err := r.store.Load()
	if err != nil {
		r.log.Error("load users failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}
	if _, ok := users[chatKey(chatID)]; ok {
		r.sendText(chatID, alreadyRegisteredText)
		return
	}
	r.setSession(chatID, &regSession{state: awaitingName})
	r.sendText(chatID, startText)
}

func (r *Router) handlePerfil(ctx context.Context, chatID int64) {
	users, err := r.store.Load()
	if err != nil {
		r.log.Error("load users failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}
	u, ok := users[chatKey(chatID)]
	if !ok {
		r.sendText(chatID, notRegisteredText)
		return
	}
	r.sendText(chatID, fmt.Sprintf(profileFmt, u.Name, u.Persona, u.Timeslot, u.LastTopic))
}

// handleAyuda prints command help. Issued mid-registration it also cancels
// the dialogue without creating a profile.
func (r *Router) handleAyuda(ctx context.Context, chatID int64) {
	r.clearSession(chatID)
	r.sendText(chatID, ayudaText)
}

// --- Registration state machine ---

// handleRegistrationStep advances the dialogue by one transition. Invalid
// input re-prompts and stays in the same state; nothing touches the store
// until the final step.
func (r *Router) handleRegistrationStep(ctx context.Context, chatID int64, text string, sess *regSession) {
	switch sess.state {
	case awaitingName:
		sess.name = text
		sess.state = awaitingTimeslot
		r.sendText(chatID, askTimeslotText)

	case awaitingTimeslot:
		ts, err := domain.ParseTimeslot(text)
		if err != nil {
			r.sendText(chatID, invalidTimeslotText)
			return
		}
		sess.timeslot = ts
		sess.state = awaitingPersona
		msg := tgbotapi.NewMessage(chatID, askPersonaText)
		msg.ReplyMarkup = personaKeyboard()
		if _, err := r.bot.Send(msg); err != nil {
			r.log.Error("send failed", zap.Int64("chatID", chatID), zap.Error(err))
		}

	case awaitingPersona:
		p, err := domain.ParsePersona(text)
		if err != nil {
			r.sendText(chatID, invalidPersonaText)
			return
		}
		r.finishRegistration(ctx, chatID, sess, p)
	}
}

// finishRegistration creates the profile atomically, confirms, and sends one
// opening completion for the fixed greeting prompt.
func (r *Router) finishRegistration(ctx context.Context, chatID int64, sess *regSession, persona domain.Persona) {
	uid := chatKey(chatID)
	err := r.store.Update(func(users domain.Users) {
		users[uid] = &domain.UserProfile{
			Name:     sess.name,
			Timeslot: sess.timeslot,
			Persona:  persona,
			History:  []domain.Turn{},
		}
	})
	if err != nil {
		r.log.Error("persist profile failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}
	r.clearSession(chatID)

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(registeredFmt, sess.name, persona))
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Error("send failed", zap.Int64("chatID", chatID), zap.Error(err))
	}

	reply := r.llm.Complete(ctx, uid, greetingPrompt, persona, "", nil)
	r.sendText(chatID, reply)
}

// --- Conversational turn ---

// handleMessage runs one conversation turn. The user turn is persisted
// before the completion call, so history survives a failed or interrupted
// call; the store is re-loaded before appending the assistant turn so an
// interleaved write is not clobbered.
func (r *Router) handleMessage(ctx context.Context, chatID int64, text string) {
	uid := chatKey(chatID)
	users, err := r.store.Load()
	if err != nil {
		r.log.Error("load users failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}
	u, ok := users[uid]
	if !ok {
		r.sendText(chatID, notRegisteredText)
		return
	}

	persona := u.Persona
	topic := domain.ExtractTopic(text)

	var history []domain.Turn
	err = r.store.Update(func(users domain.Users) {
		p, ok := users[uid]
		if !ok {
			return
		}
		p.History = domain.AppendTurn(p.History, domain.RoleUser, text)
		p.LastTopic = topic
		p.LastMessageDate = time.Now().In(r.loc).Format(time.RFC3339)
		history = p.History
	})
	if err != nil {
		r.log.Error("persist user turn failed", zap.Int64("chatID", chatID), zap.Error(err))
		r.sendText(chatID, storageErrorText)
		return
	}

	reply := r.llm.Complete(ctx, uid, text, persona, topic, history)

	err = r.store.Update(func(users domain.Users) {
		p, ok := users[uid]
		if !ok {
			return
		}
		p.History = domain.AppendTurn(p.History, domain.RoleAssistant, reply)
	})
	if err != nil {
		r.log.Error("persist assistant turn failed", zap.Int64("chatID", chatID), zap.Error(err))
	}

	r.sendText(chatID, reply)
}

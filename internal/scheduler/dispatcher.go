package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/emocare/emobot/internal/domain"
	"github.com/emocare/emobot/internal/llm"
)

// Sender is the minimal interface the dispatcher needs to push a text
// message. telegram.Router implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Store is the slice of the user store the dispatcher uses.
type Store interface {
	Load() (domain.Users, error)
	Update(fn func(users domain.Users)) error
}

// Dispatcher periodically scans all profiles and sends each eligible user a
// proactive follow-up, at most once per calendar day per user.
type Dispatcher struct {
	store    Store
	llm      llm.Completer
	sender   Sender
	loc      *time.Location
	interval time.Duration
	log      *zap.Logger
}

// New creates a Dispatcher. It holds no bot handle: send capability is
// injected via Sender.
func New(store Store, completer llm.Completer, sender Sender, loc *time.Location, interval time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:    store,
		llm:      completer,
		sender:   sender,
		loc:      loc,
		interval: interval,
		log:      log,
	}
}

// Run starts the tick loop until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("follow-up dispatcher stopping")
			return
		case <-ticker.C:
			d.tick(ctx, time.Now().In(d.loc))
		}
	}
}

// tick performs one dispatch cycle at the given local time. A user is
// eligible when the current hour matches their timeslot's hour and no
// follow-up was sent to them today. A failed send leaves the daily gate
// unset, so the user is retried on the next tick within the same hour.
func (d *Dispatcher) tick(ctx context.Context, now time.Time) {
	users, err := d.store.Load()
	if err != nil {
		d.log.Error("load users failed", zap.Error(err))
		return
	}

	today := now.Format(domain.DateLayout)
	for uid, u := range users {
		hour, ok := u.Timeslot.Hour()
		if !ok || now.Hour() != hour || u.LastSentDate == today {
			continue
		}
		d.sendFollowup(ctx, uid, u, now, today)
	}
}

// sendFollowup builds the check-in prompt, requests a completion and sends
// it. Only a successful send marks the user as handled for today, inside one
// load/mutate/save cycle.
func (d *Dispatcher) sendFollowup(ctx context.Context, uid string, u *domain.UserProfile, now time.Time, today string) {
	chatID, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		d.log.Error("invalid chat id in store", zap.String("userID", uid), zap.Error(err))
		return
	}

	var prompt string
	if u.LastTopic != "" {
		prompt = fmt.Sprintf("Hola %s, recordando que hablaste sobre: %s. ¿Cómo te fue desde entonces?", u.Name, u.LastTopic)
	} else {
		prompt = fmt.Sprintf("Hola %s, ¿cómo te sientes hoy?", u.Name)
	}

	reply := d.llm.Complete(ctx, uid, prompt, u.Persona, u.LastTopic, u.History)

	if err := d.sender.SendMessage(chatID, reply); err != nil {
		d.log.Error("follow-up send failed",
			zap.String("userID", uid), zap.String("name", u.Name), zap.Error(err))
		return
	}

	err = d.store.Update(func(users domain.Users) {
		p, ok := users[uid]
		if !ok {
			return
		}
		p.LastSentDate = today
		p.LastSentTime = now.Format(time.RFC3339)
		p.History = domain.AppendTurn(p.History, domain.RoleAssistant, reply)
	})
	if err != nil {
		d.log.Error("persist follow-up state failed", zap.String("userID", uid), zap.Error(err))
		return
	}
	d.log.Info("sent follow-up", zap.String("userID", uid), zap.String("name", u.Name))
}

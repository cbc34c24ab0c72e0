package domain

// Turn is one message exchange unit stored in a user's history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles used in history and in completion requests.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxHistory bounds a profile's conversation history (sliding window,
// oldest evicted first).
const MaxHistory = 30

// DateLayout formats the local calendar date used for the once-per-day
// follow-up gate.
const DateLayout = "2006-01-02"

// UserProfile holds per-user registration data and conversation state.
// Keyed in the store by the stringified Telegram chat ID.
type UserProfile struct {
	Name            string   `json:"name"`
	Timeslot        Timeslot `json:"time"`
	Persona         Persona  `json:"personality"`
	LastTopic       string   `json:"last_topic,omitempty"`
	History         []Turn   `json:"history"`
	LastSentDate    string   `json:"last_sent_date,omitempty"`
	LastSentTime    string   `json:"last_sent_time,omitempty"`
	LastMessageDate string   `json:"last_message_date,omitempty"`
}

// Users is the full persisted mapping of chat ID to profile.
type Users map[string]*UserProfile

// AppendTurn appends a turn to history and trims it to the last MaxHistory
// entries.
func AppendTurn(history []Turn, role, content string) []Turn {
	history = append(history, Turn{Role: role, Content: content})
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	return history
}

package domain

import (
	"errors"
	"strings"
)

var (
	ErrUnknownTimeslot = errors.New("unknown timeslot")
	ErrUnknownPersona  = errors.New("unknown persona")
)

// Timeslot is a coarse daily time-of-day bucket for follow-up delivery.
type Timeslot string

const (
	TimeslotManana Timeslot = "manana"
	TimeslotTarde  Timeslot = "tarde"
	TimeslotNoche  Timeslot = "noche"
)

// timeslotHours maps each bucket to its local delivery hour.
var timeslotHours = map[Timeslot]int{
	TimeslotManana: 8,
	TimeslotTarde:  15,
	TimeslotNoche:  21,
}

// Hour returns the local hour-of-day at which follow-ups for this timeslot
// are delivered, and whether the timeslot is known.
func (t Timeslot) Hour() (int, bool) {
	h, ok := timeslotHours[t]
	return h, ok
}

// ParseTimeslot normalizes free-text timeslot input (case-insensitive,
// accent-tolerant) to a canonical value.
func ParseTimeslot(s string) (Timeslot, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mañana", "manana":
		return TimeslotManana, nil
	case "tarde":
		return TimeslotTarde, nil
	case "noche":
		return TimeslotNoche, nil
	}
	return "", ErrUnknownTimeslot
}

// Persona selects the assistant's system prompt and tone. Chosen once at
// registration and never changed afterwards.
type Persona string

const (
	PersonaPeter Persona = "Peter"
	PersonaWuen  Persona = "Wuen"
)

// ParsePersona validates free-text persona input against the two known
// labels, case-insensitively, returning the canonical label.
func ParsePersona(s string) (Persona, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "peter":
		return PersonaPeter, nil
	case "wuen":
		return PersonaWuen, nil
	}
	return "", ErrUnknownPersona
}

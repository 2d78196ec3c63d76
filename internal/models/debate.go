package models

import (
	"strings"
	"time"
)

// DebateTurn is a single contribution to a debate transcript.
type DebateTurn struct {
	Speaker   string    `json:"speaker"`
	Round     int       `json:"round"`
	Content   string    `json:"content"`
	Degraded  bool      `json:"degraded"`
	CreatedAt time.Time `json:"created_at"`
}

// Ruling ends a debate. Forced marks rulings produced on round exhaustion or
// deadline rather than by the judge's own call to stop.
type Ruling struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Forced    bool      `json:"forced"`
	CreatedAt time.Time `json:"created_at"`
}

// DebateState accumulates one debate's transcripts. Mutated only by the
// coordinator that owns it; terminal once the ruling is set.
type DebateState struct {
	Topic       string                  `json:"topic"`
	Transcripts map[string][]DebateTurn `json:"transcripts"`
	Combined    []DebateTurn            `json:"combined"`
	Round       int                     `json:"round"`
	Ruling      *Ruling                 `json:"ruling,omitempty"`
}

func NewDebateState(topic string) *DebateState {
	return &DebateState{
		Topic:       topic,
		Transcripts: make(map[string][]DebateTurn),
	}
}

func (d *DebateState) Append(turn DebateTurn) {
	d.Transcripts[turn.Speaker] = append(d.Transcripts[turn.Speaker], turn)
	d.Combined = append(d.Combined, turn)
}

func (d *DebateState) Ruled() bool {
	return d.Ruling != nil
}

// History renders the combined transcript as labeled lines, the shape every
// debate prompt consumes.
func (d *DebateState) History() string {
	var b strings.Builder
	for _, turn := range d.Combined {
		b.WriteString(turn.Speaker)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// SpeakerHistory renders one role's transcript.
func (d *DebateState) SpeakerHistory(speaker string) string {
	var b strings.Builder
	for _, turn := range d.Transcripts[speaker] {
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

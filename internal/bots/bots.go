// Package bots holds the registry of chatbot configurations owned by one user.
//
// A Registry is an immutable value: every mutating method returns a new
// Registry and leaves the receiver untouched. Records keep insertion order.
package bots

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Errors
var (
	ErrInvalidName    = errors.New("bots: name must not be empty")
	ErrInvalidWelcome = errors.New("bots: welcome message must not be blank")
	ErrInvalidTone    = errors.New("bots: unknown tone")
	ErrBotNotFound    = errors.New("bots: not found")
	ErrLastBot        = errors.New("bots: cannot delete the last remaining bot")
)

// Tone selects the reply style of a bot.
type Tone string

const (
	ToneFriendly Tone = "friendly"
	ToneFormal   Tone = "formal"
	ToneNeutral  Tone = "neutral"
)

// ValidTone returns true if t is a recognised tone.
func ValidTone(t Tone) bool {
	switch t {
	case ToneFriendly, ToneFormal, ToneNeutral:
		return true
	}
	return false
}

// Defaults applied to newly created bots.
const (
	DefaultWelcomeMessage      = "Hello! How can I help you today?"
	DefaultTone           Tone = ToneFriendly
)

// Record is one chatbot configuration.
type Record struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	WelcomeMessage string    `json:"welcomeMessage"`
	Tone           Tone      `json:"tone"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Patch carries optional field updates. Nil fields are left unchanged.
type Patch struct {
	Name           *string `json:"name,omitempty"`
	WelcomeMessage *string `json:"welcomeMessage,omitempty"`
	Tone           *Tone   `json:"tone,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.WelcomeMessage == nil && p.Tone == nil
}

// Registry is the ordered set of a user's bots.
type Registry struct {
	records []Record
}

// NewRegistry builds a registry from records in insertion order.
func NewRegistry(records ...Record) Registry {
	return Registry{records: clone(records)}
}

// Len returns the number of bots.
func (r Registry) Len() int { return len(r.records) }

// List returns a copy of all records in insertion order.
func (r Registry) List() []Record { return clone(r.records) }

// Get returns the record with the given id.
func (r Registry) Get(id string) (Record, bool) {
	if i := r.index(id); i >= 0 {
		return r.records[i], true
	}
	return Record{}, false
}

// Active returns the active record, if any.
func (r Registry) Active() (Record, bool) {
	for _, rec := range r.records {
		if rec.IsActive {
			return rec, true
		}
	}
	return Record{}, false
}

// Create appends a bot with default welcome message and tone.
// The first bot in an empty registry becomes active.
func (r Registry) Create(id, name string, now time.Time) (Registry, Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r, Record{}, ErrInvalidName
	}
	rec := Record{
		ID:             id,
		Name:           name,
		WelcomeMessage: DefaultWelcomeMessage,
		Tone:           DefaultTone,
		IsActive:       len(r.records) == 0,
		CreatedAt:      now,
	}
	next := make([]Record, len(r.records), len(r.records)+1)
	copy(next, r.records)
	next = append(next, rec)
	return Registry{records: next}, rec, nil
}

// SwitchActive makes id the only active record.
func (r Registry) SwitchActive(id string) (Registry, error) {
	if r.index(id) < 0 {
		return r, ErrBotNotFound
	}
	next := clone(r.records)
	for i := range next {
		next[i].IsActive = next[i].ID == id
	}
	return Registry{records: next}, nil
}

// Update merges p into the record with the given id.
func (r Registry) Update(id string, p Patch) (Registry, Record, error) {
	i := r.index(id)
	if i < 0 {
		return r, Record{}, ErrBotNotFound
	}
	rec := r.records[i]
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return r, Record{}, ErrInvalidName
		}
		rec.Name = name
	}
	if p.WelcomeMessage != nil {
		if strings.TrimSpace(*p.WelcomeMessage) == "" {
			return r, Record{}, ErrInvalidWelcome
		}
		rec.WelcomeMessage = *p.WelcomeMessage
	}
	if p.Tone != nil {
		if !ValidTone(*p.Tone) {
			return r, Record{}, ErrInvalidTone
		}
		rec.Tone = *p.Tone
	}
	next := clone(r.records)
	next[i] = rec
	return Registry{records: next}, rec, nil
}

// Delete removes the record with the given id. The last remaining bot cannot
// be deleted, whatever id is asked for. When the active bot is removed the
// first remaining bot by insertion order becomes active.
func (r Registry) Delete(id string) (Registry, Record, error) {
	if len(r.records) <= 1 {
		return r, Record{}, ErrLastBot
	}
	i := r.index(id)
	if i < 0 {
		return r, Record{}, ErrBotNotFound
	}
	removed := r.records[i]
	next := make([]Record, 0, len(r.records)-1)
	next = append(next, r.records[:i]...)
	next = append(next, r.records[i+1:]...)
	if removed.IsActive && len(next) > 0 {
		next[0].IsActive = true
	}
	return Registry{records: next}, removed, nil
}

// MarshalJSON encodes the registry as an array of records.
func (r Registry) MarshalJSON() ([]byte, error) {
	if r.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.records)
}

// UnmarshalJSON decodes an array of records.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	r.records = records
	return nil
}

func (r Registry) index(id string) int {
	for i, rec := range r.records {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func clone(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	copy(out, in)
	return out
}

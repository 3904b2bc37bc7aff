// Package greeting writes personal greeting messages for events with a
// generative language model.
package greeting

import (
	"fmt"
	"strings"

	"github.com/praneethkvs/Memento/internal/display"
	"github.com/praneethkvs/Memento/internal/model"
)

// Request describes the greeting to write.
type Request struct {
	PersonName string
	EventType  model.EventType
	Relation   model.Relation
	// Age is the age being reached or the anniversary count; nil or zero
	// leaves it out of the prompt.
	Age    *int
	Tone   model.Tone
	Length model.Length
}

var toneInstructions = map[model.Tone]string{
	model.ToneCheerful:  "Make it upbeat and enthusiastic.",
	model.ToneHeartfelt: "Make it warm and sincere.",
	model.ToneFunny:     "Add some light humor appropriate for the relationship.",
	model.ToneFormal:    "Keep it respectful and professional.",
}

var lengthInstructions = map[model.Length]string{
	model.LengthShort:  "Keep it to 1-2 sentences.",
	model.LengthMedium: "Keep it to 3-4 sentences.",
	model.LengthLong:   "Make it 5-6 sentences with more detail.",
}

// BuildPrompt renders the instruction sent to the model.
func BuildPrompt(r Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %s %s %s message for %s", r.Length, r.Tone, r.EventType, r.PersonName)

	if r.Age != nil && *r.Age > 0 {
		switch r.EventType {
		case model.EventBirthday:
			fmt.Fprintf(&b, " who is turning %d", *r.Age)
		case model.EventAnniversary:
			fmt.Fprintf(&b, " celebrating their %s anniversary", display.Ordinal(*r.Age))
		}
	}

	fmt.Fprintf(&b, ". They are my %s. Keep it appropriate for sending as a personal message.", r.Relation)

	if s, ok := toneInstructions[r.Tone]; ok {
		b.WriteString(" " + s)
	}
	if s, ok := lengthInstructions[r.Length]; ok {
		b.WriteString(" " + s)
	}
	return b.String()
}

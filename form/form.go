// Package form turns field definitions into renderable inputs and checks
// an answer map before it is submitted.
package form

import (
	"fmt"
	"strings"

	"github.com/mbolis/event-registration/model"
)

type Widget string

const (
	EventSelect Widget = "event-select"
	Select      Widget = "select"
	Email       Widget = "email"
	Text        Widget = "text"
)

type Choice struct {
	Value string
	Label string
}

type Input struct {
	Label    string
	Widget   Widget
	Required bool
	Choices  []Choice

	events []model.EventOption
}

// Build returns one input per definition, in list order. Rendering rules by
// priority: event select, plain select, email input, text input.
func Build(fields []model.FieldDefinition) []Input {
	inputs := make([]Input, 0, len(fields))
	for _, f := range fields {
		in := Input{Label: f.Label, Required: f.Required}
		switch {
		case f.Kind == model.KindEvent && len(f.Events) > 0:
			in.Widget = EventSelect
			in.events = f.Events
			for _, e := range f.Events {
				in.Choices = append(in.Choices, Choice{Value: e.Name, Label: e.Name})
			}
		case f.Kind == model.KindDropdown || f.Kind == model.KindEvent:
			in.Widget = Select
			for _, o := range f.Options {
				in.Choices = append(in.Choices, Choice{Value: o, Label: o})
			}
		case f.Kind == model.KindEmail:
			in.Widget = Email
		default:
			in.Widget = Text
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// EventDetails is the read-only display derived from a chosen event.
type EventDetails struct {
	Date   string
	Place  string
	Amount string
}

// Describe looks up the chosen event. Only event selects have details.
func (in Input) Describe(value string) (EventDetails, bool) {
	for _, e := range in.events {
		if e.Name == value {
			d := EventDetails{Date: e.Date, Place: e.Venue()}
			if e.Amount != 0 {
				d.Amount = e.Amount.String()
			}
			return d, true
		}
	}
	return EventDetails{}, false
}

// Validate returns a user-facing error for the first empty required input.
func Validate(inputs []Input, answers map[string]string) error {
	for _, in := range inputs {
		if in.Required && strings.TrimSpace(answers[in.Label]) == "" {
			return fmt.Errorf("please fill in the required field: %s", in.Label)
		}
	}
	return nil
}

// Blank is the answer map of an empty form.
func Blank(inputs []Input) map[string]string {
	values := make(map[string]string, len(inputs))
	for _, in := range inputs {
		values[in.Label] = ""
	}
	return values
}

// Answers converts form values into the submitted answer map. Event
// selects send only the chosen name.
func Answers(inputs []Input, values map[string]string) model.Answers {
	answers := make(model.Answers, len(inputs))
	for _, in := range inputs {
		answers[in.Label] = model.TextAnswer(strings.TrimSpace(values[in.Label]))
	}
	return answers
}

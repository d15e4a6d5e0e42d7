package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/event-registration/model"
)

var retreat = model.EventOption{Name: "Retreat", Date: "2024-05-01", VenueKind: model.VenuePhysical, VenueName: "Hall A", Amount: 500}

func TestBuild(t *testing.T) {
	inputs := Build([]model.FieldDefinition{
		{Label: "Email", Kind: model.KindEmail, Required: true},
		{Label: "Event", Kind: model.KindEvent, Events: []model.EventOption{retreat, {Name: "Webinar", VenueKind: model.VenueOnline}}},
		{Label: "Size", Kind: model.KindDropdown, Options: []string{"S", "M"}},
		{Label: "Name", Kind: model.KindText},
		{Label: "Empty event", Kind: model.KindEvent},
	})
	require.Len(t, inputs, 5)

	assert.Equal(t, Email, inputs[0].Widget)
	assert.True(t, inputs[0].Required)

	assert.Equal(t, EventSelect, inputs[1].Widget)
	assert.Equal(t, []Choice{{"Retreat", "Retreat"}, {"Webinar", "Webinar"}}, inputs[1].Choices)

	assert.Equal(t, Select, inputs[2].Widget)
	assert.Equal(t, []Choice{{"S", "S"}, {"M", "M"}}, inputs[2].Choices)

	assert.Equal(t, Text, inputs[3].Widget)
	assert.Equal(t, Select, inputs[4].Widget, "an event field without events falls back to a plain select")
}

func TestDescribe(t *testing.T) {
	inputs := Build([]model.FieldDefinition{
		{Label: "Event", Kind: model.KindEvent, Events: []model.EventOption{retreat, {Name: "Webinar", VenueKind: model.VenueOnline}}},
		{Label: "Size", Kind: model.KindDropdown, Options: []string{"S"}},
	})

	d, ok := inputs[0].Describe("Retreat")
	require.True(t, ok)
	assert.Equal(t, EventDetails{Date: "2024-05-01", Place: "Hall A", Amount: "500"}, d)

	d, ok = inputs[0].Describe("Webinar")
	require.True(t, ok)
	assert.Equal(t, EventDetails{Place: "Online"}, d)

	_, ok = inputs[0].Describe("Unknown")
	assert.False(t, ok)
	_, ok = inputs[1].Describe("S")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	inputs := Build([]model.FieldDefinition{
		{Label: "Name", Kind: model.KindText},
		{Label: "Email", Kind: model.KindEmail, Required: true},
	})

	err := Validate(inputs, map[string]string{"Name": "Ann", "Email": "  "})
	assert.EqualError(t, err, "please fill in the required field: Email")

	assert.NoError(t, Validate(inputs, map[string]string{"Email": "a@b.co"}))
}

func TestBlankAndAnswers(t *testing.T) {
	inputs := Build([]model.FieldDefinition{
		{Label: "Email", Kind: model.KindEmail},
		{Label: "Event", Kind: model.KindEvent, Events: []model.EventOption{retreat}},
	})

	assert.Equal(t, map[string]string{"Email": "", "Event": ""}, Blank(inputs))

	answers := Answers(inputs, map[string]string{"Email": " a@b.co ", "Event": "Retreat", "Stray": "x"})
	assert.Equal(t, model.Answers{
		"Email": model.TextAnswer("a@b.co"),
		"Event": model.TextAnswer("Retreat"),
	}, answers)
}

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type FieldKind string

const (
	KindText     FieldKind = "text"
	KindEmail    FieldKind = "email"
	KindDropdown FieldKind = "dropdown"
	KindEvent    FieldKind = "event"
)

func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindEmail, KindDropdown, KindEvent:
		return true
	}
	return false
}

type VenueKind string

const (
	VenueOnline   VenueKind = "online"
	VenuePhysical VenueKind = "physical"
)

// FieldDefinition describes one input of the registration form.
// Options is only meaningful for KindDropdown, Events only for KindEvent.
type FieldDefinition struct {
	ID        string
	Label     string
	Kind      FieldKind
	Options   []string
	Events    []EventOption
	Required  bool
	Order     int
	CreatedAt time.Time
}

type fieldJSON struct {
	ID        string            `json:"id,omitempty"`
	Label     string            `json:"label"`
	Kind      FieldKind         `json:"kind"`
	Options   []json.RawMessage `json:"options"`
	Required  bool              `json:"required"`
	Order     int               `json:"order"`
	CreatedAt *time.Time        `json:"createdAt,omitempty"`
}

func (f FieldDefinition) MarshalJSON() ([]byte, error) {
	out := struct {
		ID        string     `json:"id"`
		Label     string     `json:"label"`
		Kind      FieldKind  `json:"kind"`
		Options   any        `json:"options"`
		Required  bool       `json:"required"`
		Order     int        `json:"order"`
		CreatedAt *time.Time `json:"createdAt,omitempty"`
	}{
		ID:       f.ID,
		Label:    f.Label,
		Kind:     f.Kind,
		Options:  f.optionList(),
		Required: f.Required,
		Order:    f.Order,
	}
	if !f.CreatedAt.IsZero() {
		out.CreatedAt = &f.CreatedAt
	}
	return json.Marshal(out)
}

func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	var in fieldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	options, events, err := decodeOptions(in.Options)
	if err != nil {
		return err
	}
	*f = FieldDefinition{
		ID:       in.ID,
		Label:    in.Label,
		Kind:     in.Kind,
		Options:  options,
		Events:   events,
		Required: in.Required,
		Order:    in.Order,
	}
	if in.CreatedAt != nil {
		f.CreatedAt = *in.CreatedAt
	}
	return nil
}

func (f FieldDefinition) optionList() any {
	switch {
	case f.Kind == KindEvent:
		if f.Events == nil {
			return []EventOption{}
		}
		return f.Events
	case f.Options == nil:
		return []string{}
	default:
		return f.Options
	}
}

// EncodeOptions renders the kind-specific option list as a JSON array.
func (f FieldDefinition) EncodeOptions() ([]byte, error) {
	return json.Marshal(f.optionList())
}

// DecodeOptions is the inverse of EncodeOptions.
func (f *FieldDefinition) DecodeOptions(data []byte) (err error) {
	if len(data) == 0 {
		f.Options, f.Events = nil, nil
		return nil
	}
	var raw []json.RawMessage
	if err = json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Options, f.Events, err = decodeOptions(raw)
	return err
}

var ErrMixedOptions = errors.New("options mix plain values and event objects")

func decodeOptions(raw []json.RawMessage) (options []string, events []EventOption, err error) {
	for i, r := range raw {
		switch firstByte(r) {
		case '"':
			var s string
			if err = json.Unmarshal(r, &s); err != nil {
				return nil, nil, err
			}
			options = append(options, s)
		case '{':
			var e EventOption
			if err = json.Unmarshal(r, &e); err != nil {
				return nil, nil, err
			}
			events = append(events, e)
		default:
			return nil, nil, fmt.Errorf("option %d must be a string or an event object", i)
		}
	}
	if options != nil && events != nil {
		return nil, nil, ErrMixedOptions
	}
	return options, events, nil
}

// Normalize folds the legacy shapes into the tagged kinds: a dropdown
// carrying event objects becomes an event field, and free-text kinds
// drop any options they were sent with.
func (f *FieldDefinition) Normalize() {
	f.Label = strings.TrimSpace(f.Label)
	switch f.Kind {
	case KindDropdown:
		if len(f.Events) > 0 {
			f.Kind = KindEvent
			f.Options = nil
		}
	case KindText, KindEmail:
		f.Options, f.Events = nil, nil
	}
}

// Validate reports the first problem that makes the definition unusable.
func (f FieldDefinition) Validate() error {
	if f.Label == "" {
		return errors.New("label is required")
	}
	if f.Kind == "" {
		return errors.New("kind is required")
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("unknown kind %q", f.Kind)
	}
	switch f.Kind {
	case KindDropdown:
		if len(f.Events) > 0 {
			return errors.New("dropdown options must be plain values")
		}
	case KindEvent:
		if len(f.Options) > 0 {
			return errors.New("event options must be event objects")
		}
		for i, e := range f.Events {
			if strings.TrimSpace(e.Name) == "" {
				return fmt.Errorf("event option %d has no name", i)
			}
			if e.VenueKind != "" && e.VenueKind != VenueOnline && e.VenueKind != VenuePhysical {
				return fmt.Errorf("event option %q has unknown venue kind %q", e.Name, e.VenueKind)
			}
		}
	}
	return nil
}

// FindEvent returns the event option with the given name.
func (f FieldDefinition) FindEvent(name string) (EventOption, bool) {
	for _, e := range f.Events {
		if e.Name == name {
			return e, true
		}
	}
	return EventOption{}, false
}

// FieldPatch carries the members present in a partial update.
type FieldPatch struct {
	Label      *string
	Kind       *FieldKind
	Options    []string
	Events     []EventOption
	HasOptions bool
	Required   *bool
	Order      *int
}

func (p *FieldPatch) UnmarshalJSON(data []byte) error {
	var in struct {
		Label    *string            `json:"label"`
		Kind     *FieldKind         `json:"kind"`
		Options  *[]json.RawMessage `json:"options"`
		Required *bool              `json:"required"`
		Order    *int               `json:"order"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*p = FieldPatch{Label: in.Label, Kind: in.Kind, Required: in.Required, Order: in.Order}
	if in.Options != nil {
		options, events, err := decodeOptions(*in.Options)
		if err != nil {
			return err
		}
		p.Options, p.Events, p.HasOptions = options, events, true
	}
	return nil
}

func (p FieldPatch) Apply(f *FieldDefinition) {
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Kind != nil {
		f.Kind = *p.Kind
	}
	if p.HasOptions {
		f.Options, f.Events = p.Options, p.Events
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.Order != nil {
		f.Order = *p.Order
	}
}

type OrderPair struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type ReorderFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ReorderResult is the field list after a reorder, plus the pairs that
// could not be applied.
type ReorderResult struct {
	Fields []FieldDefinition `json:"fields"`
	Failed []ReorderFailure  `json:"failed"`
}

// Amount accepts both numbers and numeric strings, since the admin editor
// posts whatever was typed in the input.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	if firstByte(data) == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("amount %q is not a number", s)
		}
		*a = Amount(f)
		return nil
	}
	var f *float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if f != nil {
		*a = Amount(*f)
	}
	return nil
}

func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

type EventOption struct {
	Name      string    `json:"name" bson:"name"`
	Date      string    `json:"date,omitempty" bson:"date,omitempty"`
	VenueKind VenueKind `json:"venueKind,omitempty" bson:"venueKind,omitempty"`
	VenueName string    `json:"venueName,omitempty" bson:"venueName,omitempty"`
	Amount    Amount    `json:"amount,omitempty" bson:"amount,omitempty"`
}

func (e EventOption) Venue() string {
	if e.VenueKind == VenuePhysical {
		if e.VenueName != "" {
			return e.VenueName
		}
		return "Physical Venue"
	}
	return "Online"
}

// Summary renders "name | date | venue | amount", skipping empty parts.
func (e EventOption) Summary() string {
	parts := []string{e.Name}
	if e.Date != "" {
		parts = append(parts, e.Date)
	}
	parts = append(parts, e.Venue())
	if e.Amount != 0 {
		parts = append(parts, e.Amount.String())
	}
	return strings.Join(parts, " | ")
}

// Answer is either free text or a structured event choice.
type Answer struct {
	Text  string
	Event *EventOption
}

func TextAnswer(s string) Answer {
	return Answer{Text: s}
}

func EventAnswer(e EventOption) Answer {
	return Answer{Event: &e}
}

func (a Answer) IsEvent() bool {
	return a.Event != nil
}

// String is the text, or the event name for structured answers.
func (a Answer) String() string {
	if a.Event != nil {
		return a.Event.Name
	}
	return a.Text
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Event != nil {
		return json.Marshal(a.Event)
	}
	return json.Marshal(a.Text)
}

var ErrBadAnswer = errors.New("answer must be a string or an event object")

func (a *Answer) UnmarshalJSON(data []byte) error {
	switch firstByte(data) {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
	case '{':
		var e EventOption
		if err := json.Unmarshal(data, &e); err != nil {
			return err
		}
		*a = EventAnswer(e)
	case 't', 'f', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*a = TextAnswer(strings.TrimSpace(string(data)))
	default:
		return ErrBadAnswer
	}
	return nil
}

type Answers map[string]Answer

type Submission struct {
	ID        string    `json:"id"`
	Answers   Answers   `json:"answers"`
	CreatedAt time.Time `json:"createdAt"`
}

type Banner struct {
	Title     string    `json:"title"`
	Image     string    `json:"image"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

type User struct {
	Username     string
	PasswordHash []byte
	Roles        []string
}

func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Token records an issued refresh token so it can be redeemed once.
type Token struct {
	Username       string
	TokenID        string
	RefreshTokenID string
	Expiration     time.Time
}

func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b
	}
	return 0
}

package pagemodel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

// Action discriminators as written in page files.
const (
	KindSelect     = "set-select-filter"
	KindDatepicker = "set-datepicker-filter"
)

// Action is one of SelectAction or DatepickerAction. The set is closed: the
// unexported marker keeps other packages from adding variants, so a type
// switch over the two is exhaustive.
type Action interface {
	Kind() string
	Targets() []ValidateTarget
	action()
}

// SelectAction picks an option in a dropdown filter.
type SelectAction struct {
	// Label scopes the dropdown inside a widget modal. Unused for top filters.
	Label        string           `json:"label,omitempty"`
	SelectIndex  SelectIndex      `json:"selectIndex"`
	MultiSelect  bool             `json:"multiSelect"`
	WaitTime     Duration         `json:"waitTime"`
	CloseOverlay bool             `json:"closeOverlay,omitempty"`
	Validate     []ValidateTarget `json:"validate,omitempty"`
}

// DatepickerAction walks a calendar and picks a day.
type DatepickerAction struct {
	Label    string           `json:"label,omitempty"`
	Picker   []PickerStep     `json:"picker" validate:"dive"`
	WaitTime Duration         `json:"waitTime"`
	Validate []ValidateTarget `json:"validate,omitempty"`
}

func (SelectAction) Kind() string     { return KindSelect }
func (DatepickerAction) Kind() string { return KindDatepicker }

func (a SelectAction) Targets() []ValidateTarget     { return a.Validate }
func (a DatepickerAction) Targets() []ValidateTarget { return a.Validate }

func (SelectAction) action()     {}
func (DatepickerAction) action() {}

// Picker step kinds.
const (
	StepPrev   = "prev"
	StepNext   = "next"
	StepSelect = "select"
)

// PickerStep is one calendar interaction.
type PickerStep struct {
	Action string `json:"action" validate:"required,oneof=prev next select"`
	// Day is the day-of-month text to click, only meaningful for select steps.
	Day string `json:"select_date_index,omitempty"`
}

// TopFilterAction binds an Action to the top filter it operates on.
type TopFilterAction struct {
	Key    string
	Action Action
}

// UnmarshalJSON decodes the flat on-disk form, where the key and the variant
// fields share one object.
func (a *TopFilterAction) UnmarshalJSON(data []byte) error {
	act, err := decodeAction(data)
	if err != nil {
		return err
	}
	a.Key = gjson.GetBytes(data, "key").String()
	a.Action = act
	return nil
}

// MarshalJSON writes the flat on-disk form back out.
func (a TopFilterAction) MarshalJSON() ([]byte, error) {
	return marshalFlat(a.Key, a.Action)
}

// ActionList is a list of widget filter actions.
type ActionList []Action

func (l *ActionList) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return fmt.Errorf("actions must be a list: %w", err)
	}
	out := make(ActionList, 0, len(raws))
	for i, raw := range raws {
		act, err := decodeAction(raw)
		if err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, act)
	}
	*l = out
	return nil
}

func (l ActionList) MarshalJSON() ([]byte, error) {
	raws := make([]json.RawMessage, 0, len(l))
	for _, act := range l {
		b, err := marshalFlat("", act)
		if err != nil {
			return nil, err
		}
		raws = append(raws, b)
	}
	return json.Marshal(raws)
}

// ErrUnknownAction is returned for an action discriminator outside the known set.
var ErrUnknownAction = errors.New("unknown action")

func decodeAction(data []byte) (Action, error) {
	kind := gjson.GetBytes(data, "action").String()
	switch kind {
	case KindSelect:
		var s SelectAction
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return s, nil
	case KindDatepicker:
		var d DatepickerAction
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, kind)
	}
}

func marshalFlat(key string, act Action) ([]byte, error) {
	body, err := json.Marshal(act)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["action"], _ = json.Marshal(act.Kind())
	if key != "" {
		fields["key"], _ = json.Marshal(key)
	}
	return json.Marshal(fields)
}

// Positional select indexes.
const (
	IndexFirst  = "first"
	IndexLast   = "last"
	IndexRandom = "random"
)

// SelectIndex is either an explicit option position or one of first, last or random.
type SelectIndex struct {
	Pos     int
	Keyword string
}

// Index returns an explicit position.
func Index(n int) SelectIndex { return SelectIndex{Pos: n} }

// Keyword returns a positional keyword index.
func Keyword(k string) SelectIndex { return SelectIndex{Keyword: k} }

// IsNumeric reports whether the index is an explicit position.
func (s SelectIndex) IsNumeric() bool { return s.Keyword == "" }

func (s SelectIndex) String() string {
	if s.IsNumeric() {
		return strconv.Itoa(s.Pos)
	}
	return s.Keyword
}

func (s *SelectIndex) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	switch res.Type {
	case gjson.Number:
		if res.Num != float64(int(res.Num)) || res.Num < 0 {
			return fmt.Errorf("selectIndex must be a non-negative integer, got %s", res.Raw)
		}
		*s = Index(int(res.Num))
		return nil
	case gjson.String:
		switch kw := strings.ToLower(res.Str); kw {
		case IndexFirst, IndexLast, IndexRandom:
			*s = Keyword(kw)
			return nil
		}
	}
	return fmt.Errorf("selectIndex must be an integer or one of first, last, random; got %s", res.Raw)
}

func (s SelectIndex) MarshalJSON() ([]byte, error) {
	if s.IsNumeric() {
		return json.Marshal(s.Pos)
	}
	return json.Marshal(s.Keyword)
}

package pagemodel

import (
	"fmt"
	"time"

	json "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
)

// Duration accepts either a millisecond count (the historical page format,
// e.g. 20000) or a Go duration string such as "20s".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	switch res.Type {
	case gjson.Null:
		*d = 0
		return nil
	case gjson.Number:
		if res.Num < 0 {
			return fmt.Errorf("duration must not be negative, got %s", res.Raw)
		}
		*d = Duration(time.Duration(res.Num * float64(time.Millisecond)))
		return nil
	case gjson.String:
		parsed, err := time.ParseDuration(res.Str)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", res.Str, err)
		}
		if parsed < 0 {
			return fmt.Errorf("duration must not be negative, got %q", res.Str)
		}
		*d = Duration(parsed)
		return nil
	}
	return fmt.Errorf("duration must be milliseconds or a duration string, got %s", res.Raw)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

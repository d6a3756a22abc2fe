package cli

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// shiftTimeLayouts are the accepted spellings for window boundaries, most
// specific first. Layouts without a zone are interpreted as site-local wall
// clock times later on.
var shiftTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// WindowTimeHook decodes window boundary strings into time.Time values when
// unmarshalling the viper configuration.
func WindowTimeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
			return data, nil
		}
		return ParseShiftTime(data.(string))
	}
}

// ParseShiftTime parses a window boundary in any accepted layout.
func ParseShiftTime(s string) (time.Time, error) {
	for _, layout := range shiftTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q, expected e.g. %q", s, shiftTimeLayouts[2])
}

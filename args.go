package toolman

import "github.com/spf13/cast"

// Args holds validated tool-call arguments keyed by parameter name. Numbers decoded from
// JSON arrive as float64; the typed accessors convert them to the declared Go type.
type Args map[string]any

// Has reports whether the argument is present (supplied or defaulted).
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// String returns the named argument as a string, or "" when absent.
func (a Args) String(name string) string { return cast.ToString(a[name]) }

// Int returns the named argument as an int64, or 0 when absent or not numeric.
func (a Args) Int(name string) int64 { return cast.ToInt64(a[name]) }

// Float returns the named argument as a float64, or 0 when absent or not numeric.
func (a Args) Float(name string) float64 { return cast.ToFloat64(a[name]) }

// Bool returns the named argument as a bool, or false when absent.
func (a Args) Bool(name string) bool { return cast.ToBool(a[name]) }

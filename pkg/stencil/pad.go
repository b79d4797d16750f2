package stencil

import (
	"strconv"
	"strings"
)

// DefaultPadWidth is the width Pad and PadString use when none is given.
const DefaultPadWidth = 5

// PadString left-pads s with zeros to width characters. Longer strings are
// returned unchanged, so PadString("TEST") is "0TEST" and
// PadString("TEST", 4) is "TEST".
func PadString(s string, width ...int) string {
	w := DefaultPadWidth
	if len(width) > 0 {
		w = width[0]
	}
	if n := w - len(s); n > 0 {
		return strings.Repeat("0", n) + s
	}
	return s
}

// Pad pads the decimal form of n: Pad(1) is "00001".
func Pad(n int, width ...int) string {
	return PadString(strconv.Itoa(n), width...)
}

func registerPadFunction(registry *DefaultFunctionRegistry) {
	registry.RegisterFunction(NewSimpleFunction("pad", 1, 2, func(args ...interface{}) (interface{}, error) {
		width := DefaultPadWidth
		if len(args) > 1 && args[1] != nil {
			w, err := toInteger(args[1])
			if err != nil {
				return nil, err
			}
			width = w.(int)
		}
		if n, ok := args[0].(int); ok {
			return Pad(n, width), nil
		}
		return PadString(FormatValue(args[0]), width), nil
	}))
}

package stencil

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const defaultLocale = "en"

// printerFor returns a message printer for a BCP 47 locale such as "de-DE".
// An empty locale means English.
func printerFor(locale string) (*message.Printer, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = defaultLocale
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	return message.NewPrinter(tag), nil
}

// optionalString returns args[i] as a string, or fallback when it is absent
// or nil.
func optionalString(args []interface{}, i int, fallback string) string {
	if i < len(args) && args[i] != nil {
		if s := FormatValue(args[i]); s != "" {
			return s
		}
	}
	return fallback
}

// FormatNumber formats n with the given number of decimals and the digit
// grouping of locale: FormatNumber(1234.5, 2, "de") is "1.234,50".
func FormatNumber(n float64, decimals int, locale string) (string, error) {
	p, err := printerFor(locale)
	if err != nil {
		return "", err
	}
	return p.Sprint(number.Decimal(n, number.Scale(decimals))), nil
}

// FormatCurrency formats n as an amount of the ISO 4217 currency code, with
// the currency's standard number of decimals: "€ 1,234.50".
func FormatCurrency(n float64, code, locale string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("invalid currency %q: %w", code, err)
	}
	p, err := printerFor(locale)
	if err != nil {
		return "", err
	}
	return p.Sprint(currency.Symbol(unit.Amount(n))), nil
}

// FormatPercent formats a ratio: FormatPercent(0.25, "en") is "25%".
func FormatPercent(n float64, locale string) (string, error) {
	p, err := printerFor(locale)
	if err != nil {
		return "", err
	}
	return p.Sprint(number.Percent(n)), nil
}

func registerNumberFormatFunctions(registry *DefaultFunctionRegistry) {
	// format_number(n [, decimals [, locale]])
	registry.RegisterFunction(NewSimpleFunction("format_number", 1, 3, func(args ...interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		n, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		decimals := 2
		if len(args) > 1 && args[1] != nil {
			d, err := toInteger(args[1])
			if err != nil {
				return nil, err
			}
			decimals = d.(int)
		}
		return FormatNumber(n, decimals, optionalString(args, 2, defaultLocale))
	}))

	// format_currency(n [, currency [, locale]])
	registry.RegisterFunction(NewSimpleFunction("format_currency", 1, 3, func(args ...interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		n, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		return FormatCurrency(n, optionalString(args, 1, "EUR"), optionalString(args, 2, defaultLocale))
	}))

	// format_percent(n [, locale])
	registry.RegisterFunction(NewSimpleFunction("format_percent", 1, 2, func(args ...interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		n, err := toNumber(args[0])
		if err != nil {
			return nil, err
		}
		return FormatPercent(n, optionalString(args, 1, defaultLocale))
	}))

	// format(pattern, values...) is a printf with English digit grouping;
	// formatWithLocale(locale, pattern, values...) picks the locale.
	registry.RegisterFunction(NewSimpleFunction("format", 1, -1, func(args ...interface{}) (interface{}, error) {
		if args[0] == nil {
			return nil, nil
		}
		p, _ := printerFor(defaultLocale)
		return p.Sprintf(FormatValue(args[0]), args[1:]...), nil
	}))
	registry.RegisterFunction(NewSimpleFunction("formatWithLocale", 2, -1, func(args ...interface{}) (interface{}, error) {
		if args[1] == nil {
			return nil, nil
		}
		p, err := printerFor(FormatValue(args[0]))
		if err != nil {
			return nil, err
		}
		return p.Sprintf(FormatValue(args[1]), args[2:]...), nil
	}))
}

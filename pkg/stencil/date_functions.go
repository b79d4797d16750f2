package stencil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Layouts tried, in order, when a date arrives as a string.
var commonDateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"2.1.2006",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, 02 Jan 2006 15:04:05",
	"Mon, 02 Jan 2006",
}

// parseDate accepts time.Time, Unix timestamps (seconds, or milliseconds
// when large) and strings in one of commonDateFormats.
func parseDate(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("cannot parse nil as date")
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, fmt.Errorf("cannot parse nil time pointer")
		}
		return *x, nil
	case int64:
		if x > 1e10 {
			return time.UnixMilli(x).UTC(), nil
		}
		return time.Unix(x, 0).UTC(), nil
	case int:
		return parseDate(int64(x))
	case float64:
		return parseDate(int64(x))
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range commonDateFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("could not parse date string: %q", x)
	default:
		return parseDate(FormatValue(x))
	}
}

type dateNames struct {
	months, monthsShort     [12]string
	weekdays, weekdaysShort [7]string // Sunday first, as time.Weekday
}

var dateNamesByLanguage = map[string]*dateNames{
	"en": {
		months:        [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		monthsShort:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		weekdays:      [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		weekdaysShort: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	},
	"de": {
		months:        [12]string{"Januar", "Februar", "März", "April", "Mai", "Juni", "Juli", "August", "September", "Oktober", "November", "Dezember"},
		monthsShort:   [12]string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"},
		weekdays:      [7]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
		weekdaysShort: [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"},
	},
	"fr": {
		months:        [12]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
		monthsShort:   [12]string{"janv.", "févr.", "mars", "avr.", "mai", "juin", "juil.", "août", "sept.", "oct.", "nov.", "déc."},
		weekdays:      [7]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"},
		weekdaysShort: [7]string{"dim.", "lun.", "mar.", "mer.", "jeu.", "ven.", "sam."},
	},
	"es": {
		months:        [12]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"},
		monthsShort:   [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"},
		weekdays:      [7]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
		weekdaysShort: [7]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"},
	},
	"it": {
		months:        [12]string{"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno", "luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre"},
		monthsShort:   [12]string{"gen", "feb", "mar", "apr", "mag", "giu", "lug", "ago", "set", "ott", "nov", "dic"},
		weekdays:      [7]string{"domenica", "lunedì", "martedì", "mercoledì", "giovedì", "venerdì", "sabato"},
		weekdaysShort: [7]string{"dom", "lun", "mar", "mer", "gio", "ven", "sab"},
	},
}

// namesFor falls back to English for unknown or unsupported locales.
func namesFor(locale string) *dateNames {
	if tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-")); err == nil {
		base, _ := tag.Base()
		if names, ok := dateNamesByLanguage[base.String()]; ok {
			return names
		}
	}
	return dateNamesByLanguage["en"]
}

// FormatDate formats t with a pattern in the style of word processors and
// java.text.SimpleDateFormat: "dd.MM.yyyy", "EEEE, d MMMM yyyy HH:mm".
// Text between single quotes is copied; '' is a literal quote.
func FormatDate(t time.Time, pattern, locale string) string {
	names := namesFor(locale)
	var sb strings.Builder

	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			switch {
			case end == 0:
				sb.WriteByte('\'')
				i += 2
			case end < 0:
				sb.WriteString(pattern[i+1:])
				i = len(pattern)
			default:
				sb.WriteString(pattern[i+1 : i+1+end])
				i += end + 2
			}
			continue
		}
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			sb.WriteByte(c)
			i++
			continue
		}

		n := 1
		for i+n < len(pattern) && pattern[i+n] == c {
			n++
		}
		sb.WriteString(dateField(t, c, n, names))
		i += n
	}
	return sb.String()
}

func dateField(t time.Time, c byte, n int, names *dateNames) string {
	num := func(v int) string {
		s := strconv.Itoa(v)
		if len(s) < n {
			s = strings.Repeat("0", n-len(s)) + s
		}
		return s
	}
	switch c {
	case 'y':
		if n == 2 {
			return fmt.Sprintf("%02d", t.Year()%100)
		}
		return num(t.Year())
	case 'M':
		switch {
		case n >= 4:
			return names.months[t.Month()-1]
		case n == 3:
			return names.monthsShort[t.Month()-1]
		}
		return num(int(t.Month()))
	case 'd':
		return num(t.Day())
	case 'E':
		if n >= 4 {
			return names.weekdays[t.Weekday()]
		}
		return names.weekdaysShort[t.Weekday()]
	case 'H':
		return num(t.Hour())
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return num(h)
	case 'm':
		return num(t.Minute())
	case 's':
		return num(t.Second())
	case 'S':
		frac := fmt.Sprintf("%09d", t.Nanosecond())
		if n > 9 {
			n = 9
		}
		return frac[:n]
	case 'a':
		return t.Format("PM")
	case 'z':
		return t.Format("MST")
	case 'Z':
		return t.Format("-0700")
	case 'X':
		if n >= 3 {
			return t.Format("Z07:00")
		}
		return t.Format("Z0700")
	default:
		return strings.Repeat(string(c), n)
	}
}

func registerDateFunctions(registry *DefaultFunctionRegistry) {
	// format_date(value, pattern [, locale]) renders nothing for a missing
	// value.
	registry.RegisterFunction(NewSimpleFunction("format_date", 2, 3, func(args ...interface{}) (interface{}, error) {
		if isEmpty(args[0]) {
			return nil, nil
		}
		t, err := parseDate(args[0])
		if err != nil {
			return nil, err
		}
		return FormatDate(t, FormatValue(args[1]), optionalString(args, 2, defaultLocale)), nil
	}))
}

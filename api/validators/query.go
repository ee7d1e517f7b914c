package validators

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/bidmart-backend/pkg/errors"
)

// IntRange bounds a numeric query parameter. Default is returned when the
// parameter is absent.
type IntRange struct {
	Default, Min, Max int
}

// ParseQueryInt reads key from the query string and checks it against rng.
func ParseQueryInt(r *http.Request, key string, rng IntRange) (int, error) {
	raw, ok := queryValue(r, key)
	if !ok {
		return rng.Default, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, queryError(key, "must be an integer", nil)
	}
	if value < rng.Min || value > rng.Max {
		return 0, queryError(key, "is out of range", map[string]any{"min": rng.Min, "max": rng.Max})
	}
	return value, nil
}

// ParseQueryBool reads an optional boolean; nil when absent.
func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	raw, ok := queryValue(r, key)
	if !ok {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, queryError(key, "must be true or false", nil)
	}
	return &value, nil
}

// SanitizeString trims input, drops control characters and caps the result at
// maxRunes characters. maxRunes <= 0 disables the cap.
func SanitizeString(input string, maxRunes int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if maxRunes <= 0 || utf8.RuneCountInString(cleaned) <= maxRunes {
		return cleaned
	}
	return strings.TrimSpace(string([]rune(cleaned)[:maxRunes]))
}

func queryValue(r *http.Request, key string) (string, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	return raw, raw != ""
}

func queryError(key, problem string, extra map[string]any) *pkgerrors.Error {
	details := map[string]any{"field": key}
	for k, v := range extra {
		details[k] = v
	}
	return pkgerrors.New(pkgerrors.CodeValidation, key+" "+problem).WithDetails(details)
}

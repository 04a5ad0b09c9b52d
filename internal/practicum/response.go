package practicum

import (
	"encoding/json"
	"strconv"

	"hwbot/internal/fault"
)

const (
	keyHomeworks   = "homeworks"
	keyCurrentDate = "current_date"
)

// Response is a validated API answer.
type Response struct {
	// Homeworks keeps the raw records; ParseRecord validates each one.
	Homeworks   []any
	CurrentDate int64
}

// CheckResponse validates the top-level shape of an API answer.
// Key presence is checked first (homeworks, then current_date), then types.
func CheckResponse(raw map[string]any) (Response, error) {
	for _, key := range []string{keyHomeworks, keyCurrentDate} {
		if _, ok := raw[key]; !ok {
			return Response{}, fault.New(fault.KindMalformedResponse, "ключа %s нет в ответе API.", key)
		}
	}

	homeworks, okList := raw[keyHomeworks].([]any)
	current, okInt := asInt64(raw[keyCurrentDate])
	if !okList || !okInt {
		return Response{}, fault.New(fault.KindMalformedResponse, "неверный тип значения ключа в ответе API")
	}
	return Response{Homeworks: homeworks, CurrentDate: current}, nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		// Only reachable when the body was decoded without UseNumber.
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"prediction-service/internal/core/domain"
)

// coerceFeature converts a raw JSON value into the dense representation of
// feature f. The returned reason is empty on success.
func coerceFeature(f domain.Feature, raw any) (float64, string) {
	switch f.Type {
	case domain.FeatureTypeNumber, domain.FeatureTypeInteger:
		x, reason := toNumber(raw)
		if reason != "" {
			return 0, reason
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, "must be a finite number"
		}
		if f.Type == domain.FeatureTypeInteger && x != math.Trunc(x) {
			return 0, fmt.Sprintf("expected integer, got %v", x)
		}
		if f.Min != nil && x < *f.Min {
			return 0, fmt.Sprintf("%v is below minimum %v", x, *f.Min)
		}
		if f.Max != nil && x > *f.Max {
			return 0, fmt.Sprintf("%v is above maximum %v", x, *f.Max)
		}
		return x, ""

	case domain.FeatureTypeBoolean:
		return toBool(raw)

	case domain.FeatureTypeCategory:
		s, ok := raw.(string)
		if !ok {
			return 0, fmt.Sprintf("expected one of %s, got %s", strings.Join(f.Values, ", "), describe(raw))
		}
		s = strings.TrimSpace(s)
		for i, v := range f.Values {
			if strings.EqualFold(v, s) {
				return float64(i), ""
			}
		}
		return 0, fmt.Sprintf("unknown category %q, expected one of %s", s, strings.Join(f.Values, ", "))
	}
	return 0, fmt.Sprintf("unsupported feature type %q", f.Type)
}

func toNumber(raw any) (float64, string) {
	switch v := raw.(type) {
	case float64:
		return v, ""
	case float32:
		return float64(v), ""
	case int:
		return float64(v), ""
	case int32:
		return float64(v), ""
	case int64:
		return float64(v), ""
	case uint:
		return float64(v), ""
	case uint32:
		return float64(v), ""
	case uint64:
		return float64(v), ""
	case json.Number:
		x, err := v.Float64()
		if err != nil {
			return 0, fmt.Sprintf("expected number, got %q", v.String())
		}
		return x, ""
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Sprintf("expected number, got %q", v)
		}
		return x, ""
	}
	return 0, fmt.Sprintf("expected number, got %s", describe(raw))
}

func toBool(raw any) (float64, string) {
	switch v := raw.(type) {
	case bool:
		if v {
			return 1, ""
		}
		return 0, ""
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return 1, ""
		case "false", "no", "0":
			return 0, ""
		}
		return 0, fmt.Sprintf("expected boolean, got %q", v)
	}
	if x, reason := toNumber(raw); reason == "" && (x == 0 || x == 1) {
		return x, ""
	}
	return 0, fmt.Sprintf("expected boolean, got %s", describe(raw))
}

func describe(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", raw)
}

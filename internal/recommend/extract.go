// Package recommend implements the recommendation pipeline: preference
// profiling, candidate sourcing, LLM ranking, and the knowledge-only
// fallback, with resilient recovery from truncated model output.
package recommend

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"bookmuse/internal/types"
)

// Decode parses model output into a JSON value, recovering what it can when
// the response was cut off by an output-token limit. Recovery is the default
// policy, not an edge case: models truncate often enough that dropping the
// whole response would make short token budgets unusable.
//
// For truncated arrays every complete top-level object is salvaged; for
// truncated objects the trailing partial pair is cut and the object closed.
// Only when nothing is recoverable does Decode fail, with a
// MalformedResponseError carrying a snippet of the raw input.
func Decode(raw, stage string, logger *zap.Logger) (interface{}, error) {
	cleaned := stripFences(raw)

	var direct interface{}
	if err := json.Unmarshal([]byte(cleaned), &direct); err == nil {
		return direct, nil
	}
	logger.Warn("JSON parse failed, attempting truncation recovery", zap.String("stage", stage))

	if strings.HasPrefix(cleaned, "[") {
		if recovered := recoverArray(cleaned); len(recovered) > 0 {
			logger.Warn("recovered complete objects from truncated response",
				zap.String("stage", stage), zap.Int("objects", len(recovered)))
			return recovered, nil
		}
	}

	if strings.HasPrefix(cleaned, "{") {
		if obj, ok := recoverObject(cleaned); ok {
			logger.Warn("recovered truncated object by closing at last complete pair",
				zap.String("stage", stage))
			return obj, nil
		}
	}

	logger.Error("could not recover truncated JSON", zap.String("stage", stage), zap.String("raw", raw))
	return nil, types.NewMalformedResponseError(stage, raw)
}

// stripFences removes accidental markdown code fences around the payload.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// recoverArray scans an array-shaped payload and keeps every top-level
// {...} object that parses on its own. Objects that fail to parse are
// discarded silently; some usable data beats total failure.
func recoverArray(cleaned string) []interface{} {
	var recovered []interface{}
	depth := 0
	objStart := -1
	for i := 0; i < len(cleaned); i++ {
		switch cleaned[i] {
		case '{':
			if depth == 0 {
				objStart = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && objStart >= 0 {
				var obj interface{}
				if err := json.Unmarshal([]byte(cleaned[objStart:i+1]), &obj); err == nil {
					recovered = append(recovered, obj)
				}
				objStart = -1
			}
		}
	}
	return recovered
}

// recoverObject walks backward through an object-shaped payload, truncating
// trailing partial content, stripping a dangling comma, and closing the
// brace. The first truncation point that parses wins; this restores an
// object whose last key-value pair was cut off mid-stream.
func recoverObject(cleaned string) (interface{}, bool) {
	for i := len(cleaned) - 1; i > 0; i-- {
		candidate := strings.TrimRight(cleaned[:i], " \t\r\n")
		candidate = strings.TrimSuffix(candidate, ",")
		candidate += "\n}"

		var obj interface{}
		if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
			return obj, true
		}
	}
	return nil, false
}

// rebind converts a dynamically-parsed JSON value into a typed record.
// Missing fields stay at their zero values; a shape mismatch (array where an
// object is expected, or vice versa) is a malformed response.
func rebind(val interface{}, stage string, target interface{}) error {
	data, err := json.Marshal(val)
	if err != nil {
		return types.NewMalformedResponseError(stage, "unencodable recovered value")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return types.NewMalformedResponseError(stage, string(data))
	}
	return nil
}

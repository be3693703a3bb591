package application

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("no JSON object in model output")

// decodeModelJSON decodes the first JSON object found in raw model text.
// Markdown fences and prose around the object are ignored.
func decodeModelJSON(raw string, out any) error {
	text := strings.TrimSpace(raw)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	var lastErr error
	for offset := 0; offset < len(text); {
		start := strings.IndexByte(text[offset:], '{')
		if start < 0 {
			break
		}
		start += offset

		decoder := json.NewDecoder(strings.NewReader(text[start:]))
		err := decoder.Decode(out)
		if err == nil {
			return nil
		}
		lastErr = err
		offset = start + 1
	}

	if lastErr != nil {
		return lastErr
	}
	return errNoJSONObject
}

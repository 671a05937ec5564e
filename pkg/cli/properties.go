package cli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseProperties turns key=value arguments into a property map. Values
// that are valid JSON (numbers, booleans, objects...) keep their type;
// anything else is taken as a plain string.
func ParseProperties(args []string) (map[string]any, error) {
	properties := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q: expected key=value", arg)
		}
		properties[key] = parseValue(raw)
	}
	return properties, nil
}

func parseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err == nil {
		return value
	}
	return raw
}

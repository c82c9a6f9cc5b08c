// internal/workers/search/search-listings/config.go
package searchlistings

import "time"

type Config struct {
	Timeout time.Duration
	// InputSchema validates job variables. Nil uses DefaultInputSchema.
	InputSchema map[string]interface{}
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     15 * time.Second,
		InputSchema: DefaultInputSchema(),
	}
}

// DefaultInputSchema accepts {rawParams: {key: scalar | [scalar]}}.
func DefaultInputSchema() map[string]interface{} {
	scalar := []interface{}{"string", "number", "boolean"}
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"rawParams"},
		"properties": map[string]interface{}{
			"rawParams": map[string]interface{}{
				"type": "object",
				"additionalProperties": map[string]interface{}{
					"type":  append(append([]interface{}{}, scalar...), "array", "null"),
					"items": map[string]interface{}{"type": scalar},
				},
			},
		},
	}
}

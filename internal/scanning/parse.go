package scanning

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:[\\w-]+)?\\s*(\\{.*?\\})\\s*```")

const guessSchema = `{
  "type": "object",
  "required": ["invoice_number", "vendor_name", "invoice_date", "total_amount", "tax_amount", "line_items"],
  "properties": {
    "invoice_number": {"type": ["string", "null"]},
    "vendor_name": {"type": ["string", "null"]},
    "invoice_date": {"type": ["string", "null"]},
    "total_amount": {"type": ["number", "null"]},
    "tax_amount": {"type": ["number", "null"]},
    "line_items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "description": {"type": ["string", "null"]},
          "amount": {"type": ["number", "null"]}
        }
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("invoice-guess.json", guessSchema)

// ParseResponse recovers a JSON object from a model reply. The object inside
// the first fenced code block wins; otherwise the whole reply is parsed.
// Anything unparseable yields an empty Guess, never an error.
func ParseResponse(text string, logger *slog.Logger) Guess {
	if logger == nil {
		logger = slog.Default()
	}

	candidate := strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}

	var g Guess
	if err := json.Unmarshal([]byte(candidate), &g); err != nil {
		logger.Warn("remote.parse_failure", "error", err, "response_len", len(text))
		return Guess{}
	}
	if g == nil {
		logger.Warn("remote.parse_failure", "error", "response is null", "response_len", len(text))
		return Guess{}
	}

	if err := schema.Validate(map[string]any(g)); err != nil {
		logger.Warn("remote.schema_mismatch", "error", err)
	}
	return g
}

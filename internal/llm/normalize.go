package llm

import (
	"bytes"
	"encoding/json"
)

// Shape names the form a provider payload arrived in.
type Shape int

const (
	// ShapeResponseString is {"response": "..."}.
	ShapeResponseString Shape = iota
	// ShapeResponseObject is {"response": {...}} or {"response": [...]}.
	ShapeResponseObject
	// ShapeBareString is a JSON string payload.
	ShapeBareString
	// ShapeEnvelope is anything else; the payload is used verbatim.
	ShapeEnvelope
)

func (s Shape) String() string {
	switch s {
	case ShapeResponseString:
		return "response_string"
	case ShapeResponseObject:
		return "response_object"
	case ShapeBareString:
		return "bare_string"
	default:
		return "envelope"
	}
}

// Output is a provider payload classified by shape.
type Output struct {
	Shape Shape
	Text  string
}

// Classify inspects payload in a fixed order and returns the first shape that
// matches: response string, response object, bare string, whole envelope.
func Classify(payload json.RawMessage) Output {
	trimmed := bytes.TrimSpace(payload)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		if raw, ok := obj["response"]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return Output{Shape: ShapeResponseString, Text: s}
			}
			if t := firstByte(raw); t == '{' || t == '[' {
				return Output{Shape: ShapeResponseObject, Text: string(bytes.TrimSpace(raw))}
			}
		}
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return Output{Shape: ShapeBareString, Text: s}
	}

	if len(trimmed) == 0 || !json.Valid(trimmed) {
		// Not JSON at all: plain text from a non-conforming proxy.
		return Output{Shape: ShapeBareString, Text: string(payload)}
	}
	return Output{Shape: ShapeEnvelope, Text: string(trimmed)}
}

// Normalize returns the text to hand to the extractor.
func Normalize(payload json.RawMessage) string {
	return Classify(payload).Text
}

func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"smartcalendar/models"
)

// fencedBlockRe matches ```lang ... ``` blocks; group 1 is the label, group 2 the body.
var fencedBlockRe = regexp.MustCompile("(?s)```([A-Za-z]*)[ \\t]*\\r?\\n?(.*?)```")

// ExtractionResult holds either a parsed Action or the unparsed model text.
type ExtractionResult struct {
	Action models.Action
	Raw    string
}

// Parsed reports whether an Action was recovered.
func (r ExtractionResult) Parsed() bool { return r.Action != nil }

// ResponseExtractor pulls a structured action out of free-form model output.
type ResponseExtractor struct {
	codec *ActionCodec
}

func NewResponseExtractor(codec *ActionCodec) *ResponseExtractor {
	return &ResponseExtractor{codec: codec}
}

// Extract looks at the first fenced block labelled json (or unlabelled) that
// contains braces; without one it scans the whole text. Only the first JSON
// object found is decoded.
func (x *ResponseExtractor) Extract(text string) ExtractionResult {
	unparsed := ExtractionResult{Raw: text}

	source := text
	for _, m := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		label := strings.ToLower(m[1])
		if (label == "" || label == "json") && strings.Contains(m[2], "{") {
			source = m[2]
			break
		}
	}

	obj, ok := FirstJSONObject(source)
	if !ok {
		return unparsed
	}
	action, err := x.codec.Decode([]byte(obj))
	if err != nil {
		return unparsed
	}
	return ExtractionResult{Action: action, Raw: text}
}

// FirstJSONObject returns the first balanced {...} span of text that is valid JSON.
// Braces inside string literals are ignored while balancing.
func FirstJSONObject(text string) (string, bool) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		if end, ok := balancedEnd(text, start); ok {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

package scripts

import (
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
)

// textKeys are the recognized column or object keys for batch payloads, in
// precedence order.
var textKeys = []string{"text", "prompt", "sentence"}

// ParseBatch expands a pasted payload into input texts. Supported formats
// are "txt" (one phrase per line), "jsonl" (one object per line) and "csv"
// (header row with a text, prompt or sentence column). Unknown formats are
// treated as txt; blank entries are dropped.
func ParseBatch(raw, format string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jsonl":
		return parseJSONL(raw)
	case "csv":
		texts, err := parseCSV(raw)
		if err != nil {
			// Malformed CSV degrades to line-per-phrase
			return parseLines(raw)
		}
		return texts
	default:
		return parseLines(raw)
	}
}

func parseLines(raw string) []string {
	var texts []string
	for _, line := range strings.Split(raw, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

// parseJSONL reads one JSON object per line, skipping malformed lines.
func parseJSONL(raw string) []string {
	var texts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if t := pickText(obj); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

func parseCSV(raw string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	col := -1
	for _, key := range textKeys {
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), key) {
				col = i
				break
			}
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, nil
	}

	var texts []string
	for _, record := range records[1:] {
		if col >= len(record) {
			continue
		}
		if t := strings.TrimSpace(record[col]); t != "" {
			texts = append(texts, t)
		}
	}
	return texts, nil
}

// pickText returns the first non-blank recognized field, coercing numbers
// to their decimal form.
func pickText(obj map[string]any) string {
	for _, key := range textKeys {
		switch v := obj[key].(type) {
		case string:
			if t := strings.TrimSpace(v); t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

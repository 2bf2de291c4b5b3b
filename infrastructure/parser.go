package infrastructure

import (
	"encoding/json"
	"strconv"
	"strings"

	"ats-evaluator/domain"
)

// decoration is removed from model replies before decoding. "```json" must precede "```".
var decoration = strings.NewReplacer(
	"**", "",
	"```json", "",
	"```JSON", "",
	"```", "",
)

// ParseResponse decodes a model reply into the evaluation schema. It never fails:
// a reply that is not a JSON object comes back as *domain.Degraded.
func ParseResponse(raw string) domain.Outcome {
	cleaned := cleanJSONResponse(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil || fields == nil {
		return &domain.Degraded{Response: cleaned}
	}

	return &domain.Parsed{
		Score:   decodeScore(fields[FieldMatch]),
		Matched: decodeKeywords(fields[FieldMatched]),
		Missing: decodeKeywords(fields[FieldMissing]),
		Summary: decodeSummary(fields[FieldSummary]),
	}
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(decoration.Replace(content))

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start != -1 && end != -1 && end > start {
		candidate := content[start : end+1]
		if json.Valid([]byte(candidate)) {
			content = candidate
		}
	}

	return strings.TrimSpace(content)
}

func decodeScore(raw json.RawMessage) domain.MatchScore {
	if len(raw) == 0 {
		return 0
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domain.ParseMatchScore(s)
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return domain.ParseMatchScore(strconv.FormatFloat(f, 'f', -1, 64))
	}

	return 0
}

// decodeKeywords keeps every entry that decodes and drops the rest.
func decodeKeywords(raw json.RawMessage) domain.Keywords {
	out := domain.Keywords{}
	if len(raw) == 0 {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}

	for _, item := range items {
		var k domain.Keyword
		if err := json.Unmarshal(item, &k); err != nil || k.Keyword == "" {
			continue
		}
		out = append(out, k)
	}
	return out
}

func decodeSummary(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil || strings.TrimSpace(s) == "" {
		return domain.DefaultSummary
	}
	return strings.TrimSpace(s)
}

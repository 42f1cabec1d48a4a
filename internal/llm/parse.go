package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/complementa/backend/internal/domain"
)

var extractionKeys = []string{"nome_participante", "evento", "local", "data", "carga_horaria"}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Keep word characters, whitespace, Latin-1 accented letters and basic
	// punctuation; everything else is an OCR or model artifact.
	artifactRe = regexp.MustCompile(`[^\w\sÀ-ÿ.,;:()\-/]`)
)

// parseExtractionReply parses an LLM field-extraction reply. JSON is tried
// first (sliced between the first '{' and last '}'); a key-value line format
// is accepted as fallback. Missing keys come back nil.
func parseExtractionReply(reply string) (domain.ExtractedFields, error) {
	if fields, err := parseExtractionJSON(reply); err == nil {
		return fields, nil
	}
	return parseExtractionKeyValue(reply)
}

func parseExtractionJSON(reply string) (domain.ExtractedFields, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return domain.ExtractedFields{}, errors.New("no JSON object in reply")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("invalid JSON: %w", err)
	}

	values := make(map[string]*string, len(extractionKeys))
	for _, key := range extractionKeys {
		values[key] = stringValue(raw[key])
	}
	return fieldsFromMap(values), nil
}

// parseExtractionKeyValue handles replies of the form "evento: Curso X",
// folding continuation lines into the current field until the next
// recognized key appears.
func parseExtractionKeyValue(reply string) (domain.ExtractedFields, error) {
	values := make(map[string]*string, len(extractionKeys))

	var currentKey, currentValue string
	flush := func() {
		if currentKey == "" {
			return
		}
		if v := normalizeValue(currentValue); v != "" {
			values[currentKey] = &v
		}
	}

	matched := false
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		found := false
		for _, key := range extractionKeys {
			if len(line) > len(key) && strings.EqualFold(line[:len(key)+1], key+":") {
				flush()
				currentKey = key
				currentValue = strings.TrimSpace(line[len(key)+1:])
				found = true
				matched = true
				break
			}
		}
		if !found && currentKey != "" {
			currentValue += " " + line
		}
	}
	flush()

	if !matched {
		return domain.ExtractedFields{}, errors.New("no recognized keys in reply")
	}
	return fieldsFromMap(values), nil
}

// parseCategorizationReply extracts {"category_id": N, "reasoning": "..."}.
// On any parse failure the raw reply becomes the reasoning so the failure is
// auditable in the activity record.
func parseCategorizationReply(reply string) Categorization {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Categorization{Reasoning: reply}
	}

	var raw struct {
		CategoryID *json.Number `json:"category_id"`
		Reasoning  string       `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return Categorization{Reasoning: reply}
	}

	out := Categorization{Reasoning: raw.Reasoning}
	if out.Reasoning == "" {
		out.Reasoning = "No reasoning provided"
	}
	if raw.CategoryID != nil {
		if id, err := raw.CategoryID.Int64(); err == nil {
			out.CategoryID = &id
		}
	}
	return out
}

func stringValue(v any) *string {
	switch val := v.(type) {
	case string:
		if s := normalizeValue(val); s != "" {
			return &s
		}
	case float64:
		s := strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
		return &s
	}
	return nil
}

// normalizeValue collapses whitespace and strips control characters and
// symbols outside the allowed set.
func normalizeValue(s string) string {
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = artifactRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func fieldsFromMap(values map[string]*string) domain.ExtractedFields {
	return domain.ExtractedFields{
		NomeParticipante: values["nome_participante"],
		Evento:           values["evento"],
		Local:            values["local"],
		Data:             values["data"],
		CargaHoraria:     values["carga_horaria"],
	}
}

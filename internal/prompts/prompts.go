// Package prompts is the catalog of LLM prompt templates used by the
// pipeline. Placeholders are substituted by name so a template edit never
// silently reorders arguments.
package prompts

import (
	"fmt"
	"strings"

	"github.com/complementa/backend/internal/domain"
)

const certificateExtractionTemplate = `You are an intelligent document parser specialized in Brazilian Portuguese certificates.

Your task:
1. First, clean the OCR text by removing artifacts and special characters
2. Then extract the required fields from the cleaned text

CLEANING RULES:
- Remove OCR artifacts like (68), ®, ©, @, symbols in parentheses, etc.
- Fix broken words and incorrect spacing
- Remove unnecessary line breaks that split words
- Keep all meaningful information (names, dates, places, course details)
- Make text coherent in Portuguese BR

EXTRACTION RULES:
Extract these exact fields in JSON format:
- nome_participante: Full name of the certificate recipient
- evento: Name of the event/course/workshop/training
- local: Location, city, or institution where event took place
- data: Date when event occurred (keep original format)
- carga_horaria: Duration or workload hours

CRITICAL FORMAT REQUIREMENTS:
- Return ONLY a valid JSON object with these exact field names
- Use null for missing/unclear fields
- Do not include explanations or code blocks
- Each field should appear ONLY ONCE in the JSON
- Field names must be exactly as specified (no extra spaces)
- Process the text considering Portuguese BR language patterns

Example format:
{
  "nome_participante": "Full Name Here",
  "evento": "Event Name Here",
  "local": "Location Here",
  "data": "Date Here",
  "carga_horaria": "Hours Here"
}

OCR Text:
{text}

JSON:`

const activityCategorizationTemplate = `You are an academic coordinator assistant for complementary activity hours at a Brazilian federal institute.

Your task: choose the single best matching activity category for the certificate below.

AVAILABLE CATEGORIES:
{categories_text}

CERTIFICATE DATA:
- Participante: {nome_participante}
- Evento: {evento}
- Local: {local}
- Data: {data}
- Carga Horária: {carga_horaria}

FULL OCR TEXT:
{raw_text}

RULES:
- Pick exactly one category ID from the list above
- Base the choice on the event type, not on the participant or location
- Explain the choice briefly in Portuguese BR

Return ONLY a valid JSON object, no code blocks, no extra text:
{"category_id": <id>, "reasoning": "<short explanation>"}`

// CertificateExtraction renders the field-extraction prompt for raw OCR text.
func CertificateExtraction(text string) string {
	return strings.ReplaceAll(certificateExtractionTemplate, "{text}", text)
}

// ActivityCategorization renders the category-selection prompt.
func ActivityCategorization(rawText string, fields domain.ExtractedFields, categoriesText string) string {
	r := strings.NewReplacer(
		"{raw_text}", rawText,
		"{nome_participante}", orNA(fields.NomeParticipante),
		"{evento}", orNA(fields.Evento),
		"{local}", orNA(fields.Local),
		"{data}", orNA(fields.Data),
		"{carga_horaria}", orNA(fields.CargaHoraria),
		"{categories_text}", categoriesText,
	)
	return r.Replace(activityCategorizationTemplate)
}

// CategoriesText renders the category catalog as the numbered block the
// categorization prompt expects.
func CategoriesText(categories []domain.ActivityCategory) string {
	var b strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&b, "ID: %d\n", cat.ID)
		fmt.Fprintf(&b, "Nome: %s\n", cat.Name)
		fmt.Fprintf(&b, "Descrição: %s\n", cat.Description)
		fmt.Fprintf(&b, "Tipo de Cálculo: %s\n", cat.CalculationType)
		switch {
		case strings.HasPrefix(cat.CalculationType, "fixed_") && cat.HoursAwarded != nil:
			fmt.Fprintf(&b, "Horas Concedidas: %dh por %s\n", *cat.HoursAwarded, cat.InputUnit)
		case cat.OutputHours != nil && cat.InputQuantity != nil:
			fmt.Fprintf(&b, "Cálculo: %dh para cada %d %s\n", *cat.OutputHours, *cat.InputQuantity, cat.InputUnit)
		}
		fmt.Fprintf(&b, "Máximo Total: %dh\n\n", cat.MaxTotalHours)
	}
	return b.String()
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}

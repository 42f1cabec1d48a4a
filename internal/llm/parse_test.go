package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtractionReply_JSON(t *testing.T) {
	reply := `Here is the extracted data:
{
  "nome_participante": "Ana Silva",
  "evento": "Curso de Go",
  "local": "IFCE",
  "data": "10/10/2024",
  "carga_horaria": "40 horas"
}`
	fields, err := parseExtractionReply(reply)
	require.NoError(t, err)
	require.NotNil(t, fields.NomeParticipante)
	assert.Equal(t, "Ana Silva", *fields.NomeParticipante)
	assert.Equal(t, "Curso de Go", *fields.Evento)
	assert.Equal(t, "IFCE", *fields.Local)
	assert.Equal(t, "10/10/2024", *fields.Data)
	assert.Equal(t, "40 horas", *fields.CargaHoraria)
}

func TestParseExtractionReply_JSONWithNulls(t *testing.T) {
	reply := `{"nome_participante": "Ana Silva", "evento": null, "local": null, "data": null, "carga_horaria": "8h"}`
	fields, err := parseExtractionReply(reply)
	require.NoError(t, err)
	assert.NotNil(t, fields.NomeParticipante)
	assert.Nil(t, fields.Evento)
	assert.Nil(t, fields.Local)
	assert.Nil(t, fields.Data)
	assert.Equal(t, "8h", *fields.CargaHoraria)
}

func TestParseExtractionReply_KeyValueFallback(t *testing.T) {
	reply := `nome_participante: Ana Silva
evento: Semana de Computação
  com oficinas práticas
local: Fortaleza
data: 12/03/2024
carga_horaria: 20 horas`
	fields, err := parseExtractionReply(reply)
	require.NoError(t, err)
	assert.Equal(t, "Ana Silva", *fields.NomeParticipante)
	// Continuation lines fold into the current field.
	assert.Equal(t, "Semana de Computação com oficinas práticas", *fields.Evento)
	assert.Equal(t, "Fortaleza", *fields.Local)
	assert.Equal(t, "20 horas", *fields.CargaHoraria)
}

func TestParseExtractionReply_KeyValueCaseInsensitive(t *testing.T) {
	reply := "EVENTO: Congresso Nacional\nCarga_Horaria: 16h"
	fields, err := parseExtractionReply(reply)
	require.NoError(t, err)
	assert.Equal(t, "Congresso Nacional", *fields.Evento)
	assert.Equal(t, "16h", *fields.CargaHoraria)
	assert.Nil(t, fields.NomeParticipante)
}

func TestParseExtractionReply_Garbage(t *testing.T) {
	_, err := parseExtractionReply("I could not find any information in this document.")
	assert.Error(t, err)
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "Curso de Go", normalizeValue("  Curso \n de   Go  "))
	assert.Equal(t, "Ana Silva", normalizeValue("Ana® Silva©"))
	// Accents and basic punctuation survive.
	assert.Equal(t, "São Paulo - SP, Brasil", normalizeValue("São Paulo - SP, Brasil"))
	assert.Equal(t, "", normalizeValue("®©*"))
}

func TestParseCategorizationReply_JSON(t *testing.T) {
	got := parseCategorizationReply(`{"category_id": 3, "reasoning": "Curso na área"}`)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(3), *got.CategoryID)
	assert.Equal(t, "Curso na área", got.Reasoning)
}

func TestParseCategorizationReply_JSONEmbeddedInProse(t *testing.T) {
	got := parseCategorizationReply("Sure! Here's my answer:\n{\"category_id\": 5, \"reasoning\": \"Publicação\"}\nHope this helps.")
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(5), *got.CategoryID)
}

func TestParseCategorizationReply_NoJSON(t *testing.T) {
	raw := "I think this belongs to the courses category."
	got := parseCategorizationReply(raw)
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, raw, got.Reasoning)
}

func TestParseCategorizationReply_MissingID(t *testing.T) {
	got := parseCategorizationReply(`{"reasoning": "não sei classificar"}`)
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, "não sei classificar", got.Reasoning)
}

func TestParseCategorizationReply_MissingReasoning(t *testing.T) {
	got := parseCategorizationReply(`{"category_id": 2}`)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, "No reasoning provided", got.Reasoning)
}

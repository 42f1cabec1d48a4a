package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/complementa/backend/internal/domain"
)

func TestCertificateExtraction(t *testing.T) {
	prompt := CertificateExtraction("CERTIFICAMOS que Ana Silva participou")
	assert.Contains(t, prompt, "CERTIFICAMOS que Ana Silva participou")
	assert.NotContains(t, prompt, "{text}")
	assert.Contains(t, prompt, "nome_participante")
	assert.Contains(t, prompt, "carga_horaria")
}

func TestActivityCategorization(t *testing.T) {
	evento := "Curso de Go"
	carga := "40 horas"
	fields := domain.ExtractedFields{Evento: &evento, CargaHoraria: &carga}

	prompt := ActivityCategorization("texto bruto do certificado", fields, "ID: 3\nNome: Cursos\n")
	assert.Contains(t, prompt, "texto bruto do certificado")
	assert.Contains(t, prompt, "Curso de Go")
	assert.Contains(t, prompt, "40 horas")
	assert.Contains(t, prompt, "ID: 3")
	// Absent fields render as N/A, never as raw placeholders.
	assert.Contains(t, prompt, "Participante: N/A")
	assert.NotContains(t, prompt, "{evento}")
	assert.NotContains(t, prompt, "{raw_text}")
}

func TestCategoriesText(t *testing.T) {
	hoursAwarded := 30
	inputQty := 1
	outputHours := 1
	categories := []domain.ActivityCategory{
		{
			ID: 2, Name: "Monitoria acadêmica", Description: "Monitoria em disciplinas",
			CalculationType: "fixed_per_activity", HoursAwarded: &hoursAwarded,
			InputUnit: "atividade", MaxTotalHours: 60,
		},
		{
			ID: 3, Name: "Cursos e minicursos", Description: "Cursos na área",
			CalculationType: "ratio_hours", InputQuantity: &inputQty,
			OutputHours: &outputHours, InputUnit: "hora", MaxTotalHours: 60,
		},
	}

	text := CategoriesText(categories)
	assert.Contains(t, text, "ID: 2")
	assert.Contains(t, text, "Horas Concedidas: 30h por atividade")
	assert.Contains(t, text, "ID: 3")
	assert.Contains(t, text, "Cálculo: 1h para cada 1 hora")
	assert.True(t, strings.Index(text, "ID: 2") < strings.Index(text, "ID: 3"))
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complementa/backend/internal/domain"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestParseNumericHours(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"40 horas", intPtr(40)},
		{"40h", intPtr(40)},
		{"40hr", intPtr(40)},
		{"Carga horária: 8 horas", intPtr(8)},
		{"", nil},
		{"nd", nil},
		{"vinte horas", nil},
	}
	for _, tt := range tests {
		got := ParseNumericHours(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, "input %q", tt.in)
		} else {
			require.NotNil(t, got, "input %q", tt.in)
			assert.Equal(t, *tt.want, *got, "input %q", tt.in)
		}
	}
}

func ratioCategory(input, output, max int) *domain.ActivityCategory {
	return &domain.ActivityCategory{
		ID:              3,
		Name:            "Cursos e minicursos",
		CalculationType: domain.CalcRatioHours,
		InputQuantity:   intPtr(input),
		OutputHours:     intPtr(output),
		MaxTotalHours:   max,
	}
}

func TestCalculateHours_RatioHours(t *testing.T) {
	hours, err := CalculateHours(ratioCategory(1, 1, 60), intPtr(40), domain.ExtractedFields{})
	require.NoError(t, err)
	assert.Equal(t, 40, hours)
}

func TestCalculateHours_RatioHoursClamped(t *testing.T) {
	hours, err := CalculateHours(ratioCategory(1, 1, 60), intPtr(200), domain.ExtractedFields{})
	require.NoError(t, err)
	assert.Equal(t, 60, hours)
}

func TestCalculateHours_RatioHoursFloors(t *testing.T) {
	// 2h of attendance per awarded hour: 15h -> 7h.
	hours, err := CalculateHours(ratioCategory(2, 1, 20), intPtr(15), domain.ExtractedFields{})
	require.NoError(t, err)
	assert.Equal(t, 7, hours)
}

func TestCalculateHours_RatioHoursRequiresNumericHours(t *testing.T) {
	_, err := CalculateHours(ratioCategory(1, 1, 60), nil, domain.ExtractedFields{})
	require.Error(t, err)
	assert.Equal(t, "Could not extract numeric hours", err.Error())
}

func TestCalculateHours_Fixed(t *testing.T) {
	cat := &domain.ActivityCategory{
		ID:              2,
		CalculationType: domain.CalcFixedPerActivity,
		HoursAwarded:    intPtr(30),
		MaxTotalHours:   60,
	}
	hours, err := CalculateHours(cat, nil, domain.ExtractedFields{})
	require.NoError(t, err)
	assert.Equal(t, 30, hours)

	cat.CalculationType = domain.CalcFixedPerSemester
	cat.HoursAwarded = intPtr(80)
	hours, err = CalculateHours(cat, nil, domain.ExtractedFields{})
	require.NoError(t, err)
	assert.Equal(t, 60, hours, "fixed award is still clamped")
}

func TestCalculateHours_RatioDays(t *testing.T) {
	cat := &domain.ActivityCategory{
		ID:              4,
		CalculationType: domain.CalcRatioDays,
		OutputHours:     intPtr(8),
		MaxTotalHours:   40,
	}

	fields := domain.ExtractedFields{Evento: strPtr("Semana acadêmica de 3 dias")}
	hours, err := CalculateHours(cat, nil, fields)
	require.NoError(t, err)
	assert.Equal(t, 24, hours)

	// No day count anywhere: one day's worth.
	hours, err = CalculateHours(cat, nil, domain.ExtractedFields{Evento: strPtr("Congresso")})
	require.NoError(t, err)
	assert.Equal(t, 8, hours)

	// Day count can come from the date field.
	fields = domain.ExtractedFields{Data: strPtr("evento de 2 days em 2024")}
	hours, err = CalculateHours(cat, nil, fields)
	require.NoError(t, err)
	assert.Equal(t, 16, hours)
}

func TestCalculateHours_RatioPages(t *testing.T) {
	cat := &domain.ActivityCategory{
		ID:              5,
		CalculationType: domain.CalcRatioPages,
		InputQuantity:   intPtr(1),
		OutputHours:     intPtr(5),
		MaxTotalHours:   50,
	}

	fields := domain.ExtractedFields{Evento: strPtr("Artigo de 4 páginas publicado")}
	hours, err := CalculateHours(cat, nil, fields)
	require.NoError(t, err)
	assert.Equal(t, 20, hours)

	// Unextractable page count falls back to output_hours.
	hours, err = CalculateHours(cat, nil, domain.ExtractedFields{Evento: strPtr("Resumo publicado")})
	require.NoError(t, err)
	assert.Equal(t, 5, hours)
}

func TestCalculateHours_UnknownType(t *testing.T) {
	cat := &domain.ActivityCategory{ID: 9, CalculationType: "per_credit", MaxTotalHours: 10}
	_, err := CalculateHours(cat, intPtr(10), domain.ExtractedFields{})
	assert.Error(t, err)
}

func TestCalculateHours_IncompleteRatio(t *testing.T) {
	cat := &domain.ActivityCategory{
		ID:              3,
		CalculationType: domain.CalcRatioHours,
		MaxTotalHours:   60,
	}
	_, err := CalculateHours(cat, intPtr(10), domain.ExtractedFields{})
	assert.Error(t, err)
}

package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/complementa/backend/internal/domain"
)

var (
	digitRunRe = regexp.MustCompile(`\d+`)
	daysRe     = regexp.MustCompile(`(?i)(\d+)\s*(?:dia|day)s?`)
	pagesRe    = regexp.MustCompile(`(?i)(\d+)\s*(?:páginas?|pages?|p\.|pgs?)`)
)

// ParseNumericHours pulls the first run of digits out of a workload string
// like "40 horas" or "Carga horária: 8h". Returns nil when the string holds
// no digits.
func ParseNumericHours(original string) *int {
	match := digitRunRe.FindString(original)
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &n
}

// extractCount finds the first "<n> <unit>" occurrence across the given
// field values, in order.
func extractCount(re *regexp.Regexp, fields ...*string) *int {
	for _, f := range fields {
		if f == nil {
			continue
		}
		m := re.FindStringSubmatch(*f)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}

// CalculateHours computes the awarded complementary hours for a category.
// numericHours is the workload parsed from carga_horaria. Day counts are
// searched in evento, data and carga_horaria; page counts in evento and
// carga_horaria. The result is always clamped to max_total_hours.
func CalculateHours(cat *domain.ActivityCategory, numericHours *int, fields domain.ExtractedFields) (int, error) {
	var hours int

	switch cat.CalculationType {
	case domain.CalcFixedPerSemester, domain.CalcFixedPerActivity:
		if cat.HoursAwarded == nil {
			return 0, fmt.Errorf("category %d has no hours_awarded", cat.ID)
		}
		hours = *cat.HoursAwarded

	case domain.CalcRatioHours:
		if cat.InputQuantity == nil || cat.OutputHours == nil || *cat.InputQuantity == 0 {
			return 0, fmt.Errorf("category %d has an incomplete ratio", cat.ID)
		}
		if numericHours == nil {
			return 0, fmt.Errorf("%s", missingHoursMessage)
		}
		hours = *numericHours * *cat.OutputHours / *cat.InputQuantity

	case domain.CalcRatioDays:
		if cat.OutputHours == nil {
			return 0, fmt.Errorf("category %d has an incomplete ratio", cat.ID)
		}
		if days := extractCount(daysRe, fields.Evento, fields.Data, fields.CargaHoraria); days != nil {
			hours = *days * *cat.OutputHours
		} else {
			hours = *cat.OutputHours
		}

	case domain.CalcRatioPages:
		if cat.InputQuantity == nil || cat.OutputHours == nil || *cat.InputQuantity == 0 {
			return 0, fmt.Errorf("category %d has an incomplete ratio", cat.ID)
		}
		if pages := extractCount(pagesRe, fields.Evento, fields.CargaHoraria); pages != nil {
			hours = *pages * *cat.OutputHours / *cat.InputQuantity
		} else {
			hours = *cat.OutputHours
		}

	default:
		return 0, fmt.Errorf("category %d has unknown calculation type %q", cat.ID, cat.CalculationType)
	}

	if hours > cat.MaxTotalHours {
		hours = cat.MaxTotalHours
	}
	if hours < 0 {
		hours = 0
	}
	return hours, nil
}

// Failure messages recorded on submissions demoted by the stage workers.
const (
	missingHoursMessage = "Could not extract numeric hours"
	missingEventMessage = "Missing evento information"
)

func nameMismatchMessage(extracted, registered string) string {
	return fmt.Sprintf("Certificate participant '%s' does not match student '%s' who submitted the file",
		strings.TrimSpace(extracted), strings.TrimSpace(registered))
}

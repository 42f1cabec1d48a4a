package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/complementa/backend/internal/domain"
)

const categoryColumns = `id, name, description, calculation_type, hours_awarded,
	input_unit, input_quantity, output_hours, max_total_hours`

// categoryFile mirrors the categories seed file layout.
type categoryFile struct {
	Categories []struct {
		ID              int64  `yaml:"id"`
		Name            string `yaml:"name"`
		Description     string `yaml:"description"`
		CalculationType string `yaml:"calculation_type"`
		HoursAwarded    *int   `yaml:"hours_awarded"`
		InputUnit       string `yaml:"input_unit"`
		InputQuantity   *int   `yaml:"input_quantity"`
		OutputHours     *int   `yaml:"output_hours"`
		MaxTotalHours   int    `yaml:"max_total_hours"`
	} `yaml:"categories"`
}

// LoadCategoriesFile parses the YAML category seed file.
func LoadCategoriesFile(path string) ([]domain.ActivityCategory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var file categoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}

	out := make([]domain.ActivityCategory, 0, len(file.Categories))
	for _, c := range file.Categories {
		if !validCalculationType(c.CalculationType) {
			return nil, fmt.Errorf("category %d: unknown calculation_type %q", c.ID, c.CalculationType)
		}
		out = append(out, domain.ActivityCategory{
			ID:              c.ID,
			Name:            c.Name,
			Description:     c.Description,
			CalculationType: c.CalculationType,
			HoursAwarded:    c.HoursAwarded,
			InputUnit:       c.InputUnit,
			InputQuantity:   c.InputQuantity,
			OutputHours:     c.OutputHours,
			MaxTotalHours:   c.MaxTotalHours,
		})
	}
	return out, nil
}

func validCalculationType(t string) bool {
	switch t {
	case domain.CalcFixedPerSemester, domain.CalcFixedPerActivity,
		domain.CalcRatioHours, domain.CalcRatioDays, domain.CalcRatioPages:
		return true
	}
	return false
}

// SeedCategories inserts the category catalog when the table is empty. Seeding
// never updates existing rows; category edits are an operator concern.
func (s *Store) SeedCategories(ctx context.Context, categories []domain.ActivityCategory) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM activity_categories`).Scan(&count); err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if count > 0 {
			return nil
		}

		for _, c := range categories {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO activity_categories
					(id, name, description, calculation_type, hours_awarded,
					 input_unit, input_quantity, output_hours, max_total_hours)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				c.ID, c.Name, c.Description, c.CalculationType, c.HoursAwarded,
				c.InputUnit, c.InputQuantity, c.OutputHours, c.MaxTotalHours)
			if err != nil {
				return fmt.Errorf("seed category %d: %w", c.ID, err)
			}
		}

		// Keep the sequence ahead of the explicit seed IDs.
		_, err := tx.ExecContext(ctx, `
			SELECT setval('activity_categories_id_seq',
			              (SELECT max(id) FROM activity_categories))`)
		if err != nil {
			return fmt.Errorf("advance category sequence: %w", err)
		}
		s.logger.Info("seeded activity categories", "count", len(categories))
		return nil
	})
}

// ListCategories returns the full catalog ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]domain.ActivityCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM activity_categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivityCategory
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CategoryByID fetches one category.
func (s *Store) CategoryByID(ctx context.Context, id int64) (*domain.ActivityCategory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM activity_categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("category by id: %w", err)
	}
	return c, nil
}

func scanCategory(row rowScanner) (*domain.ActivityCategory, error) {
	var c domain.ActivityCategory
	var hoursAwarded, inputQuantity, outputHours sql.NullInt64
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CalculationType,
		&hoursAwarded, &c.InputUnit, &inputQuantity, &outputHours, &c.MaxTotalHours)
	if err != nil {
		return nil, err
	}
	c.HoursAwarded = nullableInt(hoursAwarded)
	c.InputQuantity = nullableInt(inputQuantity)
	c.OutputHours = nullableInt(outputHours)
	return &c, nil
}

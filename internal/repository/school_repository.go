package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/driveadmin/autoescola-api/internal/models"
)

// SchoolRepository handles persistence of schools.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindByID returns a school by its ID.
func (r *SchoolRepository) FindByID(ctx context.Context, id int64) (*models.School, error) {
	const query = `SELECT id, name, document, city, state, phone, active, created_at, updated_at
        FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// Create persists a new school and fills in the generated ID.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	const query = `INSERT INTO schools (name, document, city, state, phone, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now
	if err := r.db.GetContext(ctx, &school.ID, query, school.Name, school.Document, school.City, school.State, school.Phone, school.Active, now); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// List returns all schools ordered by name.
func (r *SchoolRepository) List(ctx context.Context) ([]models.School, error) {
	const query = `SELECT id, name, document, city, state, phone, active, created_at, updated_at
        FROM schools ORDER BY name ASC`
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query); err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return schools, nil
}

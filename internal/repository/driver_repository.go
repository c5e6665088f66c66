package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

const driverColumns = `id, username, password_hash, full_name, route_id, shift, active, created_at`

// DriverRepository reads driver accounts for authentication.
type DriverRepository struct {
	db *sqlx.DB
}

// NewDriverRepository constructs the repository.
func NewDriverRepository(db *sqlx.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

// FindByUsername returns the driver with the given login name.
func (r *DriverRepository) FindByUsername(ctx context.Context, username string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE username = $1`
	if err := r.db.GetContext(ctx, &driver, query, username); err != nil {
		return nil, err
	}
	return &driver, nil
}

// FindByID returns one driver.
func (r *DriverRepository) FindByID(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	if err := r.db.GetContext(ctx, &driver, query, id); err != nil {
		return nil, err
	}
	return &driver, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

// RouteRepository reads route capacity data owned by fleet management.
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository constructs the repository.
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// Get returns one route.
func (r *RouteRepository) Get(ctx context.Context, id string) (*models.Route, error) {
	var route models.Route
	query := `SELECT id, name, bus_capacity, bus_count, active FROM routes WHERE id = $1`
	if err := r.db.GetContext(ctx, &route, query, id); err != nil {
		return nil, err
	}
	return &route, nil
}

// ListActive returns every active route.
func (r *RouteRepository) ListActive(ctx context.Context) ([]models.Route, error) {
	var routes []models.Route
	query := `SELECT id, name, bus_capacity, bus_count, active FROM routes WHERE active = TRUE ORDER BY name`
	if err := r.db.SelectContext(ctx, &routes, query); err != nil {
		return nil, fmt.Errorf("list active routes: %w", err)
	}
	return routes, nil
}

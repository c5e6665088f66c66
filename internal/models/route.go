package models

// Route is read-only collaborator data owned by the fleet-management system.
type Route struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	BusCapacity int    `db:"bus_capacity" json:"bus_capacity"`
	BusCount    int    `db:"bus_count" json:"bus_count"`
	Active      bool   `db:"active" json:"active"`
}

// RouteAnalytics is the live per-route/day/shift passenger counter set.
type RouteAnalytics struct {
	RouteID         string `json:"route_id"`
	Date            string `json:"date"`
	Shift           Shift  `json:"shift"`
	TotalPassengers int    `json:"total_passengers"`
	CheckedIn       int    `json:"checked_in"`
}

package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleDriver is the only role the scan/checkpoint surface accepts.
const RoleDriver = "driver"

// Driver is a bus driver account with a fixed route/shift assignment.
type Driver struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	RouteID      string    `db:"route_id" json:"route_id"`
	Shift        Shift     `db:"shift" json:"shift"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// LoginRequest holds credentials for authenticating a driver.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and driver info.
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
	IssuedAt    time.Time  `json:"issued_at"`
	Driver      DriverInfo `json:"driver"`
}

// DriverInfo describes the authenticated driver in responses.
type DriverInfo struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	RouteID  string `json:"route_id"`
	Shift    Shift  `json:"shift"`
}

// DriverClaims is the JWT payload for driver access tokens. Route and shift
// are baked into the token so scan authorization never re-reads the roster.
type DriverClaims struct {
	DriverID string `json:"driver_id"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	RouteID  string `json:"route_id"`
	Shift    Shift  `json:"shift"`
	jwt.RegisteredClaims
}

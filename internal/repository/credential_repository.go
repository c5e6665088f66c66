package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-transit-api/internal/models"
)

const passColumns = `bp.id, bp.student_id, st.full_name AS student_name, bp.route_id, bp.shift, bp.status,
bp.valid_from, bp.valid_until, bp.scans_today, bp.scan_date, bp.max_scans_per_day, bp.created_at, bp.updated_at`

const ticketColumns = `dt.id, dt.student_id, st.full_name AS student_name, dt.route_id, dt.shift,
dt.travel_date, dt.trip_type, dt.status, dt.scans_used, dt.created_at, dt.updated_at`

// CredentialRepository reads boarding credentials owned by the issuance
// subsystem and atomically advances their scan counters.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository constructs the repository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Resolve looks a credential id up in the pass store first, then the ticket
// store, and returns the tagged union. sql.ErrNoRows means the id is unknown
// to both.
func (r *CredentialRepository) Resolve(ctx context.Context, id string) (*models.Credential, error) {
	passQuery := fmt.Sprintf(`SELECT %s FROM bus_passes bp JOIN students st ON st.id = bp.student_id WHERE bp.id = $1`, passColumns)
	var pass models.BusPass
	err := r.db.GetContext(ctx, &pass, passQuery, id)
	if err == nil {
		return &models.Credential{Kind: models.CredentialPass, Pass: &pass}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve pass credential: %w", err)
	}

	ticketQuery := fmt.Sprintf(`SELECT %s FROM day_tickets dt JOIN students st ON st.id = dt.student_id WHERE dt.id = $1`, ticketColumns)
	var ticket models.DayTicket
	err = r.db.GetContext(ctx, &ticket, ticketQuery, id)
	if err == nil {
		return &models.Credential{Kind: models.CredentialTicket, Ticket: &ticket}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolve ticket credential: %w", err)
	}
	return nil, sql.ErrNoRows
}

// incrementPassScans bumps a pass's daily counter in one atomic statement on
// the given executor. The CASE resets the count when the stored scan_date is
// stale, so the counter carries no cross-day state.
func incrementPassScans(ctx context.Context, ext sqlx.ExtContext, id, date string, now time.Time) error {
	query := `UPDATE bus_passes
SET scans_today = CASE WHEN scan_date = $1 THEN scans_today + 1 ELSE 1 END,
    scan_date = $1,
    updated_at = $2
WHERE id = $3`
	if _, err := ext.ExecContext(ctx, query, date, now, id); err != nil {
		return fmt.Errorf("increment pass scans: %w", err)
	}
	return nil
}

// incrementTicketScans bumps a ticket's counter and flips it to used once the
// allowance is exhausted, all in one statement.
func incrementTicketScans(ctx context.Context, ext sqlx.ExtContext, id string, maxScans int, now time.Time) error {
	query := `UPDATE day_tickets
SET scans_used = scans_used + 1,
    status = CASE WHEN scans_used + 1 >= $1 THEN $2 ELSE status END,
    updated_at = $3
WHERE id = $4`
	if _, err := ext.ExecContext(ctx, query, maxScans, models.TicketUsed, now, id); err != nil {
		return fmt.Errorf("increment ticket scans: %w", err)
	}
	return nil
}

// ActiveForDate returns every credential that could legally be scanned on the
// given day: approved passes whose validity window covers it, plus paid
// tickets for it. The absence sweep walks this set.
func (r *CredentialRepository) ActiveForDate(ctx context.Context, date string) ([]models.Credential, error) {
	passQuery := fmt.Sprintf(`SELECT %s FROM bus_passes bp JOIN students st ON st.id = bp.student_id
WHERE bp.status = $1 AND bp.valid_from <= $2 AND bp.valid_until >= $2`, passColumns)
	var passes []models.BusPass
	if err := r.db.SelectContext(ctx, &passes, passQuery, models.PassApproved, date); err != nil {
		return nil, fmt.Errorf("list active passes: %w", err)
	}

	ticketQuery := fmt.Sprintf(`SELECT %s FROM day_tickets dt JOIN students st ON st.id = dt.student_id
WHERE dt.status IN ($1, $2) AND dt.travel_date = $3`, ticketColumns)
	var tickets []models.DayTicket
	if err := r.db.SelectContext(ctx, &tickets, ticketQuery, models.TicketPaid, models.TicketUsed, date); err != nil {
		return nil, fmt.Errorf("list active tickets: %w", err)
	}

	creds := make([]models.Credential, 0, len(passes)+len(tickets))
	for i := range passes {
		creds = append(creds, models.Credential{Kind: models.CredentialPass, Pass: &passes[i]})
	}
	for i := range tickets {
		creds = append(creds, models.Credential{Kind: models.CredentialTicket, Ticket: &tickets[i]})
	}
	return creds, nil
}

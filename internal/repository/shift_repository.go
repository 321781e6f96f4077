package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

const (
	uniqueViolation    = "23505"
	openShiftIndexName = "shifts_one_open_per_user"
)

// ShiftFilter narrows shift listings. OrgID is always required.
type ShiftFilter struct {
	OrgID  string
	UserID *string
	Status *domain.ShiftStatus
	Limit  int
	Offset int
}

// ShiftRepository stores work shifts. Create and Close enforce the single
// open shift per user at the database level.
type ShiftRepository interface {
	FindOpen(ctx context.Context, orgID, userID string) (*domain.Shift, error)
	Create(ctx context.Context, shift *domain.Shift) error
	Close(ctx context.Context, shift *domain.Shift) error
	List(ctx context.Context, filter ShiftFilter) ([]domain.Shift, error)
}

type shiftRepository struct {
	pool *pgxpool.Pool
}

// NewShiftRepository builds repository.
func NewShiftRepository(pool *pgxpool.Pool) ShiftRepository {
	return &shiftRepository{pool: pool}
}

const shiftColumns = `id, org_id, user_id, employee_name, start_at, start_geo, end_at, end_geo,
       status, duration_minutes, created_at`

func (r *shiftRepository) FindOpen(ctx context.Context, orgID, userID string) (*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE org_id=$1 AND user_id=$2 AND status=$3`
	shift, err := scanShift(r.pool.QueryRow(ctx, query, orgID, userID, domain.ShiftStatusOpen))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return shift, nil
}

func (r *shiftRepository) Create(ctx context.Context, shift *domain.Shift) error {
	startGeo, err := encodeGeo(shift.StartGeo)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO shifts (org_id, user_id, employee_name, start_at, start_geo, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	err = r.pool.QueryRow(ctx, query,
		shift.OrgID,
		shift.UserID,
		shift.EmployeeName,
		shift.StartAt,
		startGeo,
		shift.Status,
	).Scan(&shift.ID, &shift.CreatedAt)
	if isOpenShiftConflict(err) {
		return domain.ErrShiftAlreadyOpen
	}
	return err
}

func (r *shiftRepository) Close(ctx context.Context, shift *domain.Shift) error {
	endGeo, err := encodeGeo(shift.EndGeo)
	if err != nil {
		return err
	}
	const query = `
        UPDATE shifts SET end_at=$1, end_geo=$2, status=$3, duration_minutes=$4
        WHERE id=$5 AND status=$6`
	cmd, err := r.pool.Exec(ctx, query,
		shift.EndAt,
		endGeo,
		domain.ShiftStatusClosed,
		shift.DurationMinutes,
		shift.ID,
		domain.ShiftStatusOpen,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNoOpenShift
	}
	return nil
}

func (r *shiftRepository) List(ctx context.Context, filter ShiftFilter) ([]domain.Shift, error) {
	clauses := []string{"org_id=$1"}
	args := []any{filter.OrgID}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE %s ORDER BY start_at DESC LIMIT %d OFFSET %d`,
		shiftColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *shift)
	}
	return result, rows.Err()
}

func scanShift(row pgx.Row) (*domain.Shift, error) {
	var (
		shift            domain.Shift
		startGeo, endGeo []byte
	)
	if err := row.Scan(
		&shift.ID,
		&shift.OrgID,
		&shift.UserID,
		&shift.EmployeeName,
		&shift.StartAt,
		&startGeo,
		&shift.EndAt,
		&endGeo,
		&shift.Status,
		&shift.DurationMinutes,
		&shift.CreatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if shift.StartGeo, err = decodeGeo(startGeo); err != nil {
		return nil, err
	}
	if shift.EndGeo, err = decodeGeo(endGeo); err != nil {
		return nil, err
	}
	return &shift, nil
}

func encodeGeo(sample *domain.GeolocationSample) ([]byte, error) {
	if sample == nil {
		return nil, nil
	}
	raw, err := json.Marshal(sample)
	if err != nil {
		return nil, fmt.Errorf("encode geolocation: %w", err)
	}
	return raw, nil
}

func decodeGeo(raw []byte) (*domain.GeolocationSample, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var sample domain.GeolocationSample
	if err := json.Unmarshal(raw, &sample); err != nil {
		return nil, fmt.Errorf("decode geolocation: %w", err)
	}
	return &sample, nil
}

func isOpenShiftConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return pgErr.ConstraintName == "" || pgErr.ConstraintName == openShiftIndexName
}

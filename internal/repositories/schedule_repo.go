package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/schedule"
)

// ScheduleRepository persists per-staff weekly profiles as one row of seven
// nullable start/end pairs, and the global configuration as a singleton row.
type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

const profileColumns = `mon_start, mon_end, tue_start, tue_end, wed_start, wed_end,
	thu_start, thu_end, fri_start, fri_end, sat_start, sat_end, sun_start, sun_end`

func scanWeekly(row interface{ Scan(dest ...any) error }) (models.WeeklySchedule, error) {
	var cols [14]sql.NullString
	dest := make([]any, 14)
	for i := range cols {
		dest[i] = &cols[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	ws := models.WeeklySchedule{}
	for i, day := range weekdays {
		start, end := cols[2*i], cols[2*i+1]
		if !start.Valid || !end.Valid {
			continue
		}
		s, err := models.ParseLocalTime(start.String)
		if err != nil {
			return nil, fmt.Errorf("stored %s start: %w", day, err)
		}
		e, err := models.ParseLocalTime(end.String)
		if err != nil {
			return nil, fmt.Errorf("stored %s end: %w", day, err)
		}
		ws[day] = &models.DayShift{Start: s, End: e}
	}
	return ws, nil
}

func (r *ScheduleRepository) Weekly(ctx context.Context, staffID string) (models.WeeklySchedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM shift_profiles WHERE staff_id = $1`, staffID)
	ws, err := scanWeekly(row)
	if err == sql.ErrNoRows {
		return models.WeeklySchedule{}, nil
	}
	return ws, err
}

func (r *ScheduleRepository) AllWeekly(ctx context.Context) (map[string]models.WeeklySchedule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT staff_id, `+profileColumns+` FROM shift_profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.WeeklySchedule)
	for rows.Next() {
		var staffID string
		var cols [14]sql.NullString
		dest := make([]any, 15)
		dest[0] = &staffID
		for i := range cols {
			dest[i+1] = &cols[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		ws := models.WeeklySchedule{}
		for i, day := range weekdays {
			start, end := cols[2*i], cols[2*i+1]
			if !start.Valid || !end.Valid {
				continue
			}
			s, err := models.ParseLocalTime(start.String)
			if err != nil {
				return nil, err
			}
			e, err := models.ParseLocalTime(end.String)
			if err != nil {
				return nil, err
			}
			ws[day] = &models.DayShift{Start: s, End: e}
		}
		out[staffID] = ws
	}
	return out, rows.Err()
}

func (r *ScheduleRepository) SaveWeekly(ctx context.Context, staffID string, ws models.WeeklySchedule) error {
	args := make([]any, 0, 15)
	args = append(args, staffID)
	for _, day := range weekdays {
		shift := ws.On(day)
		if shift == nil {
			args = append(args, nil, nil)
			continue
		}
		args = append(args, shift.Start.String(), shift.End.String())
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shift_profiles (staff_id, `+profileColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
		ON CONFLICT (staff_id)
		DO UPDATE SET
			mon_start = EXCLUDED.mon_start, mon_end = EXCLUDED.mon_end,
			tue_start = EXCLUDED.tue_start, tue_end = EXCLUDED.tue_end,
			wed_start = EXCLUDED.wed_start, wed_end = EXCLUDED.wed_end,
			thu_start = EXCLUDED.thu_start, thu_end = EXCLUDED.thu_end,
			fri_start = EXCLUDED.fri_start, fri_end = EXCLUDED.fri_end,
			sat_start = EXCLUDED.sat_start, sat_end = EXCLUDED.sat_end,
			sun_start = EXCLUDED.sun_start, sun_end = EXCLUDED.sun_end,
			updated_at = now()`, args...)
	return err
}

func (r *ScheduleRepository) Global(ctx context.Context) (*models.GlobalSchedule, error) {
	var startStr, endStr string
	var g models.GlobalSchedule
	err := r.db.QueryRowContext(ctx, `
		SELECT start_time, end_time, margin_minutes, alert_minutes, updated_at
		FROM shift_hours WHERE id = 1`).
		Scan(&startStr, &endStr, &g.MarginMinutes, &g.AlertMinutes, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if g.Start, err = models.ParseLocalTime(startStr); err != nil {
		return nil, fmt.Errorf("stored global start: %w", err)
	}
	if g.End, err = models.ParseLocalTime(endStr); err != nil {
		return nil, fmt.Errorf("stored global end: %w", err)
	}
	return &g, nil
}

func (r *ScheduleRepository) SaveGlobal(ctx context.Context, g *models.GlobalSchedule) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO shift_hours (id, start_time, end_time, margin_minutes, alert_minutes, updated_at)
		VALUES (1, $1, $2, $3, $4, now())
		ON CONFLICT (id)
		DO UPDATE SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
			margin_minutes = EXCLUDED.margin_minutes, alert_minutes = EXCLUDED.alert_minutes,
			updated_at = now()`,
		g.Start.String(), g.End.String(), g.MarginMinutes, g.AlertMinutes)
	return err
}

var _ schedule.Store = (*ScheduleRepository)(nil)

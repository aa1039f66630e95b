package repository

import (
	"context"
	"fmt"

	"github.com/oszuidwest/zwfm-rotator/internal/database"
	"github.com/oszuidwest/zwfm-rotator/internal/models"
)

// Schedules provides access to the schedule table.
type Schedules struct {
	conn *database.Conn
}

// NewSchedules creates a schedules repository.
func NewSchedules(conn *database.Conn) *Schedules {
	return &Schedules{conn: conn}
}

// Active returns every active schedule whose target playlist is also
// active, ordered by priority descending so callers see the strongest
// candidates first.
func (r *Schedules) Active(ctx context.Context) ([]models.Schedule, error) {
	var schedules []models.Schedule
	err := r.conn.DB().SelectContext(ctx, &schedules, `
		SELECT
			sc.id, sc.playlist_id, sc.weekdays, sc.start_date, sc.end_date,
			sc.start_time, sc.end_time, sc.priority, sc.is_active,
			sc.created_at, sc.updated_at,
			p.is_active AS playlist_active,
			p.name AS playlist_name
		FROM schedules sc
		JOIN playlists p ON p.id = sc.playlist_id
		WHERE sc.is_active = 1 AND p.is_active = 1
		ORDER BY sc.priority DESC, sc.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load active schedules: %w", err)
	}
	return schedules, nil
}

package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/openmat-booking/internal/model"
)

// SessionSearchQuery defines filters & pagination for the upcoming sessions
// feed.  Page is 1-based.
type SessionSearchQuery struct {
	Club     string
	OpenOnly bool
	Page     int
	PageSize int
}

// likeEscaper makes LIKE wildcards in user input match literally.  '!' is
// used as the escape character so the pattern does not depend on the
// server's backslash handling.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchUpcoming lists sessions that have not started yet across all clubs,
// joined with the club name, and returns the total number of matches.
func (r *SessionRepo) SearchUpcoming(ctx context.Context, q SessionSearchQuery) ([]model.SessionListing, int64, error) {
	where := []string{"s.start_time >= UTC_TIMESTAMP()"}
	args := []any{}

	if q.Club != "" {
		where = append(where, "LOWER(c.name) LIKE ? ESCAPE '!'")
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q.Club))+"%")
	}
	if q.OpenOnly {
		where = append(where, "s.is_open = TRUE AND s.current_capacity < s.max_capacity")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM sessions s
		JOIN clubs c ON c.id = s.club_id
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			s.id, s.club_id, s.date, s.start_time, s.end_time,
			s.max_capacity, s.current_capacity, s.price, s.is_open, s.created_at,
			c.name AS club_name
		FROM sessions s
		JOIN clubs c ON c.id = s.club_id
		WHERE ` + cond + `
		ORDER BY s.start_time ASC, s.id ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.SessionListing, 0, limit)
	for rows.Next() {
		var d model.SessionListing
		if err := rows.Scan(
			&d.ID, &d.ClubID, &d.Date, &d.StartTime, &d.EndTime,
			&d.MaxCapacity, &d.CurrentCapacity, &d.Price, &d.IsOpen, &d.CreatedAt,
			&d.ClubName,
		); err != nil {
			return nil, 0, err
		}
		d.SpotsLeft = d.Session.SpotsLeft()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

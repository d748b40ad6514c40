package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const topReferrersLimit = 5

type visitDB struct {
	ID        int64          `db:"id"`
	URLID     int64          `db:"url_id"`
	Referrer  sql.NullString `db:"referrer"`
	UserAgent sql.NullString `db:"user_agent"`
	VisitedAt time.Time      `db:"visited_at"`
}

func (v *visitDB) toEntity() *entity.Visit {
	visit := &entity.Visit{
		ID:        v.ID,
		URLID:     v.URLID,
		VisitedAt: v.VisitedAt,
	}
	if v.Referrer.Valid {
		visit.Referrer = &v.Referrer.String
	}
	if v.UserAgent.Valid {
		visit.UserAgent = &v.UserAgent.String
	}
	return visit
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

type visitSummaryDB struct {
	VisitCount int64        `db:"visit_count"`
	LastVisit  sql.NullTime `db:"last_visit"`
}

type referrerCountDB struct {
	Referrer string `db:"referrer"`
	Count    int64  `db:"count"`
}

type VisitRepository struct {
	db *sqlx.DB
}

func NewVisitRepository(db *sqlx.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) Save(ctx context.Context, visit *entity.Visit) (*entity.Visit, error) {
	const op = "adapter.repository.postgres.VisitRepository.Save"
	const query = `INSERT INTO visits(url_id, referrer, user_agent) VALUES ($1, $2, $3) RETURNING *`

	var saved visitDB

	err := r.db.GetContext(ctx, &saved, query, visit.URLID, nullString(visit.Referrer), nullString(visit.UserAgent))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to insert into visits table: %w", op, err)
	}

	return saved.toEntity(), nil
}

// Stats aggregates the visits recorded for url.
func (r *VisitRepository) Stats(ctx context.Context, url *entity.URL) (*entity.URLStats, error) {
	const op = "adapter.repository.postgres.VisitRepository.Stats"
	const summaryQuery = `SELECT COUNT(*) AS visit_count, MAX(visited_at) AS last_visit FROM visits WHERE url_id = $1`
	const referrersQuery = `SELECT referrer, COUNT(*) AS count FROM visits
		WHERE url_id = $1 AND referrer IS NOT NULL
		GROUP BY referrer
		ORDER BY count DESC, referrer
		LIMIT $2`

	var summary visitSummaryDB

	if err := r.db.GetContext(ctx, &summary, summaryQuery, url.ID); err != nil {
		return nil, fmt.Errorf("%s: failed to count visits: %w", op, err)
	}

	var referrers []referrerCountDB

	if err := r.db.SelectContext(ctx, &referrers, referrersQuery, url.ID, topReferrersLimit); err != nil {
		return nil, fmt.Errorf("%s: failed to select top referrers: %w", op, err)
	}

	stats := &entity.URLStats{
		URL:          *url,
		VisitCount:   summary.VisitCount,
		TopReferrers: make([]entity.ReferrerCount, 0, len(referrers)),
	}
	if summary.LastVisit.Valid {
		lastVisit := summary.LastVisit.Time
		stats.LastVisit = &lastVisit
	}
	for _, ref := range referrers {
		stats.TopReferrers = append(stats.TopReferrers, entity.ReferrerCount{
			Referrer: ref.Referrer,
			Count:    ref.Count,
		})
	}

	return stats, nil
}

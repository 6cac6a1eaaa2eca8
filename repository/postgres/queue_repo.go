package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mapcrew/backend/domain"
	"github.com/mapcrew/backend/repository"
)

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewReviewQueueRepository returns the Postgres implementation of the ranked
// review-queue view.
func NewReviewQueueRepository(pool *pgxpool.Pool) repository.ReviewQueueRepository {
	return &queueRepository{pool: pool}
}

// rankedView assembles the CTE body shared by Next and the listings. Every
// caller-influenced value travels as a query argument; sort keys and filter
// fields resolve through whitelists.
func (r *queueRepository) rankedView(q repository.QueueQuery, reviewed bool) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	statuses := []int{int(domain.ReviewRequested)}
	if q.IncludeDisputed {
		statuses = append(statuses, int(domain.ReviewDisputed))
	}
	if reviewed {
		statuses = []int{
			int(domain.ReviewApproved),
			int(domain.ReviewRejected),
			int(domain.ReviewAssisted),
			int(domain.ReviewDisputed),
		}
	}
	clauses = append(clauses, fmt.Sprintf("t.review_status = ANY(%s)", arg(statuses)))

	userArg := arg(q.User.ID)
	if !reviewed {
		// Queue entries must be unclaimed or already claimed by the caller,
		// and never the caller's own review requests.
		clauses = append(clauses,
			fmt.Sprintf("(t.review_claimed_by IS NULL OR t.review_claimed_by = %s)", userArg),
			fmt.Sprintf("COALESCE(t.review_requested_by, 0) <> %s", userArg),
		)
		// Bundle children ride along with their primary.
		clauses = append(clauses, "(t.bundle_id IS NULL OR t.is_bundle_primary IS TRUE)")

		if q.ExcludeOtherReviewers {
			clauses = append(clauses,
				fmt.Sprintf("(t.reviewed_by IS NULL OR t.reviewed_by = %s)", userArg))
		}
	}

	if !q.User.Superuser {
		groups := q.User.GroupIDs
		if groups == nil {
			groups = []int64{}
		}
		clauses = append(clauses, fmt.Sprintf(
			"((c.enabled AND p.enabled) OR c.owner_id = %s OR p.owner_id = %s OR p.group_id = ANY(%s))",
			userArg, userArg, arg(groups)))
	}

	if filterSQL, filterArgs := q.Filters.Compile(len(args) + 1); filterSQL != "TRUE" {
		clauses = append(clauses, filterSQL)
		args = append(args, filterArgs...)
	}

	orderBy := fmt.Sprintf("%s %s, t.id ASC", domain.SortColumn(q.SortKey), domain.SortDirection(q.SortDir))

	view := fmt.Sprintf(`
	SELECT %s, ROW_NUMBER() OVER (ORDER BY %s) AS row_num
	FROM tasks t
	JOIN challenges c ON c.id = t.challenge_id
	JOIN projects p ON p.id = c.project_id
	WHERE %s`, taskColumns, orderBy, strings.Join(clauses, "\n\t  AND "))

	return view, args
}

// Next resumes immediately after lastTaskID's rank: the rank is used as the
// OFFSET of a one-row fetch. An id that fell out of the view (completed,
// reclaimed) resolves to offset zero, restarting from the top.
func (r *queueRepository) Next(ctx context.Context, q repository.QueueQuery, lastTaskID int64) (*domain.Task, error) {
	view, args := r.rankedView(q, false)
	args = append(args, lastTaskID)

	query := fmt.Sprintf(`
	WITH ranked AS (%s)
	SELECT %s FROM ranked t
	ORDER BY t.row_num
	OFFSET COALESCE((SELECT row_num FROM ranked WHERE id = $%d), 0)
	LIMIT 1`, view, rankedTaskColumns(), len(args))

	row := r.pool.QueryRow(ctx, query, args...)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) || errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

func (r *queueRepository) ListRequested(ctx context.Context, q repository.QueueQuery) ([]repository.QueueRow, error) {
	return r.list(ctx, q, false)
}

func (r *queueRepository) ListReviewed(ctx context.Context, q repository.QueueQuery) ([]repository.QueueRow, error) {
	return r.list(ctx, q, true)
}

func (r *queueRepository) list(ctx context.Context, q repository.QueueQuery, reviewed bool) ([]repository.QueueRow, error) {
	view, args := r.rankedView(q, reviewed)
	args = append(args, clampLimit(q.Limit), q.Offset)

	query := fmt.Sprintf(`
	WITH ranked AS (%s)
	SELECT %s, t.row_num FROM ranked t
	ORDER BY t.row_num
	LIMIT $%d OFFSET $%d`, view, rankedTaskColumns(), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.QueueRow
	for rows.Next() {
		entry, err := scanQueueRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func (r *queueRepository) CountByStatus(ctx context.Context, q repository.QueueQuery) ([]repository.StatusCount, error) {
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	clauses := []string{"t.review_status IS NOT NULL"}
	if !q.User.Superuser {
		groups := q.User.GroupIDs
		if groups == nil {
			groups = []int64{}
		}
		userArg := arg(q.User.ID)
		clauses = append(clauses, fmt.Sprintf(
			"((c.enabled AND p.enabled) OR c.owner_id = %s OR p.owner_id = %s OR p.group_id = ANY(%s))",
			userArg, userArg, arg(groups)))
	}
	if filterSQL, filterArgs := q.Filters.Compile(len(args) + 1); filterSQL != "TRUE" {
		clauses = append(clauses, filterSQL)
		args = append(args, filterArgs...)
	}

	query := fmt.Sprintf(`
	SELECT t.review_status, COUNT(*)
	FROM tasks t
	JOIN challenges c ON c.id = t.challenge_id
	JOIN projects p ON p.id = c.project_id
	WHERE %s
	GROUP BY t.review_status
	ORDER BY t.review_status`, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []repository.StatusCount
	for rows.Next() {
		var status int
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts = append(counts, repository.StatusCount{
			Status: domain.ReviewStatus(status),
			Count:  count,
		})
	}
	return counts, rows.Err()
}

// rankedTaskColumns rewrites the canonical select list for reads out of the
// ranked CTE, where columns carry their bare names.
func rankedTaskColumns() string {
	return taskColumns
}

func scanQueueRow(rows pgx.Rows) (*repository.QueueRow, error) {
	var entry repository.QueueRow
	var reviewStatus *int

	if err := rows.Scan(
		&entry.Task.ID,
		&entry.Task.ChallengeID,
		&entry.Task.Name,
		&entry.Task.Status,
		&entry.Task.Priority,
		&entry.Task.MappedBy,
		&entry.Task.BundleID,
		&entry.Task.IsBundlePrimary,
		&entry.Task.SuggestedFix,
		&reviewStatus,
		&entry.Task.Review.RequestedBy,
		&entry.Task.Review.ReviewedBy,
		&entry.Task.Review.ReviewedAt,
		&entry.Task.Review.ReviewStartedAt,
		&entry.Task.Review.ClaimedBy,
		&entry.Task.Review.ClaimedAt,
		&entry.Task.CreatedAt,
		&entry.Task.UpdatedAt,
		&entry.RowNum,
	); err != nil {
		return nil, err
	}
	if reviewStatus != nil {
		status := domain.ReviewStatus(*reviewStatus)
		entry.Task.Review.Status = &status
	}
	return &entry, nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/campusworks/campusfix/internal/domain/issue"
	"github.com/campusworks/campusfix/internal/domain/job"
	"github.com/campusworks/campusfix/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IssuesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
	jobs *JobsRepo
}

func NewIssuesRepo(pool *pgxpool.Pool, prom *observability.Prom, jobs *JobsRepo) *IssuesRepo {
	return &IssuesRepo{pool: pool, prom: prom, jobs: jobs}
}

func (r *IssuesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *IssuesRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts inside the caller's transaction so the issue row and its
// notification job commit or roll back together.
func (r *IssuesRepo) CreateTx(ctx context.Context, tx pgx.Tx, i issue.Issue) (issue.Issue, error) {
	err := r.observe("issues.create_tx", func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO issues(id, title, description, category, image_path, status, remarks, created_by, created_at, updated_at)
			 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			i.ID, i.Title, i.Description, string(i.Category), i.ImagePath, string(i.Status), i.Remarks, i.CreatedBy, i.CreatedAt, i.UpdatedAt)
		return err
	})

	if err != nil {
		return issue.Issue{}, err
	}

	return i, nil
}

// CreateWithJob inserts the issue and (optionally) its notification job in a
// single transaction: either both land or neither does.
func (r *IssuesRepo) CreateWithJob(ctx context.Context, i issue.Issue, jobReq *job.CreateRequest) (issue.Issue, error) {
	tx, err := r.pool.Begin(ctx)

	if err != nil {
		return issue.Issue{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	created, err := r.CreateTx(ctx, tx, i)

	if err != nil {
		return issue.Issue{}, err
	}

	if jobReq != nil && r.jobs != nil {
		_, err = r.jobs.CreateTx(ctx, tx, *jobReq)

		// duplicate idempotency key means the notification is already queued
		if err != nil && !IsUniqueViolation(err) {
			return issue.Issue{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return issue.Issue{}, err
	}

	return created, nil
}

// UpdateStatusWithJob applies a validated transition and enqueues the
// status-change notification atomically.
func (r *IssuesRepo) UpdateStatusWithJob(ctx context.Context, id string, status issue.Status, remarks *string, jobReq *job.CreateRequest) (issue.Issue, error) {
	tx, err := r.pool.Begin(ctx)

	if err != nil {
		return issue.Issue{}, err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	updated, err := r.UpdateStatusTx(ctx, tx, id, status, remarks)

	if err != nil {
		return issue.Issue{}, err
	}

	if jobReq != nil && r.jobs != nil {
		_, err = r.jobs.CreateTx(ctx, tx, *jobReq)

		if err != nil && !IsUniqueViolation(err) {
			return issue.Issue{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return issue.Issue{}, err
	}

	return updated, nil
}

// GetByID joins the reporter in so callers can address notifications
// without a second lookup.
func (r *IssuesRepo) GetByID(ctx context.Context, id string) (issue.Issue, error) {
	var i issue.Issue
	var c issue.Creator
	var category, status string

	err := r.observe("issues.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT i.id, i.title, i.description, i.category, i.image_path, i.status, i.remarks, i.created_by, i.created_at, i.updated_at,
			        u.id, u.name, u.email
			 FROM issues i
			 JOIN users u ON u.id = i.created_by
			 WHERE i.id = $1`, id,
		).Scan(&i.ID, &i.Title, &i.Description, &category, &i.ImagePath, &status, &i.Remarks, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt,
			&c.ID, &c.Name, &c.Email)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return issue.Issue{}, issue.ErrNotFound
		}
		return issue.Issue{}, err
	}

	i.Category = issue.Category(category)
	i.Status = issue.Status(status)
	i.Creator = &c
	return i, nil
}

func (r *IssuesRepo) ListByCreator(ctx context.Context, userID string) ([]issue.Issue, error) {
	var rows pgx.Rows

	err := r.observe("issues.list_by_creator", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT id, title, description, category, image_path, status, remarks, created_by, created_at, updated_at
			 FROM issues
			 WHERE created_by = $1
			 ORDER BY created_at DESC, id DESC`, userID)
		return qerr
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	return scanIssues(rows, false)
}

// ListAll returns every issue newest-first with the reporter's display
// identity joined in for the admin view.
func (r *IssuesRepo) ListAll(ctx context.Context) ([]issue.Issue, error) {
	var rows pgx.Rows

	err := r.observe("issues.list_all", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx,
			`SELECT i.id, i.title, i.description, i.category, i.image_path, i.status, i.remarks, i.created_by, i.created_at, i.updated_at,
			        u.id, u.name, u.email
			 FROM issues i
			 JOIN users u ON u.id = i.created_by
			 ORDER BY i.created_at DESC, i.id DESC`)
		return qerr
	})

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	return scanIssues(rows, true)
}

// UpdateStatus persists an already-validated transition. Concurrent updates
// to the same issue are last-write-wins.
func (r *IssuesRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id string, status issue.Status, remarks *string) (issue.Issue, error) {
	var i issue.Issue
	var category, statusOut string

	err := r.observe("issues.update_status_tx", func() error {
		return tx.QueryRow(ctx,
			`UPDATE issues
			 SET status = $2,
			     remarks = COALESCE($3, remarks),
			     updated_at = NOW()
			 WHERE id = $1
			 RETURNING id, title, description, category, image_path, status, remarks, created_by, created_at, updated_at`,
			id, string(status), remarks,
		).Scan(&i.ID, &i.Title, &i.Description, &category, &i.ImagePath, &statusOut, &i.Remarks, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return issue.Issue{}, issue.ErrNotFound
		}
		return issue.Issue{}, err
	}

	i.Category = issue.Category(category)
	i.Status = issue.Status(statusOut)
	return i, nil
}

func scanIssues(rows pgx.Rows, withCreator bool) ([]issue.Issue, error) {
	output := make([]issue.Issue, 0)

	for rows.Next() {
		var i issue.Issue
		var category, status string

		if withCreator {
			var c issue.Creator

			err := rows.Scan(&i.ID, &i.Title, &i.Description, &category, &i.ImagePath, &status, &i.Remarks, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt,
				&c.ID, &c.Name, &c.Email)

			if err != nil {
				return nil, err
			}

			i.Creator = &c
		} else {
			err := rows.Scan(&i.ID, &i.Title, &i.Description, &category, &i.ImagePath, &status, &i.Remarks, &i.CreatedBy, &i.CreatedAt, &i.UpdatedAt)

			if err != nil {
				return nil, err
			}
		}

		i.Category = issue.Category(category)
		i.Status = issue.Status(status)
		output = append(output, i)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return output, nil
}

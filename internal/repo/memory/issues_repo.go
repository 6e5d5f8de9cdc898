package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/campusworks/campusfix/internal/domain/issue"
	"github.com/campusworks/campusfix/internal/domain/job"
)

// IssuesRepo mirrors the postgres issues repo for tests and local hacking;
// the "transaction" is just the mutex.
type IssuesRepo struct {
	mu    sync.RWMutex
	items map[string]issue.Issue
	users *UsersRepo
	jobs  *JobsRepo
}

func NewIssuesRepo(users *UsersRepo, jobs *JobsRepo) *IssuesRepo {
	return &IssuesRepo{
		items: make(map[string]issue.Issue),
		users: users,
		jobs:  jobs,
	}
}

func (r *IssuesRepo) CreateWithJob(ctx context.Context, i issue.Issue, jobReq *job.CreateRequest) (issue.Issue, error) {
	r.mu.Lock()
	r.items[i.ID] = i
	r.mu.Unlock()

	if jobReq != nil && r.jobs != nil {
		if _, err := r.jobs.Create(ctx, *jobReq); err != nil {
			return issue.Issue{}, err
		}
	}

	return i, nil
}

func (r *IssuesRepo) GetByID(ctx context.Context, id string) (issue.Issue, error) {
	r.mu.RLock()
	i, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return issue.Issue{}, issue.ErrNotFound
	}

	if r.users != nil {
		if u, err := r.users.GetByID(ctx, i.CreatedBy); err == nil {
			i.Creator = &issue.Creator{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return i, nil
}

func (r *IssuesRepo) ListByCreator(ctx context.Context, userID string) ([]issue.Issue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]issue.Issue, 0)

	for _, i := range r.items {
		if i.CreatedBy == userID {
			out = append(out, i)
		}
	}

	sortNewestFirst(out)
	return out, nil
}

func (r *IssuesRepo) ListAll(ctx context.Context) ([]issue.Issue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]issue.Issue, 0, len(r.items))

	for _, i := range r.items {
		if r.users != nil {
			if u, err := r.users.GetByID(ctx, i.CreatedBy); err == nil {
				i.Creator = &issue.Creator{ID: u.ID, Name: u.Name, Email: u.Email}
			}
		}
		out = append(out, i)
	}

	sortNewestFirst(out)
	return out, nil
}

func (r *IssuesRepo) UpdateStatusWithJob(ctx context.Context, id string, status issue.Status, remarks *string, jobReq *job.CreateRequest) (issue.Issue, error) {
	r.mu.Lock()

	i, ok := r.items[id]
	if !ok {
		r.mu.Unlock()
		return issue.Issue{}, issue.ErrNotFound
	}

	i.Status = status
	if remarks != nil {
		i.Remarks = remarks
	}
	r.items[id] = i
	r.mu.Unlock()

	if jobReq != nil && r.jobs != nil {
		if _, err := r.jobs.Create(ctx, *jobReq); err != nil {
			return issue.Issue{}, err
		}
	}

	return i, nil
}

func sortNewestFirst(items []issue.Issue) {
	sort.Slice(items, func(a, b int) bool {
		if items[a].CreatedAt.Equal(items[b].CreatedAt) {
			return items[a].ID > items[b].ID
		}
		return items[a].CreatedAt.After(items[b].CreatedAt)
	})
}

package db

import (
	"context"
	"time"

	"github.com/campusworks/campusfix/internal/domain/issue"
	"github.com/campusworks/campusfix/internal/domain/user"
	"github.com/campusworks/campusfix/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedSampleData loads a couple of demo students and open issues for local
// development. It is a no-op when any issue already exists.
func SeedSampleData(ctx context.Context, pool *pgxpool.Pool) error {
	var count int

	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM issues`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := security.HashPassword("password123")

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	students := []user.User{
		{ID: uuid.NewString(), Email: "ravi@campus.edu", Name: "Ravi Kumar", Role: user.RoleStudent},
		{ID: uuid.NewString(), Email: "ananya@campus.edu", Name: "Ananya Joshi", Role: user.RoleStudent},
	}

	for _, s := range students {
		_, err := pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (email) DO NOTHING`,
			s.ID, s.Email, hash, s.Name, s.Role, now, now,
		)
		if err != nil {
			return err
		}
	}

	samples := []struct {
		title, description string
		category           issue.Category
		createdBy          string
	}{
		{"Hostel corridor light flickering", "Second floor corridor light in block B flickers all night.", issue.CategoryElectrical, students[0].ID},
		{"No water on third floor", "Taps in the third floor washroom have been dry since morning.", issue.CategoryWater, students[1].ID},
		{"Library wifi keeps dropping", "Connection to campus-net drops every few minutes in the reading hall.", issue.CategoryInternet, students[0].ID},
	}

	for _, s := range samples {
		_, err := pool.Exec(ctx,
			`INSERT INTO issues (id, title, description, category, status, created_by, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			uuid.NewString(), s.title, s.description, string(s.category), string(issue.StatusOpen), s.createdBy, now, now,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

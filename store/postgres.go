package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrapjob/crawler/models"
)

// Postgres is the production Sink, backed by a pgx connection pool.
// Concurrent upserts are safe: identity conflicts resolve atomically in
// the database via ON CONFLICT.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and verifies it with a ping. The schema
// is expected to exist (see schema.sql).
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

const upsertListing = `
INSERT INTO job_listings (
	source, apply_link, title, company, location, description, skills,
	salary, experience, employment_type, posted_date,
	company_name, company_logo, company_about, company_rating, company_reviews,
	scraped_at, first_seen_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17
)
ON CONFLICT (source, apply_link) DO UPDATE SET
	title           = EXCLUDED.title,
	company         = EXCLUDED.company,
	location        = EXCLUDED.location,
	description     = EXCLUDED.description,
	skills          = EXCLUDED.skills,
	salary          = EXCLUDED.salary,
	experience      = EXCLUDED.experience,
	employment_type = EXCLUDED.employment_type,
	posted_date     = EXCLUDED.posted_date,
	company_name    = EXCLUDED.company_name,
	company_logo    = EXCLUDED.company_logo,
	company_about   = EXCLUDED.company_about,
	company_rating  = EXCLUDED.company_rating,
	company_reviews = EXCLUDED.company_reviews,
	scraped_at      = EXCLUDED.scraped_at`

func (p *Postgres) Upsert(ctx context.Context, listing *models.JobListing) error {
	_, err := p.pool.Exec(ctx, upsertListing,
		listing.Source,
		listing.ApplyLink,
		listing.Title,
		listing.Company,
		listing.Location,
		listing.Description,
		listing.Skills,
		listing.Salary,
		listing.Experience,
		listing.EmploymentType,
		listing.PostedDate,
		listing.CompanyDetails.Name,
		listing.CompanyDetails.Logo,
		listing.CompanyDetails.About,
		listing.CompanyDetails.Rating,
		listing.CompanyDetails.Reviews,
		listing.ScrapedAt,
	)
	if err != nil {
		return &StoreWriteError{Op: "upsert", Key: listing.Key(), Err: err}
	}
	return nil
}

const upsertMetadata = `
INSERT INTO run_metadata (source, total_jobs, last_updated)
VALUES ($1, $2, $3)
ON CONFLICT (source) DO UPDATE SET
	total_jobs   = EXCLUDED.total_jobs,
	last_updated = EXCLUDED.last_updated`

func (p *Postgres) RecordRunMetadata(ctx context.Context, meta models.RunMetadata) error {
	_, err := p.pool.Exec(ctx, upsertMetadata, meta.Source, meta.TotalJobs, meta.LastUpdated)
	if err != nil {
		return &StoreWriteError{Op: "record_run_metadata", Key: meta.Source, Err: err}
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

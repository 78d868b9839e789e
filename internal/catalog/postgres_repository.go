package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// catalogDB is the slice of pgx used by the repository. Narrow so tests can
// substitute pgxmock.
type catalogDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads providers from the relational database.
type PostgresRepository struct {
	db catalogDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db catalogDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetBySlug returns the provider with the given URL slug.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Provider, error) {
	return r.getOne(ctx, `WHERE slug = $1`, slug)
}

// GetByID returns the provider with the given identifier.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Provider, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*Provider, error) {
	query := `
		SELECT id, name, slug, category, bio, avatar_url, cover_image_url
		FROM providers ` + where
	var p Provider
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Category,
		&p.Bio,
		&p.AvatarURL,
		&p.CoverImageURL,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("catalog: select provider: %w", err)
	}
	if err := r.hydrate(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every provider with services and slots populated.
func (r *PostgresRepository) List(ctx context.Context) ([]*Provider, error) {
	query := `
		SELECT id, name, slug, category, bio, avatar_url, cover_image_url
		FROM providers
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list providers: %w", err)
	}
	defer rows.Close()

	var out []*Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Category, &p.Bio, &p.AvatarURL, &p.CoverImageURL); err != nil {
			return nil, fmt.Errorf("catalog: scan provider: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate providers: %w", err)
	}
	for _, p := range out {
		if err := r.hydrate(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PostgresRepository) hydrate(ctx context.Context, p *Provider) error {
	if err := r.loadServices(ctx, p); err != nil {
		return err
	}
	if err := r.loadSlots(ctx, p); err != nil {
		return err
	}
	if err := r.loadReviews(ctx, p); err != nil {
		return err
	}
	return r.loadPortfolio(ctx, p)
}

func (r *PostgresRepository) loadServices(ctx context.Context, p *Provider) error {
	query := `
		SELECT id, name, price, duration_minutes, description
		FROM services
		WHERE provider_id = $1
		ORDER BY position
	`
	rows, err := r.db.Query(ctx, query, p.ID)
	if err != nil {
		return fmt.Errorf("catalog: list services: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.Price, &s.DurationMinutes, &s.Description); err != nil {
			return fmt.Errorf("catalog: scan service: %w", err)
		}
		p.Services = append(p.Services, s)
	}
	return rows.Err()
}

func (r *PostgresRepository) loadSlots(ctx context.Context, p *Provider) error {
	query := `
		SELECT slot
		FROM available_slots
		WHERE provider_id = $1
		ORDER BY slot
	`
	rows, err := r.db.Query(ctx, query, p.ID)
	if err != nil {
		return fmt.Errorf("catalog: list slots: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return fmt.Errorf("catalog: scan slot: %w", err)
		}
		p.AvailableSlots = append(p.AvailableSlots, slot)
	}
	return rows.Err()
}

func (r *PostgresRepository) loadReviews(ctx context.Context, p *Provider) error {
	query := `
		SELECT id, user_name, user_avatar, rating, comment, review_date
		FROM reviews
		WHERE provider_id = $1
		ORDER BY review_date DESC
	`
	rows, err := r.db.Query(ctx, query, p.ID)
	if err != nil {
		return fmt.Errorf("catalog: list reviews: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.UserName, &rv.UserAvatar, &rv.Rating, &rv.Comment, &rv.Date); err != nil {
			return fmt.Errorf("catalog: scan review: %w", err)
		}
		p.Reviews = append(p.Reviews, rv)
	}
	return rows.Err()
}

func (r *PostgresRepository) loadPortfolio(ctx context.Context, p *Provider) error {
	query := `
		SELECT id, provider_id, provider_name, image_url, caption, likes, comments_count, posted_at
		FROM portfolio_posts
		WHERE provider_id = $1
		ORDER BY posted_at DESC
	`
	rows, err := r.db.Query(ctx, query, p.ID)
	if err != nil {
		return fmt.Errorf("catalog: list portfolio: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var post PortfolioPost
		if err := rows.Scan(&post.ID, &post.ProviderID, &post.ProviderName, &post.ImageURL, &post.Caption, &post.Likes, &post.CommentsCount, &post.Timestamp); err != nil {
			return fmt.Errorf("catalog: scan portfolio post: %w", err)
		}
		p.Portfolio = append(p.Portfolio, post)
	}
	return rows.Err()
}

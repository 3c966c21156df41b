package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/cfrm-service/internal/domain"
)

// CategoryRepository encapsulates category lookups.
type CategoryRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

// PriorityRepository encapsulates priority lookups.
type PriorityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Priority, error)
	GetByName(ctx context.Context, name string) (*domain.Priority, error)
	GetByLevel(ctx context.Context, level int) (*domain.Priority, error)
	List(ctx context.Context) ([]domain.Priority, error)
}

// StatusRepository encapsulates status lookups.
type StatusRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Status, error)
	GetByName(ctx context.Context, name string) (*domain.Status, error)
	List(ctx context.Context) ([]domain.Status, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository instantiates repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

const categoryColumns = `id, name, description, is_sensitive, requires_escalation, escalation_contact, created_at, updated_at`

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.fetch(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=$1`, id)
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.fetch(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name=$1`, name)
}

func (r *categoryRepository) fetch(ctx context.Context, query string, arg any) (*domain.Category, error) {
	var cat domain.Category
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&cat.ID, &cat.Name, &cat.Description, &cat.IsSensitive,
		&cat.RequiresEscalation, &cat.EscalationContact, &cat.CreatedAt, &cat.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Category
	for rows.Next() {
		var cat domain.Category
		if err := rows.Scan(
			&cat.ID, &cat.Name, &cat.Description, &cat.IsSensitive,
			&cat.RequiresEscalation, &cat.EscalationContact, &cat.CreatedAt, &cat.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, cat)
	}
	return result, rows.Err()
}

type priorityRepository struct {
	pool *pgxpool.Pool
}

// NewPriorityRepository instantiates repository.
func NewPriorityRepository(pool *pgxpool.Pool) PriorityRepository {
	return &priorityRepository{pool: pool}
}

const priorityColumns = `id, name, level, color, sla_hours, created_at`

func (r *priorityRepository) GetByID(ctx context.Context, id string) (*domain.Priority, error) {
	return r.fetch(ctx, `SELECT `+priorityColumns+` FROM priorities WHERE id=$1`, id)
}

func (r *priorityRepository) GetByName(ctx context.Context, name string) (*domain.Priority, error) {
	return r.fetch(ctx, `SELECT `+priorityColumns+` FROM priorities WHERE name=$1`, name)
}

func (r *priorityRepository) GetByLevel(ctx context.Context, level int) (*domain.Priority, error) {
	return r.fetch(ctx, `SELECT `+priorityColumns+` FROM priorities WHERE level=$1`, level)
}

func (r *priorityRepository) fetch(ctx context.Context, query string, arg any) (*domain.Priority, error) {
	var pr domain.Priority
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&pr.ID, &pr.Name, &pr.Level, &pr.Color, &pr.SLAHours, &pr.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *priorityRepository) List(ctx context.Context) ([]domain.Priority, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+priorityColumns+` FROM priorities ORDER BY level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Priority
	for rows.Next() {
		var pr domain.Priority
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Level, &pr.Color, &pr.SLAHours, &pr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, pr)
	}
	return result, rows.Err()
}

type statusRepository struct {
	pool *pgxpool.Pool
}

// NewStatusRepository instantiates repository.
func NewStatusRepository(pool *pgxpool.Pool) StatusRepository {
	return &statusRepository{pool: pool}
}

const statusColumns = `id, name, description, is_final, color, created_at`

func (r *statusRepository) GetByID(ctx context.Context, id string) (*domain.Status, error) {
	return r.fetch(ctx, `SELECT `+statusColumns+` FROM statuses WHERE id=$1`, id)
}

func (r *statusRepository) GetByName(ctx context.Context, name string) (*domain.Status, error) {
	return r.fetch(ctx, `SELECT `+statusColumns+` FROM statuses WHERE name=$1`, name)
}

func (r *statusRepository) fetch(ctx context.Context, query string, arg any) (*domain.Status, error) {
	var st domain.Status
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&st.ID, &st.Name, &st.Description, &st.IsFinal, &st.Color, &st.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *statusRepository) List(ctx context.Context) ([]domain.Status, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+statusColumns+` FROM statuses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []domain.Status
	for rows.Next() {
		var st domain.Status
		if err := rows.Scan(&st.ID, &st.Name, &st.Description, &st.IsFinal, &st.Color, &st.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	return result, rows.Err()
}

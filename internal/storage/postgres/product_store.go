// Package postgres provides the Postgres-backed product store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/affiliate-catalog/internal/catalog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "products"

// ProductStoreConfig controls the Postgres connection pool used for product rows.
type ProductStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// ProductStore reads and writes product rows.
type ProductStore struct {
	pool  pool
	table string
	idGen catalog.IDGenerator
	clock catalog.Clock
}

// NewProductStore connects a pgx pool using the provided config.
func NewProductStore(
	ctx context.Context,
	cfg ProductStoreConfig,
	idGen catalog.IDGenerator,
	clock catalog.Clock,
) (*ProductStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewProductStoreWithPool(p, cfg.Table, idGen, clock)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewProductStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewProductStoreWithPool(
	p pool,
	table string,
	idGen catalog.IDGenerator,
	clock catalog.Clock,
) (*ProductStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if idGen == nil || clock == nil {
		return nil, fmt.Errorf("id generator and clock are required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ProductStore{pool: p, table: table, idGen: idGen, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *ProductStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping reports whether the database is reachable.
func (s *ProductStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// EnsureSchema creates the products table and its listing index when they do not exist.
func (s *ProductStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	price DOUBLE PRECISION,
	image_url TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	affiliate_link TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_created_idx ON %[1]s (created_at DESC, seq DESC)`, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Create inserts a product. created_at never falls behind the newest existing row.
func (s *ProductStore) Create(ctx context.Context, p catalog.NewProduct) (string, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("%w: generate id: %w", catalog.ErrWrite, err)
	}
	query := fmt.Sprintf(`
INSERT INTO %[1]s (id, title, description, price, image_url, category, affiliate_link, created_at)
VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	GREATEST($8::timestamptz, COALESCE((SELECT MAX(created_at) FROM %[1]s), $8::timestamptz))
)
RETURNING created_at`, s.table)

	var created time.Time
	err = s.pool.QueryRow(ctx, query,
		id,
		p.Title,
		p.Description,
		p.Price,
		p.ImageURL,
		p.Category,
		p.AffiliateLink,
		s.clock.Now(),
	).Scan(&created)
	if err != nil {
		return "", fmt.Errorf("%w: insert product: %w", catalog.ErrWrite, err)
	}
	return id, nil
}

// Get loads one product or returns catalog.ErrNotFound.
func (s *ProductStore) Get(ctx context.Context, id string) (catalog.Product, error) {
	query := fmt.Sprintf(`
SELECT id, title, description, price, image_url, category, affiliate_link, created_at, updated_at
FROM %s
WHERE id = $1`, s.table)

	p, err := scanProduct(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns every product ordered by created_at, newest first, then by insertion order.
func (s *ProductStore) List(ctx context.Context) ([]catalog.Product, error) {
	query := fmt.Sprintf(`
SELECT id, title, description, price, image_url, category, affiliate_link, created_at, updated_at
FROM %s
ORDER BY created_at DESC, seq DESC`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// Update writes only the fields present in the change set plus updated_at.
func (s *ProductStore) Update(ctx context.Context, id string, changes catalog.Changes) error {
	stamp := changes.UpdatedAt
	if stamp.IsZero() {
		stamp = s.clock.Now()
	}
	query, args := buildUpdate(s.table, id, changes, stamp)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: update product: %w", catalog.ErrWrite, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func buildUpdate(table, id string, c catalog.Changes, stamp time.Time) (string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if c.Title != nil {
		add("title", *c.Title)
	}
	if c.Description != nil {
		add("description", *c.Description)
	}
	if c.Category != nil {
		add("category", *c.Category)
	}
	if c.Price != nil {
		add("price", *c.Price)
	}
	add("image_url", c.ImageURL)
	add("affiliate_link", c.AffiliateLink)
	add("updated_at", stamp)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, strings.Join(sets, ", "), len(args))
	return query, args
}

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Price,
		&p.ImageURL,
		&p.Category,
		&p.AffiliateLink,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return catalog.Product{}, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/product-view/internal/domain/product"
)

// Postgres stores product snapshots in a single product_views table.
type Postgres struct {
	db *sql.DB
}

// ConnectPostgres opens and pings a PostgreSQL connection.
func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// InitSchema creates the product_views table if it does not exist.
func (s *Postgres) InitSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS product_views (
			product_id  TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			price       NUMERIC(19, 4),
			category    TEXT,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			version     BIGINT NOT NULL
		)`)
	if err != nil {
		return product.WrapStoreError("create product_views table", err)
	}
	return nil
}

const productColumns = "product_id, name, description, price, category, created_at, updated_at, version"

func (s *Postgres) FindByID(ctx context.Context, id product.ID) (*product.Product, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM product_views WHERE product_id = $1", string(id))
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, product.WrapStoreError("query product by id", err)
	}
	return p, nil
}

func (s *Postgres) FindAll(ctx context.Context) ([]product.Product, error) {
	return s.query(ctx,
		"SELECT "+productColumns+" FROM product_views ORDER BY product_id")
}

func (s *Postgres) FindByCategory(ctx context.Context, category string) ([]product.Product, error) {
	return s.query(ctx,
		"SELECT "+productColumns+" FROM product_views WHERE category = $1 ORDER BY product_id",
		category)
}

func (s *Postgres) FindByPriceBetween(ctx context.Context, min, max product.Price) ([]product.Product, error) {
	return s.query(ctx,
		"SELECT "+productColumns+" FROM product_views WHERE price IS NOT NULL AND price BETWEEN $1 AND $2 ORDER BY product_id",
		min.String(), max.String())
}

func (s *Postgres) FindByCategoryAndPriceBetween(ctx context.Context, category string, min, max product.Price) ([]product.Product, error) {
	return s.query(ctx,
		"SELECT "+productColumns+" FROM product_views WHERE category = $1 AND price IS NOT NULL AND price BETWEEN $2 AND $3 ORDER BY product_id",
		category, min.String(), max.String())
}

func (s *Postgres) Save(ctx context.Context, p product.Product) error {
	var price *string
	if p.Price != nil {
		v := p.Price.String()
		price = &v
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO product_views (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version`,
		string(p.ProductID), string(p.Name), p.Description, price, p.Category,
		p.CreatedAt, p.UpdatedAt, p.Version)
	if err != nil {
		return product.WrapStoreError("save product", err)
	}
	return nil
}

func (s *Postgres) DeleteByID(ctx context.Context, id product.ID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM product_views WHERE product_id = $1", string(id))
	if err != nil {
		return product.WrapStoreError("delete product", err)
	}
	return nil
}

func (s *Postgres) ExistsByID(ctx context.Context, id product.ID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM product_views WHERE product_id = $1)", string(id)).Scan(&exists)
	if err != nil {
		return false, product.WrapStoreError("query product existence", err)
	}
	return exists, nil
}

func (s *Postgres) query(ctx context.Context, q string, args ...any) ([]product.Product, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, product.WrapStoreError("query products", err)
	}
	defer rows.Close()

	out := []product.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, product.WrapStoreError("scan product row", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, product.WrapStoreError("iterate product rows", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*product.Product, error) {
	var (
		id, name     string
		description  sql.NullString
		price        sql.NullString
		category     sql.NullString
		created, upd time.Time
		version      int64
	)
	if err := row.Scan(&id, &name, &description, &price, &category, &created, &upd, &version); err != nil {
		return nil, err
	}

	p := product.Product{
		ProductID: product.ID(id),
		Name:      product.Name(name),
		CreatedAt: created,
		UpdatedAt: upd,
		Version:   version,
	}
	if description.Valid {
		p.Description = &description.String
	}
	if category.Valid {
		p.Category = &category.String
	}
	if price.Valid {
		parsed, err := product.ParsePrice(price.String)
		if err != nil {
			return nil, err
		}
		p.Price = &parsed
	}
	return &p, nil
}

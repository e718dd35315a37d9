package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"blaze/internal/domain"
)

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

const productSelect = `
  SELECT
    p.id, p.name, p.description, p.price, p.category, p.image_url, p.seller_id, p.sold, p.created_at,
    COALESCE(pr.username, '')   AS seller_name,
    COALESCE(pr.avatar_url, '') AS seller_avatar,
    COALESCE(pr.first_name, '') AS seller_first_name,
    COALESCE(pr.last_name, '')  AS seller_last_name
  FROM products p
  LEFT JOIN profiles pr ON pr.id = p.seller_id`

// foldName is the case folding used for name_lower and search patterns.
func foldName(s string) string { return strings.ToLower(s) }

func fillSeller(p *domain.Product) {
	if p.SellerName == "" {
		p.SellerName = domain.UnknownSeller
	}
}

// Create inserts p, assigning ID and CreatedAt when empty.
func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = now()
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  INSERT INTO products(id, name, name_lower, description, price, category, image_url, seller_id, sold, created_at)
	  VALUES(?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?)
	`), p.ID, p.Name, foldName(p.Name), p.Description, p.Price, p.Category, p.ImageURL, p.SellerID, p.CreatedAt)
	return err
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.GetContext(ctx, &p, r.db.Rebind(productSelect+` WHERE p.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	fillSeller(&p)
	return p, nil
}

// Update rewrites the editable fields of an unsold product.
func (r *ProductRepo) Update(ctx context.Context, p domain.Product) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
	  UPDATE products
	  SET name = ?, name_lower = ?, description = ?, price = ?, category = ?, image_url = ?, updated_at = ?
	  WHERE id = ? AND sold = FALSE
	`), p.Name, foldName(p.Name), p.Description, p.Price, p.Category, p.ImageURL, now(), p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM products WHERE id = ? AND sold = FALSE`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func orderBy(s domain.Sort) string {
	switch s {
	case domain.SortPriceAsc:
		return `p.price ASC, p.id ASC`
	case domain.SortPriceDesc:
		return `p.price DESC, p.id DESC`
	default:
		return `p.created_at DESC, p.id DESC`
	}
}

// List returns one page of unsold products matching f plus the page count.
func (r *ProductRepo) List(ctx context.Context, f domain.ListingFilter) (domain.ListingPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	where := []string{`p.sold = FALSE`}
	args := []any{}
	if f.Category != "" {
		where = append(where, `p.category = ?`)
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, `p.name_lower LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(foldName(f.Search))+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM products p WHERE `+cond), args...); err != nil {
		return domain.ListingPage{}, err
	}

	q := productSelect + `
  WHERE ` + cond + `
  ORDER BY ` + orderBy(f.Sort) + `
  LIMIT ? OFFSET ?`
	args = append(args, domain.PageSize, (f.Page-1)*domain.PageSize)

	out := []domain.Product{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return domain.ListingPage{}, err
	}
	for i := range out {
		fillSeller(&out[i])
	}
	return domain.ListingPage{
		Products:   out,
		Page:       f.Page,
		TotalPages: domain.TotalPages(total),
		Total:      total,
	}, nil
}

// ByIDs returns the products with the given ids, in no particular order.
func (r *ProductRepo) ByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(productSelect+` WHERE p.id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var out []domain.Product
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	for i := range out {
		fillSeller(&out[i])
	}
	return out, nil
}

// PriceRefs returns the stored price and seller for each id found.
func (r *ProductRepo) PriceRefs(ctx context.Context, ids []string) ([]domain.PriceRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT id, price, seller_id FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var out []domain.PriceRef
	err = r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...)
	return out, err
}

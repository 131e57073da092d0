package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/VytasKer/Fintegrate/internal/model"
)

// CustomersRepository persists tenant-owned customer rows. Reads are always
// scoped by tenant_id so one tenant can never see another's data.
type CustomersRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, c *model.Customer) error
	GetByID(ctx context.Context, tenantID, customerID string) (*model.Customer, error)
	Delete(ctx context.Context, tx *sqlx.Tx, tenantID, customerID string) (bool, error)
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, tenantID, customerID string, status model.CustomerStatus) error
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

func (r *CustomersRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *CustomersRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c *model.Customer) error {
	const q = `
		INSERT INTO customers (id, tenant_id, name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, c.ID, c.TenantID, c.Name, c.Status.String())
		return err
	})
}

func (r *CustomersRepositoryImpl) GetByID(ctx context.Context, tenantID, customerID string) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT id, tenant_id, name, status, created_at, updated_at
		  FROM customers
		 WHERE tenant_id = ? AND id = ? LIMIT 1
	`, tenantID, customerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomersRepositoryImpl) Delete(ctx context.Context, tx *sqlx.Tx, tenantID, customerID string) (bool, error) {
	deleted := false
	err := r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM customers WHERE tenant_id = ? AND id = ?`, tenantID, customerID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

func (r *CustomersRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, tenantID, customerID string, status model.CustomerStatus) error {
	const q = `
		UPDATE customers
		   SET status = ?, updated_at = NOW()
		 WHERE tenant_id = ? AND id = ?
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, status.String(), tenantID, customerID)
		return err
	})
}

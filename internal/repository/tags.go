package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/VytasKer/Fintegrate/internal/model"
)

type TagsRepository interface {
	// Upsert creates the tag or updates its value when (customer_id, tag_key)
	// already exists.
	Upsert(ctx context.Context, tx *sqlx.Tx, tag *model.CustomerTag) error
	Get(ctx context.Context, customerID, tagKey string) (*model.CustomerTag, error)
	ListByCustomer(ctx context.Context, customerID string) ([]model.CustomerTag, error)
	Delete(ctx context.Context, tx *sqlx.Tx, customerID, tagKey string) (bool, error)
	DeleteAll(ctx context.Context, tx *sqlx.Tx, customerID string) (int64, error)
}

type TagsRepositoryImpl struct {
	db *sqlx.DB
}

func NewTagsRepository(db *sqlx.DB) *TagsRepositoryImpl {
	return &TagsRepositoryImpl{db: db}
}

var _ TagsRepository = (*TagsRepositoryImpl)(nil)

func (r *TagsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *TagsRepositoryImpl) Upsert(ctx context.Context, tx *sqlx.Tx, tag *model.CustomerTag) error {
	const q = `
		INSERT INTO customer_tags (customer_id, tag_key, tag_value, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    tag_value  = VALUES(tag_value),
		    updated_at = VALUES(updated_at)
	`
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q, tag.CustomerID, tag.TagKey, tag.TagValue)
		return err
	})
}

func (r *TagsRepositoryImpl) Get(ctx context.Context, customerID, tagKey string) (*model.CustomerTag, error) {
	var tag model.CustomerTag
	err := r.db.GetContext(ctx, &tag, `
		SELECT customer_id, tag_key, tag_value, created_at, updated_at
		  FROM customer_tags
		 WHERE customer_id = ? AND tag_key = ? LIMIT 1
	`, customerID, tagKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *TagsRepositoryImpl) ListByCustomer(ctx context.Context, customerID string) ([]model.CustomerTag, error) {
	var tags []model.CustomerTag
	err := r.db.SelectContext(ctx, &tags, `
		SELECT customer_id, tag_key, tag_value, created_at, updated_at
		  FROM customer_tags
		 WHERE customer_id = ?
		 ORDER BY tag_key ASC
	`, customerID)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *TagsRepositoryImpl) Delete(ctx context.Context, tx *sqlx.Tx, customerID, tagKey string) (bool, error) {
	deleted := false
	err := r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM customer_tags WHERE customer_id = ? AND tag_key = ?`, customerID, tagKey)
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

func (r *TagsRepositoryImpl) DeleteAll(ctx context.Context, tx *sqlx.Tx, customerID string) (int64, error) {
	var n int64
	err := r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM customer_tags WHERE customer_id = ?`, customerID)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

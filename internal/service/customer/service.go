package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/VytasKer/Fintegrate/internal/model"
	"github.com/VytasKer/Fintegrate/internal/repository"
	"github.com/VytasKer/Fintegrate/internal/sanctions"
	"github.com/VytasKer/Fintegrate/internal/service/outbox"
	"github.com/VytasKer/Fintegrate/internal/util"
)

var (
	ErrNotFound       = errors.New("customer not found")
	ErrStatusConflict = errors.New("customer already has requested status")
)

const (
	EventCustomerCreated       = "customer_created"
	EventCustomerDeleted       = "customer_deleted"
	EventCustomerStatusChanged = "customer_status_changed"
)

// eventData is the `data` block of customer event payloads.
type eventData struct {
	CustomerID     string `json:"customer_id"`
	Name           string `json:"name"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
}

// Service owns customer mutations. Every mutation writes its outbox record in
// the same transaction and attempts the first publish only after commit.
type Service struct {
	db        *sqlx.DB
	customers repository.CustomersRepository
	tags      repository.TagsRepository
	outbox    *outbox.Service
	checker   sanctions.Checker
	log       *zap.Logger
}

func New(
	db *sqlx.DB,
	customersRepo repository.CustomersRepository,
	tagsRepo repository.TagsRepository,
	outboxSvc *outbox.Service,
	checker sanctions.Checker,
	log *zap.Logger,
) *Service {
	if checker == nil {
		checker = sanctions.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		db:        db,
		customers: customersRepo,
		tags:      tagsRepo,
		outbox:    outboxSvc,
		checker:   checker,
		log:       log,
	}
}

// Create screens the name, persists the customer + outbox record atomically,
// then attempts the first publish. A screening outage fails open: onboarding
// proceeds with status ACTIVE.
func (s *Service) Create(ctx context.Context, tenantID, name string) (*model.Customer, error) {
	status := model.CustomerActive
	sanctioned, err := s.checker.Check(ctx, name)
	if err != nil {
		s.log.Warn("sanctions check unavailable, failing open", zap.Error(err))
	} else if sanctioned {
		status = model.CustomerBlocked
	}

	cust := &model.Customer{
		ID:       util.New(),
		TenantID: tenantID,
		Name:     name,
		Status:   status,
	}

	var rec *model.EventRecord
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.customers.Insert(ctx, tx, cust); err != nil {
			return fmt.Errorf("insert customer: %w", err)
		}
		rec, err = s.outbox.Record(ctx, tx, tenantID, cust.ID, EventCustomerCreated, eventData{
			CustomerID: cust.ID,
			Name:       cust.Name,
			Status:     cust.Status.String(),
		}, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.outbox.PublishRecorded(ctx, rec)
	return cust, nil
}

func (s *Service) Get(ctx context.Context, tenantID, customerID string) (*model.Customer, error) {
	cust, err := s.customers.GetByID(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if cust == nil {
		return nil, ErrNotFound
	}
	return cust, nil
}

// Delete removes the customer and its tags, recording the deletion event in
// the same transaction.
func (s *Service) Delete(ctx context.Context, tenantID, customerID string) error {
	cust, err := s.Get(ctx, tenantID, customerID)
	if err != nil {
		return err
	}

	var rec *model.EventRecord
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.tags.DeleteAll(ctx, tx, customerID); err != nil {
			return fmt.Errorf("delete tags: %w", err)
		}
		deleted, err := s.customers.Delete(ctx, tx, tenantID, customerID)
		if err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		if !deleted {
			return ErrNotFound
		}
		rec, err = s.outbox.Record(ctx, tx, tenantID, customerID, EventCustomerDeleted, eventData{
			CustomerID: cust.ID,
			Name:       cust.Name,
			Status:     cust.Status.String(),
		}, nil)
		return err
	})
	if err != nil {
		return err
	}

	s.outbox.PublishRecorded(ctx, rec)
	return nil
}

// ChangeStatus flips ACTIVE/INACTIVE. Requesting the current status is a
// conflict, matching the API contract.
func (s *Service) ChangeStatus(ctx context.Context, tenantID, customerID string, status model.CustomerStatus) (*model.Customer, error) {
	cust, err := s.Get(ctx, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if cust.Status == status {
		return nil, ErrStatusConflict
	}
	previous := cust.Status

	var rec *model.EventRecord
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.customers.UpdateStatus(ctx, tx, tenantID, customerID, status); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		rec, err = s.outbox.Record(ctx, tx, tenantID, customerID, EventCustomerStatusChanged, eventData{
			CustomerID:     cust.ID,
			Name:           cust.Name,
			Status:         status.String(),
			PreviousStatus: previous.String(),
		}, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.outbox.PublishRecorded(ctx, rec)

	cust.Status = status
	return cust, nil
}

// SetTag upserts a tag after verifying the customer belongs to the tenant.
func (s *Service) SetTag(ctx context.Context, tenantID, customerID, key, value string) (*model.CustomerTag, error) {
	if _, err := s.Get(ctx, tenantID, customerID); err != nil {
		return nil, err
	}
	tag := &model.CustomerTag{CustomerID: customerID, TagKey: key, TagValue: value}
	if err := s.tags.Upsert(ctx, nil, tag); err != nil {
		return nil, fmt.Errorf("upsert tag: %w", err)
	}
	return tag, nil
}

func (s *Service) ListTags(ctx context.Context, tenantID, customerID string) ([]model.CustomerTag, error) {
	if _, err := s.Get(ctx, tenantID, customerID); err != nil {
		return nil, err
	}
	return s.tags.ListByCustomer(ctx, customerID)
}

func (s *Service) DeleteTag(ctx context.Context, tenantID, customerID, key string) error {
	if _, err := s.Get(ctx, tenantID, customerID); err != nil {
		return err
	}
	deleted, err := s.tags.Delete(ctx, nil, customerID, key)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *Service) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if s.db == nil {
		return fn(nil)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

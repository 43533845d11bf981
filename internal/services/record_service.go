package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"martelinho/internal/amqp"
	"martelinho/internal/core"
	"martelinho/internal/log"
	"martelinho/internal/storage"
)

// EventPublisher announces record changes; amqp.Client implements it.
type EventPublisher interface {
	PublishServiceEvent(ctx context.Context, e amqp.ServiceEvent) error
}

const authCodeAttempts = 3

// RecordService manages a tenant's service records. Every method takes the
// tenant explicitly; records of other tenants are invisible to it.
type RecordService struct {
	table  storage.Table
	events EventPublisher
	logger *log.Logger
	slog   *log.StructuredLogger
	now    func() time.Time
	newID  func() string
}

// NewRecordService wires the table and an optional event publisher.
func NewRecordService(table storage.Table, events EventPublisher, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentServices)
	return &RecordService{
		table:  table,
		events: events,
		logger: logger,
		slog:   log.NewStructuredLogger(logger),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Create validates in, assigns an id and an authentication code and stores
// the record.
func (s *RecordService) Create(ctx context.Context, tenantID string, in core.ServiceInput) (core.ServiceRecord, error) {
	if tenantID == "" {
		return core.ServiceRecord{}, core.ErrEmptyTenant
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.ServiceRecord{}, err
	}

	now := s.now().UTC()
	rec := core.ServiceRecord{
		ID:        s.newID(),
		TenantID:  tenantID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.Apply(in)

	var err error
	for range authCodeAttempts {
		rec.AuthCode = core.GenerateAuthCode()
		err = s.table.Insert(ctx, tenantID, storage.ToRow(rec))
		if !errors.Is(err, storage.ErrConflict) {
			break
		}
	}
	if err != nil {
		s.slog.LogError(ctx, "Failed to create service record", err, log.ComponentServices, log.OpCreate,
			log.NewFields().WithTenant(tenantID))
		return core.ServiceRecord{}, fmt.Errorf("create service record: %w", err)
	}

	s.slog.LogServiceSaved(ctx, log.OpCreate, tenantID, rec.ID, rec.AuthCode, rec.ServiceValue.Cents)
	s.publish(ctx, amqp.EventServiceCreated, rec)
	return rec, nil
}

// Update replaces the editable fields of the record id.
func (s *RecordService) Update(ctx context.Context, tenantID, id string, in core.ServiceInput) (core.ServiceRecord, error) {
	rec, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return core.ServiceRecord{}, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.ServiceRecord{}, err
	}

	rec.Apply(in)
	rec.UpdatedAt = s.now().UTC()
	if err := s.table.Update(ctx, tenantID, id, storage.UpdateRow(in, rec.UpdatedAt)); err != nil {
		return core.ServiceRecord{}, fmt.Errorf("update service record %s: %w", id, err)
	}

	s.slog.LogServiceSaved(ctx, log.OpUpdate, tenantID, rec.ID, rec.AuthCode, rec.ServiceValue.Cents)
	s.publish(ctx, amqp.EventServiceUpdated, rec)
	return rec, nil
}

func (s *RecordService) Delete(ctx context.Context, tenantID, id string) error {
	if tenantID == "" {
		return core.ErrEmptyTenant
	}
	if err := s.table.Delete(ctx, tenantID, id); err != nil {
		return fmt.Errorf("delete service record %s: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Service record deleted",
		log.FieldTenantID, tenantID,
		log.FieldServiceID, id,
		log.FieldOperation, log.OpDelete)
	s.publish(ctx, amqp.EventServiceDeleted, core.ServiceRecord{ID: id, TenantID: tenantID})
	return nil
}

// Get returns the record id or an error wrapping storage.ErrNotFound.
func (s *RecordService) Get(ctx context.Context, tenantID, id string) (core.ServiceRecord, error) {
	if tenantID == "" {
		return core.ServiceRecord{}, core.ErrEmptyTenant
	}
	rows, err := s.table.Select(ctx, storage.From(tenantID).Eq(storage.ColID, id).Take(1))
	if err != nil {
		return core.ServiceRecord{}, fmt.Errorf("get service record %s: %w", id, err)
	}
	if len(rows) == 0 {
		return core.ServiceRecord{}, fmt.Errorf("service record %s: %w", id, storage.ErrNotFound)
	}
	return storage.ParseRow(rows[0])
}

// List returns every record of the tenant, most recent service date first.
func (s *RecordService) List(ctx context.Context, tenantID string) ([]core.ServiceRecord, error) {
	if tenantID == "" {
		return nil, core.ErrEmptyTenant
	}
	rows, err := s.table.Select(ctx, storage.From(tenantID).Order(storage.ColServiceDate, true))
	if err != nil {
		return nil, fmt.Errorf("list service records: %w", err)
	}
	out := make([]core.ServiceRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := storage.ParseRow(row)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable service row",
				log.FieldTenantID, tenantID,
				log.FieldError, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Search filters List by a case- and accent-insensitive substring of the
// client name or the plate. An empty term returns everything.
func (s *RecordService) Search(ctx context.Context, tenantID, term string) ([]core.ServiceRecord, error) {
	all, err := s.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	needle := core.Fold(strings.TrimSpace(term))
	if needle == "" {
		return all, nil
	}
	out := all[:0]
	for _, r := range all {
		if strings.Contains(core.Fold(r.ClientName), needle) || strings.Contains(core.Fold(r.CarPlate), needle) {
			out = append(out, r)
		}
	}
	return out, nil
}

// publish never fails the mutation: the record is already stored.
func (s *RecordService) publish(ctx context.Context, t amqp.EventType, rec core.ServiceRecord) {
	if s.events == nil {
		return
	}
	e := amqp.NewServiceEvent(t, rec.ID, rec.TenantID)
	e.AuthCode = rec.AuthCode
	e.ServiceDate = rec.ServiceDate.String()
	e.ValueCents = rec.ServiceValue.Cents
	if err := s.events.PublishServiceEvent(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish service event",
			log.FieldServiceID, rec.ID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}

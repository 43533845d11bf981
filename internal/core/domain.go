package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a plain calendar date. The wrapped time is always 12:00 UTC so
	// that converting to any local timezone keeps the same day.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// ServiceRecord is one repair job registered by a tenant.
	ServiceRecord struct {
		ID            string
		TenantID      string
		ClientName    string
		ServiceDate   Date
		CarPlate      string
		CarModel      string
		ServiceValue  Money
		RepairedParts []RepairedPart
		AuthCode      string
		Notes         string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	// ServiceInput carries the user-editable fields of a ServiceRecord.
	ServiceInput struct {
		ClientName    string
		ServiceDate   Date
		CarPlate      string
		CarModel      string
		ServiceValue  Money
		RepairedParts []RepairedPart
		Notes         string
	}

	UserProfile struct {
		ID          string
		Email       string
		FullName    string
		CompanyName string
		Phone       string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyClientName = errors.New("empty client name")
	ErrEmptyCarPlate   = errors.New("empty car plate")
	ErrEmptyCarModel   = errors.New("empty car model")
	ErrNoRepairedParts = errors.New("select at least one repaired part")
	ErrUnknownPart     = errors.New("unknown repaired part")
	ErrEmptyTenant     = errors.New("empty tenant id")
)

const maxTextLength = 200

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate allows zero: a courtesy job is still a job.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize trims text fields, upper-cases the plate and de-duplicates the
// repaired parts in vocabulary order.
func (in ServiceInput) Normalize() ServiceInput {
	in.ClientName = strings.TrimSpace(in.ClientName)
	in.CarPlate = strings.ToUpper(strings.TrimSpace(in.CarPlate))
	in.CarModel = strings.TrimSpace(in.CarModel)
	in.Notes = strings.TrimSpace(in.Notes)
	in.RepairedParts = SortParts(in.RepairedParts)
	return in
}

func (in ServiceInput) Validate() error {
	if strings.TrimSpace(in.ClientName) == "" {
		return ErrEmptyClientName
	}
	if len(in.ClientName) > maxTextLength {
		return errors.New("client name too long (max 200 characters)")
	}
	if err := in.ServiceDate.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.CarPlate) == "" {
		return ErrEmptyCarPlate
	}
	if strings.TrimSpace(in.CarModel) == "" {
		return ErrEmptyCarModel
	}
	if err := in.ServiceValue.Validate(); err != nil {
		return err
	}
	if len(in.RepairedParts) == 0 {
		return ErrNoRepairedParts
	}
	for _, p := range in.RepairedParts {
		if !p.Valid() {
			return ErrUnknownPart
		}
	}
	return nil
}

// Input returns the editable part of the record, e.g. to pre-fill an edit form.
func (r ServiceRecord) Input() ServiceInput {
	return ServiceInput{
		ClientName:    r.ClientName,
		ServiceDate:   r.ServiceDate,
		CarPlate:      r.CarPlate,
		CarModel:      r.CarModel,
		ServiceValue:  r.ServiceValue,
		RepairedParts: append([]RepairedPart(nil), r.RepairedParts...),
		Notes:         r.Notes,
	}
}

// Apply copies the editable fields of in onto the record.
func (r *ServiceRecord) Apply(in ServiceInput) {
	r.ClientName = in.ClientName
	r.ServiceDate = in.ServiceDate
	r.CarPlate = in.CarPlate
	r.CarModel = in.CarModel
	r.ServiceValue = in.ServiceValue
	r.RepairedParts = append([]RepairedPart(nil), in.RepairedParts...)
	r.Notes = in.Notes
}

// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// the service form, the month selector and the auth forms.

package http

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"martelinho/internal/auth"
	"martelinho/internal/core"
)

// Form field names.
const (
	fieldClientName    = "client_name"
	fieldServiceDate   = "service_date"
	fieldCarPlate      = "car_plate"
	fieldCarModel      = "car_model"
	fieldServiceValue  = "service_value"
	fieldRepairedParts = "repaired_parts"
	fieldNotes         = "notes"
)

const maxNotesLength = 2000

var errInvalidMonth = errors.New("invalid month")

// FieldErrors maps a form field to the message shown next to it.
type FieldErrors map[string]string

func (e FieldErrors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// ServiceForm is the raw content of the service form, kept as typed so it
// can be shown back to the user when validation fails.
type ServiceForm struct {
	ClientName    string
	ServiceDate   string
	CarPlate      string
	CarModel      string
	ServiceValue  string
	RepairedParts []string
	Notes         string
}

// ParseServiceForm reads the service form fields from form.
func ParseServiceForm(form url.Values) ServiceForm {
	parts := make([]string, 0, len(form[fieldRepairedParts]))
	for _, p := range form[fieldRepairedParts] {
		if p = sanitizeInput(p); p != "" {
			parts = append(parts, p)
		}
	}
	return ServiceForm{
		ClientName:    sanitizeInput(form.Get(fieldClientName)),
		ServiceDate:   sanitizeInput(form.Get(fieldServiceDate)),
		CarPlate:      sanitizeInput(form.Get(fieldCarPlate)),
		CarModel:      sanitizeInput(form.Get(fieldCarModel)),
		ServiceValue:  sanitizeInput(form.Get(fieldServiceValue)),
		RepairedParts: parts,
		Notes:         sanitizeInput(form.Get(fieldNotes)),
	}
}

// FormFromRecord pre-fills the edit form of rec.
func FormFromRecord(rec core.ServiceRecord) ServiceForm {
	parts := make([]string, len(rec.RepairedParts))
	for i, p := range rec.RepairedParts {
		parts[i] = string(p)
	}
	return ServiceForm{
		ClientName:    rec.ClientName,
		ServiceDate:   rec.ServiceDate.String(),
		CarPlate:      rec.CarPlate,
		CarModel:      rec.CarModel,
		ServiceValue:  strings.Replace(rec.ServiceValue.Decimal(), ".", ",", 1),
		RepairedParts: parts,
		Notes:         rec.Notes,
	}
}

// Input validates every field and converts the form. All problems are
// reported at once; the input is only usable when errs is empty.
func (f ServiceForm) Input() (core.ServiceInput, FieldErrors) {
	errs := FieldErrors{}
	var in core.ServiceInput

	in.ClientName = f.ClientName
	if in.ClientName == "" {
		errs[fieldClientName] = userMessage(core.ErrEmptyClientName)
	}

	if d, err := core.ParseDate(f.ServiceDate); err != nil {
		errs[fieldServiceDate] = userMessage(core.ErrInvalidDate)
	} else {
		in.ServiceDate = d
	}

	in.CarPlate = f.CarPlate
	if in.CarPlate == "" {
		errs[fieldCarPlate] = userMessage(core.ErrEmptyCarPlate)
	}
	in.CarModel = f.CarModel
	if in.CarModel == "" {
		errs[fieldCarModel] = userMessage(core.ErrEmptyCarModel)
	}

	if cents, err := core.ParseDecimalToCents(f.ServiceValue); err != nil {
		errs[fieldServiceValue] = userMessage(core.ErrInvalidAmount)
	} else {
		in.ServiceValue = core.Money{Cents: cents}
	}

	for _, raw := range f.RepairedParts {
		p, ok := core.ParsePart(raw)
		if !ok {
			errs[fieldRepairedParts] = userMessage(core.ErrUnknownPart)
			continue
		}
		in.RepairedParts = append(in.RepairedParts, p)
	}
	if len(f.RepairedParts) == 0 {
		errs[fieldRepairedParts] = userMessage(core.ErrNoRepairedParts)
	}

	in.Notes = f.Notes
	if len(in.Notes) > maxNotesLength {
		errs[fieldNotes] = "Observações muito longas (máximo 2000 caracteres)"
	}

	in = in.Normalize()
	if len(errs) == 0 {
		if err := in.Validate(); err != nil {
			errs[fieldForError(err)] = userMessage(err)
		}
	}
	return in, errs
}

func fieldForError(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyClientName):
		return fieldClientName
	case errors.Is(err, core.ErrInvalidDate):
		return fieldServiceDate
	case errors.Is(err, core.ErrEmptyCarPlate):
		return fieldCarPlate
	case errors.Is(err, core.ErrEmptyCarModel):
		return fieldCarModel
	case errors.Is(err, core.ErrInvalidAmount):
		return fieldServiceValue
	case errors.Is(err, core.ErrNoRepairedParts), errors.Is(err, core.ErrUnknownPart):
		return fieldRepairedParts
	default:
		return fieldClientName
	}
}

// ParseMonthParam reads the month selector value "yyyy-MM". An empty value
// selects the month of today.
func ParseMonthParam(query url.Values, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return today.StartOfMonth(), nil
	}
	year, month, ok := strings.Cut(v, "-")
	if !ok {
		return core.Date{}, errInvalidMonth
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1900 || y > 9999 {
		return core.Date{}, errInvalidMonth
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return core.Date{}, errInvalidMonth
	}
	return core.NewDate(y, time.Month(m), 1), nil
}

// SignUpForm is the content of the register form.
type SignUpForm struct {
	Email       string
	Password    string
	Confirm     string
	FullName    string
	CompanyName string
	Phone       string
}

func ParseSignUpForm(form url.Values) SignUpForm {
	return SignUpForm{
		Email:       sanitizeInput(form.Get("email")),
		Password:    form.Get("password"),
		Confirm:     form.Get("confirm_password"),
		FullName:    sanitizeInput(form.Get("full_name")),
		CompanyName: sanitizeInput(form.Get("company_name")),
		Phone:       core.FormatPhone(sanitizeInput(form.Get("phone"))),
	}
}

// Validate mirrors auth.ValidateSignUp and also checks the confirmation.
func (f SignUpForm) Validate() error {
	if err := auth.ValidateSignUp(f.Email, f.Password, f.Profile()); err != nil {
		return err
	}
	if f.Password != f.Confirm {
		return errPasswordMismatch
	}
	return nil
}

func (f SignUpForm) Profile() auth.Profile {
	return auth.Profile{FullName: f.FullName, CompanyName: f.CompanyName, Phone: f.Phone}
}

var errPasswordMismatch = errors.New("passwords do not match")

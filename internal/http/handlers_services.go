package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"martelinho/internal/auth"
	"martelinho/internal/core"
	"martelinho/internal/log"
	"martelinho/internal/storage"
)

// isValidationError reports errors caused by the submitted values.
func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyClientName, core.ErrInvalidDate, core.ErrEmptyCarPlate, core.ErrEmptyCarModel,
		core.ErrInvalidAmount, core.ErrNoRepairedParts, core.ErrUnknownPart,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func mustSession(r *http.Request) auth.Session {
	sess, _ := sessionFrom(r.Context())
	return sess
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request, message string) {
	if isHTMX(r) {
		NotFoundError(message).TriggerErrorNotification(message).Write(w)
		return
	}
	s.render(w, r, http.StatusNotFound, "error_page", errorPage{
		pageData: s.pageData(r, "Não encontrado"),
		Message:  message,
	})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, message string) {
	if isHTMX(r) {
		InternalServerError(message).TriggerErrorNotification(message).Write(w)
		return
	}
	s.render(w, r, http.StatusInternalServerError, "error_page", errorPage{
		pageData: s.pageData(r, "Erro"),
		Message:  message,
	})
}

// handleServiceList shows the service table. htmx requests from the search
// box get just the table.
func (s *Server) handleServiceList(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	query := sanitizeInput(r.URL.Query().Get("q"))
	records, err := s.records.Search(r.Context(), sess.TenantID(), query)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list services",
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		s.serverError(w, r, msgUnexpected)
		return
	}
	page := newServicesPage(s.pageData(r, "Serviços"), query, records)
	if isHTMX(r) {
		s.render(w, r, http.StatusOK, "services_list", page)
		return
	}
	s.render(w, r, http.StatusOK, "services_page", page)
}

func (s *Server) handleNewService(w http.ResponseWriter, r *http.Request) {
	form := ServiceForm{ServiceDate: s.today().String()}
	s.render(w, r, http.StatusOK, "service_form_page",
		newServiceFormPage(s.pageData(r, "Novo serviço"), "", form, nil))
}

func (s *Server) handleEditService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.records.Get(r.Context(), mustSession(r).TenantID(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.notFound(w, r, msgServiceNotFound)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load service",
			log.FieldServiceID, id,
			log.FieldOperation, log.OpRead,
			log.FieldError, err)
		s.serverError(w, r, msgUnexpected)
		return
	}
	s.render(w, r, http.StatusOK, "service_form_page",
		newServiceFormPage(s.pageData(r, "Editar serviço"), id, FormFromRecord(rec), nil))
}

func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	s.saveService(w, r, "")
}

func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	s.saveService(w, r, chi.URLParam(r, "id"))
}

// saveService creates the record when id is empty and updates it otherwise.
// Invalid input re-renders the form with every field error.
func (s *Server) saveService(w http.ResponseWriter, r *http.Request, id string) {
	title := "Novo serviço"
	op := log.OpCreate
	if id != "" {
		title = "Editar serviço"
		op = log.OpUpdate
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		BadRequestError(msgInvalidRequest).Write(w)
		return
	}
	form := ParseServiceForm(r.PostForm)
	in, errs := form.Input()
	if len(errs) > 0 {
		s.render(w, r, http.StatusUnprocessableEntity, "service_form_page",
			newServiceFormPage(s.pageData(r, title), id, form, errs))
		return
	}

	tenantID := mustSession(r).TenantID()
	var (
		rec core.ServiceRecord
		err error
	)
	if id == "" {
		rec, err = s.records.Create(r.Context(), tenantID, in)
	} else {
		rec, err = s.records.Update(r.Context(), tenantID, id, in)
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.notFound(w, r, msgServiceNotFound)
		return
	case isValidationError(err):
		s.render(w, r, http.StatusUnprocessableEntity, "service_form_page",
			newServiceFormPage(s.pageData(r, title), id, form, FieldErrors{fieldForError(err): userMessage(err)}))
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to save service",
			log.FieldServiceID, id,
			log.FieldOperation, op,
			log.FieldError, err)
		page := newServiceFormPage(s.pageData(r, title), id, form, nil)
		page.Error = msgSaveFailed
		s.render(w, r, http.StatusInternalServerError, "service_form_page", page)
		return
	}

	if s.invoices != nil {
		s.invoices.Invalidate(rec.ID)
	}
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerServiceSaved(rec.ID).
			TriggerDashboardRefresh().
			TriggerSuccessNotification(msgServiceSaved).
			Redirect("/").
			Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDeleteService answers htmx with an empty 200 so the row swaps out.
func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.records.Delete(r.Context(), mustSession(r).TenantID(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.notFound(w, r, msgServiceNotFound)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to delete service",
			log.FieldServiceID, id,
			log.FieldOperation, log.OpDelete,
			log.FieldError, err)
		s.serverError(w, r, msgDeleteFailed)
		return
	}
	if s.invoices != nil {
		s.invoices.Invalidate(id)
	}
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerServiceDeleted(id).
			TriggerDashboardRefresh().
			TriggerSuccessNotification(msgServiceDeleted).
			Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.records.Get(r.Context(), mustSession(r).TenantID(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.notFound(w, r, msgServiceNotFound)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load service",
			log.FieldServiceID, id,
			log.FieldOperation, log.OpRead,
			log.FieldError, err)
		s.serverError(w, r, msgInvoiceFailed)
		return
	}
	pdf, name, err := s.invoices.PDF(rec)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to render invoice",
			log.FieldServiceID, id,
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		s.serverError(w, r, msgInvoiceFailed)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

package http

import (
	"context"
	"net/http"

	"martelinho/internal/auth"
	"martelinho/internal/core"
	"martelinho/internal/finance"
	"martelinho/internal/log"
)

type ctxKey int

const sessionKey ctxKey = iota

func withSession(ctx context.Context, sess auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

func sessionFrom(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(auth.Session)
	return sess, ok
}

// sessionViews is the dashboard state of one signed-in browser session.
type sessionViews struct {
	overview finance.Tracker
	month    *finance.MonthView
}

func viewsKey(sess auth.Session) string {
	return sess.User.ID + ":" + sess.Token
}

// viewsFor returns the dashboard state of sess, creating it on first use.
func (s *Server) viewsFor(sess auth.Session) *sessionViews {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	key := viewsKey(sess)
	if v, ok := s.views.Get(key); ok {
		return v
	}
	v := &sessionViews{month: finance.NewMonthView(s.dashboard, sess.TenantID())}
	s.views.Set(key, v)
	return v
}

// dropViews cancels in-flight dashboard loads of sess and forgets its state.
func (s *Server) dropViews(sess auth.Session) {
	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	key := viewsKey(sess)
	if v, ok := s.views.Get(key); ok {
		v.overview.Cancel()
		v.month.Close()
		s.views.Delete(key)
	}
}

func (s *Server) onSessionEvent(e auth.Event) {
	if e.Type != auth.EventSignedOut {
		return
	}
	s.viewsMu.Lock()
	dropped := s.views.TakePrefix(e.UserID + ":")
	s.viewsMu.Unlock()
	for _, v := range dropped {
		v.overview.Cancel()
		v.month.Close()
	}
	if len(dropped) > 0 {
		s.logger.Debug("Dropped dashboard state", log.FieldUserID, e.UserID, "views", len(dropped))
	}
}

type pageData struct {
	Title string
	User  *core.UserProfile
}

func (s *Server) pageData(r *http.Request, title string) pageData {
	p := pageData{Title: title}
	if sess, ok := sessionFrom(r.Context()); ok {
		u := sess.User
		p.User = &u
	}
	return p
}

type errorPage struct {
	pageData
	Message string
}

type loginPage struct {
	pageData
	Email string
	Error string
}

type registerPage struct {
	pageData
	Form  SignUpForm
	Error string
}

type servicesPage struct {
	pageData
	Query   string
	Records []core.ServiceRecord
	Count   int
	Total   core.Money
}

func newServicesPage(p pageData, query string, records []core.ServiceRecord) servicesPage {
	page := servicesPage{pageData: p, Query: query, Records: records, Count: len(records)}
	for _, r := range records {
		page.Total.Cents += r.ServiceValue.Cents
	}
	return page
}

type partOption struct {
	Value   string
	Label   string
	Checked bool
}

type serviceFormPage struct {
	pageData
	ID     string
	Action string
	Form   ServiceForm
	Errors FieldErrors
	Error  string
	Parts  []partOption
}

func newServiceFormPage(p pageData, id string, form ServiceForm, errs FieldErrors) serviceFormPage {
	action := "/services"
	if id != "" {
		action = "/services/" + id
	}
	checked := make(map[string]bool, len(form.RepairedParts))
	for _, raw := range form.RepairedParts {
		if part, ok := core.ParsePart(raw); ok {
			checked[string(part)] = true
		}
	}
	opts := make([]partOption, len(core.RepairedParts))
	for i, part := range core.RepairedParts {
		opts[i] = partOption{Value: string(part), Label: part.Label(), Checked: checked[string(part)]}
	}
	if errs == nil {
		errs = FieldErrors{}
	}
	return serviceFormPage{pageData: p, ID: id, Action: action, Form: form, Errors: errs, Parts: opts}
}

type monthOption struct {
	Value    string
	Label    string
	Selected bool
}

func (s *Server) monthOptions(today, selected core.Date) []monthOption {
	windows := finance.AvailableMonths(today, s.selector)
	out := make([]monthOption, len(windows))
	for i, w := range windows {
		out[i] = monthOption{
			Value:    monthValue(w.Start),
			Label:    titleCase(w.Label),
			Selected: monthValue(w.Start) == monthValue(selected),
		}
	}
	return out
}

type overviewView struct {
	Periods  []core.PeriodSummary
	Trend    []finance.MonthTrend
	Months   []monthOption
	Selected string
}

type noticeView struct {
	Message string
}

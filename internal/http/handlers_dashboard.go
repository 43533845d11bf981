package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"martelinho/internal/core"
	"martelinho/internal/finance"
	"martelinho/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "dashboard_page", s.pageData(r, "Painel financeiro"))
}

// handleDashboardCurrent loads the current periods and the trailing trend.
// Either failing replaces the whole overview with one notice. A response
// superseded by a newer load of the same session is answered with 204 so
// the page keeps what the newer load shows.
func (s *Server) handleDashboardCurrent(w http.ResponseWriter, r *http.Request) {
	sess := mustSession(r)
	views := s.viewsFor(sess)
	today := s.today()

	ctx, gen := views.overview.Begin(r.Context())
	defer views.overview.Done(gen)

	var (
		periods []core.PeriodSummary
		trend   []finance.MonthTrend
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		periods, err = s.dashboard.CurrentPeriodSummaries(gctx, sess.TenantID(), today)
		return err
	})
	g.Go(func() error {
		var err error
		trend, err = s.dashboard.Trend(gctx, sess.TenantID(), today, s.trailing)
		return err
	})
	err := g.Wait()

	if !views.overview.IsCurrent(gen) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load dashboard",
			log.FieldOperation, log.OpAggregate,
			log.FieldGeneration, gen,
			log.FieldError, err)
		s.render(w, r, http.StatusOK, "dashboard_notice", noticeView{Message: msgDashboardUnavailable})
		return
	}

	selected := today.StartOfMonth()
	s.render(w, r, http.StatusOK, "overview", overviewView{
		Periods:  periods,
		Trend:    trend,
		Months:   s.monthOptions(today, selected),
		Selected: monthValue(selected),
	})
}

func (s *Server) handleDashboardMonths(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	selected, err := ParseMonthParam(r.URL.Query(), today)
	if err != nil {
		selected = today.StartOfMonth()
	}
	s.render(w, r, http.StatusOK, "month_options", s.monthOptions(today, selected))
}

// handleDashboardMonth shows the records of the selected month. Only the
// latest selection of a session is rendered; older ones get 204.
func (s *Server) handleDashboardMonth(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParam(r.URL.Query(), s.today())
	if err != nil {
		BadRequestError(msgInvalidMonth).TriggerErrorNotification(msgInvalidMonth).Write(w)
		return
	}

	views := s.viewsFor(mustSession(r))
	applied, err := views.month.Select(r.Context(), month)
	if !applied {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load month detail",
			log.FieldMonth, monthValue(month),
			log.FieldError, err)
		s.render(w, r, http.StatusOK, "dashboard_notice", noticeView{Message: msgDashboardUnavailable})
		return
	}
	s.render(w, r, http.StatusOK, "month_detail", views.month.State().Detail)
}

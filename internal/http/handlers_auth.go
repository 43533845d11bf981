package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"martelinho/internal/auth"
	"martelinho/internal/log"
)

func (s *Server) setSessionCookie(w http.ResponseWriter, sess auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// requireSession resolves the session cookie and sends anonymous visitors
// to the login page.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.auth.CurrentSession(r.Context(), sessionToken(r))
		if errors.Is(err, auth.ErrNoSession) {
			s.clearSessionCookie(w)
			redirect(w, r, "/login")
			return
		}
		if err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to resolve session", log.FieldError, err)
			s.render(w, r, http.StatusInternalServerError, "error_page", errorPage{
				pageData: s.pageData(r, "Erro"),
				Message:  msgUnexpected,
			})
			return
		}
		logger := log.FromContext(r.Context()).With(log.FieldTenantID, sess.TenantID())
		ctx := context.WithValue(withSession(r.Context(), sess), log.LoggerContextKey, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// signedIn reports whether the request carries a valid session.
func (s *Server) signedIn(r *http.Request) bool {
	_, err := s.auth.CurrentSession(r.Context(), sessionToken(r))
	return err == nil
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login_page", loginPage{pageData: s.pageData(r, "Entrar")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login_page", loginPage{
			pageData: s.pageData(r, "Entrar"),
			Error:    msgInvalidRequest,
		})
		return
	}
	email := sanitizeInput(r.PostForm.Get("email"))
	sess, err := s.auth.SignIn(r.Context(), email, r.PostForm.Get("password"))
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, auth.ErrInvalidCredentials) && !errors.Is(err, auth.ErrMissingFields) {
			status = http.StatusInternalServerError
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Sign-in failed",
				log.FieldOperation, log.OpSignIn,
				log.FieldError, err)
		}
		s.render(w, r, status, "login_page", loginPage{
			pageData: s.pageData(r, "Entrar"),
			Email:    email,
			Error:    userMessage(err),
		})
		return
	}
	s.setSessionCookie(w, sess)
	redirect(w, r, "/")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if s.signedIn(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "register_page", registerPage{pageData: s.pageData(r, "Criar conta")})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "register_page", registerPage{
			pageData: s.pageData(r, "Criar conta"),
			Error:    msgInvalidRequest,
		})
		return
	}
	form := ParseSignUpForm(r.PostForm)
	fail := func(status int, err error) {
		form.Password, form.Confirm = "", ""
		s.render(w, r, status, "register_page", registerPage{
			pageData: s.pageData(r, "Criar conta"),
			Form:     form,
			Error:    userMessage(err),
		})
	}
	if err := form.Validate(); err != nil {
		fail(http.StatusUnprocessableEntity, err)
		return
	}
	sess, err := s.auth.SignUp(r.Context(), strings.ToLower(form.Email), form.Password, form.Profile())
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		fail(http.StatusConflict, err)
		return
	case err != nil:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Sign-up failed",
			log.FieldOperation, log.OpSignUp,
			log.FieldError, err)
		fail(http.StatusInternalServerError, err)
		return
	}
	s.setSessionCookie(w, sess)
	redirect(w, r, "/")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := sessionFrom(r.Context()); ok {
		s.dropViews(sess)
		if err := s.auth.SignOut(r.Context(), sess.Token); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Sign-out failed",
				log.FieldOperation, log.OpSignOut,
				log.FieldError, err)
		}
	}
	s.clearSessionCookie(w)
	redirect(w, r, "/login")
}

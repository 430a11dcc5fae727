// Package web serves the admin page of the monitor.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
	"github.com/urldev/plugin-monitor/internal/monitor"
)

const (
	sessionName = "plugin_monitor"
	sessionKey  = "token"
	tokenField  = "_token"
	slugsField  = "plugin_monitor_slugs"
)

//go:embed templates
var templates embed.FS

type settings interface {
	Raw(ctx context.Context) (string, error)
	Save(ctx context.Context, raw string) error
}

type cacheReader interface {
	Entry(ctx context.Context) (*monitor.CacheEntry, error)
}

// Config holds the admin page configuration.
type Config struct {
	// SessionSecret signs the session cookies. A random one is generated when empty.
	SessionSecret string
	// AdminUsername and AdminPassword enable basic authentication when set.
	AdminUsername string
	AdminPassword string
	// SecureCookie restricts the session cookie to HTTPS.
	SecureCookie bool
}

// Handler the admin page handler.
type Handler struct {
	settings settings
	cache    cacheReader
	sessions sessions.Store
	tmpl     *template.Template
	username string
	password string
}

// New creates the admin page handler.
func New(cfg Config, st settings, cache cacheReader) (*Handler, error) {
	tmpl, err := template.ParseFS(templates, "templates/admin.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		log.Warn().Msg("No session secret configured, sessions will not survive a restart")
		secret = securecookie.GenerateRandomKey(32)
	}

	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	}

	return &Handler{
		settings: st,
		cache:    cache,
		sessions: store,
		tmpl:     tmpl,
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
	}, nil
}

// Routes returns the HTTP routes.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})

	mux.Handle("GET /{$}", h.basicAuth(http.HandlerFunc(h.show)))
	mux.Handle("POST /{$}", h.basicAuth(http.HandlerFunc(h.save)))

	return mux
}

func (h *Handler) show(rw http.ResponseWriter, req *http.Request) {
	h.render(rw, req, "")
}

func (h *Handler) save(rw http.ResponseWriter, req *http.Request) {
	logger := log.Ctx(req.Context())

	if err := h.checkToken(req); err != nil {
		logger.Warn().Err(err).Msg("Rejected settings submission")
		http.Error(rw, "The link you followed has expired.", http.StatusForbidden)
		return
	}

	if _, ok := req.PostForm[slugsField]; !ok {
		h.render(rw, req, "")
		return
	}

	raw := sanitizeText(req.PostForm.Get(slugsField))

	notice := "Settings saved."

	// the refresh triggered by the save must complete even if the client goes away.
	if err := h.settings.Save(context.WithoutCancel(req.Context()), raw); err != nil {
		logger.Error().Err(err).Msg("Failed to save settings")
		notice = "Settings could not be saved."
	}

	h.render(rw, req, notice)
}

func (h *Handler) render(rw http.ResponseWriter, req *http.Request, notice string) {
	ctx := req.Context()
	logger := log.Ctx(ctx)

	token, err := h.sessionToken(rw, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize session")
		http.Error(rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	raw, err := h.settings.Raw(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read settings")
	}

	entry, err := h.cache.Entry(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read plugin data")
		entry = nil
	}

	data := newPageData(raw, entry)
	data.Token = token
	data.Notice = notice

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.tmpl.ExecuteTemplate(rw, "admin.html", data); err != nil {
		logger.Error().Err(err).Msg("Failed to render admin page")
	}
}

// sessionToken returns the anti-forgery token of the session, creating it if needed.
func (h *Handler) sessionToken(rw http.ResponseWriter, req *http.Request) (string, error) {
	// an undecodable cookie (e.g. rotated secret) still yields a new session.
	session, err := h.sessions.Get(req, sessionName)
	if session == nil {
		return "", err
	}

	if token, ok := session.Values[sessionKey].(string); ok && token != "" {
		return token, nil
	}

	token := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
	session.Values[sessionKey] = token

	if err := session.Save(req, rw); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	return token, nil
}

func (h *Handler) checkToken(req *http.Request) error {
	if err := req.ParseForm(); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}

	session, err := h.sessions.Get(req, sessionName)
	if err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	expected, _ := session.Values[sessionKey].(string)
	if expected == "" {
		return errors.New("missing session token")
	}

	if subtle.ConstantTimeCompare([]byte(expected), []byte(req.PostForm.Get(tokenField))) != 1 {
		return errors.New("invalid token")
	}

	return nil
}

func (h *Handler) basicAuth(next http.Handler) http.Handler {
	if h.username == "" && h.password == "" {
		return next
	}

	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		user, pass, ok := req.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(h.username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(h.password)) != 1 {
			rw.Header().Set("WWW-Authenticate", `Basic realm="Plugin Monitor"`)
			http.Error(rw, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(rw, req)
	})
}

var (
	tagsExp       = regexp.MustCompile(`<[^>]*>?`)
	whitespaceExp = regexp.MustCompile(`\s+`)
)

// sanitizeText cleans a single line of user input:
// tags and control characters are removed, whitespace is collapsed and trimmed.
func sanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = tagsExp.ReplaceAllString(s, "")
	s = whitespaceExp.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

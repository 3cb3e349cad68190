package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/devilmonastery/hrconsole/internal/storage"
	"github.com/devilmonastery/hrconsole/internal/storage/postgres"
)

const (
	// SessionName is the name of the session cookie
	SessionName = "hrconsole_session"

	// sessionIDKey holds the server-side session ID when values live in postgres
	sessionIDKey = "sid"

	// DefaultMaxAge is how long the session cookie lives
	DefaultMaxAge = 7 * 24 * time.Hour
)

// Options configures the session cookie
type Options struct {
	MaxAge time.Duration
	Secure bool
}

// Manager wraps gorilla/sessions and hands out per-request stores.
// With a postgres backend the cookie carries only a session ID.
type Manager struct {
	cookies *sessions.CookieStore
	rows    *postgres.Sessions
	log     *slog.Logger
}

// NewManager creates a cookie-backed session manager.
// secretKey should be 32 or 64 bytes.
func NewManager(secretKey []byte, opts Options) *Manager {
	store := sessions.NewCookieStore(secretKey)

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		cookies: store,
		log:     slog.Default().With("component", "web-session"),
	}
}

// NewPostgresManager creates a manager whose values are kept in postgres
func NewPostgresManager(secretKey []byte, opts Options, rows *postgres.Sessions) *Manager {
	m := NewManager(secretKey, opts)
	m.rows = rows
	return m
}

// Shared reports whether session values live server-side, where another
// request can change them while this one waits
func (m *Manager) Shared() bool {
	return m.rows != nil
}

// Open binds a store to one request/response pair. Writes through the store
// set the session cookie on w, so they must happen before the body is written.
func (m *Manager) Open(w http.ResponseWriter, r *http.Request) storage.Store {
	sess := m.session(r)
	if m.rows == nil {
		return &cookieStore{session: sess, r: r, w: w}
	}

	rs := &rowStore{manager: m, session: sess, r: r, w: w}
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		rs.rows = m.rows.Open(id)
	}
	return rs
}

// Clear removes the session cookie and any server-side values
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)

	if m.rows != nil {
		if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
			if err := m.rows.Destroy(ctx, id); err != nil {
				return err
			}
		}
	}

	if sess.IsNew {
		return nil
	}
	// MaxAge -1 deletes the cookie
	sess.Options.MaxAge = -1
	sess.Values = map[interface{}]interface{}{}
	return sess.Save(r, w)
}

// session returns the request's session, starting a fresh one when the
// cookie cannot be decoded (e.g. after a secret rotation)
func (m *Manager) session(r *http.Request) *sessions.Session {
	sess, err := m.cookies.Get(r, SessionName)
	if err != nil {
		m.log.Debug("discarding undecodable session cookie", slog.String("error", err.Error()))
		sess, _ = m.cookies.New(r, SessionName)
	}
	return sess
}

// cookieStore keeps values in the signed session cookie
type cookieStore struct {
	session *sessions.Session
	r       *http.Request
	w       http.ResponseWriter
}

func (s *cookieStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.session.Values[key].(string)
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// SetMany writes every value with a single cookie save, restoring the
// previous values if the save fails
func (s *cookieStore) SetMany(_ context.Context, values map[string]string) error {
	prev := make(map[interface{}]interface{}, len(s.session.Values))
	for k, v := range s.session.Values {
		prev[k] = v
	}

	for k, v := range values {
		s.session.Values[k] = v
	}
	if err := s.session.Save(s.r, s.w); err != nil {
		s.session.Values = prev
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *cookieStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.session.Values, k)
	}
	if err := s.session.Save(s.r, s.w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// rowStore keeps values in postgres; the row set is created on first write
type rowStore struct {
	manager *Manager
	session *sessions.Session
	r       *http.Request
	w       http.ResponseWriter
	rows    *postgres.Store
}

func (s *rowStore) Get(ctx context.Context, key string) (string, error) {
	if s.rows == nil {
		return "", storage.ErrNotFound
	}
	return s.rows.Get(ctx, key)
}

func (s *rowStore) SetMany(ctx context.Context, values map[string]string) error {
	if s.rows == nil {
		id := s.manager.rows.NewID()
		s.session.Values[sessionIDKey] = id
		if err := s.session.Save(s.r, s.w); err != nil {
			delete(s.session.Values, sessionIDKey)
			return fmt.Errorf("failed to save session: %w", err)
		}
		s.rows = s.manager.rows.Open(id)
	}
	return s.rows.SetMany(ctx, values)
}

func (s *rowStore) Delete(ctx context.Context, keys ...string) error {
	if s.rows == nil {
		return nil
	}
	return s.rows.Delete(ctx, keys...)
}

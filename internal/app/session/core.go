package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/66gu1/thesisportal/internal/infrastructure/apperr"
	"github.com/66gu1/thesisportal/internal/infrastructure/contextx"
	"github.com/66gu1/thesisportal/internal/infrastructure/httpx"
	"github.com/66gu1/thesisportal/internal/infrastructure/logger"
	"github.com/66gu1/thesisportal/internal/infrastructure/metrics"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	EndpointLogin          = "/auth/login"
	EndpointRefresh        = "/auth/refresh"
	EndpointLogout         = "/auth/logout"
	EndpointLogoutAll      = "/auth/logout-all"
	EndpointSessions       = "/auth/sessions"
	EndpointForgotPassword = "/auth/forgot-password"
	EndpointProfile        = "/profile"

	HeaderRequestID = "X-Request-ID"

	refreshKey = "refresh"
)

// credentialEndpoints obtain or reset credentials. They are never sent with the bearer
// token and a 401 from them never triggers a refresh, whoever the caller is.
var credentialEndpoints = map[string]struct{}{
	EndpointLogin:          {},
	EndpointRefresh:        {},
	EndpointForgotPassword: {},
}

func isCredentialEndpoint(endpoint string) bool {
	path, _, _ := strings.Cut(endpoint, "?")
	path = "/" + strings.Trim(path, "/")
	_, ok := credentialEndpoints[path]
	return ok
}

// TokenStore persists the access token under one fixed key. An absent token
// is not an error: Load returns "".
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type UUIDGenerator interface {
	New() (uuid.UUID, error)
}

type Metrics interface {
	RefreshFinished(outcome string)
	RequestReplayed()
	LoginFinished(outcome string)
}

type Config struct {
	BaseURL               string `mapstructure:"base_url" json:"base_url"`
	RefreshTimeoutSeconds int    `mapstructure:"refresh_timeout_seconds" json:"refresh_timeout_seconds"`
	// PreserveOnTransportError keeps the current token when the refresh endpoint
	// cannot be reached or answers 5xx. Only an explicit rejection ends the session.
	PreserveOnTransportError bool `mapstructure:"preserve_on_transport_error" json:"preserve_on_transport_error"`
}

func (c Config) refreshTimeout() time.Duration {
	return time.Duration(c.RefreshTimeoutSeconds) * time.Second
}

// Manager owns the session: the access token, the refresh-in-flight marker and
// the authentication state observed by the UI.
type Manager struct {
	client  Doer
	idGen   UUIDGenerator
	metrics Metrics
	cfg     Config
	baseURL string

	token   *tokenState
	refresh singleflight.Group

	mu        sync.RWMutex
	state     State
	profile   *Profile
	listeners map[int]func(State)
	nextID    int
}

func NewManager(client Doer, store TokenStore, idGen UUIDGenerator, m Metrics, cfg Config) (*Manager, error) {
	if client == nil || store == nil || idGen == nil || m == nil {
		panic("session.Manager: nil dependency")
	}
	if cfg.RefreshTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("session.NewManager: refresh timeout must be positive")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("session.NewManager: invalid base URL %q", cfg.BaseURL)
	}

	return &Manager{
		client:    client,
		idGen:     idGen,
		metrics:   m,
		cfg:       cfg,
		baseURL:   strings.TrimRight(base.String(), "/"),
		token:     newTokenState(store),
		state:     StateLoading,
		listeners: make(map[int]func(State)),
	}, nil
}

// Bootstrap resolves the initial state. A persisted token is reused; without one a
// single silent refresh is attempted before concluding the user is signed out.
// When the backend cannot be reached the token is kept, the state is authenticated
// without a profile and the transport error is returned.
func (m *Manager) Bootstrap(ctx context.Context) (State, error) {
	tok, err := m.token.restore(ctx)
	if err != nil {
		logger.Warn(ctx, err).Msg("session.Manager.Bootstrap: token.restore")
	}
	if tok == nil {
		if _, ok := m.Refresh(ctx); !ok {
			m.finishBootstrap(StateUnauthenticated)
			return StateUnauthenticated, nil
		}
	}

	if _, err = m.Profile(ctx); err != nil {
		if IsSessionExpired(err) {
			return StateUnauthenticated, nil
		}
		logger.Error(ctx, err).Msg("session.Manager.Bootstrap: Profile")
		m.finishBootstrap(StateAuthenticated)
		return StateAuthenticated, fmt.Errorf("session.Manager.Bootstrap: %w", err)
	}

	m.finishBootstrap(StateAuthenticated)
	return StateAuthenticated, nil
}

func (m *Manager) finishBootstrap(state State) {
	m.mu.Lock()
	if m.state != StateLoading {
		// a clear during bootstrap already settled it
		m.mu.Unlock()
		return
	}
	m.state = state
	m.mu.Unlock()

	m.notify(state)
}

// Login establishes a new session. The login call carries no bearer credential.
// Any failure leaves no new session behind.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" {
		return Session{}, fmt.Errorf("session.Manager.Login: %w", ErrValidation(FieldEmail))
	}
	if password == "" {
		return Session{}, fmt.Errorf("session.Manager.Login: %w", ErrValidation(FieldPassword))
	}

	resp, err := m.Request(ctx, EndpointLogin, RequestOptions{
		Method:   http.MethodPost,
		JSON:     loginRequest{Email: email, Password: password},
		SkipAuth: true,
	})
	if err != nil {
		m.metrics.LoginFinished(metrics.OutcomeTransportError)
		authErr := newAuthenticationError(ReasonGeneric, err)
		logger.Error(ctx, authErr).Msg("session.Manager.Login: Request")
		return Session{}, fmt.Errorf("session.Manager.Login: %w", authErr)
	}
	if !isSuccess(resp.StatusCode) {
		be := readBackendError(resp)
		m.metrics.LoginFinished(metrics.OutcomeRejected)
		authErr := newAuthenticationError(classifyLoginFailure(be), be.toAppError())
		logger.Warn(ctx, authErr).Str("reason", string(authErr.Reason)).Msg("session.Manager.Login: rejected")
		return Session{}, fmt.Errorf("session.Manager.Login: %w", authErr)
	}

	var body tokenResponse
	if err = httpx.ReadJSON(resp, &body); err != nil || body.AccessToken == "" {
		if err == nil {
			err = errors.New("login response without access_token")
		}
		m.metrics.LoginFinished(metrics.OutcomeRejected)
		authErr := newAuthenticationError(ReasonGeneric, apperr.ErrBadGateway().WithDetail(err.Error()))
		logger.Error(ctx, authErr).Msg("session.Manager.Login: decode")
		return Session{}, fmt.Errorf("session.Manager.Login: %w", authErr)
	}

	tok, _ := m.token.set(ctx, body.AccessToken)

	profile, err := m.Profile(ctx)
	if err != nil {
		m.clearSession(ctx)
		m.metrics.LoginFinished(metrics.OutcomeRejected)
		authErr := newAuthenticationError(ReasonGeneric, err)
		logger.Error(ctx, authErr).Msg("session.Manager.Login: Profile")
		return Session{}, fmt.Errorf("session.Manager.Login: %w", authErr)
	}

	m.markAuthenticated()
	m.metrics.LoginFinished(metrics.OutcomeSuccess)

	claims, _ := m.token.currentClaims()
	return Session{
		AccessToken: tok.AccessToken,
		SessionID:   claims.SessionID(),
		ExpiresAt:   tok.Expiry,
		Profile:     profile,
	}, nil
}

// ForgotPassword asks the backend to send a reset link. The call is unauthenticated.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("session.Manager.ForgotPassword: %w", ErrValidation(FieldEmail))
	}

	err := m.DoJSON(ctx, EndpointForgotPassword, RequestOptions{
		Method:   http.MethodPost,
		JSON:     forgotPasswordRequest{Email: email},
		SkipAuth: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("session.Manager.ForgotPassword: %w", err)
	}

	return nil
}

// Request performs an authenticated call against the backend. On a 401 the token is
// refreshed once, shared with every concurrent caller, and the request is replayed
// exactly once. A 401 after a refresh is terminal: the session is cleared and a
// *SessionExpiredError is returned. Any other status is returned to the caller.
// Credential endpoints are always sent as if SkipAuth were set.
func (m *Manager) Request(ctx context.Context, endpoint string, opts RequestOptions) (*http.Response, error) {
	body, isJSON, err := opts.payload()
	if err != nil {
		return nil, fmt.Errorf("session.Manager.Request: %w", err)
	}
	if opts.SkipAuth || isCredentialEndpoint(endpoint) {
		resp, err := m.send(ctx, endpoint, opts, body, isJSON, nil)
		if err != nil {
			return nil, fmt.Errorf("session.Manager.Request: %w", err)
		}
		return resp, nil
	}

	tok, version := m.token.get()
	refreshed := false
	if tok != nil && !tok.Valid() {
		// known to be expired: refresh before sending instead of collecting a 401
		if tok, err = m.recoverToken(ctx, version); err != nil {
			return nil, fmt.Errorf("session.Manager.Request: %w", err)
		}
		refreshed = true
	}

	resp, err := m.send(ctx, endpoint, opts, body, isJSON, tok)
	if err != nil {
		return nil, fmt.Errorf("session.Manager.Request: %w", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	if !refreshed {
		if tok, err = m.recoverToken(ctx, version); err != nil {
			return nil, fmt.Errorf("session.Manager.Request: %w", err)
		}
		m.metrics.RequestReplayed()

		resp, err = m.send(ctx, endpoint, opts, body, isJSON, tok)
		if err != nil {
			return nil, fmt.Errorf("session.Manager.Request: %w", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}
		drain(resp)
	}

	m.clearSession(ctx)
	err = &SessionExpiredError{cause: apperr.ErrUnauthorized().WithDetail(fmt.Sprintf("%s still unauthorized after refresh", endpoint))}
	logger.Warn(ctx, err).Str(FieldEndpoint.String(), endpoint).Msg("session.Manager.Request: unauthorized after refresh")
	return nil, fmt.Errorf("session.Manager.Request: %w", err)
}

// DoJSON performs Request and decodes a 2xx JSON answer into out (skipped when out is nil).
// Non-2xx answers are returned as apperr errors classified by status.
func (m *Manager) DoJSON(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	resp, err := m.Request(ctx, endpoint, opts)
	if err != nil {
		return fmt.Errorf("session.Manager.DoJSON: %w", err)
	}
	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("session.Manager.DoJSON: %w", readBackendError(resp).toAppError())
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		drain(resp)
		return nil
	}
	if err = httpx.ReadJSON(resp, out); err != nil {
		return fmt.Errorf("session.Manager.DoJSON: %w", apperr.ErrBadGateway().WithDetail(err.Error()))
	}

	return nil
}

// Refresh exchanges the refresh cookie for a new access token. At most one refresh is
// in flight; concurrent callers share its outcome. It never returns an error: false
// means the session could not be recovered silently.
func (m *Manager) Refresh(ctx context.Context) (string, bool) {
	_, version := m.token.get()
	tok, err := m.sharedRefresh(ctx, version)
	if err != nil {
		logger.Warn(ctx, err).Msg("session.Manager.Refresh: sharedRefresh")
		return "", false
	}

	return tok.AccessToken, true
}

// recoverToken returns the token to replay with after the one at staleVersion was rejected.
func (m *Manager) recoverToken(ctx context.Context, staleVersion uint64) (*oauth2.Token, error) {
	tok, err := m.sharedRefresh(ctx, staleVersion)
	if err != nil {
		return nil, fmt.Errorf("recoverToken: %w", err)
	}
	return tok, nil
}

// refreshed is the outcome of one shared refresh: the token to use and its version.
type refreshed struct {
	token   *oauth2.Token
	version uint64
}

// sharedRefresh joins or starts the in-flight refresh. The flight runs with the
// stale version of whoever started it, so a waiter whose own token is newer can be
// handed back the very token it saw rejected; it then asks once more.
func (m *Manager) sharedRefresh(ctx context.Context, staleVersion uint64) (*oauth2.Token, error) {
	for attempt := 0; ; attempt++ {
		res, err := m.joinRefresh(ctx, staleVersion)
		if err != nil {
			return nil, fmt.Errorf("sharedRefresh: %w", err)
		}
		if res.version != staleVersion || attempt > 0 {
			return res.token, nil
		}
	}
}

func (m *Manager) joinRefresh(ctx context.Context, staleVersion uint64) (refreshed, error) {
	ch := m.refresh.DoChan(refreshKey, func() (any, error) {
		// detached from the first caller so its cancellation does not fail the other waiters
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.refreshTimeout())
		defer cancel()

		return m.doRefresh(rctx, staleVersion)
	})

	select {
	case <-ctx.Done():
		return refreshed{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return refreshed{}, res.Err
		}
		out, ok := res.Val.(refreshed)
		if !ok {
			return refreshed{}, fmt.Errorf("unexpected result %T", res.Val)
		}
		return out, nil
	}
}

func (m *Manager) doRefresh(ctx context.Context, staleVersion uint64) (refreshed, error) {
	if tok, version := m.token.get(); version != staleVersion {
		// superseded while this caller was waiting: reuse the outcome
		if tok == nil {
			return refreshed{}, &SessionExpiredError{}
		}
		return refreshed{token: tok, version: version}, nil
	}

	resp, err := m.send(ctx, EndpointRefresh, RequestOptions{Method: http.MethodPost}, nil, false, nil)
	if err != nil {
		return refreshed{}, m.refreshUnavailable(ctx, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		be := readBackendError(resp)
		return refreshed{}, m.refreshUnavailable(ctx, apperr.ErrBadGateway().WithDetail(be.Error()))
	}
	if !isSuccess(resp.StatusCode) {
		be := readBackendError(resp)
		m.metrics.RefreshFinished(metrics.OutcomeExpired)
		m.clearSession(ctx)
		return refreshed{}, &SessionExpiredError{cause: be.toAppError()}
	}

	var body tokenResponse
	if err = httpx.ReadJSON(resp, &body); err != nil || body.AccessToken == "" {
		if err == nil {
			err = errors.New("refresh response without access_token")
		}
		m.metrics.RefreshFinished(metrics.OutcomeExpired)
		m.clearSession(ctx)
		return refreshed{}, &SessionExpiredError{cause: err}
	}

	tok, version := m.token.set(ctx, body.AccessToken)
	// a held token and a signed-out state must never coexist
	m.markAuthenticated()
	m.metrics.RefreshFinished(metrics.OutcomeSuccess)
	logger.Debug(ctx).Msg("session.Manager.doRefresh: token refreshed")

	return refreshed{token: tok, version: version}, nil
}

// refreshUnavailable handles a refresh that failed without an answer from the
// session logic of the backend.
func (m *Manager) refreshUnavailable(ctx context.Context, cause error) error {
	m.metrics.RefreshFinished(metrics.OutcomeTransportError)
	if m.cfg.PreserveOnTransportError {
		logger.Warn(ctx, cause).Msg("session.Manager.doRefresh: backend unavailable, keeping session")
		return fmt.Errorf("doRefresh: %w", cause)
	}

	m.clearSession(ctx)
	return &SessionExpiredError{cause: cause}
}

// Logout notifies the backend on a best-effort basis and always clears the local session.
// Calling it without a session only clears local state.
func (m *Manager) Logout(ctx context.Context) {
	if tok, _ := m.token.get(); tok != nil {
		if err := m.DoJSON(ctx, EndpointLogout, RequestOptions{Method: http.MethodPost}, nil); err != nil {
			logger.Warn(ctx, err).Msg("session.Manager.Logout: backend logout failed")
		}
	}

	m.clearSession(ctx)
}

// LogoutAllDevices ends every session of the user, this one included. The local
// session is cleared whatever the backend answers; its error is still returned.
func (m *Manager) LogoutAllDevices(ctx context.Context) error {
	err := m.DoJSON(ctx, EndpointLogoutAll, RequestOptions{Method: http.MethodPost}, nil)
	m.clearSession(ctx)
	if err != nil {
		logger.Warn(ctx, err).Msg("session.Manager.LogoutAllDevices: DoJSON")
		return fmt.Errorf("session.Manager.LogoutAllDevices: %w", err)
	}

	return nil
}

// LogoutDevice ends one server-side session. When it is the current one the local
// session is cleared too.
func (m *Manager) LogoutDevice(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("session.Manager.LogoutDevice: %w", ErrValidation(FieldSessionID))
	}
	claims, _ := m.token.currentClaims()
	current := claims.SessionID() == id

	err := m.DoJSON(ctx, EndpointSessions+"/"+id.String(), RequestOptions{Method: http.MethodPost}, nil)
	if current {
		m.clearSession(ctx)
	}
	if err != nil {
		logger.Warn(ctx, err).Str(FieldSessionID.String(), id.String()).Msg("session.Manager.LogoutDevice: DoJSON")
		return fmt.Errorf("session.Manager.LogoutDevice: %w", err)
	}

	return nil
}

func (m *Manager) ListSessions(ctx context.Context) ([]DeviceSession, error) {
	var sessions []DeviceSession
	if err := m.DoJSON(ctx, EndpointSessions, RequestOptions{}, &sessions); err != nil {
		return nil, fmt.Errorf("session.Manager.ListSessions: %w", err)
	}

	claims, ok := m.token.currentClaims()
	if ok && claims.SessionID() != uuid.Nil {
		for i := range sessions {
			sessions[i].Current = sessions[i].Current || sessions[i].ID == claims.SessionID()
		}
	}

	return sessions, nil
}

// Profile fetches the identity and roles of the user and caches them, so role
// changes on the backend are picked up on the next fetch.
func (m *Manager) Profile(ctx context.Context) (Profile, error) {
	var profile Profile
	if err := m.DoJSON(ctx, EndpointProfile, RequestOptions{}, &profile); err != nil {
		return Profile{}, fmt.Errorf("session.Manager.Profile: %w", err)
	}

	m.mu.Lock()
	m.profile = &profile
	m.mu.Unlock()

	return profile, nil
}

func (m *Manager) CurrentProfile() (Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.profile == nil {
		return Profile{}, false
	}
	return *m.profile, true
}

// Current returns a snapshot of the held session.
func (m *Manager) Current() (Session, bool) {
	tok, _ := m.token.get()
	if tok == nil {
		return Session{}, false
	}
	claims, _ := m.token.currentClaims()
	profile, _ := m.CurrentProfile()

	return Session{
		AccessToken: tok.AccessToken,
		SessionID:   claims.SessionID(),
		ExpiresAt:   tok.Expiry,
		Profile:     profile,
	}, true
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

// Subscribe registers fn for state transitions. fn runs synchronously on the
// goroutine that caused the transition and must not block.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) markAuthenticated() {
	m.mu.Lock()
	changed := m.state != StateAuthenticated
	m.state = StateAuthenticated
	m.mu.Unlock()

	if changed {
		m.notify(StateAuthenticated)
	}
}

// clearSession drops token and profile and moves to unauthenticated.
func (m *Manager) clearSession(ctx context.Context) {
	m.token.clear(ctx)

	m.mu.Lock()
	m.profile = nil
	changed := m.state != StateUnauthenticated
	m.state = StateUnauthenticated
	m.mu.Unlock()

	if changed {
		m.notify(StateUnauthenticated)
	}
}

func (m *Manager) notify(state State) {
	m.mu.RLock()
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (m *Manager) send(ctx context.Context, endpoint string, opts RequestOptions, body []byte, isJSON bool, tok *oauth2.Token) (*http.Response, error) {
	requestID, err := m.idGen.New()
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	ctx = contextx.SetRequestID(ctx, requestID)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.method(), m.baseURL+"/"+strings.TrimLeft(endpoint, "/"), reader)
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if isJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set(HeaderRequestID, requestID.String())
	if tok != nil {
		tok.SetAuthHeader(req)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		logger.Warn(ctx, err).Str(FieldEndpoint.String(), endpoint).Msg("session.Manager.send: transport error")
		return nil, fmt.Errorf("send %s: %w", endpoint, err)
	}
	logger.Debug(ctx).
		Str(FieldEndpoint.String(), endpoint).
		Int("status", resp.StatusCode).
		Bool("authenticated", tok != nil).
		Msg("session.Manager.send")

	return resp, nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

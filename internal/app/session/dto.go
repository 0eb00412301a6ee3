package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type State string

const (
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

type Role struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Profile struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Roles []Role `json:"roles"`
}

// RoleIDs returns the distinct role IDs of the profile; order is irrelevant for authorization.
func (p Profile) RoleIDs() []int {
	return lo.Uniq(lo.Map(p.Roles, func(r Role, _ int) int { return r.ID }))
}

type Session struct {
	AccessToken string    `json:"-"`
	SessionID   uuid.UUID `json:"session_id"`
	ExpiresAt   time.Time `json:"expires_at"`
	Profile     Profile   `json:"profile"`
}

// DeviceSession is one server-side session of the user, as listed by GET /auth/sessions.
type DeviceSession struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Current   bool      `json:"current"`
}

// RequestOptions describes an outgoing backend call.
type RequestOptions struct {
	Method string
	// Body is sent as-is. When nil and JSON is set, JSON is marshalled instead.
	Body   []byte
	JSON   any
	Header http.Header
	// SkipAuth sends the request without the bearer credential and without the
	// refresh-and-replay handling. Used by login, refresh and forgot-password.
	SkipAuth bool
}

func (o RequestOptions) method() string {
	if o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}

func (o RequestOptions) payload() ([]byte, bool, error) {
	if o.Body != nil {
		return o.Body, false, nil
	}
	if o.JSON == nil {
		return nil, false, nil
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(o.JSON); err != nil {
		return nil, false, fmt.Errorf("payload: %w", err)
	}
	return buf.Bytes(), true, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

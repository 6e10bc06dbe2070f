package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"heard-backend/internal/common/logger"
	"heard-backend/internal/features/session"
)

// TokenPair is the stored auth state: an access JWT plus the refresh
// token used to renew it.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// Auth implements session.AuthClient against the GoTrue endpoints of a
// Supabase project. It owns the token pair and broadcasts session
// changes (sign-in, refresh, sign-out) to subscribers.
type Auth struct {
	client *Client

	mu      sync.Mutex
	tokens  *TokenPair
	subs    map[int]func(*session.Session)
	nextSub int
}

func NewAuth(client *Client) *Auth {
	return &Auth{
		client: client,
		subs:   make(map[int]func(*session.Session)),
	}
}

// SignInWithPassword performs the password grant and installs the
// resulting token pair.
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	data, err := a.client.do(ctx, http.MethodPost, a.client.authURL+"/token?grant_type=password", body, nil)
	if err != nil {
		return nil, fmt.Errorf("password sign-in: %w", err)
	}
	return a.installTokens(data)
}

// SetSession installs a token pair obtained out-of-band, e.g. from a
// magic-link completion, and emits the resulting session change.
func (a *Auth) SetSession(pair TokenPair) (*session.Session, error) {
	s, err := sessionFromToken(pair.AccessToken)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.tokens = &pair
	a.mu.Unlock()
	a.emit(s)
	return s, nil
}

// GetSession returns the current session or (nil, nil) when none
// exists. An expired access token is refreshed transparently; a
// rejected refresh token reads as "no session", while transport
// failures surface as errors.
func (a *Auth) GetSession(ctx context.Context) (*session.Session, error) {
	a.mu.Lock()
	tokens := a.tokens
	a.mu.Unlock()

	if tokens == nil {
		return nil, nil
	}
	if time.Until(tokens.ExpiresAt) > 0 {
		return sessionFromToken(tokens.AccessToken)
	}
	return a.Refresh(ctx)
}

// Refresh renews the token pair and emits the refreshed session. A
// refresh token the server no longer accepts clears the stored pair
// and emits a signed-out change.
func (a *Auth) Refresh(ctx context.Context) (*session.Session, error) {
	a.mu.Lock()
	tokens := a.tokens
	a.mu.Unlock()

	if tokens == nil {
		return nil, nil
	}

	body, _ := json.Marshal(map[string]string{"refresh_token": tokens.RefreshToken})
	data, err := a.client.do(ctx, http.MethodPost, a.client.authURL+"/token?grant_type=refresh_token", body, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			logger.Warn().Int("status", apiErr.StatusCode).Msg("refresh token rejected, clearing session")
			a.clearTokens()
			return nil, nil
		}
		return nil, fmt.Errorf("token refresh: %w", err)
	}
	return a.installTokens(data)
}

// SignOut invalidates the session server-side. The stored pair is kept
// on failure so the caller can retry.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	tokens := a.tokens
	a.mu.Unlock()

	if tokens == nil {
		return nil
	}

	_, err := a.client.do(ctx, http.MethodPost, a.client.authURL+"/logout", nil, map[string]string{
		"Authorization": "Bearer " + tokens.AccessToken,
	})
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	a.clearTokens()
	return nil
}

// SignOutToken invalidates an arbitrary access token server-side,
// independent of the stored pair. Used by the stateless HTTP surface.
func (a *Auth) SignOutToken(ctx context.Context, accessToken string) error {
	_, err := a.client.do(ctx, http.MethodPost, a.client.authURL+"/logout", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// OnSessionChange registers a callback for session changes; nil means
// signed out. Returns an unsubscribe func.
func (a *Auth) OnSessionChange(fn func(*session.Session)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs, id)
	}
}

// StartAutoRefresh renews the token pair shortly before expiry until
// ctx is done. Refresh failures past the retry of GetSession simply
// stop the loop after emitting the signed-out change.
func (a *Auth) StartAutoRefresh(ctx context.Context, leeway time.Duration) {
	if leeway <= 0 {
		leeway = 30 * time.Second
	}
	go func() {
		for {
			a.mu.Lock()
			tokens := a.tokens
			a.mu.Unlock()
			if tokens == nil {
				return
			}

			wait := time.Until(tokens.ExpiresAt) - leeway
			if wait < time.Second {
				wait = time.Second
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}

			if _, err := a.Refresh(ctx); err != nil {
				logger.Warn().Err(err).Msg("auto refresh failed")
			}
		}
	}()
}

func (a *Auth) installTokens(data []byte) (*session.Session, error) {
	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access token")
	}

	s := &session.Session{UserID: tr.User.ID, Email: tr.User.Email}
	if s.UserID == "" {
		parsed, err := sessionFromToken(tr.AccessToken)
		if err != nil {
			return nil, err
		}
		s = parsed
	}

	a.mu.Lock()
	a.tokens = &TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	a.mu.Unlock()

	a.emit(s)
	return s, nil
}

func (a *Auth) clearTokens() {
	a.mu.Lock()
	a.tokens = nil
	a.mu.Unlock()
	a.emit(nil)
}

func (a *Auth) emit(s *session.Session) {
	a.mu.Lock()
	fns := make([]func(*session.Session), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// sessionFromToken decodes the principal from the access JWT without
// verifying the signature: the token came from the auth service over
// TLS and server-side verification happens in the HTTP middleware.
func sessionFromToken(accessToken string) (*session.Session, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("access token missing subject")
	}
	return &session.Session{UserID: claims.Subject, Email: claims.Email}, nil
}

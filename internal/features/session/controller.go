package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"heard-backend/internal/common/apperrors"
	"heard-backend/internal/common/logger"
	"heard-backend/internal/features/profile/models"
	"heard-backend/internal/features/profile/repository"
)

const DefaultLoadingTimeout = 5 * time.Second

// Controller is the single source of truth for {user, profile,
// loading, onboardingComplete}. Three triggers drive it: the start-time
// session restore, session-change notifications from the auth service,
// and explicit SignIn calls. The triggers may fire in any order and
// more than once for the same logical session, so every transition is
// idempotent and convergent.
//
// Each identity change bumps a generation counter; async resolutions
// capture the generation they started under and commit only if it
// still matches, so a stale fetch can never overwrite a sign-out.
type Controller struct {
	auth           AuthClient
	profiles       *ProfileService
	loadingTimeout time.Duration

	mu      sync.Mutex
	state   State
	gen     uint64
	subs    map[int]func(State)
	nextSub int
	unsub   func()
	timer   *time.Timer
	ctx     context.Context
	started bool
}

func NewController(auth AuthClient, profiles *ProfileService, loadingTimeout time.Duration) *Controller {
	if loadingTimeout <= 0 {
		loadingTimeout = DefaultLoadingTimeout
	}
	return &Controller{
		auth:           auth,
		profiles:       profiles,
		loadingTimeout: loadingTimeout,
		state:          State{Loading: true},
		subs:           make(map[int]func(State)),
	}
}

// Start kicks off the session restore and subscribes to auth state
// changes. ctx bounds all background resolution work. Calling Start
// more than once is a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.ctx = ctx

	// The timeout only unblocks consumers stuck on loading; it does
	// not cancel the underlying fetch and never fabricates a profile.
	c.timer = time.AfterFunc(c.loadingTimeout, c.forceLoadingOff)

	c.unsub = c.auth.OnSessionChange(func(s *Session) {
		if s == nil {
			c.clearSession()
			return
		}
		go c.resolve(s)
	})
	c.mu.Unlock()

	go func() {
		s, err := c.auth.GetSession(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("session restore failed")
		}
		if s == nil {
			c.clearIfInitializing()
			return
		}
		c.resolve(s)
	}()
}

// Close unsubscribes from auth events and stops the safety timer.
// In-flight resolutions finish but their commits are dropped once the
// generation moves on.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Snapshot returns the current state. The contained pointers must be
// treated as read-only.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnChange registers a callback invoked after every committed state
// change. Returns an unsubscribe func. Callbacks run outside the
// controller lock and may call back into the controller.
func (c *Controller) OnChange(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// SignIn forces profile resolution for the given user. Login screens
// call this directly after a credential exchange instead of waiting on
// the auth subscription, so the UI cannot block on event ordering.
// Safe to call repeatedly; duplicate calls converge on the same state.
func (c *Controller) SignIn(user *Session) {
	if user == nil {
		return
	}
	go c.resolve(user)
}

// SignOut invalidates the session remotely, then clears local state.
// On remote failure local state is kept so the UI can retry instead of
// presenting a signed-out surface over a still-valid token.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.auth.SignOut(ctx); err != nil {
		return apperrors.NewAuthError("sign out", err)
	}
	c.clearSession()
	return nil
}

// CheckOnboardingStatus forces a fresh, cache-bypassing profile read
// and updates the onboarding flag. Returns false without error when no
// user is present: it is a query, not a mutation.
func (c *Controller) CheckOnboardingStatus(ctx context.Context) (bool, error) {
	c.mu.Lock()
	user := c.state.User
	gen := c.gen
	c.mu.Unlock()

	if user == nil {
		return false, nil
	}

	p, err := c.profiles.fresh.GetByID(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	c.commit(gen, p)
	return p.OnboardingCompleted, nil
}

// UpdateProfile applies a partial update and replaces the local
// profile with the stored row. Returns a structured AppError (e.g.
// USERNAME_TAKEN) suitable for inline rendering.
func (c *Controller) UpdateProfile(ctx context.Context, patch models.Patch) error {
	c.mu.Lock()
	user := c.state.User
	gen := c.gen
	c.mu.Unlock()

	if user == nil {
		return apperrors.NewPreconditionError("no authenticated user")
	}

	p, err := c.profiles.Update(ctx, user.UserID, patch)
	if err != nil {
		return err
	}
	c.commit(gen, p)
	return nil
}

// UpdateStars applies a star delta. Requires a loaded profile: the new
// value is computed from the current count.
func (c *Controller) UpdateStars(ctx context.Context, delta int) error {
	c.mu.Lock()
	user := c.state.User
	prof := c.state.Profile
	gen := c.gen
	c.mu.Unlock()

	if user == nil || prof == nil {
		return apperrors.NewPreconditionError("no profile loaded")
	}

	p, err := c.profiles.AddStars(ctx, prof, delta)
	if err != nil {
		return err
	}
	c.commit(gen, p)
	return nil
}

// resolve drives the fetch-or-bootstrap protocol for an authenticated
// user and commits the outcome under the captured generation.
func (c *Controller) resolve(user *Session) {
	gen := c.beginAuth(user)

	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := c.profiles.Resolve(ctx, user)
	if err != nil {
		// Degraded but not stuck: loading drops, profile stays absent.
		logger.Warn().Err(err).Str("user_id", user.UserID).Msg("profile resolution failed")
		c.commit(gen, nil)
		return
	}
	c.commit(gen, p)
}

// beginAuth transitions to AuthenticatedLoadingProfile for the user
// and returns the generation the caller's resolution runs under.
// Re-entrant for the same user id; a different user bumps the
// generation and drops the previous profile.
func (c *Controller) beginAuth(user *Session) uint64 {
	c.mu.Lock()
	if c.state.User == nil || c.state.User.UserID != user.UserID {
		c.gen++
		c.state.Profile = nil
	}
	c.state.User = user
	c.state.Loading = true
	c.state.OnboardingComplete = onboardingGate(c.state.User, c.state.Profile)
	gen := c.gen
	c.notifyLocked()
	return gen
}

// commit stores a resolution outcome if the generation still matches.
// A nil profile only drops the loading flag.
func (c *Controller) commit(gen uint64, p *models.Profile) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	if p != nil {
		c.state.Profile = p
	}
	c.state.Loading = false
	c.state.OnboardingComplete = onboardingGate(c.state.User, c.state.Profile)
	c.notifyLocked()
}

func (c *Controller) clearSession() {
	c.mu.Lock()
	c.gen++
	c.state = State{}
	c.notifyLocked()
}

// clearIfInitializing finishes the start-time restore when no session
// exists, without clobbering a sign-in that raced ahead of it.
func (c *Controller) clearIfInitializing() {
	c.mu.Lock()
	if c.state.User != nil {
		c.mu.Unlock()
		return
	}
	c.state = State{}
	c.notifyLocked()
}

func (c *Controller) forceLoadingOff() {
	c.mu.Lock()
	if !c.state.Loading {
		c.mu.Unlock()
		return
	}
	c.state.Loading = false
	c.notifyLocked()
}

// notifyLocked snapshots state and subscribers, releases the lock, and
// delivers the callbacks. Callers must hold c.mu; the lock is released
// on return.
func (c *Controller) notifyLocked() {
	st := c.state
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

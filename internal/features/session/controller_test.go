package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"heard-backend/internal/common/apperrors"
	"heard-backend/internal/features/profile/models"
	"heard-backend/internal/features/profile/repository"
)

// fakeAuth is an in-memory AuthClient.
type fakeAuth struct {
	mu           sync.Mutex
	session      *Session
	getErr       error
	signOutErr   error
	signOutCalls int
	subs         []func(*Session)

	// block, when non-nil, parks GetSession until the channel closes.
	block chan struct{}
}

func (f *fakeAuth) GetSession(ctx context.Context) (*Session, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.getErr
}

func (f *fakeAuth) OnSessionChange(fn func(*Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, fn)
	return func() {}
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return f.signOutErr
}

// emit simulates an out-of-band auth state change.
func (f *fakeAuth) emit(s *Session) {
	f.mu.Lock()
	subs := append([]func(*Session){}, f.subs...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func newTestController(repo *fakeRepo, auth *fakeAuth, timeout time.Duration) *Controller {
	f := NewFetcher(repo, 3, time.Millisecond)
	f.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	b := NewBootstrapper(repo)
	svc := NewProfileService(repo, repo, f, b)
	return NewController(auth, svc, timeout)
}

func waitReady(t *testing.T, c *Controller) State {
	t.Helper()
	require.Eventually(t, func() bool {
		return !c.Snapshot().Loading
	}, 2*time.Second, 5*time.Millisecond, "controller never left loading")
	return c.Snapshot()
}

func TestOnboardingGate(t *testing.T) {
	user := &Session{UserID: "u1"}

	require.Nil(t, onboardingGate(nil, nil))
	require.Nil(t, onboardingGate(nil, &models.Profile{OnboardingCompleted: true}))

	got := onboardingGate(user, nil)
	require.NotNil(t, got, "a user without a profile gates to false, not unknown")
	require.False(t, *got)

	got = onboardingGate(user, &models.Profile{OnboardingCompleted: false})
	require.NotNil(t, got)
	require.False(t, *got)

	got = onboardingGate(user, &models.Profile{OnboardingCompleted: true})
	require.NotNil(t, got)
	require.True(t, *got)
}

func TestControllerExistingUserNormalLogin(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob", OnboardingCompleted: true})
	auth := &fakeAuth{session: &Session{UserID: "u1", Email: "bob@example.com"}}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()
	c.Start(context.Background())

	st := waitReady(t, c)
	require.NotNil(t, st.User)
	require.Equal(t, "u1", st.User.UserID)
	require.Equal(t, "bob", st.Profile.Username)
	require.NotNil(t, st.OnboardingComplete)
	require.True(t, *st.OnboardingComplete)

	gets, inserts, _ := repo.counts()
	require.Equal(t, 1, gets, "no retries for an existing row")
	require.Zero(t, inserts, "no bootstrap for an existing row")
}

func TestControllerNoSession(t *testing.T) {
	c := newTestController(newFakeRepo(), &fakeAuth{}, time.Second)
	defer c.Close()
	c.Start(context.Background())

	st := waitReady(t, c)
	require.Nil(t, st.User)
	require.Nil(t, st.Profile)
	require.Nil(t, st.OnboardingComplete, "onboarding is unknown without a session")
}

func TestControllerFreshMagicLinkUser(t *testing.T) {
	repo := newFakeRepo()
	auth := &fakeAuth{session: &Session{UserID: "u1", Email: "alice@example.com"}}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()
	c.Start(context.Background())

	st := waitReady(t, c)
	require.NotNil(t, st.Profile)
	require.Equal(t, "alice", st.Profile.Username)
	require.NotNil(t, st.OnboardingComplete)
	require.False(t, *st.OnboardingComplete)

	gets, inserts, _ := repo.counts()
	require.Equal(t, 1, inserts)
	// Three exhausted fetch attempts plus the post-insert read.
	require.Equal(t, 4, gets)
}

func TestControllerIdempotentConvergence(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob"})
	user := &Session{UserID: "u1", Email: "bob@example.com"}
	auth := &fakeAuth{session: user}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()
	c.Start(context.Background())

	// The restore, the subscription, and an explicit sign-in all fire
	// for the same logical session, in no particular order.
	auth.emit(user)
	c.SignIn(user)
	auth.emit(user)

	require.Eventually(t, func() bool {
		st := c.Snapshot()
		return !st.Loading && st.Profile != nil
	}, 2*time.Second, 5*time.Millisecond)

	st := c.Snapshot()
	require.Equal(t, "u1", st.User.UserID)
	require.Equal(t, "bob", st.Profile.Username)
	require.NotNil(t, st.OnboardingComplete)
	require.False(t, *st.OnboardingComplete)

	_, inserts, _ := repo.counts()
	require.Zero(t, inserts)
}

func TestControllerBootstrapRaceCreatesOneRow(t *testing.T) {
	repo := newFakeRepo()
	user := &Session{UserID: "u1", Email: "alice@example.com"}
	auth := &fakeAuth{session: user}

	f := NewFetcher(repo, 1, time.Millisecond)
	f.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	svc := NewProfileService(repo, repo, f, NewBootstrapper(repo))
	c := NewController(auth, svc, time.Second)
	defer c.Close()

	c.Start(context.Background())
	// A second resolution races the restore-driven one.
	auth.emit(user)

	require.Eventually(t, func() bool {
		st := c.Snapshot()
		return !st.Loading && st.Profile != nil
	}, 2*time.Second, 5*time.Millisecond)

	repo.mu.Lock()
	rows := len(repo.profiles)
	repo.mu.Unlock()
	require.Equal(t, 1, rows, "exactly one profile row after racing bootstraps")
	require.Equal(t, "alice", c.Snapshot().Profile.Username)
}

func TestControllerLoadingNeverWedges(t *testing.T) {
	auth := &fakeAuth{block: make(chan struct{})} // restore never resolves

	c := newTestController(newFakeRepo(), auth, 50*time.Millisecond)
	defer c.Close()
	c.Start(context.Background())

	require.Eventually(t, func() bool {
		return !c.Snapshot().Loading
	}, time.Second, 5*time.Millisecond, "safety timeout must unblock loading")

	st := c.Snapshot()
	require.Nil(t, st.Profile, "the timeout must not fabricate a profile")
}

func TestControllerSignOutFailureKeepsState(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob"})
	auth := &fakeAuth{session: &Session{UserID: "u1"}}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()
	c.Start(context.Background())
	waitReady(t, c)

	auth.mu.Lock()
	auth.signOutErr = errors.New("network down")
	auth.mu.Unlock()

	err := c.SignOut(context.Background())
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.ErrCodeAuth, appErr.Code)

	st := c.Snapshot()
	require.NotNil(t, st.User, "failed sign-out must not clear the user")
	require.NotNil(t, st.Profile)

	auth.mu.Lock()
	auth.signOutErr = nil
	auth.mu.Unlock()

	require.NoError(t, c.SignOut(context.Background()))
	st = c.Snapshot()
	require.Nil(t, st.User)
	require.Nil(t, st.Profile)
	require.Nil(t, st.OnboardingComplete)
}

func TestControllerStaleFetchDroppedAfterSignOut(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob"})
	repo.blockGet = make(chan struct{})
	auth := &fakeAuth{}

	c := newTestController(repo, auth, time.Minute)
	defer c.Close()
	c.Start(context.Background())

	// Sign-in starts a resolution that parks inside the read.
	c.SignIn(&Session{UserID: "u1"})
	require.Eventually(t, func() bool {
		return c.Snapshot().User != nil
	}, time.Second, time.Millisecond)

	// The user signs out while the fetch is still in flight.
	auth.emit(nil)
	require.Nil(t, c.Snapshot().User)

	// The fetch completes late; its commit must be dropped.
	close(repo.blockGet)
	time.Sleep(50 * time.Millisecond)

	st := c.Snapshot()
	require.Nil(t, st.User)
	require.Nil(t, st.Profile, "stale fetch must not overwrite a sign-out")
	require.Nil(t, st.OnboardingComplete)
}

func TestControllerCheckOnboardingStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob", OnboardingCompleted: false})
	auth := &fakeAuth{session: &Session{UserID: "u1"}}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()
	c.Start(context.Background())
	waitReady(t, c)

	completed, err := c.CheckOnboardingStatus(context.Background())
	require.NoError(t, err)
	require.False(t, completed)

	// Onboarding finishes on the backend; the forced read picks it up.
	repo.put(&models.Profile{ID: "u1", Username: "bob", OnboardingCompleted: true})

	completed, err = c.CheckOnboardingStatus(context.Background())
	require.NoError(t, err)
	require.True(t, completed)

	st := c.Snapshot()
	require.NotNil(t, st.OnboardingComplete)
	require.True(t, *st.OnboardingComplete)
}

func TestControllerCheckOnboardingStatusNoUser(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(repo, &fakeAuth{}, time.Second)
	defer c.Close()
	c.Start(context.Background())
	waitReady(t, c)

	completed, err := c.CheckOnboardingStatus(context.Background())
	require.NoError(t, err, "no session is not an error for a status query")
	require.False(t, completed)

	gets, _, _ := repo.counts()
	require.Zero(t, gets, "no read without a user")
}

func TestControllerUpdateStarsWithoutProfile(t *testing.T) {
	repo := newFakeRepo()
	c := newTestController(repo, &fakeAuth{}, time.Second)
	defer c.Close()
	c.Start(context.Background())
	waitReady(t, c)

	err := c.UpdateStars(context.Background(), 5)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.ErrCodePrecondition, appErr.Code)

	_, _, updates := repo.counts()
	require.Zero(t, updates, "precondition failure must not issue a write")
}

func TestControllerUpdateStarsFloorsAtZero(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob", StarCount: 2})
	auth := &fakeAuth{session: &Session{UserID: "u1"}}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()
	c.Start(context.Background())
	waitReady(t, c)

	require.NoError(t, c.UpdateStars(context.Background(), 3))
	require.Equal(t, 5, c.Snapshot().Profile.StarCount)

	require.NoError(t, c.UpdateStars(context.Background(), -100))
	require.Equal(t, 0, c.Snapshot().Profile.StarCount)
}

func TestControllerUpdateProfileUsernameTaken(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob"})
	auth := &fakeAuth{session: &Session{UserID: "u1"}}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()
	c.Start(context.Background())
	waitReady(t, c)

	repo.mu.Lock()
	repo.updateErr = fmt.Errorf("duplicate username: %w", repository.ErrConflict)
	repo.mu.Unlock()

	taken := "taken"
	err := c.UpdateProfile(context.Background(), models.Patch{Username: &taken})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	require.Equal(t, apperrors.ErrCodeUsernameTaken, appErr.Code)

	require.Equal(t, "bob", c.Snapshot().Profile.Username, "local state untouched on rejected update")
}

func TestControllerUpdateProfileReplacesLocalState(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob"})
	auth := &fakeAuth{session: &Session{UserID: "u1"}}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()
	c.Start(context.Background())
	waitReady(t, c)

	name := "robert"
	require.NoError(t, c.UpdateProfile(context.Background(), models.Patch{Username: &name}))
	require.Equal(t, "robert", c.Snapshot().Profile.Username)
}

func TestControllerOnChangeNotifies(t *testing.T) {
	repo := newFakeRepo()
	repo.put(&models.Profile{ID: "u1", Username: "bob"})
	auth := &fakeAuth{session: &Session{UserID: "u1"}}

	c := newTestController(repo, auth, time.Second)
	defer c.Close()

	var mu sync.Mutex
	var states []State
	unsub := c.OnChange(func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})
	defer unsub()

	c.Start(context.Background())
	waitReady(t, c)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	require.False(t, last.Loading)
	require.NotNil(t, last.Profile)
}

package gate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachgate/internal/roles"
)

// scriptedChecker answers each call with the next scripted reply. A reply
// with a release channel blocks until it is closed.
type scriptedChecker struct {
	mu      sync.Mutex
	calls   int
	replies []reply
	started chan int
}

type reply struct {
	decision Decision
	err      error
	release  chan struct{}
}

func (c *scriptedChecker) CheckLimit(ctx context.Context, _ *Session) (Decision, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	r := reply{decision: Decision{CanCreate: true, MaxAllowed: 3, UserRole: roles.Customer}}
	if i < len(c.replies) {
		r = c.replies[i]
	} else if len(c.replies) > 0 {
		r = c.replies[len(c.replies)-1]
		r.release = nil
	}
	c.mu.Unlock()

	if c.started != nil {
		c.started <- i
	}
	if r.release != nil {
		<-r.release
	}
	return r.decision, r.err
}

func (c *scriptedChecker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type recordingAction struct{ prevented bool }

func (a *recordingAction) PreventDefault() { a.prevented = true }

func customerSession() *Session {
	return &Session{UserID: "u1", Email: "c@example.com", Roles: []string{"customer"}}
}

func newTestStore(checker LimitChecker, notifier Notifier) *Store {
	return NewStore(checker, Options{
		RefreshInterval: -1,
		Notifier:        notifier,
		Logger:          zerolog.Nop(),
	})
}

func TestStoreInitialState(t *testing.T) {
	s := newTestStore(&scriptedChecker{}, nil)
	st := s.State()

	assert.Equal(t, PhaseUninitialized, st.Phase)
	assert.False(t, st.CanCreate)
	assert.True(t, st.IsBlocked())
	assert.Equal(t, 0, st.CurrentCount)
	assert.Equal(t, Limit(3), st.MaxAllowed)
	assert.False(t, st.IsLoading)
	assert.Equal(t, "Sign in to create workouts.", st.BlockedMessage())
}

func TestStoreCustomerAtLimitBlocksAction(t *testing.T) {
	checker := NewChecker(fixedCount(3), NewMemoryRoleCache(), DefaultPolicy(), zerolog.Nop())
	var messages []string
	s := newTestStore(checker, NotifierFunc(func(m string) { messages = append(messages, m) }))

	st := s.SetSession(context.Background(), customerSession())
	require.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, Decision{CanCreate: false, CurrentCount: 3, MaxAllowed: 3, UserRole: roles.Customer}, st.Decision)
	assert.True(t, s.IsBlocked())

	action := &recordingAction{}
	assert.True(t, s.CheckAndBlockAction(action))
	assert.True(t, action.prevented)
	require.Len(t, messages, 1)
	assert.Equal(t, "You have reached the limit of 3 personal workouts; contact a coach to create more.", messages[0])
}

func TestStoreCustomerBelowLimitAllowsAction(t *testing.T) {
	checker := NewChecker(fixedCount(2), NewMemoryRoleCache(), DefaultPolicy(), zerolog.Nop())
	notified := false
	s := newTestStore(checker, NotifierFunc(func(string) { notified = true }))
	s.SetSession(context.Background(), customerSession())

	action := &recordingAction{}
	assert.False(t, s.CheckAndBlockAction(action))
	assert.False(t, action.prevented)
	assert.False(t, notified)
	assert.True(t, s.CanCreate())
	assert.Equal(t, 2, s.CurrentCount())
}

func TestStoreCoachIsUnlimited(t *testing.T) {
	checker := NewChecker(fixedCount(50), NewMemoryRoleCache(), DefaultPolicy(), zerolog.Nop())
	s := newTestStore(checker, nil)
	s.SetSession(context.Background(), &Session{UserID: "c1", Roles: []string{"coach"}})

	assert.True(t, s.CanCreate())
	assert.Equal(t, Unlimited, s.MaxAllowed())
	assert.Equal(t, "∞", s.FormattedMaxAllowed())
	assert.True(t, s.IsCoachOrAdmin())
	assert.False(t, s.CheckAndBlockAction(&recordingAction{}))
}

func TestStoreDegradedOnFailure(t *testing.T) {
	t.Run("cached coach keeps creating", func(t *testing.T) {
		cache := NewMemoryRoleCache()
		require.NoError(t, cache.SaveRoles(context.Background(), "c1", roles.NewSet(roles.Coach)))
		checker := NewChecker(failing(errOffline), cache, DefaultPolicy(), zerolog.Nop())
		s := newTestStore(checker, nil)

		st := s.SetSession(context.Background(), &Session{UserID: "c1", Roles: []string{"coach"}})
		assert.Equal(t, PhaseDegraded, st.Phase)
		assert.ErrorIs(t, st.Err, ErrCheckFailed)
		assert.True(t, st.CanCreate)
	})

	t.Run("no cached role is blocked", func(t *testing.T) {
		checker := NewChecker(failing(errOffline), NewMemoryRoleCache(), DefaultPolicy(), zerolog.Nop())
		var message string
		s := newTestStore(checker, NotifierFunc(func(m string) { message = m }))

		st := s.SetSession(context.Background(), customerSession())
		assert.Equal(t, PhaseDegraded, st.Phase)
		assert.Error(t, s.Err())
		assert.False(t, st.CanCreate)
		assert.True(t, s.CheckAndBlockAction(nil))
		assert.Contains(t, message, "could not verify")
	})

	t.Run("recovers on next successful check", func(t *testing.T) {
		checker := &scriptedChecker{replies: []reply{
			{decision: DefaultPolicy().Initial(), err: ErrCheckFailed},
			{decision: Decision{CanCreate: true, CurrentCount: 1, MaxAllowed: 3, UserRole: roles.Customer}},
		}}
		s := newTestStore(checker, nil)

		assert.Equal(t, PhaseDegraded, s.SetSession(context.Background(), customerSession()).Phase)
		st := s.ForceRefresh(context.Background())
		assert.Equal(t, PhaseReady, st.Phase)
		assert.NoError(t, st.Err)
		assert.True(t, st.CanCreate)
	})
}

func TestStoreNewestRequestWins(t *testing.T) {
	releaseA := make(chan struct{})
	checker := &scriptedChecker{
		replies: []reply{
			{decision: Decision{CanCreate: true, CurrentCount: 0, MaxAllowed: 3, UserRole: roles.Customer}},
			{decision: Decision{CanCreate: true, CurrentCount: 1, MaxAllowed: 3, UserRole: roles.Customer}, release: releaseA},
			{decision: Decision{CanCreate: false, CurrentCount: 3, MaxAllowed: 3, UserRole: roles.Customer}},
		},
		started: make(chan int, 3),
	}
	s := newTestStore(checker, nil)
	s.SetSession(context.Background(), customerSession())
	<-checker.started

	doneA := make(chan State)
	go func() { doneA <- s.ForceRefresh(context.Background()) }()
	require.Equal(t, 1, <-checker.started)
	assert.True(t, s.IsLoading())
	assert.Equal(t, PhaseChecking, s.State().Phase)

	// B is issued after A and answers first.
	stB := s.ForceRefresh(context.Background())
	require.Equal(t, 2, <-checker.started)
	assert.Equal(t, 3, stB.CurrentCount)
	assert.True(t, stB.IsLoading, "A is still in flight")

	close(releaseA)
	<-doneA

	st := s.State()
	assert.Equal(t, 3, st.CurrentCount)
	assert.False(t, st.CanCreate)
	assert.False(t, st.IsLoading)
	assert.Equal(t, PhaseReady, st.Phase)
}

func TestStoreCheckLimitSharesInFlightRequest(t *testing.T) {
	release := make(chan struct{})
	checker := &scriptedChecker{
		replies: []reply{
			{decision: Decision{CanCreate: true, CurrentCount: 0, MaxAllowed: 3, UserRole: roles.Customer}},
			{decision: Decision{CanCreate: true, CurrentCount: 2, MaxAllowed: 3, UserRole: roles.Customer}, release: release},
		},
		started: make(chan int, 4),
	}
	s := newTestStore(checker, nil)
	s.SetSession(context.Background(), customerSession())
	<-checker.started

	var wg sync.WaitGroup
	first := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(first)
		s.CheckLimit(context.Background())
	}()
	<-first
	require.Equal(t, 1, <-checker.started)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.CheckLimit(context.Background())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 2, checker.Calls())
	assert.Equal(t, 2, s.CurrentCount())
}

func TestStoreDiscardsResultAfterLogout(t *testing.T) {
	release := make(chan struct{})
	checker := &scriptedChecker{
		replies: []reply{
			{decision: Decision{CanCreate: true, CurrentCount: 1, MaxAllowed: 3, UserRole: roles.Customer}, release: release},
		},
		started: make(chan int, 2),
	}
	s := newTestStore(checker, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.SetSession(context.Background(), customerSession())
	}()
	<-checker.started
	s.Logout()
	close(release)
	<-done

	st := s.State()
	assert.Equal(t, PhaseUninitialized, st.Phase)
	assert.False(t, st.CanCreate)
	assert.False(t, st.IsLoading)
}

func TestStoreLogoutStopsRefresh(t *testing.T) {
	var calls atomic.Int32
	checker := CheckerFunc(func(context.Context, *Session) (Decision, error) {
		calls.Add(1)
		return Decision{CanCreate: true, CurrentCount: 1, MaxAllowed: 3, UserRole: roles.Customer}, nil
	})
	s := NewStore(checker, Options{RefreshInterval: 5 * time.Millisecond, Logger: zerolog.Nop()})

	s.SetSession(context.Background(), customerSession())
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	s.Logout()
	time.Sleep(5 * time.Millisecond)
	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())

	st := s.State()
	assert.Equal(t, State{Decision: DefaultPolicy().Initial(), Phase: PhaseUninitialized}, st)
}

func TestStoreSessionChangeResets(t *testing.T) {
	counts := map[string]int{"u1": 3, "u2": 1}
	checker := CheckerFunc(func(_ context.Context, sess *Session) (Decision, error) {
		return DefaultPolicy().Decide(roles.Resolve(sess), counts[sess.UserID]), nil
	})
	s := newTestStore(checker, nil)

	assert.True(t, s.SetSession(context.Background(), customerSession()).IsBlocked())

	st := s.SetSession(context.Background(), &Session{UserID: "u2", Roles: []string{"customer"}})
	assert.Equal(t, "u2", st.UserID)
	assert.Equal(t, 1, st.CurrentCount)
	assert.False(t, st.IsBlocked())

	s.SetSession(context.Background(), nil)
	assert.Equal(t, PhaseUninitialized, s.State().Phase)
}

func TestStoreSameUserKeepsState(t *testing.T) {
	checker := &scriptedChecker{}
	s := newTestStore(checker, nil)

	s.SetSession(context.Background(), customerSession())
	s.SetSession(context.Background(), customerSession())
	assert.Equal(t, 1, checker.Calls())
}

func TestStoreSameUserRolesChangedRefreshes(t *testing.T) {
	checker := CheckerFunc(func(_ context.Context, sess *Session) (Decision, error) {
		return DefaultPolicy().Decide(roles.Resolve(sess), 3), nil
	})
	s := newTestStore(checker, nil)

	assert.True(t, s.SetSession(context.Background(), customerSession()).IsBlocked())

	promoted := customerSession()
	promoted.Roles = []string{"customer", "coach"}
	st := s.SetSession(context.Background(), promoted)
	assert.False(t, st.IsBlocked())
	assert.Equal(t, roles.Coach, st.UserRole)
	assert.Equal(t, Unlimited, st.MaxAllowed)
}

func TestStoreSameUserDuringInitialCheckStartsRefresh(t *testing.T) {
	release := make(chan struct{})
	checker := &scriptedChecker{
		replies: []reply{
			{decision: Decision{CanCreate: true, CurrentCount: 1, MaxAllowed: 3, UserRole: roles.Customer}, release: release},
			{decision: Decision{CanCreate: true, CurrentCount: 1, MaxAllowed: 3, UserRole: roles.Customer}},
		},
		started: make(chan int, 64),
	}
	s := NewStore(checker, Options{RefreshInterval: 5 * time.Millisecond, Logger: zerolog.Nop()})
	defer s.Logout()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.SetSession(context.Background(), customerSession())
	}()
	require.Equal(t, 0, <-checker.started)

	s.SetSession(context.Background(), customerSession())
	go func() {
		for range checker.started {
		}
	}()
	assert.Eventually(t, func() bool { return checker.Calls() >= 3 }, time.Second, time.Millisecond)

	close(release)
	<-done
	assert.Eventually(t, func() bool { return s.State().Phase == PhaseReady }, time.Second, time.Millisecond)
}

func TestStoreAbandonedCheckKeepsState(t *testing.T) {
	ctxAware := CheckerFunc(func(ctx context.Context, _ *Session) (Decision, error) {
		if err := ctx.Err(); err != nil {
			return DefaultPolicy().Initial(), fmt.Errorf("%w: %w", ErrCheckFailed, err)
		}
		return Decision{CanCreate: true, CurrentCount: 1, MaxAllowed: 3, UserRole: roles.Customer}, nil
	})

	tests := []struct {
		name  string
		check func(s *Store, ctx context.Context) State
	}{
		{name: "force refresh", check: (*Store).ForceRefresh},
		{name: "check limit", check: (*Store).CheckLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(ctxAware, nil)
			before := s.SetSession(context.Background(), customerSession())
			require.Equal(t, PhaseReady, before.Phase)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			tt.check(s, ctx)

			assert.Eventually(t, func() bool { return !s.IsLoading() }, time.Second, time.Millisecond)
			st := s.State()
			assert.Equal(t, PhaseReady, st.Phase)
			assert.NoError(t, st.Err)
			assert.True(t, st.CanCreate)
			assert.Equal(t, 1, st.CurrentCount)
		})
	}
}

func TestStoreSharedCheckSurvivesCancelledCaller(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	checker := CheckerFunc(func(ctx context.Context, _ *Session) (Decision, error) {
		if calls.Add(1) == 2 {
			<-release
		}
		if err := ctx.Err(); err != nil {
			return DefaultPolicy().Initial(), fmt.Errorf("%w: %w", ErrCheckFailed, err)
		}
		return Decision{CanCreate: true, CurrentCount: 2, MaxAllowed: 3, UserRole: roles.Customer}, nil
	})
	s := newTestStore(checker, nil)
	s.SetSession(context.Background(), customerSession())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan State)
	go func() { first <- s.CheckLimit(ctx) }()
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	joined := make(chan State)
	go func() { joined <- s.CheckLimit(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	<-first
	close(release)

	st := <-joined
	assert.Equal(t, PhaseReady, st.Phase)
	assert.NoError(t, st.Err)
	assert.True(t, st.CanCreate)
	assert.Equal(t, 2, st.CurrentCount)
}

func TestStoreCloseDuringRefreshKeepsState(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	checker := CheckerFunc(func(ctx context.Context, _ *Session) (Decision, error) {
		if calls.Add(1) == 2 {
			<-release
		}
		if err := ctx.Err(); err != nil {
			return DefaultPolicy().Initial(), fmt.Errorf("%w: %w", ErrCheckFailed, err)
		}
		return Decision{CanCreate: true, CurrentCount: 1, MaxAllowed: 3, UserRole: roles.Customer}, nil
	})
	s := NewStore(checker, Options{RefreshInterval: 5 * time.Millisecond, Logger: zerolog.Nop()})
	s.SetSession(context.Background(), customerSession())
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	s.Close()
	close(release)

	assert.Eventually(t, func() bool { return !s.IsLoading() }, time.Second, time.Millisecond)
	st := s.State()
	assert.Equal(t, PhaseReady, st.Phase)
	assert.NoError(t, st.Err)
	assert.True(t, st.CanCreate)
}

func TestStoreInitialPolicy(t *testing.T) {
	strict := NewPolicy(0)

	tests := []struct {
		name    string
		checker LimitChecker
		policy  *Policy
		want    Limit
	}{
		{name: "default", checker: &scriptedChecker{}, want: 3},
		{name: "from checker", checker: NewChecker(fixedCount(0), nil, strict, zerolog.Nop()), want: 0},
		{name: "explicit zero", checker: &scriptedChecker{}, policy: &strict, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.checker, Options{RefreshInterval: -1, Policy: tt.policy, Logger: zerolog.Nop()})
			assert.Equal(t, tt.want, s.MaxAllowed())
			assert.False(t, s.CanCreate())
		})
	}
}

func TestStoreSubscribe(t *testing.T) {
	checker := NewChecker(fixedCount(1), NewMemoryRoleCache(), DefaultPolicy(), zerolog.Nop())
	s := newTestStore(checker, nil)

	var phases []Phase
	unsubscribe := s.Subscribe(func(st State) { phases = append(phases, st.Phase) })

	s.SetSession(context.Background(), customerSession())
	assert.Equal(t, []Phase{PhaseChecking, PhaseReady}, phases)

	unsubscribe()
	s.ForceRefresh(context.Background())
	assert.Len(t, phases, 2)
}

func TestStoreWithoutSession(t *testing.T) {
	checker := &scriptedChecker{}
	s := newTestStore(checker, nil)

	assert.Equal(t, PhaseUninitialized, s.CheckLimit(context.Background()).Phase)
	assert.Equal(t, PhaseUninitialized, s.ForceRefresh(context.Background()).Phase)
	assert.True(t, s.CheckAndBlockAction(nil))
	assert.Zero(t, checker.Calls())
	s.Close()
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}

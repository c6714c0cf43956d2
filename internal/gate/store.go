package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"coachgate/internal/roles"
)

// DefaultRefreshInterval is how often a mounted store re-checks the limit.
const DefaultRefreshInterval = 5 * time.Minute

// Phase is the lifecycle position of the store for the current session.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseChecking
	PhaseReady
	PhaseDegraded
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseChecking:
		return "checking"
	case PhaseReady:
		return "ready"
	case PhaseDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the store.
type State struct {
	Decision
	Phase     Phase
	UserID    string
	IsLoading bool
	Err       error
}

// IsBlocked reports whether creating a workout is not allowed.
func (s State) IsBlocked() bool { return !s.CanCreate }

// IsCoachOrAdmin reports whether the decision was made for a coach or admin.
func (s State) IsCoachOrAdmin() bool {
	return s.UserRole == roles.Admin || s.UserRole == roles.Coach
}

// FormattedMaxAllowed renders MaxAllowed for display.
func (s State) FormattedMaxAllowed() string { return s.MaxAllowed.String() }

// BlockedMessage is the text shown to a user whose action was blocked.
func (s State) BlockedMessage() string {
	switch {
	case s.Phase == PhaseUninitialized:
		return "Sign in to create workouts."
	case s.Phase == PhaseDegraded && s.Err != nil:
		return "We could not verify your workout limit right now. Please try again later."
	default:
		return fmt.Sprintf("You have reached the limit of %s personal workouts; contact a coach to create more.", s.FormattedMaxAllowed())
	}
}

// Action is a UI action that can be cancelled, such as a navigation.
type Action interface {
	PreventDefault()
}

// Notifier shows a message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// LimitChecker is what the store needs from a Checker.
type LimitChecker interface {
	CheckLimit(ctx context.Context, sess *Session) (Decision, error)
}

// CheckerFunc adapts a function to LimitChecker.
type CheckerFunc func(ctx context.Context, sess *Session) (Decision, error)

func (f CheckerFunc) CheckLimit(ctx context.Context, sess *Session) (Decision, error) {
	return f(ctx, sess)
}

// Options configures a Store.
type Options struct {
	// RefreshInterval is the periodic re-check interval. Zero means
	// DefaultRefreshInterval, negative disables periodic refresh.
	RefreshInterval time.Duration
	Notifier        Notifier
	// Policy sets the decision held before the first check. Nil means the
	// checker's policy when it has one, otherwise DefaultPolicy.
	Policy *Policy
	Logger zerolog.Logger
}

// Store is the shared workout limit state read by UI components. Results
// are applied newest-request-wins: a request that completes after a newer
// one has already been applied is discarded.
type Store struct {
	checker  LimitChecker
	interval time.Duration
	notifier Notifier
	policy   Policy
	log      zerolog.Logger
	group    singleflight.Group

	mu       sync.Mutex
	state    State
	session  *Session
	gen      uint64
	seq      uint64
	applied  uint64
	floor    uint64
	inflight int
	settled  Phase
	refresh  *refresher
	subs     map[int]func(State)
	nextSub  int
}

// NewStore creates an uninitialized store.
func NewStore(checker LimitChecker, opts Options) *Store {
	interval := opts.RefreshInterval
	if interval == 0 {
		interval = DefaultRefreshInterval
	}
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	} else if pc, ok := checker.(interface{ Policy() Policy }); ok {
		policy = pc.Policy()
	}
	s := &Store{
		checker:  checker,
		interval: interval,
		notifier: opts.Notifier,
		policy:   policy,
		log:      opts.Logger.With().Str("component", "gate.store").Logger(),
		subs:     make(map[int]func(State)),
	}
	s.state = s.initialState()
	return s
}

func (s *Store) initialState() State {
	return State{Decision: s.policy.Initial(), Phase: PhaseUninitialized}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) CanCreate() bool             { return s.State().CanCreate }
func (s *Store) CurrentCount() int           { return s.State().CurrentCount }
func (s *Store) MaxAllowed() Limit           { return s.State().MaxAllowed }
func (s *Store) UserRole() roles.Role        { return s.State().UserRole }
func (s *Store) IsLoading() bool             { return s.State().IsLoading }
func (s *Store) Err() error                  { return s.State().Err }
func (s *Store) IsBlocked() bool             { return s.State().IsBlocked() }
func (s *Store) IsCoachOrAdmin() bool        { return s.State().IsCoachOrAdmin() }
func (s *Store) FormattedMaxAllowed() string { return s.State().FormattedMaxAllowed() }

// Subscribe registers fn to be called with every new state. The returned
// function unregisters it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetSession mounts the store for sess and runs the initial check. A nil
// session or one without a user id logs out. Setting the same user again
// updates the session payload and re-checks only when the resolved roles
// changed or no check has run yet.
func (s *Store) SetSession(ctx context.Context, sess *Session) State {
	if sess == nil || sess.UserID == "" {
		s.Logout()
		return s.State()
	}

	s.mu.Lock()
	if s.session != nil && s.session.UserID == sess.UserID {
		rolesChanged := roles.Resolve(s.session) != roles.Resolve(sess)
		unchecked := s.state.Phase == PhaseUninitialized && s.inflight == 0
		s.session = sess
		gen := s.gen
		st := s.state
		s.mu.Unlock()

		if rolesChanged || unchecked {
			st = s.run(ctx)
		}
		s.ensureRefresher(gen)
		return st
	}
	old := s.refresh
	s.refresh = nil
	s.resetLocked()
	s.gen++
	gen := s.gen
	s.session = sess
	s.mu.Unlock()

	old.stop()
	st := s.run(ctx)
	s.ensureRefresher(gen)
	return st
}

// ensureRefresher starts periodic refresh for session generation gen unless
// it is already running or the session has since changed.
func (s *Store) ensureRefresher(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.session == nil || s.interval <= 0 || s.refresh != nil {
		return
	}
	s.refresh = startRefresher(s.interval, func(ctx context.Context) {
		s.CheckLimit(ctx)
	})
}

// Logout clears the state and stops periodic refresh. In-flight results are
// discarded when they complete.
func (s *Store) Logout() {
	s.mu.Lock()
	r := s.refresh
	s.refresh = nil
	wasMounted := s.session != nil
	s.resetLocked()
	s.gen++
	s.session = nil
	st := s.state
	s.mu.Unlock()

	r.stop()
	if wasMounted {
		s.log.Debug().Msg("session cleared")
		s.publish(st)
	}
}

// Close stops periodic refresh without clearing state. A check already in
// flight still applies its result.
func (s *Store) Close() {
	s.mu.Lock()
	r := s.refresh
	s.refresh = nil
	s.mu.Unlock()
	r.stop()
}

func (s *Store) resetLocked() {
	s.floor = s.seq
	s.applied = s.seq
	s.inflight = 0
	s.settled = PhaseUninitialized
	s.state = s.initialState()
}

// CheckLimit re-checks the limit for the current session. Concurrent calls
// share a single in-flight request, which is not cancelled when one caller
// gives up. A caller whose ctx ends first gets the current state.
func (s *Store) CheckLimit(ctx context.Context) State {
	s.mu.Lock()
	if s.session == nil {
		st := s.state
		s.mu.Unlock()
		return st
	}
	key := fmt.Sprintf("%s/%d", s.session.UserID, s.gen)
	s.mu.Unlock()

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.run(shared), nil
	})
	select {
	case res := <-ch:
		return res.Val.(State)
	case <-ctx.Done():
		return s.State()
	}
}

// ForceRefresh re-checks the limit with a new request even when one is
// already in flight.
func (s *Store) ForceRefresh(ctx context.Context) State {
	return s.run(ctx)
}

// CheckAndBlockAction blocks action when the user may not create a workout.
// A blocked action has PreventDefault called and the user is notified. It
// returns whether the action was blocked.
func (s *Store) CheckAndBlockAction(action Action) bool {
	st := s.State()
	if !st.IsBlocked() {
		return false
	}
	if action != nil {
		action.PreventDefault()
	}
	if s.notifier != nil {
		s.notifier.Notify(st.BlockedMessage())
	}
	return true
}

// run issues one check for the current session and applies it if it is
// still the newest. A result from a check abandoned through ctx is dropped.
func (s *Store) run(ctx context.Context) State {
	s.mu.Lock()
	sess := s.session
	if sess == nil {
		st := s.state
		s.mu.Unlock()
		return st
	}
	s.seq++
	token := s.seq
	s.inflight++
	s.state.IsLoading = true
	s.state.Phase = PhaseChecking
	s.state.UserID = sess.UserID
	st := s.state
	s.mu.Unlock()
	s.publish(st)

	d, err := s.checker.CheckLimit(ctx, sess)

	s.mu.Lock()
	if token <= s.floor {
		st := s.state
		s.mu.Unlock()
		return st
	}
	s.inflight--
	switch {
	case err != nil && ctx.Err() != nil && isContextErr(err):
		s.log.Debug().Err(err).Uint64("token", token).Msg("discarding abandoned limit check")
	case token > s.applied:
		s.applied = token
		s.state.Decision = d
		s.state.Err = err
		if err != nil {
			s.settled = PhaseDegraded
		} else {
			s.settled = PhaseReady
		}
	default:
		s.log.Debug().Uint64("token", token).Uint64("applied", s.applied).Msg("discarding superseded limit result")
	}
	s.state.IsLoading = s.inflight > 0
	if s.state.IsLoading {
		s.state.Phase = PhaseChecking
	} else {
		s.state.Phase = s.settled
	}
	st = s.state
	s.mu.Unlock()

	s.publish(st)
	return st
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Store) publish(st State) {
	s.mu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// refresher runs fn on a fixed interval until stopped.
type refresher struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func startRefresher(interval time.Duration, fn func(ctx context.Context)) *refresher {
	ctx, cancel := context.WithCancel(context.Background())
	r := &refresher{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
	return r
}

// stop cancels the refresher and waits for its goroutine to exit.
func (r *refresher) stop() {
	if r == nil {
		return
	}
	r.cancel()
	<-r.done
}

// Package session implements the session and navigation guard: a small
// state machine that tracks the current view and authentication flag, keeps
// privileged views unreachable while logged out, and arms/disarms the risk
// monitoring scheduler on auth transitions.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/harvestguard/harvestguard-go/internal/store"
)

// View is a navigation destination token.
type View string

// Application views. ViewLogout is a reserved pseudo-destination: it is
// intercepted by SetView and never becomes the current view.
const (
	ViewLanding    View = "landing"
	ViewLogin      View = "login"
	ViewOnboarding View = "onboarding"
	ViewDashboard  View = "dashboard"
	ViewAddCrop    View = "add"
	ViewWeather    View = "weather"
	ViewScanner    View = "scanner"
	ViewMap        View = "map"
	ViewCommunity  View = "community"
	ViewProfile    View = "profile"
	ViewLogout     View = "logout"
)

// internalViews are only valid while authenticated.
var internalViews = map[View]bool{
	ViewDashboard: true,
	ViewAddCrop:   true,
	ViewWeather:   true,
	ViewScanner:   true,
	ViewMap:       true,
	ViewCommunity: true,
	ViewProfile:   true,
}

// Internal reports whether v requires authentication.
func Internal(v View) bool {
	return internalViews[v]
}

// Store is the persistence surface the guard reads: profile existence for
// redirect decisions and the one-time tutorial flag. Satisfied by
// *store.SQLiteStore.
type Store interface {
	Profile(ctx context.Context) (*store.FarmerProfile, error)
	Flag(ctx context.Context, key string) (string, bool, error)
	SetFlag(ctx context.Context, key, value string) error
}

// Hooks are the scheduler arm/disarm callbacks fired on auth transitions.
// Either may be nil.
type Hooks struct {
	Arm    func()
	Disarm func()
}

// Guard owns the session state. Enforcement is reactive: a reconcile check
// runs after every view or auth change, and an internal view reached while
// unauthenticated is corrected to Login (profile exists) or Landing. The
// invalid state is therefore momentarily representable before the redirect;
// the UI never observes it because both happen under one lock.
type Guard struct {
	mu              sync.Mutex
	authenticated   bool
	view            View
	tutorialVisible bool

	store  Store
	hooks  Hooks
	logger *slog.Logger
}

// NewGuard creates a Guard. The initial view depends on whether a farmer
// profile already exists: returning users land on Login (PIN entry), new
// installations on Landing.
func NewGuard(ctx context.Context, st Store, hooks Hooks, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Guard{
		store:  st,
		hooks:  hooks,
		logger: logger,
	}

	if g.hasProfile(ctx) {
		g.view = ViewLogin
	} else {
		g.view = ViewLanding
	}

	return g
}

// View returns the current view.
func (g *Guard) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.view
}

// Authenticated reports whether a session is active.
func (g *Guard) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.authenticated
}

// TutorialVisible reports whether the onboarding tour overlay is showing.
func (g *Guard) TutorialVisible() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.tutorialVisible
}

// SetView navigates to v. The logout pseudo-view is intercepted before any
// view assignment occurs; every real assignment is followed by a reconcile.
func (g *Guard) SetView(ctx context.Context, v View) {
	if v == ViewLogout {
		g.Logout()
		return
	}

	g.mu.Lock()
	g.view = v
	g.reconcileLocked(ctx)
	g.mu.Unlock()
}

// LoginSucceeded marks the session authenticated, navigates to the
// dashboard, and arms the scheduler. The tour overlay shows only if this
// installation has not dismissed it before.
func (g *Guard) LoginSucceeded(ctx context.Context) {
	g.mu.Lock()
	g.authenticated = true
	g.view = ViewDashboard
	g.tutorialVisible = !g.tutorialSeen(ctx)
	g.mu.Unlock()

	g.logger.Info("session authenticated", slog.String("via", "login"))

	if g.hooks.Arm != nil {
		g.hooks.Arm()
	}
}

// OnboardingCompleted marks the session authenticated after first-run
// onboarding. The tour always shows for a fresh registration.
func (g *Guard) OnboardingCompleted(ctx context.Context) {
	g.mu.Lock()
	g.authenticated = true
	g.view = ViewDashboard
	g.tutorialVisible = true
	g.mu.Unlock()

	g.logger.Info("session authenticated", slog.String("via", "onboarding"))

	if g.hooks.Arm != nil {
		g.hooks.Arm()
	}
}

// Logout tears the session down: back to Landing, scheduler disarmed. An
// in-flight monitoring cycle completes cooperatively; only future cycles
// are cancelled.
func (g *Guard) Logout() {
	g.mu.Lock()
	g.authenticated = false
	g.view = ViewLanding
	g.tutorialVisible = false
	g.mu.Unlock()

	g.logger.Info("session ended")

	if g.hooks.Disarm != nil {
		g.hooks.Disarm()
	}
}

// DismissTutorial hides the tour and remembers the dismissal across runs.
func (g *Guard) DismissTutorial(ctx context.Context) {
	g.mu.Lock()
	g.tutorialVisible = false
	g.mu.Unlock()

	if err := g.store.SetFlag(ctx, store.FlagTutorialSeen, "true"); err != nil {
		g.logger.Warn("persisting tutorial flag failed", slog.String("error", err.Error()))
	}
}

// reconcileLocked redirects away from internal views while unauthenticated.
// Callers hold g.mu.
func (g *Guard) reconcileLocked(ctx context.Context) {
	if !Internal(g.view) || g.authenticated {
		return
	}

	from := g.view

	if g.hasProfile(ctx) {
		g.view = ViewLogin
	} else {
		g.view = ViewLanding
	}

	g.logger.Debug("unauthenticated internal view redirected",
		slog.String("from", string(from)),
		slog.String("to", string(g.view)),
	)
}

// hasProfile reports whether a farmer profile exists. Read failures count
// as no profile: the safe redirect target is Landing.
func (g *Guard) hasProfile(ctx context.Context) bool {
	p, err := g.store.Profile(ctx)
	if err != nil {
		g.logger.Warn("profile lookup failed", slog.String("error", err.Error()))
		return false
	}

	return p != nil
}

// tutorialSeen reports whether the tour was dismissed on this installation.
func (g *Guard) tutorialSeen(ctx context.Context) bool {
	v, ok, err := g.store.Flag(ctx, store.FlagTutorialSeen)
	if err != nil {
		g.logger.Warn("tutorial flag lookup failed", slog.String("error", err.Error()))
		return false
	}

	return ok && v == "true"
}

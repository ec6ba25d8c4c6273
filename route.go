package ledger

import "strings"

// Screen identifies a navigable view.
type Screen int

const (
	// ScreenUnknown is any path that matches no screen.
	ScreenUnknown Screen = iota
	ScreenLogin
	ScreenSignup
	ScreenForgotPassword
	ScreenChangePassword
	// ScreenTransactions is the list view and the landing screen after login.
	ScreenTransactions
	// ScreenTransaction is the detail view, for editing or creating one item.
	ScreenTransaction
)

// LandingScreen is where a successful credential exchange navigates to.
const LandingScreen = ScreenTransactions

var screenPaths = map[Screen]string{
	ScreenLogin:          "/login",
	ScreenSignup:         "/new-user",
	ScreenForgotPassword: "/forgot-password",
	ScreenChangePassword: "/change-password",
	ScreenTransactions:   "/transactions",
	ScreenTransaction:    "/transaction",
}

// String returns the screen's path.
func (s Screen) String() string {
	if p, ok := screenPaths[s]; ok {
		return p
	}
	return "unknown"
}

// Protected reports whether the screen requires an authenticated client.
func (s Screen) Protected() bool {
	return s == ScreenTransactions || s == ScreenTransaction
}

// ParsePath maps a path to its screen. For "/transaction/{id}" the id is
// returned as well.
func ParsePath(path string) (Screen, string) {
	path = "/" + strings.Trim(path, "/")
	if rest, ok := strings.CutPrefix(path, "/transaction/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return ScreenTransaction, rest
	}
	for screen, p := range screenPaths {
		if p == path {
			return screen, ""
		}
	}
	return ScreenUnknown, ""
}

// Action is what the front-end should do for a navigation request.
type Action int

const (
	// ActionRender shows the requested screen.
	ActionRender Action = iota + 1
	// ActionRedirect replaces the requested screen with Decision.Screen.
	ActionRedirect
	// ActionLoading shows an indeterminate placeholder until the status settles.
	ActionLoading
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionRender:
		return "render"
	case ActionRedirect:
		return "redirect"
	case ActionLoading:
		return "loading"
	default:
		return "invalid"
	}
}

// Decision is the outcome of a route guard check.
type Decision struct {
	Action Action
	// Screen is the screen to render or redirect to. Unset for ActionLoading.
	Screen Screen
}

// Route decides what to show for screen under status. It is a pure function;
// [Client.Navigate] applies it to the client's current status.
func Route(status Status, screen Screen) Decision {
	if status == StatusUnknown {
		return Decision{Action: ActionLoading}
	}
	authenticated := status == StatusAuthenticated

	switch {
	case screen == ScreenUnknown || screenPaths[screen] == "":
		if authenticated {
			return Decision{Action: ActionRedirect, Screen: LandingScreen}
		}
		return Decision{Action: ActionRedirect, Screen: ScreenLogin}
	case screen.Protected() && !authenticated:
		return Decision{Action: ActionRedirect, Screen: ScreenLogin}
	case screen == ScreenLogin && authenticated:
		return Decision{Action: ActionRedirect, Screen: LandingScreen}
	default:
		return Decision{Action: ActionRender, Screen: screen}
	}
}

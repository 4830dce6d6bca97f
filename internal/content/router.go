package content

import "tandem/internal/models"

// GenericErrorText is the fallback shown when a failing service reported no
// message of its own.
const GenericErrorText = "error_generic"

// RouteInputs are the independently-arriving signals the route decision is
// derived from. The struct is plain data so the calculator stays trivially
// callable from any goroutine.
type RouteInputs struct {
	HasConnectedPartner bool
	HasSeenIntro        bool
	ShouldShowPaywall   bool
	PaywallDay          int
	ServiceHasError     bool
	ServiceErrorMessage string
	ServiceIsLoading    bool
}

// CalculateRoute maps the input signals to a single screen route. The rule
// order is a contract, not an accident:
//
//  1. no connected partner      -> Intro(showConnect)
//  2. intro not seen            -> Intro
//  3. service error             -> Error
//  4. service loading           -> Main (the main screen owns its own
//     loading sub-state; there is no separate global loading route)
//  5. paywall due               -> Paywall
//  6. otherwise                 -> Main
//
// Onboarding outranks every technical state so a user is never shown an
// error or a paywall before connecting a partner, and errors outrank loading
// and paywall so failures are never silently masked.
func CalculateRoute(in RouteInputs) models.RouteState {
	if !in.HasConnectedPartner {
		return models.IntroRoute{ShowConnect: true}
	}
	if !in.HasSeenIntro {
		return models.IntroRoute{ShowConnect: false}
	}
	if in.ServiceHasError {
		msg := in.ServiceErrorMessage
		if msg == "" {
			msg = GenericErrorText
		}
		return models.ErrorRoute{Message: msg}
	}
	if in.ServiceIsLoading {
		return models.MainRoute{}
	}
	if in.ShouldShowPaywall {
		return models.PaywallRoute{Day: in.PaywallDay}
	}
	return models.MainRoute{}
}

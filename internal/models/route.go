package models

// RouteState is the screen decision computed by the route calculator. It is a
// closed set of variants, recomputed on every input change and never stored.
type RouteState interface {
	RouteName() string
}

type IntroRoute struct {
	ShowConnect bool
}

type PaywallRoute struct {
	Day int
}

type MainRoute struct{}

type ErrorRoute struct {
	Message string
}

func (IntroRoute) RouteName() string   { return "intro" }
func (PaywallRoute) RouteName() string { return "paywall" }
func (MainRoute) RouteName() string    { return "main" }
func (ErrorRoute) RouteName() string   { return "error" }

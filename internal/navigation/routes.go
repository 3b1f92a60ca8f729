// Package navigation holds the screen graph and the facade screens use to move
// between each other. Any screen may navigate to any other; no transition table
// is enforced.
package navigation

import (
	"errors"
	"fmt"
)

var ErrUnknownRoute = errors.New("unknown route")

type Route string

const (
	SightingView   Route = "sightingview_screen"
	SightingList   Route = "sightinglist_screen"
	NewSighting    Route = "newsighting_screen"
	Map            Route = "mapscreen_screen"
	DiscussionList Route = "discussionlist_screen"
	Settings       Route = "settings_screen"
	Login          Route = "login_screen"
	Register       Route = "register_screen"
	Discussion     Route = "discussion_screen"
	NewDiscussion  Route = "newdicussion_screen"
	Splash         Route = "splash_screen"
	Profile        Route = "profile_screen"
)

// StartDestination is the first screen of every session.
const StartDestination = SightingList

// Routes lists every screen in the graph.
var Routes = []Route{
	SightingView, SightingList, NewSighting, Map, DiscussionList, Settings,
	Login, Register, Discussion, NewDiscussion, Splash, Profile,
}

// Destination is one back stack entry. Arg carries the document ID for screens
// that show a single sighting or discussion.
type Destination struct {
	Route Route  `json:"route"`
	Arg   string `json:"arg,omitempty"`
}

func (d Destination) String() string {
	if d.Arg == "" {
		return string(d.Route)
	}
	return fmt.Sprintf("%s/%s", d.Route, d.Arg)
}

// Graph maps every route to the factory building its screen.
type Graph[S any] struct {
	factories map[Route]func(Destination) S
}

func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{factories: make(map[Route]func(Destination) S)}
}

// Add registers the factory for route, replacing any earlier one.
func (g *Graph[S]) Add(route Route, factory func(Destination) S) *Graph[S] {
	g.factories[route] = factory
	return g
}

// Build creates the screen for dest.
func (g *Graph[S]) Build(dest Destination) (S, error) {
	factory, ok := g.factories[dest.Route]
	if !ok {
		var zero S
		return zero, fmt.Errorf("%w: %q", ErrUnknownRoute, dest.Route)
	}
	return factory(dest), nil
}

// Has reports whether route is registered.
func (g *Graph[S]) Has(route Route) bool {
	_, ok := g.factories[route]
	return ok
}

// Missing returns the routes of Routes without a factory.
func (g *Graph[S]) Missing() []Route {
	var out []Route
	for _, r := range Routes {
		if !g.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

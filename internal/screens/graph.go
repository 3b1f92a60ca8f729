package screens

import (
	"time"

	"github.com/dronesight/dronesight-backend/internal/media"
	"github.com/dronesight/dronesight-backend/internal/navigation"
	"github.com/dronesight/dronesight-backend/internal/repository"
	"github.com/dronesight/dronesight-backend/internal/services"
)

// Deps are the process-wide collaborators of every holder.
type Deps struct {
	Users              *repository.UserRepository
	Sightings          *repository.SightingRepository
	SightingComments   *repository.SightingCommentRepository
	Discussions        *repository.DiscussionRepository
	DiscussionComments *repository.DiscussionCommentRepository
	Staging            *media.Staging
	Now                func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// env is what a holder of one session can reach.
type env struct {
	Deps
	nav  *navigation.Navigator
	auth *services.AuthClient
}

// NewGraph registers a holder factory for every route.
func NewGraph(deps Deps, nav *navigation.Navigator, auth *services.AuthClient) *navigation.Graph[Holder] {
	e := env{Deps: deps, nav: nav, auth: auth}
	return navigation.NewGraph[Holder]().
		Add(navigation.SightingList, func(navigation.Destination) Holder { return NewSightingsList(e) }).
		Add(navigation.SightingView, func(d navigation.Destination) Holder { return NewSightingView(e, d.Arg) }).
		Add(navigation.NewSighting, func(navigation.Destination) Holder { return NewNewSighting(e) }).
		Add(navigation.Map, func(navigation.Destination) Holder { return NewMap(e) }).
		Add(navigation.DiscussionList, func(navigation.Destination) Holder { return NewDiscussionList(e) }).
		Add(navigation.Discussion, func(d navigation.Destination) Holder { return NewDiscussion(e, d.Arg) }).
		Add(navigation.NewDiscussion, func(navigation.Destination) Holder { return NewNewDiscussion(e) }).
		Add(navigation.Settings, func(navigation.Destination) Holder { return NewSettings(e) }).
		Add(navigation.Login, func(navigation.Destination) Holder { return NewLogin(e) }).
		Add(navigation.Register, func(navigation.Destination) Holder { return NewRegister(e) }).
		Add(navigation.Splash, func(navigation.Destination) Holder { return NewSplash(e) }).
		Add(navigation.Profile, func(navigation.Destination) Holder { return NewProfile(e) })
}

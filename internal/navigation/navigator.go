package navigation

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dronesight/dronesight-backend/internal/logger"
)

// Navigator is the facade state holders call to change screens. It keeps only a
// reference to the back stack it was initialized with.
type Navigator struct {
	mu    sync.RWMutex
	stack *BackStack
	log   *logrus.Entry
}

func NewNavigator() *Navigator {
	return &Navigator{log: logger.For("navigation")}
}

// Initialize binds the navigator to stack. Only the first call has an effect.
func (n *Navigator) Initialize(stack *BackStack) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.stack != nil {
		n.log.Warn("navigator already initialized, ignoring")
		return
	}
	n.stack = stack
}

func (n *Navigator) backStack() *BackStack {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stack
}

func (n *Navigator) navigate(dest Destination) {
	stack := n.backStack()
	if stack == nil {
		n.log.WithField("route", dest.String()).Warn("navigation before initialize, dropped")
		return
	}
	stack.Navigate(dest)
}

func (n *Navigator) NavToSighting(id string) {
	n.navigate(Destination{Route: SightingView, Arg: id})
}

func (n *Navigator) NavToSightingsList() {
	n.navigate(Destination{Route: SightingList})
}

func (n *Navigator) NavToLogin()          { n.navigate(Destination{Route: Login}) }
func (n *Navigator) NavToRegister()       { n.navigate(Destination{Route: Register}) }
func (n *Navigator) NavToSettings()       { n.navigate(Destination{Route: Settings}) }
func (n *Navigator) NavToSplash()         { n.navigate(Destination{Route: Splash}) }
func (n *Navigator) NavToDiscussionList() { n.navigate(Destination{Route: DiscussionList}) }
func (n *Navigator) NavToNewDiscussion()  { n.navigate(Destination{Route: NewDiscussion}) }
func (n *Navigator) NavToNewSighting()    { n.navigate(Destination{Route: NewSighting}) }
func (n *Navigator) NavToMap()            { n.navigate(Destination{Route: Map}) }
func (n *Navigator) NavToProfile()        { n.navigate(Destination{Route: Profile}) }

func (n *Navigator) NavToDiscussion(id string) {
	n.navigate(Destination{Route: Discussion, Arg: id})
}

// PopBackStack returns to the previous screen. It does nothing on the start screen.
func (n *Navigator) PopBackStack() {
	stack := n.backStack()
	if stack == nil {
		n.log.Warn("pop before initialize, dropped")
		return
	}
	stack.Pop()
}

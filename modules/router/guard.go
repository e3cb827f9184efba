package router

import (
	"github.com/example/taskboard/domain/user"
	"github.com/example/taskboard/modules/session"
)

// Route is a navigable location.
type Route string

const (
	RouteRoot           Route = "/"
	RouteLogin          Route = "/login"
	RouteRegister       Route = "/register"
	RouteUserDashboard  Route = "/user/dashboard"
	RouteAdminDashboard Route = "/admin/dashboard"
)

// View is what gets rendered for a route.
type View string

const (
	ViewNone           View = ""
	ViewLogin          View = "login"
	ViewRegister       View = "register"
	ViewUserDashboard  View = "user-dashboard"
	ViewAdminDashboard View = "admin-dashboard"
	ViewNotFound       View = "not-found"
)

// maxRedirects bounds Navigate. Every rule chain settles in two hops.
const maxRedirects = 4

// Input is everything the guard looks at.
type Input struct {
	HasCredential  bool
	Role           user.Role
	IdentityLoaded bool
	Loading        bool
}

// Decision is the guard's answer for one route. Exactly one of Suspended,
// Redirect and View is meaningful: a suspended decision renders nothing, a
// redirect renders nothing and names the next route.
type Decision struct {
	View      View
	Redirect  Route
	Suspended bool
}

// Terminal reports whether the decision renders a view.
func (d Decision) Terminal() bool {
	return !d.Suspended && d.Redirect == ""
}

// InputFrom derives the guard input from a session snapshot.
func InputFrom(st session.State) Input {
	return Input{
		HasCredential:  st.HasCredential(),
		Role:           st.Role,
		IdentityLoaded: st.IdentityLoaded,
		Loading:        st.Loading,
	}
}

// Resolve decides what to show for route. It never renders a dashboard for
// a caller whose role does not match it.
func Resolve(in Input, route Route) Decision {
	if in.Loading {
		return Decision{Suspended: true}
	}
	if in.HasCredential && !in.IdentityLoaded && in.Role == "" {
		return Decision{Suspended: true}
	}

	switch route {
	case RouteRoot:
		if !in.HasCredential {
			return Decision{Redirect: RouteLogin}
		}
		return dashboard(in)
	case RouteLogin:
		if in.HasCredential {
			return dashboard(in)
		}
		return Decision{View: ViewLogin}
	case RouteRegister:
		if in.HasCredential {
			return dashboard(in)
		}
		return Decision{View: ViewRegister}
	case RouteUserDashboard:
		if in.Role == user.RoleUser {
			return Decision{View: ViewUserDashboard}
		}
		return Decision{Redirect: RouteRoot}
	case RouteAdminDashboard:
		if in.Role == user.RoleAdmin {
			return Decision{View: ViewAdminDashboard}
		}
		return Decision{Redirect: RouteRoot}
	default:
		return Decision{View: ViewNotFound}
	}
}

// dashboard sends a settled session to its role's home. An unknown role gets
// the login view in place rather than a redirect back to the root.
func dashboard(in Input) Decision {
	switch in.Role {
	case user.RoleAdmin:
		return Decision{Redirect: RouteAdminDashboard}
	case user.RoleUser:
		return Decision{Redirect: RouteUserDashboard}
	default:
		return Decision{View: ViewLogin}
	}
}

// Navigate follows redirects from route and returns the final route and its
// decision. A suspended decision stops the walk at the route that suspended.
func Navigate(in Input, route Route) (Route, Decision) {
	d := Resolve(in, route)
	for i := 0; i < maxRedirects && d.Redirect != ""; i++ {
		route = d.Redirect
		d = Resolve(in, route)
	}
	return route, d
}

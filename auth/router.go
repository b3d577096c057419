package auth

import "motorsporthub/models"

type View int

const (
	ViewHome View = iota
	ViewLogin
	ViewAdmin
)

const (
	PathHome  = "/"
	PathLogin = "/login"
	PathAdmin = "/dashboard"
)

func (v View) String() string {
	switch v {
	case ViewHome:
		return "home"
	case ViewLogin:
		return "login"
	case ViewAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an access check: either Allow, or a Redirect target.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision                 { return Decision{Allow: true} }
func redirect(target string) Decision { return Decision{Redirect: target} }

// Decide applies the access policy for view given the current session, which
// may be nil. The admin view requires the session's email to equal operator
// exactly.
func Decide(s *models.Session, operator string, view View) Decision {
	switch view {
	case ViewHome:
		return allow()
	case ViewLogin:
		if s == nil {
			return allow()
		}
		return redirect(PathAdmin)
	case ViewAdmin:
		if IsOperator(s, operator) {
			return allow()
		}
		return redirect(PathHome)
	default:
		return redirect(PathHome)
	}
}

// IsOperator reports whether s belongs to the operator identity.
func IsOperator(s *models.Session, operator string) bool {
	return s != nil && operator != "" && s.User.Email == operator
}

package policy

// Role is one of the fixed application roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCreator  Role = "creator"
	RoleReviewer Role = "reviewer"
	RoleViewer   Role = "viewer"
)

// Roles is the closed, ordered set of roles.
var Roles = []Role{RoleAdmin, RoleCreator, RoleReviewer, RoleViewer}

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	for _, known := range Roles {
		if known == r {
			return true
		}
	}
	return false
}

// Default returns a fresh copy of the seeded policy for the role. These are
// configuration data: admins get everything, creators can build but not
// administer, reviewers approve operational documents, viewers only look.
func Default(r Role) Policy {
	p := Empty()
	switch r {
	case RoleAdmin:
		for _, f := range Features {
			for _, a := range Actions {
				p[f.Key][a] = true
			}
		}
	case RoleCreator:
		for _, f := range Features {
			p[f.Key][ActionView] = true
			p[f.Key][ActionCreate] = true
			p[f.Key][ActionEdit] = true
			p[f.Key][ActionExport] = f.Key == FeatureReports
		}
		// administrative areas stay locked down
		p[FeatureUsers][ActionDelete] = false
		p[FeatureRoles][ActionDelete] = false
		p[FeaturePermissions][ActionDelete] = false
		p[FeatureRoles][ActionApprove] = false
		p[FeaturePermissions][ActionApprove] = false
	case RoleReviewer:
		for _, f := range Features {
			p[f.Key][ActionView] = true
			p[f.Key][ActionApprove] = f.Key != FeaturePermissions && f.Key != FeatureRoles
			p[f.Key][ActionExport] = f.Key == FeatureReports
		}
	case RoleViewer:
		for _, f := range Features {
			p[f.Key][ActionView] = true
			p[f.Key][ActionExport] = f.Key == FeatureReports
		}
	}
	return p
}

// Defaults returns fresh copies of every role's seeded policy.
func Defaults() map[Role]Policy {
	out := make(map[Role]Policy, len(Roles))
	for _, r := range Roles {
		out[r] = Default(r)
	}
	return out
}

package policy

import "fmt"

// Action is an operation a role may be granted on a feature.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionExport  Action = "export"
)

// Actions is the closed, ordered set of actions.
var Actions = []Action{
	ActionView,
	ActionCreate,
	ActionEdit,
	ActionDelete,
	ActionApprove,
	ActionExport,
}

// ActionDependencies maps each action to the actions that must be enabled
// alongside it. Defined once, never mutated. Every non-view action requires
// view; the propagation code walks this map generically so deeper chains
// would also work.
var ActionDependencies = map[Action][]Action{
	ActionView:    {},
	ActionCreate:  {ActionView},
	ActionEdit:    {ActionView},
	ActionDelete:  {ActionView},
	ActionApprove: {ActionView},
	ActionExport:  {ActionView},
}

// FeatureKey identifies a securable resource.
type FeatureKey string

const (
	FeatureUsers       FeatureKey = "users"
	FeatureRoles       FeatureKey = "roles"
	FeaturePermissions FeatureKey = "permissions"
	FeatureProducts    FeatureKey = "products"
	FeatureOrders      FeatureKey = "orders"
	FeatureInvoices    FeatureKey = "invoices"
	FeatureReports     FeatureKey = "reports"
)

// Feature describes one securable resource in the catalog.
type Feature struct {
	Key         FeatureKey `json:"key" bson:"key"`
	Label       string     `json:"label" bson:"label"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
}

// Features is the fixed, ordered catalog.
var Features = []Feature{
	{Key: FeatureUsers, Label: "Users", Description: "Manage user accounts"},
	{Key: FeatureRoles, Label: "Roles", Description: "Role definitions"},
	{Key: FeaturePermissions, Label: "Permissions", Description: "Access policies"},
	{Key: FeatureProducts, Label: "Products", Description: "Catalog items"},
	{Key: FeatureOrders, Label: "Orders", Description: "Sales orders"},
	{Key: FeatureInvoices, Label: "Invoices", Description: "Billing docs"},
	{Key: FeatureReports, Label: "Reports", Description: "Operational reports"},
}

// Policy is one role's full feature x action authorization grid. Every
// feature and action has an explicit entry.
type Policy map[FeatureKey]map[Action]bool

// Empty returns a policy with every feature x action set to false.
func Empty() Policy {
	p := make(Policy, len(Features))
	for _, f := range Features {
		grid := make(map[Action]bool, len(Actions))
		for _, a := range Actions {
			grid[a] = false
		}
		p[f.Key] = grid
	}
	return p
}

// Clone returns a deep copy of p.
func (p Policy) Clone() Policy {
	next := make(Policy, len(p))
	for key, grid := range p {
		cp := make(map[Action]bool, len(grid))
		for a, v := range grid {
			cp[a] = v
		}
		next[key] = cp
	}
	return next
}

// ValidFeature reports whether key belongs to the catalog.
func ValidFeature(key FeatureKey) bool {
	for _, f := range Features {
		if f.Key == key {
			return true
		}
	}
	return false
}

// ValidAction reports whether a belongs to the action set.
func ValidAction(a Action) bool {
	_, ok := ActionDependencies[a]
	return ok
}

func mustBeValid(feature FeatureKey, action Action) {
	if !ValidFeature(feature) {
		panic(fmt.Sprintf("policy: unknown feature %q", feature))
	}
	if !ValidAction(action) {
		panic(fmt.Sprintf("policy: unknown action %q", action))
	}
}

// ApplyToggle returns a new policy with one cell set to value, propagating
// dependencies: enabling an action also enables everything it depends on;
// disabling an action also disables every action that depends on it. The
// input is never mutated. Unknown feature or action is a programming error.
func ApplyToggle(p Policy, feature FeatureKey, action Action, value bool) Policy {
	mustBeValid(feature, action)

	next := p.Clone()
	next[feature][action] = value

	if value {
		for _, dep := range ActionDependencies[action] {
			next[feature][dep] = true
		}
		return next
	}

	for _, a := range Actions {
		if a == action {
			continue
		}
		for _, dep := range ActionDependencies[a] {
			if dep == action {
				next[feature][a] = false
			}
		}
	}
	return next
}

// SetRow returns a new policy with every action of one feature set to value.
// Enabling a row forces view true so the dependency invariant holds even if
// the action set ever stops including view.
func SetRow(p Policy, feature FeatureKey, value bool) Policy {
	mustBeValid(feature, ActionView)

	next := p.Clone()
	for _, a := range Actions {
		next[feature][a] = value
	}
	if value {
		next[feature][ActionView] = true
	}
	return next
}

// SetColumn returns a new policy with one action set to value across every
// feature. Enabling pulls in each feature's dependencies; disabling an action
// that others depend on clears those dependents feature by feature.
func SetColumn(p Policy, action Action, value bool) Policy {
	mustBeValid(Features[0].Key, action)

	next := p.Clone()
	for _, f := range Features {
		next[f.Key][action] = value
		if value {
			for _, dep := range ActionDependencies[action] {
				next[f.Key][dep] = true
			}
			continue
		}
		for _, a := range Actions {
			if a == action {
				continue
			}
			for _, dep := range ActionDependencies[a] {
				if dep == action {
					next[f.Key][a] = false
				}
			}
		}
	}
	return next
}

// RowAll reports whether every action of the feature is enabled.
func RowAll(p Policy, feature FeatureKey) bool {
	for _, a := range Actions {
		if !p[feature][a] {
			return false
		}
	}
	return true
}

// RowIndeterminate reports whether the feature has some but not all actions
// enabled. Derived on demand, never stored.
func RowIndeterminate(p Policy, feature FeatureKey) bool {
	count := 0
	for _, a := range Actions {
		if p[feature][a] {
			count++
		}
	}
	return count > 0 && count < len(Actions)
}

// ColumnAll reports whether the action is enabled for every feature.
func ColumnAll(p Policy, action Action) bool {
	for _, f := range Features {
		if !p[f.Key][action] {
			return false
		}
	}
	return true
}

// ColumnIndeterminate reports whether the action is enabled for some but not
// all features.
func ColumnIndeterminate(p Policy, action Action) bool {
	count := 0
	for _, f := range Features {
		if p[f.Key][action] {
			count++
		}
	}
	return count > 0 && count < len(Features)
}

package policy

import (
	"encoding/json"
	"reflect"
	"testing"
)

func snapshot(t *testing.T, p Policy) string {
	t.Helper()
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal policy: %v", err)
	}
	return string(b)
}

// checkClosure fails if any feature has a non-view action enabled while view
// is disabled.
func checkClosure(t *testing.T, p Policy) {
	t.Helper()
	for _, f := range Features {
		for _, a := range Actions {
			if a == ActionView {
				continue
			}
			if p[f.Key][a] && !p[f.Key][ActionView] {
				t.Errorf("feature %s: action %s enabled without view", f.Key, a)
			}
		}
	}
}

func TestEmpty(t *testing.T) {
	p := Empty()
	if len(p) != len(Features) {
		t.Fatalf("expected %d features, got %d", len(Features), len(p))
	}
	for _, f := range Features {
		grid, ok := p[f.Key]
		if !ok {
			t.Fatalf("missing feature %s", f.Key)
		}
		if len(grid) != len(Actions) {
			t.Fatalf("feature %s: expected %d actions, got %d", f.Key, len(Actions), len(grid))
		}
		for _, a := range Actions {
			if grid[a] {
				t.Errorf("feature %s action %s: expected false", f.Key, a)
			}
		}
	}
}

func TestApplyToggleEnableSetsDependency(t *testing.T) {
	p := Empty()
	got := ApplyToggle(p, FeatureReports, ActionExport, true)

	if !got[FeatureReports][ActionExport] {
		t.Error("export should be enabled")
	}
	if !got[FeatureReports][ActionView] {
		t.Error("view should be forced on by the export dependency")
	}
	checkClosure(t, got)
}

func TestApplyToggleDisableViewCascades(t *testing.T) {
	p := Empty()
	p = ApplyToggle(p, FeatureOrders, ActionCreate, true)
	p = ApplyToggle(p, FeatureOrders, ActionApprove, true)
	// sanity: view was pulled in
	if !p[FeatureOrders][ActionView] {
		t.Fatal("setup: view should be on")
	}

	got := ApplyToggle(p, FeatureOrders, ActionView, false)
	for _, a := range []Action{ActionView, ActionCreate, ActionApprove} {
		if got[FeatureOrders][a] {
			t.Errorf("orders %s: expected false after view disabled", a)
		}
	}
	// other features untouched
	for _, f := range Features {
		if f.Key == FeatureOrders {
			continue
		}
		if !reflect.DeepEqual(got[f.Key], p[f.Key]) {
			t.Errorf("feature %s changed by a toggle on orders", f.Key)
		}
	}
}

func TestApplyToggleDisableNonViewLeavesRest(t *testing.T) {
	p := Default(RoleAdmin)
	got := ApplyToggle(p, FeatureInvoices, ActionDelete, false)
	if got[FeatureInvoices][ActionDelete] {
		t.Error("delete should be off")
	}
	for _, a := range []Action{ActionView, ActionCreate, ActionEdit, ActionApprove, ActionExport} {
		if !got[FeatureInvoices][a] {
			t.Errorf("invoices %s: should remain enabled", a)
		}
	}
}

func TestApplyTogglePure(t *testing.T) {
	p := Default(RoleCreator)
	before := snapshot(t, p)
	_ = ApplyToggle(p, FeatureUsers, ActionView, false)
	_ = ApplyToggle(p, FeatureReports, ActionExport, true)
	if after := snapshot(t, p); after != before {
		t.Errorf("input policy mutated:\nbefore %s\nafter  %s", before, after)
	}
}

func TestApplyToggleIdempotent(t *testing.T) {
	cases := []struct {
		name    string
		feature FeatureKey
		action  Action
		value   bool
	}{
		{"enable dependent", FeatureReports, ActionExport, true},
		{"disable view", FeatureOrders, ActionView, false},
		{"enable view", FeatureUsers, ActionView, true},
		{"disable dependent", FeatureInvoices, ActionApprove, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Default(RoleReviewer)
			once := ApplyToggle(p, tc.feature, tc.action, tc.value)
			twice := ApplyToggle(once, tc.feature, tc.action, tc.value)
			if !reflect.DeepEqual(once, twice) {
				t.Errorf("second application changed the policy")
			}
		})
	}
}

func TestApplyToggleUnknownInputsPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on unknown feature")
		}
	}()
	ApplyToggle(Empty(), "shipping", ActionView, true)
}

func TestSetRow(t *testing.T) {
	p := Empty()
	got := SetRow(p, FeatureProducts, true)
	if !RowAll(got, FeatureProducts) {
		t.Error("row should be fully enabled")
	}
	checkClosure(t, got)

	got = SetRow(got, FeatureProducts, false)
	for _, a := range Actions {
		if got[FeatureProducts][a] {
			t.Errorf("products %s: expected false", a)
		}
	}
}

func TestSetColumnEnable(t *testing.T) {
	p := Empty()
	got := SetColumn(p, ActionApprove, true)
	for _, f := range Features {
		if !got[f.Key][ActionApprove] {
			t.Errorf("%s: approve should be on", f.Key)
		}
		if !got[f.Key][ActionView] {
			t.Errorf("%s: view should be forced on", f.Key)
		}
	}
	checkClosure(t, got)
}

func TestSetColumnDisableNonViewTouchesOneColumn(t *testing.T) {
	p := Default(RoleAdmin)
	got := SetColumn(p, ActionDelete, false)
	for _, f := range Features {
		if got[f.Key][ActionDelete] {
			t.Errorf("%s: delete should be off", f.Key)
		}
		for _, a := range []Action{ActionView, ActionCreate, ActionEdit, ActionApprove, ActionExport} {
			if !got[f.Key][a] {
				t.Errorf("%s %s: should be untouched", f.Key, a)
			}
		}
	}
}

func TestSetColumnDisableViewCascades(t *testing.T) {
	p := Default(RoleAdmin)
	got := SetColumn(p, ActionView, false)
	for _, f := range Features {
		for _, a := range Actions {
			if got[f.Key][a] {
				t.Errorf("%s %s: expected false after view column disabled", f.Key, a)
			}
		}
	}
}

func TestRowColumnProjections(t *testing.T) {
	p := Empty()
	if RowIndeterminate(p, FeatureUsers) {
		t.Error("empty row should not be indeterminate")
	}
	p = ApplyToggle(p, FeatureUsers, ActionCreate, true) // view + create
	if !RowIndeterminate(p, FeatureUsers) {
		t.Error("partial row should be indeterminate")
	}
	if RowAll(p, FeatureUsers) {
		t.Error("partial row should not report all")
	}

	p = SetRow(p, FeatureUsers, true)
	if !RowAll(p, FeatureUsers) || RowIndeterminate(p, FeatureUsers) {
		t.Error("full row should report all and not indeterminate")
	}

	if ColumnAll(p, ActionView) {
		t.Error("view column should not be all with other rows empty")
	}
	if !ColumnIndeterminate(p, ActionView) {
		t.Error("view column should be indeterminate")
	}
	p = SetColumn(p, ActionView, true)
	if !ColumnAll(p, ActionView) || ColumnIndeterminate(p, ActionView) {
		t.Error("view column should report all")
	}
}

func TestDefaultsHoldClosure(t *testing.T) {
	for role, p := range Defaults() {
		t.Run(string(role), func(t *testing.T) {
			checkClosure(t, p)
		})
	}
}

func TestDefaultsAreIndependentCopies(t *testing.T) {
	a := Default(RoleViewer)
	b := Default(RoleViewer)
	a[FeatureReports][ActionExport] = false
	if !b[FeatureReports][ActionExport] {
		t.Error("mutating one default copy affected another")
	}
}

func TestDefaultShapes(t *testing.T) {
	admin := Default(RoleAdmin)
	for _, f := range Features {
		if !RowAll(admin, f.Key) {
			t.Errorf("admin %s: expected full row", f.Key)
		}
	}

	creator := Default(RoleCreator)
	if creator[FeatureUsers][ActionDelete] || creator[FeatureRoles][ActionApprove] {
		t.Error("creator should not delete users or approve roles")
	}
	if !creator[FeatureOrders][ActionCreate] || !creator[FeatureReports][ActionExport] {
		t.Error("creator should create orders and export reports")
	}
	if creator[FeatureInvoices][ActionExport] {
		t.Error("creator export is limited to reports")
	}

	reviewer := Default(RoleReviewer)
	if reviewer[FeaturePermissions][ActionApprove] || reviewer[FeatureRoles][ActionApprove] {
		t.Error("reviewer must not approve roles or permissions")
	}
	if !reviewer[FeatureOrders][ActionApprove] {
		t.Error("reviewer should approve orders")
	}

	viewer := Default(RoleViewer)
	for _, f := range Features {
		if !viewer[f.Key][ActionView] {
			t.Errorf("viewer %s: view expected", f.Key)
		}
		if viewer[f.Key][ActionCreate] || viewer[f.Key][ActionDelete] {
			t.Errorf("viewer %s: unexpected write grant", f.Key)
		}
	}
	if !viewer[FeatureReports][ActionExport] {
		t.Error("viewer should export reports")
	}
}

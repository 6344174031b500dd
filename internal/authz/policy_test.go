package authz

import (
	"testing"
)

func TestAuthorizeMatrix(t *testing.T) {
	tests := []struct {
		role Role
		want map[Action]bool
	}{
		{
			role: RoleAdmin,
			want: map[Action]bool{ActionView: true, ActionEdit: true, ActionReveal: true, ActionDelete: true},
		},
		{
			role: RoleGestor,
			want: map[Action]bool{ActionView: true, ActionEdit: true, ActionReveal: true, ActionDelete: true},
		},
		{
			role: RoleEditor,
			want: map[Action]bool{ActionView: true, ActionEdit: true, ActionReveal: true, ActionDelete: false},
		},
		{
			role: RoleViewer,
			want: map[Action]bool{ActionView: true, ActionEdit: false, ActionReveal: false, ActionDelete: false},
		},
		{
			role: Role("stagiaire"),
			want: map[Action]bool{ActionView: false, ActionEdit: false, ActionReveal: false, ActionDelete: false},
		},
		{
			role: Role(""),
			want: map[Action]bool{ActionView: false, ActionEdit: false, ActionReveal: false, ActionDelete: false},
		},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			for action, want := range tc.want {
				if got := Authorize(tc.role, action); got != want {
					t.Errorf("Authorize(%q, %q) = %v, want %v", tc.role, action, got, want)
				}
			}
		})
	}
}

// The subset invariants must hold for every role, known or not:
// reveal implies view, delete implies edit, edit implies view.
func TestAuthorizeSubsetInvariants(t *testing.T) {
	roles := append(Roles(), Role("unknown"), Role(""))

	for _, r := range roles {
		if Authorize(r, ActionReveal) && !Authorize(r, ActionView) {
			t.Errorf("role %q can reveal but not view", r)
		}
		if Authorize(r, ActionDelete) && !Authorize(r, ActionEdit) {
			t.Errorf("role %q can delete but not edit", r)
		}
		if Authorize(r, ActionEdit) && !Authorize(r, ActionView) {
			t.Errorf("role %q can edit but not view", r)
		}
	}
}

func TestAuthorizeUnknownAction(t *testing.T) {
	for _, r := range Roles() {
		if Authorize(r, Action("export")) {
			t.Errorf("unknown action authorized for role %q", r)
		}
	}
}

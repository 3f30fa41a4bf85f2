package profiles

import "testing"

func TestRoleOrdering(t *testing.T) {
	order := []Role{RoleStaff, RoleManager, RoleCentral, RoleAdmin}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("%s should rank above %s", order[i], order[i-1])
		}
	}
}

func TestRoleAtLeast(t *testing.T) {
	cases := []struct {
		role, min Role
		want      bool
	}{
		{RoleStaff, RoleManager, false},
		{RoleManager, RoleManager, true},
		{RoleCentral, RoleManager, true},
		{RoleAdmin, RoleCentral, true},
		{RoleStaff, RoleStaff, true},
		{Role("ghost"), RoleStaff, false},
	}
	for _, c := range cases {
		if got := c.role.AtLeast(c.min); got != c.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", c.role, c.min, got, c.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleStaff, RoleManager, RoleCentral, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("owner").Valid() {
		t.Error("unknown role should not be valid")
	}
}

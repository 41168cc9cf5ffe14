package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "procura/pkg/domain"
	dErrors "procura/pkg/domain-errors"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"ADMIN", "MANAGER", "EMPLOYEE"} {
		r, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, r.String())
	}

	_, err := ParseRole("manager")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestParseStatus(t *testing.T) {
	_, err := ParseStatus("SUSPENDED")
	require.Error(t, err)

	st, err := ParseStatus("INACTIVE")
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, st)
}

func TestUser_IsEligibleManager(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want bool
	}{
		{"active manager", &User{Role: RoleManager, Status: StatusActive}, true},
		{"inactive manager", &User{Role: RoleManager, Status: StatusInactive}, false},
		{"active employee", &User{Role: RoleEmployee, Status: StatusActive}, false},
		{"active admin", &User{Role: RoleAdmin, Status: StatusActive}, false},
		{"nil user", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.IsEligibleManager())
		})
	}
}

func TestSameAssignment(t *testing.T) {
	a := id.NewUserID()
	b := id.NewUserID()
	aCopy := a

	assert.True(t, SameAssignment(nil, nil))
	assert.True(t, SameAssignment(&a, &aCopy))
	assert.False(t, SameAssignment(&a, nil))
	assert.False(t, SameAssignment(nil, &b))
	assert.False(t, SameAssignment(&a, &b))
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ana", (&User{Name: "Ana", Email: "ana@example.com"}).DisplayName())
	assert.Equal(t, "ana@example.com", (&User{Email: "ana@example.com"}).DisplayName())
}

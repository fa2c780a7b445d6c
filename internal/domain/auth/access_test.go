package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func memberUser(memberID *int64) *User {
	return &User{Username: "m", Role: RoleMember, MemberID: memberID, Active: true}
}

func TestCanAccessMemberData(t *testing.T) {
	linked := int64(42)

	tests := []struct {
		name     string
		user     *User
		memberID int64
		want     bool
	}{
		{"admin passes regardless of linkage", &User{Role: RoleAdmin}, 7, true},
		{"pastor passes regardless of linkage", &User{Role: RolePastor}, 7, true},
		{"member passes for own record", memberUser(&linked), 42, true},
		{"member denied for other record", memberUser(&linked), 7, false},
		{"unlinked member denied", memberUser(nil), 42, false},
		{"nil user denied", nil, 42, false},
		{"unknown role denied", &User{Role: Role("typo"), MemberID: &linked}, 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessMemberData(tt.user, tt.memberID))
		})
	}
}

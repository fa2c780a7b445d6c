package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRole_Level(t *testing.T) {
	tests := []struct {
		role Role
		want int
	}{
		{RoleAdmin, LevelAdmin},
		{RolePastor, LevelPastor},
		{RoleMember, LevelMember},
		{Role("superuser"), 0},
		{Role(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Level())
		})
	}
}

func TestRole_HasPermission(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		required int
		want     bool
	}{
		{"admin meets admin level", RoleAdmin, LevelAdmin, true},
		{"admin meets member level", RoleAdmin, LevelMember, true},
		{"pastor meets pastor level", RolePastor, LevelPastor, true},
		{"pastor below admin level", RolePastor, LevelAdmin, false},
		{"member meets member level", RoleMember, LevelMember, true},
		{"member below pastor level", RoleMember, LevelPastor, false},
		{"unknown role fails every level", Role("typo"), LevelMember, false},
		{"empty role fails", Role(""), LevelMember, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.HasPermission(tt.required))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("pastor")
	assert.True(t, ok)
	assert.Equal(t, RolePastor, role)

	_, ok = ParseRole("deacon")
	assert.False(t, ok)
}

func TestSession_ExpiredAt(t *testing.T) {
	now := time.Now()
	sess := Session{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, sess.ExpiredAt(now))
	assert.True(t, sess.ExpiredAt(now.Add(time.Minute)))
	assert.True(t, sess.ExpiredAt(now.Add(2*time.Minute)))
}

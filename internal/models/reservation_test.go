package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlapsHalfOpen(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 string
		want           bool
	}{
		{"identical", "10:00", "11:00", "10:00", "11:00", true},
		{"partial tail", "10:00", "11:00", "10:30", "11:30", true},
		{"partial head", "10:00", "11:00", "09:30", "10:30", true},
		{"contained", "10:00", "11:00", "10:15", "10:45", true},
		{"containing", "10:15", "10:45", "10:00", "11:00", true},
		{"touching after", "10:00", "11:00", "11:00", "12:00", false},
		{"touching before", "10:00", "11:00", "09:00", "10:00", false},
		{"disjoint", "10:00", "11:00", "13:00", "14:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(at(tc.s1), at(tc.e1), at(tc.s2), at(tc.e2))
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want, Overlaps(at(tc.s2), at(tc.e2), at(tc.s1), at(tc.e1)), "symmetric")
		})
	}
}

func TestUserRoleCanBook(t *testing.T) {
	assert.True(t, RoleMember.CanBook())
	assert.True(t, RoleAdmin.CanBook())
	assert.True(t, ParseUserRole(" staff ").CanBook())
	assert.False(t, RoleGuest.CanBook())
	assert.False(t, ParseUserRole("guest").CanBook())
	assert.False(t, UserRole("").CanBook())
	assert.False(t, UserRole("VISITOR").CanBook())
}

package auth

// CanAccessMemberData decides whether a user may read or modify the member
// record identified by memberID. Admins and pastors always pass. A member
// passes only when their linked member profile is the target. Everything
// else, including a nil user or a member with no linked profile, fails
// closed.
func CanAccessMemberData(u *User, memberID int64) bool {
	if u == nil {
		return false
	}

	switch u.Role {
	case RoleAdmin, RolePastor:
		return true
	case RoleMember:
		return u.MemberID != nil && *u.MemberID == memberID
	default:
		return false
	}
}

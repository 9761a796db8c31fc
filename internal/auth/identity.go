package auth

import "feedesk/internal/domain"

// Identity is the authenticated caller, passed explicitly into service calls.
type Identity struct {
	StudentID uint
	Email     string
	Role      string
}

func StudentIdentity(id uint, email string) Identity {
	return Identity{StudentID: id, Email: email, Role: domain.RoleStudent}
}

func AdminIdentity(email string) Identity {
	return Identity{Email: email, Role: domain.RoleAdmin}
}

func (c *Claims) Identity() Identity {
	return Identity{StudentID: c.StudentID, Email: c.Email, Role: c.Role}
}

func (i Identity) IsStudent() bool { return i.Role == domain.RoleStudent && i.Email != "" }

func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

// RequireStudent returns domain.ErrUnauthorized unless i is a student.
func (i Identity) RequireStudent() error {
	if !i.IsStudent() {
		return domain.ErrUnauthorized
	}
	return nil
}

func (i Identity) RequireAdmin() error {
	if !i.IsAdmin() {
		return domain.ErrUnauthorized
	}
	return nil
}

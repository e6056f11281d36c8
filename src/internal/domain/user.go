package domain

import (
	"encoding/json"
	"strings"
)

// UserProfile is the server-defined user object. Known fields are typed;
// anything else the backend sends is kept in Extra so the object survives a
// persist/restore round trip unchanged.
type UserProfile struct {
	ID        int64  `json:"id" validate:"required"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Role      string `json:"userRole,omitempty"`
	Avatar    string `json:"avatar,omitempty"`

	Extra map[string]interface{} `json:"-"`
}

const (
	RoleStudent = "Student"
	RoleTeacher = "Teacher"
)

var userKnownFields = []string{"id", "username", "first_name", "last_name", "email", "userRole", "avatar"}

type userAlias UserProfile

func (u *UserProfile) UnmarshalJSON(data []byte) error {
	var a userAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range userKnownFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*u = UserProfile(a)
	return nil
}

func (u UserProfile) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(userAlias(u))
	if err != nil {
		return nil, err
	}
	if len(u.Extra) == 0 {
		return known, nil
	}
	out := make(map[string]interface{}, len(u.Extra)+len(userKnownFields))
	for k, v := range u.Extra {
		out[k] = v
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// DisplayName prefers the full name, then the username, then a "name" field
// the backend may send.
func (u *UserProfile) DisplayName() string {
	if u == nil {
		return ""
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	if u.Username != "" {
		return u.Username
	}
	if name, ok := u.Extra["name"].(string); ok {
		return name
	}
	return ""
}

func (u *UserProfile) IsTeacher() bool {
	return u != nil && strings.EqualFold(u.Role, RoleTeacher)
}

// ProfileUpdate carries the editable profile fields. Empty fields are not
// sent.
type ProfileUpdate struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Avatar    string `json:"avatar,omitempty" validate:"omitempty,url"`
}

// Registration is the sign-up payload for a new learner or lecturer.
type Registration struct {
	Role      string `json:"-" validate:"required,oneof=student teacher"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

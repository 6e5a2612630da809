package entity

import "time"

// DefaultAvatarKey is the object-store key used when a profile has no avatar.
const DefaultAvatarKey = "avatars/default_avatar.png"

// Profile holds the public-facing details of a user. Exactly one per user.
type Profile struct {
	ID         string
	UserID     string
	Avatar     string
	Bio        string
	WebsiteURL string
	BirthDate  *time.Time
	Location   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewProfile returns the empty profile provisioned for a new user.
func NewProfile(userID string) *Profile {
	return &Profile{UserID: userID, Avatar: DefaultAvatarKey}
}

// AvatarKey returns the stored avatar key or the default one.
func (p *Profile) AvatarKey() string {
	if p == nil || p.Avatar == "" {
		return DefaultAvatarKey
	}
	return p.Avatar
}

// FullName is "first last" when both parts are set, otherwise the username.
func FullName(u *User) string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Username
}

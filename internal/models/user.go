package models

import "fmt"

// User owns registered channels and groups. The ID is the string form of the
// Telegram user id, matching the snapshot layout.
type User struct {
	ID string `json:"userId" gorm:"primaryKey;column:user_id" bson:"user_id"`

	ChannelCount int `json:"channelCount" bson:"channel_count"`
	GroupCount   int `json:"groupCount" bson:"group_count"`

	IsBanned bool `json:"isBanned" bson:"is_banned"`
}

func NewUser(id string) *User {
	return &User{ID: id}
}

// OwnedCount returns the quota counter for one entity kind.
func (u *User) OwnedCount(kind Kind) int {
	if kind == KindChannel {
		return u.ChannelCount
	}
	return u.GroupCount
}

// IncrementOwned bumps the quota counter for one entity kind.
func (u *User) IncrementOwned(kind Kind) {
	if kind == KindChannel {
		u.ChannelCount++
		return
	}
	u.GroupCount++
}

func (u *User) String() string {
	return fmt.Sprintf(
		"User(%s, channels=%d, groups=%d, banned=%v)",
		u.ID,
		u.ChannelCount,
		u.GroupCount,
		u.IsBanned,
	)
}

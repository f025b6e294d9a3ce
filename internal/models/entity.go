package models

import (
	"fmt"
	"strconv"

	"gopkg.in/telebot.v4"
)

// Kind tags the two promotable entity categories. It is resolved once from
// the Telegram chat type when an update is ingested; no chat-type strings
// appear past that point.
type Kind string

const (
	KindChannel Kind = "channel"
	KindGroup   Kind = "group"
)

func Kinds() []Kind {
	return []Kind{KindChannel, KindGroup}
}

// KindFromChatType maps a Telegram chat type to an entity kind. Private chats
// and anything else unknown report ok=false.
func KindFromChatType(t telebot.ChatType) (Kind, bool) {
	switch t {
	case telebot.ChatChannel, telebot.ChatChannelPrivate:
		return KindChannel, true
	case telebot.ChatGroup, telebot.ChatSuperGroup:
		return KindGroup, true
	default:
		return "", false
	}
}

// Entity is a registered channel or group eligible for cross-promotion.
// MemberCount is a snapshot taken at registration time and is only used to
// compute Category; the category is never recomputed afterwards.
type Entity struct {
	ID          string `json:"id" gorm:"primaryKey" bson:"id"`
	Title       string `json:"title" bson:"title"`
	MemberCount int    `json:"memberCount" bson:"member_count"`
	Category    Tier   `json:"category" bson:"category"`
	OwnerID     string `json:"ownerId" gorm:"index" bson:"owner_id"`
	Username    string `json:"username,omitempty" bson:"username,omitempty"`
	IsApproved  bool   `json:"isApproved" bson:"is_approved"`
	InviteLink  string `json:"inviteLink" bson:"invite_link"`
}

// ChatID returns the entity id as the numeric Telegram recipient.
func (e *Entity) ChatID() (telebot.ChatID, error) {
	id, err := strconv.ParseInt(e.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing entity id %q: %w", e.ID, err)
	}
	return telebot.ChatID(id), nil
}

func (e *Entity) String() string {
	return fmt.Sprintf(
		"Entity(%s, %q, members=%d, tier=%s, approved=%v)",
		e.ID,
		e.Title,
		e.MemberCount,
		e.Category,
		e.IsApproved,
	)
}

package model

import (
	"strings"
	"time"

	"telegram-vpn-orders/internal/domain"
)

// ChatUser is a conversation participant as identified by the messaging platform.
// It is created on first sight and only its LastActiveAt moves afterwards.
type ChatUser struct {
	ID           int64
	TelegramID   string
	Username     string
	FirstName    string
	LastName     string
	JoinedAt     time.Time
	LastActiveAt time.Time
}

func NewChatUser(telegramID, username, firstName, lastName string) (*ChatUser, error) {
	telegramID = strings.TrimSpace(telegramID)
	if telegramID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &ChatUser{
		TelegramID:   telegramID,
		Username:     strings.TrimSpace(username),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		JoinedAt:     now,
		LastActiveAt: now,
	}, nil
}

// DisplayName prefers @username, then the full name, then the raw id.
func (u *ChatUser) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.TelegramID
}

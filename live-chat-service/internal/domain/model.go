package domain

import (
	"time"
)

// UserModel is the read side of the users table. Rows are owned by the
// user service; this service only reads nickname and chat colour.
type UserModel struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Nickname  string `gorm:"type:varchar(50);not null"`
	ChatColor string `gorm:"type:varchar(16)"`
}

// TableName specifies the table name for UserModel.
func (UserModel) TableName() string {
	return "users"
}

// ChatMessageModel is the GORM model for the chats table.
type ChatMessageModel struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	Room      string     `gorm:"type:varchar(100);index:idx_chats_room_created,priority:1;not null"`
	Message   string     `gorm:"type:text;not null"`
	UserID    string     `gorm:"type:varchar(36);index;not null"`
	User      *UserModel `gorm:"foreignKey:UserID;references:ID"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index:idx_chats_room_created,priority:2"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ChatMessageModel.
func (ChatMessageModel) TableName() string {
	return "chats"
}

// ToView converts ChatMessageModel to a transcript row. User fields are
// empty when the user row was not loaded or does not exist.
func (m *ChatMessageModel) ToView() ChatMessageView {
	view := ChatMessageView{
		ID:        m.ID,
		Room:      m.Room,
		Message:   m.Message,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		view.Nickname = m.User.Nickname
		view.ChatColor = m.User.ChatColor
	}
	return view
}

// ChatMessageToModel converts a domain ChatMessage to ChatMessageModel.
func ChatMessageToModel(msg *ChatMessage) *ChatMessageModel {
	return &ChatMessageModel{
		ID:        msg.ID,
		Room:      msg.Room,
		Message:   msg.Message,
		UserID:    msg.UserID,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}
}

package models

import (
	"encoding/json"
	"time"
)

type Bot struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Platform    string          `json:"platform"`
	Settings    json.RawMessage `json:"settings"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type BotNode struct {
	ID        int64           `json:"id"`
	BotID     int64           `json:"bot_id"`
	NodeType  string          `json:"node_type"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	PositionX float64         `json:"position_x"`
	PositionY float64         `json:"position_y"`
	CreatedAt time.Time       `json:"created_at"`
}

type BotConnection struct {
	ID             int64     `json:"id"`
	BotID          int64     `json:"bot_id"`
	SourceNodeID   int64     `json:"source_node_id"`
	TargetNodeID   int64     `json:"target_node_id"`
	ConditionType  *string   `json:"condition_type"`
	ConditionValue *string   `json:"condition_value"`
	CreatedAt      time.Time `json:"created_at"`
}

type Block struct {
	ID        int64           `json:"id"`
	PageID    int64           `json:"page_id"`
	Type      string          `json:"type"`
	Content   json.RawMessage `json:"content"`
	Styles    json.RawMessage `json:"styles"`
	Position  int             `json:"position"`
	ParentID  *int64          `json:"parent_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type BlockUpdate struct {
	Content  json.RawMessage `json:"content"`
	Styles   json.RawMessage `json:"styles"`
	Position *int            `json:"position"`
}

func (u BlockUpdate) Empty() bool { return u.Content == nil && u.Styles == nil && u.Position == nil }

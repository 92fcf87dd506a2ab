package domain

import "time"

// ChatType classifies the conversation context.
type ChatType string

const (
	ChatTypeDM    ChatType = "dm"
	ChatTypeGroup ChatType = "group"
)

// InboundMessage is a message received from a channel.
type InboundMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channelId"`
	From      string    `json:"from"`
	FromName  string    `json:"fromName,omitempty"`
	ChatID    string    `json:"chatId"`
	ChatType  ChatType  `json:"chatType"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// OutboundMessage is a message to be sent via a channel.
type OutboundMessage struct {
	ChannelID string `json:"channelId"`
	To        string `json:"to"`
	Body      string `json:"body"`
}

// ChatRequest is the body of the chat endpoint.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// ChatReply is what the chat endpoint returns.
type ChatReply struct {
	Reply  string `json:"reply"`
	MapURL string `json:"map_url,omitempty"`
}

package routing

import "github.com/soyeahso/mrbooky/internal/domain"

// Session scopes for channel conversations.
const (
	ScopePerSender = "per-sender"
	ScopeGlobal    = "global"
)

// ResolveSessionKey builds a session key from an inbound message.
//
// Scopes:
//   - "per-sender": each dispatcher gets their own session per room (default)
//   - "global": everyone in a room shares one session
//
// Direct messages are always per sender.
func ResolveSessionKey(msg domain.InboundMessage, scope string) domain.SessionKey {
	key := domain.SessionKey{
		ChannelID: msg.ChannelID,
		ChatID:    msg.ChatID,
	}
	if scope != ScopeGlobal || msg.ChatType == domain.ChatTypeDM {
		key.SenderID = msg.From
	}
	return key
}

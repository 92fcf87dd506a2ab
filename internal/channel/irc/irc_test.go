package irc

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestNew(t *testing.T) {
	ch := New(config.IRCConfig{Server: "irc.libera.chat", Nick: "mrbooky", Channels: []string{"#taxi"}}, testLogger())
	assert.Equal(t, "irc", ch.ID())
}

func TestDispatchRoom(t *testing.T) {
	assert.Equal(t, "#dispatch", New(config.IRCConfig{Channels: []string{"#taxi"}, DispatchChannel: "#dispatch"}, testLogger()).DispatchRoom())
	assert.Equal(t, "#taxi", New(config.IRCConfig{Channels: []string{"#taxi", "#ops"}}, testLogger()).DispatchRoom())
	assert.Empty(t, New(config.IRCConfig{}, testLogger()).DispatchRoom())
}

func TestRoomsIncludeDispatch(t *testing.T) {
	ch := New(config.IRCConfig{Channels: []string{"#taxi", "#Dispatch"}, DispatchChannel: "#dispatch"}, testLogger())
	assert.Equal(t, []string{"#taxi", "#Dispatch"}, ch.rooms())

	ch = New(config.IRCConfig{Channels: []string{"#taxi"}, DispatchChannel: "#dispatch"}, testLogger())
	assert.Equal(t, []string{"#taxi", "#dispatch"}, ch.rooms())
}

func TestDefaultPorts(t *testing.T) {
	assert.Equal(t, 6697, New(config.IRCConfig{UseTLS: true}, testLogger()).port())
	assert.Equal(t, 6667, New(config.IRCConfig{}, testLogger()).port())
	assert.Equal(t, 7000, New(config.IRCConfig{Port: 7000, UseTLS: true}, testLogger()).port())
}

func TestStatus_NotStarted(t *testing.T) {
	status := New(config.IRCConfig{}, testLogger()).Status()

	assert.Equal(t, "irc", status.ChannelID)
	assert.False(t, status.Connected)
	assert.False(t, status.Running)
	assert.Empty(t, status.LastError)
}

func TestDeliverInbound(t *testing.T) {
	ch := New(config.IRCConfig{}, testLogger())

	var received domain.InboundMessage
	ch.OnMessage(func(msg domain.InboundMessage) {
		received = msg
	})
	ch.deliverInbound("maria", "#dispatch", domain.ChatTypeGroup, "πόσο για Αθήνα")

	assert.NotEmpty(t, received.ID)
	assert.Equal(t, "irc", received.ChannelID)
	assert.Equal(t, "maria", received.From)
	assert.Equal(t, "#dispatch", received.ChatID)
	assert.Equal(t, domain.ChatTypeGroup, received.ChatType)
	assert.Equal(t, "πόσο για Αθήνα", received.Body)
}

func TestAddressedTo(t *testing.T) {
	tests := []struct {
		body string
		want string
		ok   bool
	}{
		{"mrbooky: πόσο για Αθήνα", "πόσο για Αθήνα", true},
		{"MrBooky, τηλέφωνο", "τηλέφωνο", true},
		{"mrbooky:", "", false},
		{"mrbookyx: hi", "", false},
		{"hello mrbooky: hi", "", false},
		{"mrbooky", "", false},
	}
	for _, tt := range tests {
		got, ok := addressedTo("mrbooky", tt.body)
		assert.Equal(t, tt.ok, ok, tt.body)
		assert.Equal(t, tt.want, got, tt.body)
	}
}

func TestSend_NotConnected(t *testing.T) {
	ch := New(config.IRCConfig{}, testLogger())
	err := ch.Send(context.Background(), domain.OutboundMessage{To: "#dispatch", Body: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"hello world"}, splitMessage("hello world", 400))
	assert.Equal(t, []string{"line one", "line two"}, splitMessage("line one\n\nline two\n", 400))
	assert.Empty(t, splitMessage("", 400))

	chunks := splitMessage("abcdefghijklmnopqrstuvwxyz", 10)
	assert.Equal(t, []string{"abcdefghij", "klmnopqrst", "uvwxyz"}, chunks)
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("ταξί ", 40)
	chunks := splitMessage(text, 25)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 25)
		assert.True(t, utf8.ValidString(c))
	}
	assert.Equal(t, strings.TrimRight(text, " "), strings.Join(chunks, ""))
}

// Package irc connects mrbooky to the back-office IRC dispatch room using
// the girc library. Booking announcements are posted there, and when chat
// is enabled dispatchers can talk to the bot by addressing it by nick.
package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lrstanley/girc"

	"github.com/soyeahso/mrbooky/internal/config"
	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/version"
)

// maxLineBytes keeps PRIVMSG lines well under the 512 byte protocol limit.
const maxLineBytes = 400

// Channel implements domain.Channel for IRC.
type Channel struct {
	cfg    config.IRCConfig
	client *girc.Client
	log    *logging.Logger

	mu      sync.RWMutex
	handler func(msg domain.InboundMessage)
	running bool
	lastErr string
}

// New creates an IRC channel from configuration.
func New(cfg config.IRCConfig, log *logging.Logger) *Channel {
	return &Channel{
		cfg: cfg,
		log: log.Sub("irc"),
	}
}

func (c *Channel) ID() string { return "irc" }

// DispatchRoom is where booking notices go: the configured dispatch
// channel, else the first joined channel.
func (c *Channel) DispatchRoom() string {
	if c.cfg.DispatchChannel != "" {
		return c.cfg.DispatchChannel
	}
	if len(c.cfg.Channels) > 0 {
		return c.cfg.Channels[0]
	}
	return ""
}

// rooms lists every channel to join, dispatch room included, without duplicates.
func (c *Channel) rooms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range append(append([]string(nil), c.cfg.Channels...), c.DispatchRoom()) {
		key := strings.ToLower(r)
		if r == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func (c *Channel) OnMessage(handler func(msg domain.InboundMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Status returns the current runtime status.
func (c *Channel) Status() domain.ChannelStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.ChannelStatus{
		ChannelID: "irc",
		Connected: c.client != nil && c.client.IsConnected(),
		Running:   c.running,
		LastError: c.lastErr,
	}
}

func (c *Channel) port() int {
	if c.cfg.Port != 0 {
		return c.cfg.Port
	}
	if c.cfg.UseTLS {
		return 6697
	}
	return 6667
}

// Start connects to the IRC server and begins processing messages.
// It blocks until the connection ends or ctx is cancelled.
func (c *Channel) Start(ctx context.Context) error {
	gircCfg := girc.Config{
		Server:  c.cfg.Server,
		Port:    c.port(),
		Nick:    c.cfg.Nick,
		User:    c.cfg.Nick,
		Name:    "Mr Booky dispatch bot",
		SSL:     c.cfg.UseTLS,
		Version: version.UserAgent(),
	}

	if c.cfg.UseTLS {
		gircCfg.TLSConfig = &tls.Config{
			ServerName: c.cfg.Server,
		}
	}

	if c.cfg.SASL && c.cfg.Password != "" {
		gircCfg.SASL = &girc.SASLPlain{
			User: c.cfg.Nick,
			Pass: c.cfg.Password,
		}
	} else if c.cfg.Password != "" {
		gircCfg.ServerPass = c.cfg.Password
	}

	client := girc.New(gircCfg)

	c.mu.Lock()
	c.client = client
	c.running = true
	c.lastErr = ""
	c.mu.Unlock()

	c.registerHandlers(client)

	c.log.Info().
		Str("server", c.cfg.Server).
		Int("port", gircCfg.Port).
		Str("nick", c.cfg.Nick).
		Strs("channels", c.rooms()).
		Bool("tls", c.cfg.UseTLS).
		Bool("chat", c.cfg.Chat).
		Msg("connecting to IRC")

	// Connect blocks for the lifetime of the connection.
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Connect()
	}()

	select {
	case err := <-errCh:
		c.mu.Lock()
		c.running = false
		if err != nil {
			c.lastErr = err.Error()
		}
		c.mu.Unlock()
		if err != nil {
			return fmt.Errorf("irc connect: %w", err)
		}
		return nil
	case <-ctx.Done():
		client.Close()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Stop gracefully disconnects from the IRC server.
func (c *Channel) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.client.IsConnected() {
		c.log.Info().Msg("disconnecting from IRC")
		c.client.Quit("mrbooky shutting down")
	}
	c.running = false
	return nil
}

// Send delivers a message to an IRC channel or user.
func (c *Channel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil || !client.IsConnected() {
		return fmt.Errorf("irc: not connected")
	}

	target := msg.To
	if target == "" {
		return fmt.Errorf("irc: no target specified")
	}

	lines := splitMessage(msg.Body, maxLineBytes)
	for _, line := range lines {
		client.Cmd.Message(target, line)
	}

	c.log.Debug().
		Str("to", target).
		Int("lines", len(lines)).
		Msg("sent IRC message")

	return nil
}

func (c *Channel) registerHandlers(client *girc.Client) {
	client.Handlers.Add(girc.CONNECTED, c.onConnected)
	client.Handlers.Add(girc.PRIVMSG, c.onPrivmsg)
	client.Handlers.Add(girc.DISCONNECTED, c.onDisconnected)
}

func (c *Channel) onConnected(client *girc.Client, _ girc.Event) {
	c.log.Info().Str("nick", client.GetNick()).Msg("connected to IRC")

	for _, room := range c.rooms() {
		client.Cmd.Join(room)
		c.log.Info().Str("channel", room).Msg("joined channel")
	}
}

func (c *Channel) onPrivmsg(client *girc.Client, e girc.Event) {
	if e.Source == nil || !c.cfg.Chat {
		return
	}
	nick := client.GetNick()
	if strings.EqualFold(e.Source.Name, nick) {
		return
	}

	body := e.Last()
	if e.IsAction() {
		body = e.StripAction()
	}

	if !e.IsFromChannel() {
		c.deliverInbound(e.Source.Name, e.Source.Name, domain.ChatTypeDM, body)
		return
	}

	text, ok := addressedTo(nick, body)
	if !ok {
		return
	}
	c.deliverInbound(e.Source.Name, e.Params[0], domain.ChatTypeGroup, text)
}

// addressedTo reports whether body starts with "nick:" or "nick," and
// returns the rest of the line.
func addressedTo(nick, body string) (string, bool) {
	body = strings.TrimSpace(body)
	if nick == "" || len(body) <= len(nick) || !strings.EqualFold(body[:len(nick)], nick) {
		return "", false
	}
	rest := body[len(nick):]
	if rest[0] != ':' && rest[0] != ',' {
		return "", false
	}
	text := strings.TrimSpace(rest[1:])
	return text, text != ""
}

func (c *Channel) deliverInbound(from, chatID string, chatType domain.ChatType, body string) {
	msg := domain.InboundMessage{
		ID:        uuid.New().String(),
		ChannelID: "irc",
		From:      from,
		FromName:  from,
		ChatID:    chatID,
		ChatType:  chatType,
		Body:      body,
		Timestamp: time.Now(),
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()

	if handler != nil {
		handler(msg)
	}
}

func (c *Channel) onDisconnected(_ *girc.Client, _ girc.Event) {
	c.log.Warn().Msg("disconnected from IRC")
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// splitMessage breaks text into PRIVMSG-sized lines. Every newline starts
// a new line, blank lines are dropped, and long lines are cut at rune
// boundaries so Greek text is never split mid-character.
func splitMessage(text string, maxLen int) []string {
	var chunks []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r ")
		for len(line) > maxLen {
			cut := maxLen
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxLen
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if line != "" {
			chunks = append(chunks, line)
		}
	}
	return chunks
}

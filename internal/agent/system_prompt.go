package agent

import (
	"fmt"
	"strings"
	"time"
)

// PromptConfig controls the fallback chat prompt.
type PromptConfig struct {
	BotName     string
	Company     string
	Phone       string
	BookingURL  string
	ChannelID   string
	Now         time.Time
	ExtraPrompt string
}

// BuildSystemPrompt constructs the system prompt used when no dialogue
// rule produced an answer and the message is handed to the LLM.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	name := cfg.BotName
	if name == "" {
		name = "Mr Booky"
	}
	fmt.Fprintf(&b, "You are %s, the assistant of %s.\n", name, cfg.Company)
	if !cfg.Now.IsZero() {
		fmt.Fprintf(&b, "Current date: %s\n", cfg.Now.Format(time.DateOnly))
	}
	if cfg.ChannelID != "" {
		fmt.Fprintf(&b, "Channel: %s\n", cfg.ChannelID)
	}

	b.WriteString("\nGuidelines:\n")
	b.WriteString("- Reply in the user's language, in two or three short sentences.\n")
	b.WriteString("- You can help with trip prices, taxi bookings, on-duty pharmacies and hospitals, tours and questions about Patras.\n")
	b.WriteString("- Never invent prices, addresses or phone numbers.\n")
	if cfg.Phone != "" {
		fmt.Fprintf(&b, "- For anything you cannot answer, suggest calling %s.\n", cfg.Phone)
	}
	if cfg.BookingURL != "" {
		fmt.Fprintf(&b, "- Online booking: %s\n", cfg.BookingURL)
	}

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}
	return b.String()
}

package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/notifybot/internal/domain"
	"github.com/m3rciful/notifybot/internal/storage"
)

// Telegram rejects messages longer than 4096 characters.
const maxMessageRunes = 4000

func formatUserTickets(tickets []domain.Ticket) string {
	var b strings.Builder
	b.WriteString("Your Tickets:\n")
	for _, t := range tickets {
		fmt.Fprintf(&b, "Problem: %s\nDescription: %s\nStatus: %s", t.Problem, t.Description, t.Status)
		if t.Status == domain.TicketResolved && t.Response != nil && *t.Response != "" {
			fmt.Fprintf(&b, "\nResponse: %s", *t.Response)
		}
		b.WriteString("\n\n")
	}
	return clip(strings.TrimRight(b.String(), "\n"))
}

func formatOpenTicket(t domain.Ticket) string {
	text := fmt.Sprintf("Ticket ID: %d\nProblem: %s\nDescription: %s\nStatus: %s", t.ID, t.Problem, t.Description, t.Status)
	if t.Username != nil {
		text += "\nFrom: @" + *t.Username
	}
	return clip(text)
}

func formatResolvedTickets(tickets []domain.Ticket) string {
	var b strings.Builder
	b.WriteString("Resolved Tickets:\n")
	for _, t := range tickets {
		resp := ""
		if t.Response != nil {
			resp = *t.Response
		}
		fmt.Fprintf(&b, "Ticket ID: %d\nProblem: %s\nDescription: %s\nStatus: %s\nResponse: %s\n\n",
			t.ID, t.Problem, t.Description, t.Status, resp)
	}
	return clip(strings.TrimRight(b.String(), "\n"))
}

func formatStats(total int, byType []storage.TypeCount, tickets map[domain.TicketStatus]int, uptime time.Duration, version string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total Subscribers: %d\nSubscribers by Type:\n", total)
	for _, tc := range byType {
		fmt.Fprintf(&b, "%s: %d\n", tc.Type, tc.Count)
	}
	fmt.Fprintf(&b, "Tickets: %d unresolved, %d in progress, %d resolved\n",
		tickets[domain.TicketUnresolved], tickets[domain.TicketInProgress], tickets[domain.TicketResolved])
	fmt.Fprintf(&b, "Bot Uptime: %s\n", formatUptime(uptime))
	if version == "" {
		version = "dev"
	}
	fmt.Fprintf(&b, "Bot Version: %s", version)
	return b.String()
}

// formatUptime renders "X days - HH:MM:SS".
func formatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	return fmt.Sprintf("%d days - %02d:%02d:%02d", days, secs/3600, secs%3600/60, secs%60)
}

func formatLogs(lines []string) string {
	if len(lines) == 0 {
		return textNoLogs
	}
	body := strings.Join(lines, "\n")
	const header = "Latest WARNING and higher log entries:\n"
	if r := []rune(body); len(r) > maxMessageRunes-len(header) {
		body = string(r[len(r)-(maxMessageRunes-len(header)):])
	}
	return header + body
}

func clip(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes-1]) + "…"
}

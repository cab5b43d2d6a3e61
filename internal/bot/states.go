package bot

import "github.com/m3rciful/notifybot/core/telegram/state"

var (
	StateTicketProblem     = state.New("ticket", "problem")
	StateTicketDescription = state.New("ticket", "description")
	StateTicketResolution  = state.New("ticket", "resolution")

	StateBroadcastSelect  = state.New("broadcast", "select_type")
	StateBroadcastContent = state.New("broadcast", "content")

	StateResetScope    = state.New("reset", "select_scope")
	StateBackupConfirm = state.New("backup", "confirm")
)

// Scratch data keys.
const (
	keyProblem       = "problem"
	keyTicketID      = "ticket_id"
	keyBroadcastType = "broadcast_type"
)

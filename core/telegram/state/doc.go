// Package state keeps per-user conversation sessions for multi-step Telegram flows.
// A session holds one State of the form "workflow:step" plus scratch data;
// starting a new workflow replaces whatever the user was doing before.
package state

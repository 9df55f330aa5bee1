// Package notify announces new clips once their thumbnail is ready.
// Discord posts a webhook embed; Nop is used when no webhook is configured.
package notify

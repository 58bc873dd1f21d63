// Package newsletter implements the newsletter aggregate: content and hero
// metadata, ordered content blocks, and the draft/scheduled/sending/sent
// state machine. Dispatch lives in internal/sender; promotion of due
// scheduled issues lives in internal/scheduler.
package newsletter

// Package session implements the interactive code-builder state machine.
//
// A Session is created by the /setcode command and lives until it is
// confirmed, cancelled or expires:
//
//	Active ──confirm──▶ Confirmed
//	   │ ───cancel───▶ Cancelled
//	   └───timeout──▶ Expired
//
// Every operation is evaluated in a fixed order:
//  1. owner check: only the user who started the session may act
//  2. expiry: an idle Active session becomes Expired
//  3. state check: terminal sessions reject everything with SESSION_CLOSED
//  4. the transition's own guard (capacity, completeness)
//
// The fixed code length is enforced at Confirm, not while editing, so a
// partial selection is always representable and renderable.
//
// Sessions are not safe for concurrent use. The Registry serialises access
// and the dispatcher delivers interactions one at a time.
package session

// Package subscriber implements the double opt-in subscriber lifecycle.
//
// Creation, confirmation and unsubscription live here; sending the
// confirmation email is the caller's job (creation is separated from
// notification). The service depends on the Repository interface and never
// on the concrete store.
package subscriber

// Package admission decides whether a new connection attempt may upgrade.
//
// Three rules run in order, first failure wins: a global connection
// ceiling, a per-origin open-connection ceiling, and a per-origin rate
// limit over a sliding attempt window. Every attempt, including one that
// ends up rejected, is recorded into the window before the rules run, so
// a client hammering a full server still trips the rate limiter.
// Entries older than the window are pruned lazily on each check.
//
// Recording the attempt is the only side effect of a failed check; open
// counts move only when the transport actually registers a connection.
package admission

// Package broadcast fans typed events out to room members and preview
// subscribers.
//
// Two logical channels exist. The room channel carries full-fidelity
// events (join, move, chat, departures, identity assignment, roster
// snapshots) to members; the preview channel carries coarse aggregates
// (player count, truncated roster, formatted activity lines) to passive
// observers. Delivery is best-effort per recipient: one failed send never
// aborts the rest of the fan-out, and the failed recipient is dropped from
// the store and registry as an implicit disconnect. Fan-out always
// iterates a stable snapshot of the recipient set, so removals during
// iteration are safe.
//
// High-frequency movement pushes to the preview channel are sampled rather
// than forwarded on every event, bounding preview bandwidth.
package broadcast

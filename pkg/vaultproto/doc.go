/*
Package vaultproto implements the secmem agent's wire protocol and
per-connection state machine: it owns the accept loop, the peer
access-control check, and the fixed binary framing used for PUT, GET,
DELETE, LIST, and METRICS.

It composes vaultipc (sockets, peer credentials, descriptor passing),
vaultstore (the encrypted record map), and vaultmetrics (counters,
gauge, and latency histograms) the same way warren's cmd/warren wires
its manager, scheduler, and API packages together at the top of the
dependency graph.
*/
package vaultproto

/*
Package vaultclient is a thin client for the secmem agent's wire
protocol, used by integration tests to drive a real Server over a real
Unix socket instead of calling package internals directly. It mirrors
the original agent's secmemctl command-line tool, minus the CLI and
stdout formatting.

It is intentionally internal: it is test support, not a published
client library, and carries no ACL or encryption logic of its own —
only wire framing.
*/
package vaultclient

/*
Package vaultstore holds the concurrent, TTL-indexed map of secret records
the secmem agent serves. A single mutex guards the map; every operation
(Put, Open, Delete, List, Size) is short — a map lookup plus at most one
AES-GCM pass via vaultcrypto — so coarse-grained locking costs nothing
compared to the socket I/O surrounding it.

A background sweeper goroutine evicts expired records once per second so
the secrets gauge stays accurate even for names nobody ever looks up
again; Open and List additionally treat an expired record as absent
without waiting for the sweeper, trading a little latency jitter for
tighter expiry behavior.
*/
package vaultstore

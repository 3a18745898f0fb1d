/*
Package vaultmetrics instruments the secmem agent with the same
Prometheus client_golang types warren's pkg/metrics uses, registered to a
private registry instead of the global default so a test can spin up as
many agents as it likes without a "duplicate metrics collector
registration" panic.

There is no HTTP surface here: the agent has a single transport, the
Unix socket, so the METRICS wire operation renders the registry's
current state to the standard Prometheus text exposition format (via
prometheus/common/expfmt) and returns it as the response payload,
in place of warren's promhttp.Handler.
*/
package vaultmetrics

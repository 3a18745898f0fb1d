/*
Package log provides structured logging for the secmem agent using zerolog.

A single package-level Logger is configured once via Init and shared by
the agent's entrypoint and its protocol layer (vaultproto); the crypto,
store, ipc and metrics packages do not log. WithConn derives
a child logger carrying a connection's peer credentials, so a single
connection's log lines can be grepped together without threading a
logger through every call.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	connLog := log.WithConn(cred.UID, cred.GID, cred.PID)
	connLog.Info().Str("op", "put").Msg("accepted")

Secret values and the master key are never passed to the logger; only
names, sizes, operation outcomes and peer identity are logged.
*/
package log

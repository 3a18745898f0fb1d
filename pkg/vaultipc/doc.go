/*
Package vaultipc owns the Unix domain socket the secmem agent listens
on: creating it with the right parent-directory and socket permissions,
extracting the calling peer's credentials, and passing a single file
descriptor to a connected client over SCM_RIGHTS ancillary data.

None of this has a home in the standard library — net.UnixConn does not
expose SO_PEERCRED or sendmsg/recvmsg control messages — so every
function here reaches golang.org/x/sys/unix directly, the same package
warren vendors for its own low-level process controls.
*/
package vaultipc

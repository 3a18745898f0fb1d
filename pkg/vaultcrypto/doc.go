/*
Package vaultcrypto owns the secmem agent's single master key and performs
envelope encryption for every secret the agent holds.

The key lives in a page-sized, mlock'd anonymous mapping for the lifetime
of the process (see Key), never touches disk, and is wiped with a
compiler-opaque zeroing pass on Close. Seal and Open wrap AES-256-GCM with
a fresh 96-bit nonce per call, exactly as warren's pkg/security does for
user secrets, with the key-memory locking bolted on since that has no
standard-library equivalent.
*/
package vaultcrypto

/*
Package vaultconfig holds the secmem agent's startup configuration and
validates it before anything touches the filesystem or the network,
the same up-front-validation style warren's pkg/manager.Config uses for
its own Config.
*/
package vaultconfig

package vaultproto

// ACL decides which peers may connect to the agent at all (connections
// that fail this check never reach PUT/GET/DELETE/LIST; per-secret
// ownership is vaultstore's job, not this package's).
//
// An ACL with both sets empty allows every peer. Otherwise: a peer whose
// uid is not in AllowedUIDs (when that set is non-empty) is rejected,
// unless its gid is in AllowedGIDs, in which case it is allowed anyway.
type ACL struct {
	AllowedUIDs map[uint32]struct{}
	AllowedGIDs map[uint32]struct{}
}

// NewACL builds an ACL from the given uid/gid lists.
func NewACL(uids, gids []uint32) ACL {
	acl := ACL{
		AllowedUIDs: make(map[uint32]struct{}, len(uids)),
		AllowedGIDs: make(map[uint32]struct{}, len(gids)),
	}
	for _, u := range uids {
		acl.AllowedUIDs[u] = struct{}{}
	}
	for _, g := range gids {
		acl.AllowedGIDs[g] = struct{}{}
	}
	return acl
}

// Allows reports whether a peer with the given uid and gid may connect.
func (a ACL) Allows(uid, gid uint32) bool {
	ok := true
	if len(a.AllowedUIDs) > 0 {
		if _, found := a.AllowedUIDs[uid]; !found {
			ok = false
		}
	}
	if !ok && len(a.AllowedGIDs) > 0 {
		if _, found := a.AllowedGIDs[gid]; found {
			ok = true
		}
	}
	return ok
}

package vaultstore

import (
	"sync"
	"time"

	"github.com/cuemby/secmem/pkg/vaultcrypto"
)

// DefaultSweepInterval is how often the background sweeper scans for
// expired records when the caller does not override it.
const DefaultSweepInterval = time.Second

// Store is the concurrent name -> Record map. All state is guarded by a
// single mutex; every operation is short enough (a map lookup plus at
// most one AES-GCM pass) that finer-grained locking would add complexity
// without a measurable benefit.
type Store struct {
	key        *vaultcrypto.Key
	defaultTTL time.Duration
	sweepEvery time.Duration

	mu      sync.Mutex
	records map[string]*Record

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Store that seals and opens values with key and applies
// defaultTTL to any Put whose caller-supplied ttl is zero. sweepEvery is
// how often the background sweeper scans for expired records once
// StartSweeper is called; zero uses DefaultSweepInterval.
func New(key *vaultcrypto.Key, defaultTTL, sweepEvery time.Duration) *Store {
	if sweepEvery == 0 {
		sweepEvery = DefaultSweepInterval
	}
	return &Store{
		key:        key,
		defaultTTL: defaultTTL,
		sweepEvery: sweepEvery,
		records:    make(map[string]*Record),
		stopCh:     make(chan struct{}),
	}
}

// Put seals value under name, replacing any prior record of the same
// name. owner becomes the record's owner unconditionally: a later Put
// always takes the calling peer's identity, even over a previously
// shared (owner == 0) record. ttl of zero uses the store's default TTL;
// a zero effective TTL means the record never expires.
func (s *Store) Put(name string, value []byte, ttl time.Duration, owner uint32) bool {
	ciphertext, nonce, tag, err := vaultcrypto.Seal(s.key, value)
	if err != nil {
		return false
	}

	effectiveTTL := ttl
	if effectiveTTL == 0 {
		effectiveTTL = s.defaultTTL
	}
	var expiresAt time.Time
	if effectiveTTL > 0 {
		expiresAt = time.Now().Add(effectiveTTL)
	}

	rec := &Record{
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Tag:        tag,
		Owner:      owner,
		ExpiresAt:  expiresAt,
	}

	s.mu.Lock()
	old, existed := s.records[name]
	s.records[name] = rec
	s.mu.Unlock()

	if existed {
		old.wipe()
	}
	return true
}

// Open looks up name, checks ownership and expiry, decrypts the stored
// ciphertext, and hands back a freshly sealed anonymous-memory descriptor
// holding the plaintext. The descriptor is write/grow/shrink/seal-sealed
// before it is returned, so the caller (and nobody else) can read it but
// never mutate or re-seal it.
func (s *Store) Open(name string, requester uint32) (fd int, ok bool) {
	ciphertext, nonce, tag, ok := s.lookupLive(name, requester)
	if !ok {
		return -1, false
	}

	plaintext, err := vaultcrypto.Open(s.key, ciphertext, nonce, tag)
	if err != nil {
		return -1, false
	}

	newFd, err := sealedMemfdFromPlaintext("secmem", plaintext)
	if err != nil {
		return -1, false
	}
	return newFd, true
}

// Delete removes name if requester is allowed to see it, wiping its
// ciphertext before release.
func (s *Store) Delete(name string, requester uint32) bool {
	s.mu.Lock()
	rec, found := s.records[name]
	if !found || !rec.readableBy(requester) {
		s.mu.Unlock()
		return false
	}
	delete(s.records, name)
	s.mu.Unlock()

	rec.wipe()
	return true
}

// List returns the names of every non-expired record requester is
// allowed to see: those it owns, plus shared (owner == 0) records.
func (s *Store) List(requester uint32) []string {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.records))
	for name, rec := range s.records {
		if rec.readableBy(requester) && !rec.expired(now) {
			names = append(names, name)
		}
	}
	return names
}

// Size returns the total number of records currently stored, expired or
// not; the sweeper is what keeps this number accurate for the metrics
// gauge.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// lookupLive returns a copy of the ciphertext, nonce, and tag of name only
// if it exists, is readable by requester, and has not expired. An expired
// record is treated as absent and is left for the background sweeper to
// evict; this call does not remove it.
//
// The ciphertext is copied while s.mu is held: a concurrent Delete, a Put
// overwrite, or sweep eviction of the same record zeroes its Ciphertext
// slice in place (Record.wipe) once it drops out of the map, and that
// write must not race a decrypting read of the same backing array after
// this function has released the lock.
func (s *Store) lookupLive(name string, requester uint32) (ciphertext []byte, nonce [vaultcrypto.NonceSize]byte, tag [vaultcrypto.TagSize]byte, ok bool) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, found := s.records[name]
	if !found || !rec.readableBy(requester) || rec.expired(now) {
		return nil, nonce, tag, false
	}
	ciphertext = append([]byte(nil), rec.Ciphertext...)
	return ciphertext, rec.Nonce, rec.Tag, true
}

// StartSweeper launches the background goroutine that evicts expired
// records every sweepEvery (default one second). Call Close to stop it.
func (s *Store) StartSweeper() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopCh:
				return
			}
		}
	}()
}

// sweep removes every record whose deadline has passed, wiping ciphertext
// for each before it is released.
func (s *Store) sweep() {
	now := time.Now()
	var dead []*Record

	s.mu.Lock()
	for name, rec := range s.records {
		if rec.expired(now) {
			dead = append(dead, rec)
			delete(s.records, name)
		}
	}
	s.mu.Unlock()

	for _, rec := range dead {
		rec.wipe()
	}
}

// Close stops the sweeper and destroys every remaining record, wiping
// each ciphertext buffer. Safe to call once; subsequent calls are no-ops.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()

	s.mu.Lock()
	remaining := s.records
	s.records = make(map[string]*Record)
	s.mu.Unlock()

	for _, rec := range remaining {
		rec.wipe()
	}
}

package vaultproto

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/cuemby/secmem/pkg/log"
	"github.com/cuemby/secmem/pkg/vaultipc"
	"github.com/cuemby/secmem/pkg/vaultmetrics"
	"github.com/cuemby/secmem/pkg/vaultstore"
)

// DefaultGaugeRefreshInterval is how often Server refreshes the secrets
// gauge in the background, in addition to the refresh every METRICS call
// performs, matching the
// original agent's once-a-second background refresh.
const DefaultGaugeRefreshInterval = time.Second

// Server accepts connections on a Unix socket, checks each one against
// an ACL, and hands accepted connections off to a per-connection
// goroutine that speaks the wire protocol against a shared Store.
type Server struct {
	SocketPath    string
	ACL           ACL
	Store         *vaultstore.Store
	Metrics       *vaultmetrics.Metrics
	GaugeInterval time.Duration

	listenFD int
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Start creates and binds the listening socket. Call Run afterward to
// begin accepting connections.
func (s *Server) Start() error {
	fd, err := vaultipc.Listen(s.SocketPath)
	if err != nil {
		return err
	}
	s.listenFD = fd
	s.stopCh = make(chan struct{})

	if s.GaugeInterval == 0 {
		s.GaugeInterval = DefaultGaugeRefreshInterval
	}

	s.Store.StartSweeper()
	s.wg.Add(1)
	go s.refreshGauge()

	log.Logger.Info().Str("socket", s.SocketPath).Msg("listening")
	return nil
}

// Run accepts connections until Shutdown is called, handling each on
// its own goroutine. It blocks the calling goroutine; run it in its own
// goroutine if the caller has other work to do (such as waiting on a
// signal).
func (s *Server) Run() {
	for {
		cfd, err := vaultipc.Accept(s.listenFD)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			log.Logger.Warn().Err(err).Msg("accept failed")
			return
		}

		peer, err := vaultipc.GetPeer(cfd)
		if err != nil {
			log.Logger.Warn().Err(err).Msg("could not read peer credentials")
			_ = unix.Close(cfd)
			continue
		}

		if !s.ACL.Allows(peer.UID, peer.GID) {
			log.Logger.Warn().Uint32("uid", peer.UID).Uint32("gid", peer.GID).Int32("pid", peer.PID).Msg("connection rejected by acl")
			s.Metrics.IncError("acl_reject")
			_ = unix.Close(cfd)
			continue
		}

		log.Logger.Info().Uint32("uid", peer.UID).Uint32("gid", peer.GID).Int32("pid", peer.PID).Msg("connection accepted")

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			handleConnection(cfd, peer, s.Store, s.Metrics)
		}()
	}
}

// refreshGauge keeps the secrets gauge reasonably fresh for anyone
// polling METRICS in a tight loop, independent of the set-on-read that
// the METRICS handler itself performs.
func (s *Server) refreshGauge() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.GaugeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Metrics.SetSecrets(s.Store.Size())
		case <-s.stopCh:
			return
		}
	}
}

// Shutdown stops accepting new connections, removes the socket file,
// waits for in-flight connections and background goroutines to finish,
// and closes the store (which wipes and releases every remaining
// record). Safe to call once.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		_ = unix.Close(s.listenFD)
		_ = unix.Unlink(s.SocketPath)
	})
	s.wg.Wait()
	s.Store.Close()
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/cuemby/secmem/pkg/log"
	"github.com/cuemby/secmem/pkg/vaultconfig"
	"github.com/cuemby/secmem/pkg/vaultcrypto"
	"github.com/cuemby/secmem/pkg/vaultmetrics"
	"github.com/cuemby/secmem/pkg/vaultproto"
	"github.com/cuemby/secmem/pkg/vaultstore"
)

// Version information (set via ldflags during build).
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "secmem-agent",
	Short:   "secmem-agent holds secrets in locked memory and hands them out over a Unix socket",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("secmem-agent version %s\ncommit: %s\n", Version, Commit))

	rootCmd.Flags().String("socket", "/run/secmem/agent.sock", "Unix socket path to listen on")
	rootCmd.Flags().UintSlice("allow-uid", nil, "Peer uid allowed to connect (repeatable)")
	rootCmd.Flags().UintSlice("allow-gid", nil, "Peer gid allowed to connect (repeatable)")
	rootCmd.Flags().Duration("default-ttl", 0, "Default secret TTL when a PUT omits one (0 = never expires)")
	rootCmd.Flags().Duration("sweep-interval", vaultstore.DefaultSweepInterval, "How often the background sweeper scans for expired secrets")
	rootCmd.Flags().Duration("gauge-interval", vaultproto.DefaultGaugeRefreshInterval, "How often the secrets gauge is refreshed outside of direct calls")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", true, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	logLevel, _ := rootCmd.Flags().GetString("log-level")
	logJSON, _ := rootCmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
}

func run(cmd *cobra.Command, args []string) error {
	socketPath, _ := cmd.Flags().GetString("socket")
	allowUIDFlags, _ := cmd.Flags().GetUintSlice("allow-uid")
	allowGIDFlags, _ := cmd.Flags().GetUintSlice("allow-gid")
	defaultTTL, _ := cmd.Flags().GetDuration("default-ttl")
	sweepInterval, _ := cmd.Flags().GetDuration("sweep-interval")
	gaugeInterval, _ := cmd.Flags().GetDuration("gauge-interval")

	cfg := vaultconfig.Config{
		SocketPath:    socketPath,
		AllowedUIDs:   toUint32s(allowUIDFlags),
		AllowedGIDs:   toUint32s(allowGIDFlags),
		DefaultTTL:    defaultTTL,
		SweepInterval: sweepInterval,
		GaugeInterval: gaugeInterval,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	harden()

	key, err := vaultcrypto.NewKey()
	if err != nil {
		return fmt.Errorf("create master key: %w", err)
	}
	defer key.Close()

	store := vaultstore.New(key, cfg.DefaultTTL, cfg.SweepInterval)
	metrics := vaultmetrics.New()

	srv := &vaultproto.Server{
		SocketPath:    cfg.SocketPath,
		ACL:           vaultproto.NewACL(cfg.AllowedUIDs, cfg.AllowedGIDs),
		Store:         store,
		Metrics:       metrics,
		GaugeInterval: cfg.GaugeInterval,
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start listener: %w", err)
	}

	chownSocketToFirstAllowedUID(cfg.SocketPath, cfg.AllowedUIDs)

	go srv.Run()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Logger.Info().Msg("shutting down")
	srv.Shutdown()
	return nil
}

// harden applies the process-wide security posture the agent depends
// on before a single secret is ever read from the entropy source:
// locked memory stays locked across every future allocation, core
// dumps and ptrace attachment are disabled, and any file the agent
// later creates is private by default.
func harden() {
	unix.Umask(0077)

	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &rlimit); err == nil {
		log.Logger.Info().Uint64("soft", rlimit.Cur).Uint64("hard", rlimit.Max).Msg("RLIMIT_MEMLOCK")
	}

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		log.Logger.Warn().Err(err).Msg("mlockall failed, secret memory may be swappable")
	}

	if err := unix.Prctl(unix.PR_SET_DUMPABLE, 0, 0, 0, 0); err != nil {
		log.Logger.Warn().Err(err).Msg("PR_SET_DUMPABLE failed")
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		log.Logger.Warn().Err(err).Msg("PR_SET_NO_NEW_PRIVS failed")
	}
}

// chownSocketToFirstAllowedUID gives the socket to the first allowed
// peer when the agent runs as root, so that peer can connect without
// relying on a shared supplementary group. This is a best-effort step:
// an unprivileged agent cannot chown at all, and that is not an error.
func chownSocketToFirstAllowedUID(socketPath string, allowedUIDs []uint32) {
	if os.Geteuid() != 0 || len(allowedUIDs) == 0 {
		return
	}
	if err := os.Chown(socketPath, int(allowedUIDs[0]), -1); err != nil {
		log.Logger.Warn().Err(err).Msg("chown socket failed")
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		log.Logger.Warn().Err(err).Msg("chmod socket failed")
	}
}

func toUint32s(in []uint) []uint32 {
	out := make([]uint32, len(in))
	for i, v := range in {
		out[i] = uint32(v)
	}
	return out
}

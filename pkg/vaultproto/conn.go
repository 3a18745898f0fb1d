package vaultproto

import (
	"encoding/binary"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/secmem/pkg/log"
	"github.com/cuemby/secmem/pkg/vaultipc"
	"github.com/cuemby/secmem/pkg/vaultmetrics"
	"github.com/cuemby/secmem/pkg/vaultstore"

	"golang.org/x/sys/unix"
)

func putUint32(buf []byte, v uint32) {
	binary.LittleEndian.PutUint32(buf, v)
}

// handleConnection reads and dispatches requests from fd until the peer
// closes the connection or sends something the protocol cannot parse.
// It always closes fd before returning.
func handleConnection(fd int, peer vaultipc.Peer, store *vaultstore.Store, metrics *vaultmetrics.Metrics) {
	defer unix.Close(fd)
	connLog := log.WithConn(peer.UID, peer.GID, peer.PID)

	headerBuf := make([]byte, 13)
	for {
		if err := vaultipc.ReadFull(fd, headerBuf); err != nil {
			return
		}
		req, err := UnmarshalRequestHeader(headerBuf)
		if err != nil {
			connLog.Warn().Err(err).Msg("malformed request header")
			return
		}

		if !dispatch(fd, req, peer, store, metrics, connLog) {
			return
		}
	}
}

// dispatch handles exactly one request and reports whether the
// connection should keep reading further requests.
func dispatch(fd int, req RequestHeader, peer vaultipc.Peer, store *vaultstore.Store, metrics *vaultmetrics.Metrics, connLog zerolog.Logger) bool {
	opLog := connLog.With().Str("op", req.Op.String()).Logger()
	timer := vaultmetrics.NewTimer()

	switch req.Op {
	case OpPut:
		return handlePut(fd, req, peer, store, metrics, timer, opLog)
	case OpGet:
		return handleGet(fd, req, peer, store, metrics, timer, opLog)
	case OpDelete:
		return handleDelete(fd, req, peer, store, metrics, timer, opLog)
	case OpList:
		return handleList(fd, peer, store, metrics, opLog)
	case OpMetrics:
		return handleMetrics(fd, store, metrics, opLog)
	default:
		metrics.IncError("bad_op")
		opLog.Warn().Uint8("op", uint8(req.Op)).Msg("unknown operation")
		return false
	}
}

func handlePut(fd int, req RequestHeader, peer vaultipc.Peer, store *vaultstore.Store, metrics *vaultmetrics.Metrics, timer *vaultmetrics.Timer, opLog zerolog.Logger) bool {
	key := make([]byte, req.KeyLen)
	val := make([]byte, req.ValLen)
	if err := vaultipc.ReadFull(fd, key); err != nil {
		return false
	}
	if err := vaultipc.ReadFull(fd, val); err != nil {
		return false
	}

	ok := store.Put(string(key), val, time.Duration(req.TTL)*time.Second, peer.UID)
	resp := ResponseHeader{N: 0}
	if ok {
		resp.Code = CodeOK
		metrics.IncOp("put")
		timer.ObserveDuration(metrics.Histogram("put"))
	} else {
		resp.Code = CodeError
		metrics.IncError("put")
	}
	opLog.Info().Str("key", string(key)).Uint32("ttl", req.TTL).Bool("ok", ok).Msg("put")

	return vaultipc.WriteFull(fd, resp.MarshalBinary()) == nil
}

func handleGet(fd int, req RequestHeader, peer vaultipc.Peer, store *vaultstore.Store, metrics *vaultmetrics.Metrics, timer *vaultmetrics.Timer, opLog zerolog.Logger) bool {
	key := make([]byte, req.KeyLen)
	if err := vaultipc.ReadFull(fd, key); err != nil {
		return false
	}

	secretFD, ok := store.Open(string(key), peer.UID)
	if !ok {
		metrics.IncError("get")
		opLog.Warn().Str("key", string(key)).Msg("get denied or missing")
		return vaultipc.WriteFull(fd, ResponseHeader{Code: CodeError, N: 0}.MarshalBinary()) == nil
	}
	defer unix.Close(secretFD)

	if err := vaultipc.WriteFull(fd, ResponseHeader{Code: CodeOK, N: 1}.MarshalBinary()); err != nil {
		return false
	}
	if err := vaultipc.SendFD(fd, secretFD); err != nil {
		opLog.Warn().Err(err).Msg("send descriptor failed")
		return false
	}

	metrics.IncOp("get")
	timer.ObserveDuration(metrics.Histogram("get"))
	opLog.Info().Str("key", string(key)).Msg("get")
	return true
}

func handleDelete(fd int, req RequestHeader, peer vaultipc.Peer, store *vaultstore.Store, metrics *vaultmetrics.Metrics, timer *vaultmetrics.Timer, opLog zerolog.Logger) bool {
	key := make([]byte, req.KeyLen)
	if err := vaultipc.ReadFull(fd, key); err != nil {
		return false
	}

	ok := store.Delete(string(key), peer.UID)
	resp := ResponseHeader{N: 0}
	if ok {
		resp.Code = CodeOK
		metrics.IncOp("del")
		timer.ObserveDuration(metrics.Histogram("del"))
	} else {
		resp.Code = CodeError
		metrics.IncError("del")
	}
	opLog.Info().Str("key", string(key)).Bool("ok", ok).Msg("del")

	return vaultipc.WriteFull(fd, resp.MarshalBinary()) == nil
}

func handleList(fd int, peer vaultipc.Peer, store *vaultstore.Store, metrics *vaultmetrics.Metrics, opLog zerolog.Logger) bool {
	names := store.List(peer.UID)

	if err := vaultipc.WriteFull(fd, ResponseHeader{Code: CodeOK, N: uint32(len(names))}.MarshalBinary()); err != nil {
		return false
	}
	for _, name := range names {
		lenBuf := make([]byte, 4)
		putUint32(lenBuf, uint32(len(name)))
		if err := vaultipc.WriteFull(fd, lenBuf); err != nil {
			return false
		}
		if err := vaultipc.WriteFull(fd, []byte(name)); err != nil {
			return false
		}
	}

	metrics.IncOp("list")
	opLog.Info().Int("n", len(names)).Msg("list")
	return true
}

func handleMetrics(fd int, store *vaultstore.Store, metrics *vaultmetrics.Metrics, opLog zerolog.Logger) bool {
	metrics.SetSecrets(store.Size())
	text, err := metrics.Render()
	if err != nil {
		opLog.Warn().Err(err).Msg("render metrics failed")
		return vaultipc.WriteFull(fd, ResponseHeader{Code: CodeError, N: 0}.MarshalBinary()) == nil
	}

	if err := vaultipc.WriteFull(fd, ResponseHeader{Code: CodeOK, N: uint32(len(text))}.MarshalBinary()); err != nil {
		return false
	}
	if len(text) == 0 {
		return true
	}
	return vaultipc.WriteFull(fd, text) == nil
}

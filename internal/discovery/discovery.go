package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultPort is the Alpaca discovery port.
	DefaultPort = 32227

	// ProbePrefix starts every discovery request.
	ProbePrefix = "alpacadiscovery"

	// SupportedVersion is the only discovery protocol version answered.
	SupportedVersion = 1

	defaultRetryDelay = time.Second
	readBufferSize    = 1024
)

// Logger is the logging surface the responder needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}

// Responder answers Alpaca discovery probes with the HTTP API port.
//
// It shares no state with the safety engine. Bind and receive failures are
// logged and retried after a delay; Run returns only when its context ends.
type Responder struct {
	listenAddr string
	reply      []byte
	logger     Logger
	retryDelay time.Duration

	mu        sync.Mutex
	localAddr net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a Responder.
type Option func(*Responder)

// WithLogger sets the responder logger.
func WithLogger(l Logger) Option {
	return func(r *Responder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetryDelay overrides the pause after a bind or receive error.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Responder) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

// WithListenAddr overrides the listen address (host:port), e.g.
// "127.0.0.1:0" in tests.
func WithListenAddr(addr string) Option {
	return func(r *Responder) {
		r.listenAddr = addr
	}
}

type reply struct {
	AlpacaPort int `json:"AlpacaPort"`
}

// NewResponder creates a responder listening on UDP port and advertising
// alpacaPort.
func NewResponder(port, alpacaPort int, opts ...Option) *Responder {
	body, _ := json.Marshal(reply{AlpacaPort: alpacaPort}) //nolint:errcheck // plain struct cannot fail
	r := &Responder{
		listenAddr: net.JoinHostPort("", strconv.Itoa(port)),
		reply:      body,
		logger:     noopLogger{},
		retryDelay: defaultRetryDelay,
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ready is closed once the socket is bound for the first time.
func (r *Responder) Ready() <-chan struct{} {
	return r.ready
}

// Addr returns the bound address, nil before the first bind.
func (r *Responder) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.localAddr
}

// Run binds and serves until ctx is cancelled.
func (r *Responder) Run(ctx context.Context) {
	var lc net.ListenConfig
	for ctx.Err() == nil {
		conn, err := lc.ListenPacket(ctx, "udp", r.listenAddr)
		if err != nil {
			r.logger.Warn("discovery bind failed, retrying", "addr", r.listenAddr, "error", err)
			if !r.sleep(ctx) {
				return
			}
			continue
		}

		r.mu.Lock()
		r.localAddr = conn.LocalAddr()
		r.mu.Unlock()
		r.readyOnce.Do(func() { close(r.ready) })
		r.logger.Info("discovery responder listening", "addr", conn.LocalAddr().String())

		r.serve(ctx, conn)
	}
}

// serve handles datagrams until ctx ends or the socket dies.
func (r *Responder) serve(ctx context.Context, conn net.PacketConn) {
	stop := context.AfterFunc(ctx, func() {
		conn.Close() //nolint:errcheck // unblocks ReadFrom on shutdown
	})
	defer stop()
	defer conn.Close() //nolint:errcheck // double close is harmless

	buf := make([]byte, readBufferSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				r.logger.Warn("discovery socket closed, rebinding", "error", err)
				r.sleep(ctx)
				return
			}
			r.logger.Warn("discovery receive failed", "error", err)
			if !r.sleep(ctx) {
				return
			}
			continue
		}

		if !IsProbe(buf[:n]) {
			r.logger.Debug("ignoring discovery datagram", "from", from.String(), "bytes", n)
			continue
		}
		if _, err := conn.WriteTo(r.reply, from); err != nil {
			r.logger.Warn("discovery reply failed", "to", from.String(), "error", err)
			continue
		}
		r.logger.Debug("answered discovery probe", "from", from.String())
	}
}

// sleep waits out the retry delay. It reports false when ctx ended first.
func (r *Responder) sleep(ctx context.Context) bool {
	t := time.NewTimer(r.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// IsProbe reports whether payload is a discovery request this responder
// answers: ProbePrefix followed by a version token (optionally introduced by
// ':') that parses as SupportedVersion.
func IsProbe(payload []byte) bool {
	version, ok := ProbeVersion(payload)
	return ok && version == SupportedVersion
}

// ProbeVersion extracts the version from a discovery request.
func ProbeVersion(payload []byte) (int, bool) {
	rest, found := bytes.CutPrefix(payload, []byte(ProbePrefix))
	if !found {
		return 0, false
	}
	rest = bytes.TrimPrefix(rest, []byte(":"))
	rest = bytes.TrimRight(rest, " \t\r\n\x00")

	v, err := strconv.Atoi(string(rest))
	if err != nil {
		return 0, false
	}
	return v, true
}

// Reply returns the JSON body sent to a valid probe.
func (r *Responder) Reply() []byte {
	return bytes.Clone(r.reply)
}

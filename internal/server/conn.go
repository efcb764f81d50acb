package server

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/arvhen/respd/internal/command"
	"github.com/arvhen/respd/internal/resp"
	"github.com/arvhen/respd/internal/telemetry/logger"
)

const readChunkSize = 4096

// serveConn runs the request/response loop for one connection. Requests are
// processed strictly in arrival order and every request receives exactly one
// complete response before the next is handled.
func (s *Server) serveConn(c net.Conn) {
	defer c.Close()

	s.metrics.ConnectionsActive.Inc()
	defer s.metrics.ConnectionsActive.Dec()

	log := s.logger.With("conn", ulid.Make().String(), "remote", c.RemoteAddr().String())
	log.Debug("connection accepted")

	limiter := s.limiters.get(remoteIP(c))

	var frames resp.Buffer
	chunk := make([]byte, readChunkSize)

	for {
		// Drain every complete frame already buffered before reading more,
		// so pipelined requests are answered without extra round trips.
		for frames.Len() > 0 {
			frame, err := resp.Decode(&frames)
			if errors.Is(err, resp.ErrIncomplete) {
				break
			}
			if err != nil {
				// Framing is unrecoverable; answer once and hang up.
				log.Warn("malformed frame", "error", err)
				s.metrics.DecodeErrors.Inc()
				s.writeFrame(c, resp.SimpleError("ERR protocol error: "+err.Error()))
				return
			}
			if !s.respond(c, log, limiter, frame) {
				return
			}
		}

		// An idle connection may wait a long time for its next request; a
		// started frame gets the tighter read timeout.
		wait := s.cfg.IdleTimeout
		if frames.Len() > 0 {
			wait = s.cfg.ReadTimeout
		}
		if wait > 0 {
			if err := c.SetReadDeadline(time.Now().Add(wait)); err != nil {
				return
			}
		}

		n, err := c.Read(chunk)
		if n > 0 {
			frames.Write(chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("connection closed by peer")
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				log.Debug("connection timed out")
				return
			}
			log.Debug("connection read error", "error", err)
			return
		}
	}
}

// respond handles one decoded request frame. It reports whether the
// connection can continue: command-level problems answer an error frame and
// keep the stream alive, while request frames that are not a command array
// at all are fatal, the same as a framing error.
func (s *Server) respond(c net.Conn, log logger.Logger, limiter *connLimiter, frame resp.Frame) bool {
	if !limiter.allow() {
		s.metrics.RateLimited.Inc()
		return s.writeFrame(c, resp.SimpleError("ERR rate limit exceeded"))
	}

	cmd, err := command.Parse(frame)
	if err != nil {
		log.Warn("unusable request frame", "error", err)
		s.writeFrame(c, resp.SimpleError("ERR "+err.Error()))
		return false
	}

	start := time.Now()
	reply := cmd.Execute(s.store)
	s.metrics.CommandsTotal.WithLabelValues(cmd.Name()).Inc()
	s.metrics.CommandDuration.WithLabelValues(cmd.Name()).Observe(time.Since(start).Seconds())

	if u, ok := cmd.(command.Unrecognized); ok {
		log.Debug("unrecognized command", "reason", u.Reason)
	}

	return s.writeFrame(c, reply)
}

// writeFrame encodes and writes one complete response. It reports whether
// the write succeeded.
func (s *Server) writeFrame(c net.Conn, f resp.Frame) bool {
	if s.cfg.WriteTimeout > 0 {
		if err := c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return false
		}
	}
	_, err := c.Write(resp.Encode(f))
	return err == nil
}

func remoteIP(c net.Conn) string {
	host, _, err := net.SplitHostPort(c.RemoteAddr().String())
	if err != nil {
		return c.RemoteAddr().String()
	}
	return host
}

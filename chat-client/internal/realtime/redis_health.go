package realtime

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// linkHealth is a go-redis hook that follows the outcome of every dial and
// command. A network failure marks the link down; the next exchange that
// reaches the server marks it up again. Server error replies count as up.
type linkHealth struct {
	down   atomic.Bool
	logger zerolog.Logger
}

func newLinkHealth(logger zerolog.Logger) *linkHealth {
	return &linkHealth{logger: logger}
}

func (h *linkHealth) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		h.observe(err)
		return conn, err
	}
}

func (h *linkHealth) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		h.observe(err)
		return err
	}
}

func (h *linkHealth) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		h.observe(err)
		return err
	}
}

func (h *linkHealth) observe(err error) {
	switch {
	case err == nil, errors.Is(err, redis.Nil), isServerReply(err):
		if h.down.Swap(false) {
			h.logger.Info().Msg("redis link restored")
		}
	case isLinkFailure(err):
		if !h.down.Swap(true) {
			h.logger.Warn().Err(err).Msg("redis link lost")
		}
	}
}

func (h *linkHealth) isDown() bool {
	return h.down.Load()
}

func isServerReply(err error) bool {
	var replyErr redis.Error
	return errors.As(err, &replyErr)
}

// isLinkFailure ignores caller deadlines, cancellation and the client's own
// shutdown. context.DeadlineExceeded satisfies net.Error, so it is checked
// first.
func isLinkFailure(err error) bool {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, redis.ErrClosed) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

package cache

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentServer accepts connections and never answers, so client calls block
// until the context or the driver deadline fires.
func silentServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			if _, err := ln.Accept(); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func TestMemcachedPingHonorsContext(t *testing.T) {
	m := NewMemcached(silentServer(t))
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Ping(ctx), context.Canceled)
}

func TestMemcachedPingTimesOut(t *testing.T) {
	m := NewMemcached(silentServer(t))
	defer m.Close()

	assert.ErrorIs(t, m.Ping(context.Background()), context.DeadlineExceeded)
}

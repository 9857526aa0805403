package kafka

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RaikyD/orders-etl-service/internal/domain"
)

func TestProducerPing_FallsBackToReachableBroker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	// first broker is down, the second answers
	p := NewProducer("127.0.0.1:1,"+ln.Addr().String(), "orders_raw")
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Ping(ctx))
}

func TestProducerPing_AllBrokersDown(t *testing.T) {
	p := NewProducer("127.0.0.1:1", "orders_raw")
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.ErrorIs(t, p.Ping(ctx), domain.ErrQueueUnavailable)
}

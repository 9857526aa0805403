package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/RaikyD/orders-etl-service/internal/domain"
	"github.com/RaikyD/orders-etl-service/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type fakeSource struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	pos     int
	commits [][]kafka.Message
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.pos < len(f.msgs) {
		m := f.msgs[f.pos]
		f.pos++
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeSource) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, msgs)
	return nil
}

func (f *fakeSource) committed() [][]kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]kafka.Message, len(f.commits))
	copy(out, f.commits)
	return out
}

// scriptedProcessor fails a given sequence a fixed number of times, then
// succeeds, recording every sequence it was handed.
type scriptedProcessor struct {
	mu       sync.Mutex
	failures map[int]int
	seen     []int
}

func (p *scriptedProcessor) Process(ctx context.Context, msg domain.IngestionMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, msg.Sequence)
	if p.failures[msg.Sequence] > 0 {
		p.failures[msg.Sequence]--
		return fmt.Errorf("%w: injected", domain.ErrStorageUnavailable)
	}
	return nil
}

func (p *scriptedProcessor) sequences() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int, len(p.seen))
	copy(out, p.seen)
	return out
}

func queueMsg(t *testing.T, seq int) kafka.Message {
	t.Helper()
	b, err := json.Marshal(domain.IngestionMessage{
		Row:      map[string]string{"order_id": fmt.Sprintf("A%d", seq)},
		Source:   domain.SourceOnline,
		UploadID: "upload-1",
		Sequence: seq,
	})
	require.NoError(t, err)
	return kafka.Message{Offset: int64(seq), Value: b}
}

func fastRetries(t *testing.T) {
	t.Helper()
	old := retryDelay
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = old })
}

func TestDeliverBatch_CommitsOnlyAfterEveryWrite(t *testing.T) {
	fastRetries(t)
	src := &fakeSource{}
	proc := &scriptedProcessor{failures: map[int]int{2: 2}}
	batch := []kafka.Message{queueMsg(t, 1), queueMsg(t, 2), queueMsg(t, 3)}

	require.NoError(t, deliverBatch(context.Background(), 0, src, proc, batch))

	commits := src.committed()
	require.Len(t, commits, 1)
	require.Len(t, commits[0], 3)

	// the failed position is retried in place; earlier rows are not redone,
	// later rows are not reached before it succeeds
	require.Equal(t, []int{1, 2, 2, 2, 3}, proc.sequences())
}

func TestDeliverBatch_NoCommitWhileWriteFails(t *testing.T) {
	fastRetries(t)
	src := &fakeSource{}
	proc := &scriptedProcessor{failures: map[int]int{2: 1 << 20}}
	batch := []kafka.Message{queueMsg(t, 1), queueMsg(t, 2), queueMsg(t, 3)}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := deliverBatch(ctx, 0, src, proc, batch)
	require.Error(t, err)
	require.Empty(t, src.committed())

	for _, seq := range proc.sequences() {
		require.LessOrEqual(t, seq, 2, "must not process past the failed row")
	}
}

func TestDeliverBatch_SkipsUnparsableMessage(t *testing.T) {
	fastRetries(t)
	src := &fakeSource{}
	proc := &scriptedProcessor{failures: map[int]int{}}
	batch := []kafka.Message{
		{Offset: 1, Value: []byte("not json")},
		queueMsg(t, 2),
	}

	require.NoError(t, deliverBatch(context.Background(), 0, src, proc, batch))
	require.Len(t, src.committed(), 1)
	require.Equal(t, []int{2}, proc.sequences())
}

// A storage outage during one batch must not let the worker slide past the
// failed row: the same message is redelivered to the processor until it
// lands, and only then does consumption move on.
func TestRunWorker_ResumesFailedRowBeforeAdvancing(t *testing.T) {
	fastRetries(t)
	src := &fakeSource{msgs: []kafka.Message{queueMsg(t, 1), queueMsg(t, 2)}}
	proc := &scriptedProcessor{failures: map[int]int{1: 1}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runWorker(ctx, 0, src, proc, 1)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(src.committed()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	commits := src.committed()
	require.Len(t, commits, 2)
	require.Equal(t, int64(1), commits[0][0].Offset)
	require.Equal(t, int64(2), commits[1][0].Offset)
	require.Equal(t, []int{1, 1, 2}, proc.sequences())
}

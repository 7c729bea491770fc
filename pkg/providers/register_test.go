package providers

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/railyard/pkg/rop"
	"github.com/ib-77/railyard/pkg/rop/pool"
)

func TestMessage_String(t *testing.T) {
	assert.Equal(t, "producer 2: message 4", Message{Producer: 2, Seq: 4}.String())
	assert.Equal(t, "hi", Message{Body: "hi"}.String())
}

func TestEcho_DelayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Echo(ctx, Message{Delay: time.Minute})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegister_AllKindsThroughPool(t *testing.T) {
	addr, done := serve(t, func(conn net.Conn) {
		_, _ = conn.Write([]byte("pong"))
	})
	defer done()

	path := filepath.Join(t.TempDir(), "out.txt")
	r := Register(pool.NewRouter[string](), SocketReader{}, nil)

	assert.Equal(t, []string{KindFile, KindMatrix, KindMessage, KindSocket}, r.Kinds())
	lane, _ := r.LaneFor(KindMatrix)
	assert.Equal(t, rop.LaneCPU, lane)

	p := pool.New[string](r)
	submit := func(it rop.WorkItem) rop.Outcome[string] {
		h, err := p.Submit(it)
		require.NoError(t, err)
		out, err := h.Wait(context.Background())
		require.NoError(t, err)
		return out
	}

	out := submit(rop.WorkItem{ID: "s", Kind: KindSocket, Input: SocketRequest{Addr: addr}})
	assert.Equal(t, "pong", out.Payload())

	out = submit(rop.WorkItem{ID: "f", Kind: KindFile, Input: FileRequest{Op: FileWrite, Path: path, Content: "abc"}})
	assert.True(t, out.IsSuccess(), "err=%v", out.Err())

	out = submit(rop.WorkItem{ID: "m", Kind: KindMatrix, Lane: rop.LaneCPU,
		Input: Matrix{Rows: 1, Cols: 2, Data: []float64{3, 4}}})
	assert.Equal(t, "[3 4]", out.Payload())

	out = submit(rop.WorkItem{ID: "e", Kind: KindMessage, Input: Message{Producer: 1, Seq: 0}})
	assert.Equal(t, "producer 1: message 0", out.Payload())

	out = submit(rop.WorkItem{ID: "bad", Kind: KindMatrix, Input: "not a matrix"})
	require.True(t, out.IsFailure())
	assert.ErrorIs(t, out.Err(), ErrBadInput)

	out = submit(rop.WorkItem{ID: "missing", Kind: KindFile,
		Input: FileRequest{Op: FileAppend, Path: filepath.Join(t.TempDir(), "nope")}})
	require.True(t, out.IsFailure())
	assert.Equal(t, rop.KindExecutionFailure, out.Kind())

	_, err := p.DrainAndClose(context.Background())
	require.NoError(t, err)
}

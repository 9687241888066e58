package output

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wader/osleaktest"
)

func leakChecks(t *testing.T) func() {
	leakFn := leaktest.Check(t)
	osLeakFn := osleaktest.Check(t)
	return func() {
		leakFn()
		osLeakFn()
	}
}

func TestFilename(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "meme-1700000000123.png", Filename(ts))
}

func TestFileSink(t *testing.T) {
	defer leakChecks(t)()

	dir := filepath.Join(t.TempDir(), "exports")
	s := &FileSink{Dir: dir}

	require.NoError(t, s.Emit(context.Background(), []byte("png"), "meme-1.png"))

	data, err := os.ReadFile(s.Path("meme-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "meme-1.png", entries[0].Name())
}

func TestFileSinkRejects(t *testing.T) {
	s := &FileSink{Dir: t.TempDir()}

	assert.Error(t, s.Emit(context.Background(), nil, "meme-1.png"))
	assert.Error(t, s.Emit(context.Background(), []byte("x"), "../escape.png"))
	assert.Error(t, s.Emit(context.Background(), []byte("x"), ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Emit(ctx, []byte("x"), "meme-2.png"), context.Canceled)
}

type recordingSink struct {
	names []string
	err   error
}

func (r *recordingSink) Emit(ctx context.Context, data []byte, filename string) error {
	r.names = append(r.names, filename)
	return r.err
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	require.NoError(t, MultiSink{a, b}.Emit(context.Background(), []byte("x"), "meme-3.png"))
	assert.Equal(t, []string{"meme-3.png"}, a.names)
	assert.Equal(t, []string{"meme-3.png"}, b.names)

	boom := errors.New("disk full")
	c, d := &recordingSink{err: boom}, &recordingSink{}
	err := MultiSink{c, d}.Emit(context.Background(), []byte("x"), "meme-4.png")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, d.names)
}

func TestWriteImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeImage(&buf, []byte("pixels"), "meme-5.png", "auto"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\x1b]1337;File="))
	assert.Contains(t, out, "name="+base64.StdEncoding.EncodeToString([]byte("meme-5.png")))
	assert.Contains(t, out, "size=6;")
	assert.Contains(t, out, "inline=1:"+base64.StdEncoding.EncodeToString([]byte("pixels")))
	assert.True(t, strings.HasSuffix(out, "\x07\n"))
}

func TestTerminalSinkIncompatible(t *testing.T) {
	t.Setenv("TERM_PROGRAM", "xterm")

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	s := &TerminalSink{Out: f}
	assert.False(t, s.IsCompatible())
	require.NoError(t, s.Emit(context.Background(), []byte("x"), "meme-6.png"))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestTerminalSinkForced(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	s := &TerminalSink{Out: f, Force: true}
	require.NoError(t, s.Emit(context.Background(), []byte("x"), "meme-7.png"))

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), "width=auto;")
}

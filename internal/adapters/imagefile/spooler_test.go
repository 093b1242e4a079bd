package imagefile_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/kbju-bot/internal/adapters/imagefile"
)

func TestSpoolAndRelease(t *testing.T) {
	dir := t.TempDir()
	s := imagefile.NewSpooler(dir)

	path, release, err := s.Spool(context.Background(), imagefile.Bytes{Name: "p1", Data: []byte("jpeg bytes")})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// releasing twice is harmless
	release()
}

type brokenImage struct{}

func (brokenImage) Key() string { return "broken" }

func (brokenImage) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(&failingReader{}), nil
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n > 0 {
		return 0, errors.New("connection reset")
	}
	r.n++
	return copy(p, "partial"), nil
}

func TestSpoolFailureLeavesNothingBehind(t *testing.T) {
	dir := t.TempDir()
	s := imagefile.NewSpooler(dir)

	_, _, err := s.Spool(context.Background(), brokenImage{})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

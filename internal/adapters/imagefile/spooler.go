// Package imagefile copies inbound photos to short-lived local files for
// the decoder.
package imagefile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/PabloGalante/kbju-bot/internal/domain"
)

// MaxImageBytes caps a spooled photo. Telegram photos are far below it.
const MaxImageBytes = 20 << 20

// Spooler writes images under Dir ("" means os.TempDir()).
type Spooler struct {
	Dir string
}

func NewSpooler(dir string) *Spooler {
	return &Spooler{Dir: dir}
}

// Spool implements domain.ImageSpooler. On error nothing is left on disk.
func (s *Spooler) Spool(ctx context.Context, ref domain.ImageRef) (string, func(), error) {
	rc, err := ref.Open(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("opening image %s: %w", ref.Key(), err)
	}
	defer rc.Close()

	f, err := os.CreateTemp(s.Dir, "kbju-photo-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	path := f.Name()
	release := func() { _ = os.Remove(path) }

	n, err := io.Copy(f, io.LimitReader(rc, MaxImageBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxImageBytes {
		err = fmt.Errorf("image %s larger than %d bytes", ref.Key(), MaxImageBytes)
	}
	if err != nil {
		release()
		return "", nil, fmt.Errorf("spooling image %s: %w", ref.Key(), err)
	}

	return path, release, nil
}

// Bytes is an in-memory domain.ImageRef, used by the HTTP transport and tests.
type Bytes struct {
	Name string
	Data []byte
}

func (b Bytes) Key() string {
	return b.Name
}

func (b Bytes) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

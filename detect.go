package radiance

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

const maxMagicLine = 64

// IsRadiance reports whether r starts with a RADIANCE or RGBE filetype line.
// It reads at most the first line.
func IsRadiance(r io.Reader) (bool, error) {
	br := bufio.NewReaderSize(r, maxMagicLine)
	line, err := br.Peek(maxMagicLine)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return false, err
	}
	if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	if !bytes.HasPrefix(line, []byte("#?")) {
		return false, nil
	}
	ft := string(bytes.TrimSpace(line[2:]))
	return ft == filetypeRadiance || ft == filetypeRGBE, nil
}

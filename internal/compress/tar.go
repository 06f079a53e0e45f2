package compress

import (
	"archive/tar"
	"errors"
	"io"
	"strings"
)

// TarReader implements io.ReadCloser over the first CSV file of a TAR archive.
type TarReader struct {
	src io.Closer
	tr  *tar.Reader
}

// NewTarReader positions the archive on its first regular .csv entry. Unlike
// zip, tar is read as a stream so nothing is buffered.
func NewTarReader(r io.ReadCloser) (*TarReader, error) {
	tr := tar.NewReader(io.LimitReader(r, MaxArchiveBytes))

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.Close()
			return nil, err
		}
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(strings.ToLower(header.Name), ".csv") {
			return &TarReader{src: r, tr: tr}, nil
		}
	}

	r.Close()
	return nil, errors.New("CSV file not found in the TAR archive")
}

// Read reads data from the current CSV file.
func (t *TarReader) Read(p []byte) (int, error) {
	return t.tr.Read(p)
}

// Close closes the underlying archive stream.
func (t *TarReader) Close() error {
	return t.src.Close()
}

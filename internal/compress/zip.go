package compress

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxArchiveBytes bounds an uploaded archive.
const MaxArchiveBytes = 32 << 20

// ZipReader implements io.ReadCloser for reading the content of a CSV file from a ZIP archive.
type ZipReader struct {
	current io.ReadCloser
}

// NewZipReader creates a new ZipReader, extracting the first found CSV file from the ZIP archive.
func NewZipReader(r io.ReadCloser) (*ZipReader, error) {
	defer r.Close()

	// zip needs random access, so the whole archive is read first
	buf := &bytes.Buffer{}
	n, err := io.Copy(buf, io.LimitReader(r, MaxArchiveBytes+1))
	if err != nil {
		return nil, err
	}
	if n > MaxArchiveBytes {
		return nil, fmt.Errorf("archive is larger than %d bytes", MaxArchiveBytes)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return nil, err
	}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			return &ZipReader{current: rc}, nil
		}
	}

	return nil, errors.New("CSV file not found in the ZIP archive")
}

// Read reads data from the current CSV file.
func (z *ZipReader) Read(p []byte) (int, error) {
	return z.current.Read(p)
}

// Close closes the current CSV file.
func (z *ZipReader) Close() error {
	return z.current.Close()
}

// ZipWriter packs everything written to it into a single file of a ZIP archive.
type ZipWriter struct {
	zipWriter *zip.Writer
	file      io.Writer
}

// NewZipWriter creates a new ZipWriter with the specified file name inside the archive.
func NewZipWriter(w io.Writer, fileName string) (*ZipWriter, error) {
	zw := zip.NewWriter(w)
	f, err := zw.Create(fileName)
	if err != nil {
		return nil, err
	}
	return &ZipWriter{
		zipWriter: zw,
		file:      f,
	}, nil
}

// Write writes data to a file inside the ZIP archive.
func (z *ZipWriter) Write(p []byte) (int, error) {
	return z.file.Write(p)
}

// Close closes the ZIP archive.
func (z *ZipWriter) Close() error {
	return z.zipWriter.Close()
}

// OpenCSV returns the first CSV file of an archive of the given type
// ("zip" or "tar").
func OpenCSV(archiveType string, r io.ReadCloser) (io.ReadCloser, error) {
	switch archiveType {
	case "zip":
		return NewZipReader(r)
	case "tar":
		return NewTarReader(r)
	default:
		r.Close()
		return nil, fmt.Errorf("unsupported archive type %q", archiveType)
	}
}

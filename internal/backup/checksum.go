package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// ChunkSize is the read size used when hashing archives.
const ChunkSize = 1 << 20

// ComputeChecksum returns the hex SHA-256 digest and size of the file at path.
func ComputeChecksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return HashReader(f)
}

// HashReader streams r in ChunkSize reads and returns the hex SHA-256
// digest together with the number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)

	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", total, fmt.Errorf("failed to read data: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), total, nil
}

package helpers

import (
	"fmt"
	"io"
)

// ReadLimited reads at most limit bytes from r and closes it. Bodies longer
// than limit are an error rather than silently truncated.
func ReadLimited(r io.ReadCloser, limit int64) ([]byte, error) {
	defer r.Close()
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}
	return b, nil
}

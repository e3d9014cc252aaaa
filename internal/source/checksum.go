package source

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// VerifySHA512 hashes r and compares it with want, then rewinds r.
// want may be a bare hex digest or the "<hex> <name>" line Apache
// publishes in .sha512 files.
func VerifySHA512(r io.ReadSeeker, want string) error {
	fields := strings.Fields(want)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty expected digest", ErrChecksum)
	}
	expected := strings.ToLower(fields[0])

	h := sha512.New()
	if _, err := io.Copy(h, r); err != nil {
		return err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}

	got := hex.EncodeToString(h.Sum(nil))
	if got != expected {
		return fmt.Errorf("%w: got %s want %s", ErrChecksum, got, expected)
	}
	return nil
}

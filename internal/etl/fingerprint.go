package etl

import (
	"fmt"
	"hash"

	"github.com/minio/highwayhash"
)

var fingerprintKey = []byte("tablemerge-output-fingerprint-k1")

// Fingerprint hashes the header and every record's ordered cells. Two runs
// that produce the same output produce the same fingerprint, which lets the
// run history show whether a scheduled merge actually changed anything.
func Fingerprint(header []string, records []Record) (string, error) {
	h, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", err
	}
	writeCells(h, header)
	for _, r := range records {
		for _, c := range r.Columns {
			writeCells(h, []string{c, r.Data[c]})
		}
		h.Write([]byte{0x1e})
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func writeCells(h hash.Hash, cells []string) {
	for _, c := range cells {
		h.Write([]byte(c))
		h.Write([]byte{0x1f})
	}
}

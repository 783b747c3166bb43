package hdfskit

import (
	"context"
	"crypto/md5"  //nolint:gosec // MD5 used for checksum verification, not security
	"crypto/sha1" //nolint:gosec // SHA1 used for checksum verification, not security
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
)

// ChecksumAlgorithm names a content checksum
type ChecksumAlgorithm string

const (
	ChecksumMD5    ChecksumAlgorithm = "md5"
	ChecksumSHA1   ChecksumAlgorithm = "sha1"
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	ChecksumSHA512 ChecksumAlgorithm = "sha512"
	ChecksumCRC32  ChecksumAlgorithm = "crc32"
	ChecksumXXHash ChecksumAlgorithm = "xxhash"
)

// NewHasher creates a new hash.Hash for the given algorithm.
func NewHasher(algorithm ChecksumAlgorithm) (hash.Hash, error) {
	switch algorithm {
	case ChecksumMD5:
		return md5.New(), nil //nolint:gosec // MD5 used for checksum verification, not security
	case ChecksumSHA1:
		return sha1.New(), nil //nolint:gosec // SHA1 used for checksum verification, not security
	case ChecksumSHA256:
		return sha256.New(), nil
	case ChecksumSHA512:
		return sha512.New(), nil
	case ChecksumCRC32:
		return crc32.NewIEEE(), nil
	case ChecksumXXHash:
		return xxhash.New(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported checksum algorithm: %s", ErrNotSupported, algorithm)
	}
}

// CalculateChecksums reads r once and returns the hex checksum for every
// algorithm.
func CalculateChecksums(r io.Reader, algorithms []ChecksumAlgorithm) (map[ChecksumAlgorithm]string, error) {
	if len(algorithms) == 0 {
		return nil, fmt.Errorf("%w: no algorithms specified", ErrInvalidArgument)
	}

	hashers := make(map[ChecksumAlgorithm]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	for _, algo := range algorithms {
		h, err := NewHasher(algo)
		if err != nil {
			return nil, err
		}
		hashers[algo] = h
		writers = append(writers, h)
	}

	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return nil, err
	}

	results := make(map[ChecksumAlgorithm]string, len(algorithms))
	for algo, h := range hashers {
		results[algo] = hex.EncodeToString(h.Sum(nil))
	}
	return results, nil
}

// Checksums streams the file at p through every requested algorithm. A
// failure to close the file fails the call.
func (pr *Provider) Checksums(ctx context.Context, p *Path, algorithms ...ChecksumAlgorithm) (sums map[ChecksumAlgorithm]string, err error) {
	ch, err := pr.NewByteChannel(ctx, p, OpenRead)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, ch.Close())
		if err != nil {
			sums = nil
		}
	}()

	sums, err = CalculateChecksums(ch, algorithms)
	if err != nil && !isPathError(err) && !isTaxonomy(err) {
		err = translate("checksum", err, p)
	}
	return sums, err
}

// Checksum returns the hex checksum of the file at p.
func (pr *Provider) Checksum(ctx context.Context, p *Path, algorithm ChecksumAlgorithm) (string, error) {
	sums, err := pr.Checksums(ctx, p, algorithm)
	if err != nil {
		return "", err
	}
	return sums[algorithm], nil
}

// VerifyChecksum reports whether the checksum of p matches expected.
func (pr *Provider) VerifyChecksum(ctx context.Context, p *Path, expected string, algorithm ChecksumAlgorithm) (bool, error) {
	actual, err := pr.Checksum(ctx, p, algorithm)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

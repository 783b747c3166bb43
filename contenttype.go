package hdfskit

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
)

// sniffLen is the number of leading bytes http.DetectContentType considers.
const sniffLen = 512

// Types the stdlib mime table lacks or disagrees on across platforms.
var extensionTypes = map[string]string{
	".csv":     "text/csv",
	".tsv":     "text/tab-separated-values",
	".json":    "application/json",
	".jsonl":   "application/x-ndjson",
	".md":      "text/markdown",
	".gz":      "application/gzip",
	".tar":     "application/x-tar",
	".zip":     "application/zip",
	".bz2":     "application/x-bzip2",
	".snappy":  "application/x-snappy-framed",
	".zst":     "application/zstd",
	".parquet": "application/vnd.apache.parquet",
	".avro":    "application/avro",
	".orc":     "application/x-orc",
	".seq":     "application/x-hadoop-sequencefile",
}

// ContentTypeByName guesses a MIME type from the extension of name. It
// returns "" when the extension is unknown.
func ContentTypeByName(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ""
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// ProbeContentType returns the MIME type of the regular file at p. The
// extension decides when it is known; otherwise the first bytes of the
// file are sniffed.
func (pr *Provider) ProbeContentType(ctx context.Context, p *Path) (string, error) {
	if err := pr.checkPath("contenttype", p); err != nil {
		return "", err
	}
	if name := p.FileName(); name != nil {
		if t := ContentTypeByName(name.String()); t != "" {
			return t, nil
		}
	}

	ch, err := pr.NewByteChannel(ctx, p, OpenRead)
	if err != nil {
		return "", err
	}
	defer ch.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(ch, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

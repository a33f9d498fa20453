package catalog

import (
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Open opens path for reading, the way the original's CDbFileReader does --
// falling back to a "../"-prefixed path if the direct one isn't found, a
// fallback original_source relies on to let the benchmark run from either
// the repo root or its build directory -- plus two extensions: paths of the
// form s3://bucket/key are fetched from S3, and any path ending in .gz is
// transparently decompressed.
//
// The returned ReadCloser's Close also releases any local file handle or
// S3 response body; callers must call it exactly once.
func Open(path string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	var err error
	if strings.HasPrefix(path, "s3://") {
		rc, err = openS3(path)
	} else {
		rc, err = openLocalWithFallback(path)
	}
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gz, gzErr := gzip.NewReader(rc)
		if gzErr != nil {
			rc.Close()
			return nil, errors.Wrapf(gzErr, "%s: not a valid gzip stream", path)
		}
		return gzipReadCloser{gz: gz, underlying: rc}, nil
	}
	return rc, nil
}

func openLocalWithFallback(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	f2, err2 := os.Open("../" + path)
	if err2 == nil {
		return f2, nil
	}
	return nil, errors.Wrapf(err, "%s: file not found (also tried %s)", path, "../"+path)
}

func openS3(path string) (io.ReadCloser, error) {
	rest := strings.TrimPrefix(path, "s3://")
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return nil, errors.Errorf("%s: missing object key after bucket", path)
	}
	bucket, key := rest[:slash], rest[slash+1:]
	sess, err := session.NewSession()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: creating AWS session", path)
	}
	out, err := s3.New(sess).GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s: S3 GetObject", path)
	}
	return out.Body, nil
}

// gzipReadCloser closes both the gzip reader and the underlying compressed
// stream.
type gzipReadCloser struct {
	gz         *gzip.Reader
	underlying io.ReadCloser
}

func (g gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	underErr := g.underlying.Close()
	if gzErr != nil {
		return gzErr
	}
	return underErr
}

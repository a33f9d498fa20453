package catalog

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/ioutil"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/padindex/util"
)

// tableReader reads one of the whitespace-separated flat files of §6:
// a header line naming the columns, then zero or more records of the same
// column count. Like the original's CDbFileReader, it tokenizes on
// whitespace generally rather than treating newlines specially -- a record
// is just the next len(columns) whitespace-separated tokens.
type tableReader struct {
	path    string
	columns []string
	scanner *bufio.Scanner
	fields  []string
	nRecord int
}

// openTable opens path, validates its header against columns, and returns a
// reader positioned at the first record.
func openTable(path string, columns []string) (*tableReader, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := ioutil.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: reading file", path)
	}
	log.Printf("catalog: loaded %s (%d bytes, farm=%#x)", path, len(data), farm.Hash64(data))

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)

	r := &tableReader{path: path, columns: columns, scanner: scanner}
	header, err := r.readRecord()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: empty file, expected header %v", path, columns)
	}
	if err := r.checkHeader(header); err != nil {
		return nil, err
	}
	return r, nil
}

// ErrBadHeader is the structural "format error" class of §7 for a flat
// file's header line: a caller that needs to tell a corrupt/wrong-version
// input apart from other load failures can check for it with
// errors.Cause(err) == ErrBadHeader.
var ErrBadHeader = errors.New("catalog: bad header")

func (r *tableReader) checkHeader(header []string) error {
	if len(header) != len(r.columns) {
		return errors.Wrapf(ErrBadHeader, "%s: wrong header column count: got %d (%v), want %d (%v)",
			r.path, len(header), header, len(r.columns), r.columns)
	}
	for i, got := range header {
		if got != r.columns[i] {
			suggestion, _ := util.ClosestMatch(r.columns, got)
			return errors.Wrapf(ErrBadHeader, "%s: wrong header field %d: got %q, want %q (did you mean %q?)",
				r.path, i, got, r.columns[i], suggestion)
		}
	}
	return nil
}

func (r *tableReader) readRecord() ([]string, error) {
	fields := make([]string, len(r.columns))
	for i := range fields {
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return nil, err
			}
			if i == 0 {
				return nil, io.EOF
			}
			return nil, errors.Errorf("%s: truncated record, got %d of %d fields", r.path, i, len(fields))
		}
		fields[i] = r.scanner.Text()
	}
	return fields, nil
}

// Next reads the next record into r.fields and returns true, or returns
// false at end of file.
func (r *tableReader) Next() bool {
	fields, err := r.readRecord()
	if err == io.EOF {
		return false
	}
	if err != nil {
		log.Fatalf("%s: %v", r.path, err)
	}
	r.fields = fields
	r.nRecord++
	return true
}

func (r *tableReader) uint32Field(i int) uint32 {
	var v uint32
	_, err := fmt.Sscanf(r.fields[i], "%d", &v)
	if err != nil {
		log.Fatalf("%s: record %d, field %d (%q): not an integer", r.path, r.nRecord, i, r.fields[i])
	}
	return v
}

func (r *tableReader) stringField(i int) string {
	return r.fields[i]
}

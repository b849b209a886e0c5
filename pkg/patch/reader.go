package patch

import (
	"fmt"
	"io"
)

// Reader streams directives out of a patch container. The first directive
// read is always BEGIN; ReadNext returns io.EOF once the stream is
// exhausted with no error.
type Reader struct {
	r       io.Reader
	version Version
	began   bool
}

// NewReader reads the version header from r and returns a Reader
// positioned at the first directive. It fails if the version is not one
// this package understands.
func NewReader(r io.Reader) (*Reader, error) {
	raw, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	version := Version(raw)
	if !version.Supported() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return &Reader{r: r, version: version}, nil
}

// Version reports the patch stream's declared version.
func (pr *Reader) Version() Version {
	return pr.version
}

// ReadNext reads and returns the next directive, or io.EOF when the
// stream is exhausted. The first call must yield a BEGIN directive; any
// other first directive is a format error.
func (pr *Reader) ReadNext() (*Directive, error) {
	d := &Directive{}
	if err := d.read(pr.r, pr.version); err != nil {
		return nil, err
	}
	if !pr.began {
		if d.Command != CmdBegin {
			return nil, ErrExpectedBegin
		}
		pr.began = true
	}
	return d, nil
}

// ReadAll drains the reader into a slice, translating a well-formed EOF
// (io.EOF hit exactly at a directive boundary) into a nil error. Any other
// error, including a truncated directive, is returned.
func ReadAll(r io.Reader) (Version, []*Directive, error) {
	pr, err := NewReader(r)
	if err != nil {
		return 0, nil, err
	}
	var out []*Directive
	for {
		d, err := pr.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pr.version, out, err
		}
		out = append(out, d)
	}
	return pr.version, out, nil
}

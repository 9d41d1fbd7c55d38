package completion

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
)

// PayloadFilter is an http.RoundTripper that rewrites every line of a
// response body before the client decodes it. Some OpenAI-compatible
// providers emit fields the shared response schema rejects; the filter
// removes them while the stream is still flowing.
type PayloadFilter struct {
	Base    http.RoundTripper
	Rewrite func(line []byte) []byte
}

// StripNullField returns a rewrite removing `,"<field>":null` from a line
func StripNullField(field string) func([]byte) []byte {
	needle := []byte(`,"` + field + `":null`)
	return func(line []byte) []byte {
		return bytes.ReplaceAll(line, needle, nil)
	}
}

// RoundTrip implements http.RoundTripper
func (f *PayloadFilter) RoundTrip(req *http.Request) (*http.Response, error) {
	base := f.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil || f.Rewrite == nil {
		return resp, err
	}

	resp.Body = &lineRewriter{
		body:    resp.Body,
		reader:  bufio.NewReader(resp.Body),
		rewrite: f.Rewrite,
	}
	// the rewritten body length is unknown
	resp.ContentLength = -1
	resp.Header.Del("Content-Length")
	return resp, nil
}

type lineRewriter struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	rewrite func([]byte) []byte
	pending []byte
	err     error
}

func (r *lineRewriter) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		line, err := r.reader.ReadBytes('\n')
		if len(line) > 0 {
			r.pending = r.rewrite(line)
		}
		r.err = err
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *lineRewriter) Close() error {
	return r.body.Close()
}

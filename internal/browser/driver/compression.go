// internal/browser/driver/compression.go
package driver

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

const acceptEncoding = "br, gzip, deflate"

var (
	gzipReaderPool = sync.Pool{New: func() interface{} { return new(gzip.Reader) }}
	brotliPool     = sync.Pool{New: func() interface{} { return brotli.NewReader(nil) }}
	emptyReader    = strings.NewReader("")
)

// decoder wraps r for one Content-Encoding layer. release, when non-nil,
// returns pooled state once the body is closed.
type decoder func(r io.Reader) (rc io.ReadCloser, release func(), err error)

var decoders = map[string]decoder{
	"gzip": func(r io.Reader) (io.ReadCloser, func(), error) {
		zr := gzipReaderPool.Get().(*gzip.Reader)
		if err := zr.Reset(r); err != nil {
			gzipReaderPool.Put(zr)
			return nil, nil, err
		}
		return zr, func() {
			// Reset(nil) panics on old toolchains; an empty reader just yields EOF.
			_ = zr.Reset(emptyReader)
			gzipReaderPool.Put(zr)
		}, nil
	},
	"br": func(r io.Reader) (io.ReadCloser, func(), error) {
		br := brotliPool.Get().(*brotli.Reader)
		if err := br.Reset(r); err != nil {
			brotliPool.Put(br)
			return nil, nil, err
		}
		return io.NopCloser(br), func() {
			_ = br.Reset(emptyReader)
			brotliPool.Put(br)
		}, nil
	},
	"deflate": func(r io.Reader) (io.ReadCloser, func(), error) {
		rc, err := openDeflate(r)
		return rc, nil, err
	},
}

// CompressionMiddleware advertises compression support on outgoing requests
// and transparently decodes the response body.
type CompressionMiddleware struct {
	Transport http.RoundTripper
}

// NewCompressionMiddleware wraps transport, defaulting to http.DefaultTransport.
func NewCompressionMiddleware(transport http.RoundTripper) *CompressionMiddleware {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CompressionMiddleware{Transport: transport}
}

// RoundTrip implements http.RoundTripper.
func (cm *CompressionMiddleware) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := cm.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := DecompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("failed to initialize response decompression: %w", err)
	}
	return resp, nil
}

type decodedBody struct {
	io.ReadCloser
	underlying io.ReadCloser
	release    func()
}

func (b *decodedBody) Close() error {
	if b.release != nil {
		b.release()
		b.release = nil
	}
	return errors.Join(b.ReadCloser.Close(), b.underlying.Close())
}

// DecompressResponse replaces resp.Body with a decoding reader for every
// Content-Encoding layer, innermost last. On error the body may be partly
// consumed and the response must be discarded.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	encodings := resp.Header.Values("Content-Encoding")
	if len(encodings) == 0 {
		return nil
	}

	// A single header may list several codings: "gzip, br".
	var layers []string
	for _, v := range encodings {
		for _, part := range strings.Split(v, ",") {
			layers = append(layers, strings.ToLower(strings.TrimSpace(part)))
		}
	}

	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i] == "identity" || layers[i] == "" {
			continue
		}
		open, ok := decoders[layers[i]]
		if !ok {
			return fmt.Errorf("unsupported Content-Encoding layer: %s", layers[i])
		}
		rc, release, err := open(resp.Body)
		if err != nil {
			return fmt.Errorf("%s initialization error: %w", layers[i], err)
		}
		resp.Body = &decodedBody{ReadCloser: rc, underlying: resp.Body, release: release}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

// openDeflate accepts both zlib wrapped (RFC 1950) and raw (RFC 1951)
// deflate, since servers disagree on what "deflate" means.
func openDeflate(r io.Reader) (io.ReadCloser, error) {
	var head bytes.Buffer
	if zr, err := zlib.NewReader(io.TeeReader(r, &head)); err == nil {
		return zr, nil
	}
	return flate.NewReader(io.MultiReader(&head, r)), nil
}

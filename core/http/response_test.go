package http

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// splitResponse separates a serialized response into its status line, header
// lines and body.
func splitResponse(t *testing.T, raw []byte) (string, []string, []byte) {
	t.Helper()

	idx := bytes.Index(raw, []byte("\r\n\r\n"))
	require.NotEqual(t, -1, idx, "response has no header terminator")

	lines := strings.Split(string(raw[:idx]), "\r\n")
	return lines[0], lines[1:], raw[idx+4:]
}

func headerValues(headers []string, key string) []string {
	var values []string
	for _, h := range headers {
		k, v, ok := strings.Cut(h, ": ")
		if ok && strings.EqualFold(k, key) {
			values = append(values, v)
		}
	}
	return values
}

func gunzip(t *testing.T, data []byte) []byte {
	t.Helper()

	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	return out
}

func TestResponseBuildWireFormat(t *testing.T) {
	raw := NewResponse().
		Status(201).
		Header("X-One", "1").
		Header("Set-Cookie", "a=1").
		Header("Set-Cookie", "b=2").
		Text("created").
		Build()

	assert.Equal(t,
		"HTTP/1.1 201 Created\r\n"+
			"X-One: 1\r\n"+
			"Set-Cookie: a=1\r\n"+
			"Set-Cookie: b=2\r\n"+
			"Content-Type: text/plain\r\n"+
			"Content-Length: 7\r\n"+
			"\r\n"+
			"created",
		string(raw))
}

func TestResponseDefaults(t *testing.T) {
	assert.Equal(t, "HTTP/1.1 200 OK\r\n\r\n", string(NewResponse().Build()))
	assert.Equal(t, "HTTP/1.1 418 I'm a teapot\r\n\r\n", string(NewResponse().StatusLine(418, "I'm a teapot").Build()))

	status, _, _ := splitResponse(t, NotFound().Text("Not Found").Build())
	assert.Equal(t, "HTTP/1.1 404 Not Found", status)

	status, _, _ = splitResponse(t, TooLarge().Build())
	assert.Equal(t, "HTTP/1.1 413 Payload Too Large", status)
}

func TestResponseBodyReplacesContentLength(t *testing.T) {
	raw := NewResponse().ContentType("text/plain").Body([]byte("first")).Body([]byte("second!")).Build()

	_, headers, body := splitResponse(t, raw)
	assert.Equal(t, []string{"7"}, headerValues(headers, "Content-Length"))
	assert.Equal(t, "second!", string(body))
}

func TestResponseCompression(t *testing.T) {
	compressible := strings.Repeat("a", CompressionThreshold+1)

	tests := []struct {
		name           string
		contentType    string
		body           string
		acceptEncoding *string
		wantCompressed bool
	}{
		{"eligible", ContentTypePlain, compressible, ptr("gzip"), true},
		{"json", ContentTypeJSON, compressible, ptr("deflate, GZIP;q=0.8"), true},
		{"html", ContentTypeHTML, compressible, ptr("gzip"), true},
		{"css", ContentTypeCSS, compressible, ptr("gzip"), true},
		{"at threshold", ContentTypePlain, strings.Repeat("a", CompressionThreshold), ptr("gzip"), false},
		{"below threshold", ContentTypePlain, strings.Repeat("a", CompressionThreshold-1), ptr("gzip"), false},
		{"no accept-encoding", ContentTypePlain, compressible, nil, false},
		{"identity only", ContentTypePlain, compressible, ptr("br, deflate"), false},
		{"binary type", "application/octet-stream", compressible, ptr("gzip"), false},
		{"parameterized type", "text/plain; charset=utf-8", compressible, ptr("gzip"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewResponse().ContentType(tt.contentType).Body([]byte(tt.body))
			if tt.acceptEncoding != nil {
				b.AcceptEncoding(*tt.acceptEncoding)
			}

			_, headers, body := splitResponse(t, b.Build())
			lengths := headerValues(headers, "Content-Length")
			require.Len(t, lengths, 1)
			assert.Equal(t, strconv.Itoa(len(body)), lengths[0])

			if !tt.wantCompressed {
				assert.Empty(t, headerValues(headers, "Content-Encoding"))
				assert.Equal(t, tt.body, string(body))
				return
			}

			assert.Equal(t, []string{"gzip"}, headerValues(headers, "Content-Encoding"))
			assert.Less(t, len(body), len(tt.body))
			assert.Equal(t, tt.body, string(gunzip(t, body)))
		})
	}
}

func TestResponseCompressionKeepsSmallerOriginal(t *testing.T) {
	// Pseudo-random bytes don't compress; gzip framing makes them larger.
	body := make([]byte, 4096)
	seed := uint32(2463534242)
	for i := range body {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		body[i] = byte(seed)
	}

	raw := NewResponse().ContentType(ContentTypePlain).Body(body).AcceptEncoding("gzip").Build()

	_, headers, got := splitResponse(t, raw)
	assert.Empty(t, headerValues(headers, "Content-Encoding"))
	assert.Equal(t, []string{"4096"}, headerValues(headers, "Content-Length"))
	assert.Equal(t, body, got)
}

func TestResponseCodecHelpers(t *testing.T) {
	_, headers, body := splitResponse(t, NewResponse().JSON(map[string]int{"id": 42}).Build())
	assert.Equal(t, []string{"application/json"}, headerValues(headers, "Content-Type"))
	assert.JSONEq(t, `{"id":42}`, string(body))

	_, headers, body = splitResponse(t, NewResponse().Proto(wrapperspb.String("hi")).Build())
	assert.Equal(t, []string{"application/x-protobuf"}, headerValues(headers, "Content-Type"))
	assert.NotEmpty(t, body)

	_, headers, _ = splitResponse(t, NewResponse().MsgPack([]int{1, 2, 3}).Build())
	assert.Equal(t, []string{"application/msgpack"}, headerValues(headers, "Content-Type"))

	status, _, body := splitResponse(t, NewResponse().JSON(func() {}).Build())
	assert.Equal(t, "HTTP/1.1 500 Internal Server Error", status)
	assert.Equal(t, "json marshal error", string(body))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 200, StatusOf(OK().Text("x").Build()))
	assert.Equal(t, 404, StatusOf(NotFound().Build()))
	assert.Equal(t, 0, StatusOf([]byte("garbage")))
	assert.Equal(t, 0, StatusOf(nil))
}

func ptr(s string) *string { return &s }

func BenchmarkResponseBuildCompressed(b *testing.B) {
	body := []byte(strings.Repeat("fast server ", 512))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewResponse().ContentType(ContentTypePlain).Body(body).AcceptEncoding("gzip").Build()
	}
}

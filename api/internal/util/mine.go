package util

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// SniffMimeHTTP guesses the MIME type of uploaded bytes; used for logging only.
func SniffMimeHTTP(b []byte) string {
	if len(b) == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(b)
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodeImageBase64 accepts plain base64 or a data URL ("data:image/png;base64,...").
// Both alphabets are accepted, padded or not.
func DecodeImageBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		if _, payload, found := strings.Cut(rest, ","); found {
			s = payload
		}
	}
	var firstErr error
	for _, enc := range base64Encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

package wooacry

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"time"
)

var (
	ErrMissingSecret       = errors.New("wooacry: secret is not configured")
	ErrMissingResellerFlag = errors.New("wooacry: reseller flag is not configured")
)

const DefaultVersion = "1"

// Signer produces the Sign header Wooacry expects on every reseller API call.
type Signer struct {
	resellerFlag string
	secret       string
	version      string
}

func NewSigner(resellerFlag, secret, version string) (*Signer, error) {
	if resellerFlag == "" {
		return nil, ErrMissingResellerFlag
	}
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if version == "" {
		version = DefaultVersion
	}

	return &Signer{
		resellerFlag: resellerFlag,
		secret:       secret,
		version:      version,
	}, nil
}

// Sign hashes flag, timestamp, version, body and secret, each followed by a newline.
// body must be the exact bytes that go on the wire.
func (s *Signer) Sign(body []byte, timestamp int64) string {
	h := md5.New()
	h.Write([]byte(s.resellerFlag))
	h.Write([]byte{'\n'})
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte{'\n'})
	h.Write([]byte(s.version))
	h.Write([]byte{'\n'})
	h.Write(body)
	h.Write([]byte{'\n'})
	h.Write([]byte(s.secret))
	h.Write([]byte{'\n'})
	return hex.EncodeToString(h.Sum(nil))
}

// Headers returns the full signed header set for body, stamped with now.
func (s *Signer) Headers(body []byte, now time.Time) http.Header {
	ts := now.Unix()

	header := make(http.Header, 5)
	header.Set("Content-Type", "application/json")
	header.Set("Reseller-Flag", s.resellerFlag)
	header.Set("Timestamp", strconv.FormatInt(ts, 10))
	header.Set("Version", s.version)
	header.Set("Sign", s.Sign(body, ts))
	return header
}

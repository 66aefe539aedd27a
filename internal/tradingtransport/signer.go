package tradingtransport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Signer produces the venue's embedded-params authentication: callers
// build their own ordered parameter list (price/quantity/etc., already
// formatted as the exact strings to send), and SignParams appends a millisecond
// timestamp and an HMAC-SHA256 signature over the literal concatenation
// of "key=value" pairs — the canonical query-string form the venue
// expects, whether those params end up as a JSON-RPC params object or an
// HTTP query string. Keys are held as []byte so Wipe can zero them once
// the transport shuts down.
type Signer struct {
	apiKey    []byte
	apiSecret []byte
}

// Param is one ordered key/value pair contributing to the signed
// canonical query string. Order matters: the venue verifies the
// signature against the exact concatenation the caller sent.
type Param struct {
	Key   string
	Value string
}

// NewSigner builds a Signer from credential strings.
func NewSigner(apiKey, apiSecret string) *Signer {
	return &Signer{
		apiKey:    []byte(apiKey),
		apiSecret: []byte(apiSecret),
	}
}

// Wipe zeroes the held credential bytes. Call once the signer is no
// longer needed (transport shutdown).
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	zero(s.apiKey)
	zero(s.apiSecret)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// APIKey returns the configured API key for header/param construction.
func (s *Signer) APIKey() string { return string(s.apiKey) }

// BuildQueryString joins ordered params as "key1=value1&key2=value2&...",
// with values used literally (no URL-encoding transformation beyond what
// the caller already applied).
func BuildQueryString(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Key + "=" + p.Value
	}
	return strings.Join(parts, "&")
}

// Sign computes hex(HMAC-SHA256(api_secret, qs)) over the canonical
// query string qs.
func (s *Signer) Sign(qs string) string {
	mac := hmac.New(sha256.New, s.apiSecret)
	mac.Write([]byte(qs))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignParams appends a millisecond timestamp to params, computes the
// signature over the resulting canonical query string, and returns the
// full string with "&signature=<hex>" appended — ready to use as an
// HTTP query string or to parse back into JSON-RPC params.
func (s *Signer) SignParams(params []Param, timestampMillis int64) string {
	withTs := append(append([]Param{}, params...), Param{Key: "timestamp", Value: strconv.FormatInt(timestampMillis, 10)})
	qs := BuildQueryString(withTs)
	return qs + "&signature=" + s.Sign(qs)
}

// SignedParams is like SignParams but returns the individual key/value
// pairs (including timestamp and signature) instead of a joined string,
// for callers building a JSON object rather than a literal query string.
func (s *Signer) SignedParams(params []Param, timestampMillis int64) []Param {
	withTs := append(append([]Param{}, params...), Param{Key: "timestamp", Value: strconv.FormatInt(timestampMillis, 10)})
	qs := BuildQueryString(withTs)
	sig := s.Sign(qs)
	return append(withTs, Param{Key: "signature", Value: sig})
}

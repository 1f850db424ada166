package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func samplePayload() Payload {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return Payload{
		UserID:     "u1",
		OfferID:    "o1",
		MerchantID: "m1",
		DeviceHash: "dev",
		Timestamp:  now.UnixMilli(),
		ExpiresAt:  now.Add(60 * time.Second).UnixMilli(),
		Nonce:      "00112233445566778899aabbccddeeff",
	}
}

// TestEncode_WireFormat — проводной формат и подпись считаются независимо от пакета.
func TestEncode_WireFormat(t *testing.T) {
	t.Parallel()

	p := samplePayload()
	tok, err := Encode(secret, p)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(tok)
	require.NoError(t, err)

	// Порядок полей фиксирован, signature последним.
	s := string(raw)
	require.True(t, strings.HasPrefix(s, `{"userId":"u1","offerId":"o1","merchantId":"m1","deviceHash":"dev","timestamp":`), s)
	require.Contains(t, s, `"nonce":"00112233445566778899aabbccddeeff","signature":"`)
	require.NotContains(t, s, "geoLat")

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	sig := m["signature"].(string)

	body := s[:strings.Index(s, `,"signature"`)] + "}"
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(body))
	require.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig)
}

func TestVerify_RoundTrip_WithOptionalFields(t *testing.T) {
	t.Parallel()

	lat, lng, party := 55.75, 37.61, 4
	p := samplePayload()
	p.GeoLat, p.GeoLng, p.PartySize = &lat, &lng, &party

	tok, err := Encode(secret, p)
	require.NoError(t, err)

	got, err := Verify(secret, tok)
	require.NoError(t, err)
	require.Equal(t, p, got)
	require.Equal(t, p.ExpiresAt, got.Expiry().UnixMilli())
}

func TestVerify_Rejections(t *testing.T) {
	t.Parallel()

	tok, err := Encode(secret, samplePayload())
	require.NoError(t, err)

	t.Run("wrong_secret", func(t *testing.T) {
		_, err := Verify([]byte("other"), tok)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("tampered_payload", func(t *testing.T) {
		raw, _ := base64.StdEncoding.DecodeString(tok)
		forged := strings.Replace(string(raw), `"merchantId":"m1"`, `"merchantId":"m2"`, 1)
		_, err := Verify(secret, base64.StdEncoding.EncodeToString([]byte(forged)))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("non_hex_signature", func(t *testing.T) {
		raw, _ := json.Marshal(signed{Payload: samplePayload(), Signature: "zz"})
		_, err := Verify(secret, base64.StdEncoding.EncodeToString(raw))
		require.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("not_base64", func(t *testing.T) {
		_, err := Verify(secret, "%%%")
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("not_json", func(t *testing.T) {
		_, err := Verify(secret, base64.StdEncoding.EncodeToString([]byte("nope")))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing_signature", func(t *testing.T) {
		raw, _ := json.Marshal(samplePayload())
		_, err := Verify(secret, base64.StdEncoding.EncodeToString(raw))
		require.ErrorIs(t, err, ErrMalformed)
	})
}

func TestPayload_Expired(t *testing.T) {
	t.Parallel()

	p := samplePayload()
	exp := p.Expiry()

	require.False(t, p.Expired(exp))
	require.True(t, p.Expired(exp.Add(time.Millisecond)))
}

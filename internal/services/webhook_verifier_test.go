package services

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func newTestVerifier(t *testing.T, secret string) *webhookVerifier {
	t.Helper()
	v, err := NewWebhookVerifier(testLogger(), secret)
	if err != nil {
		t.Fatalf("NewWebhookVerifier: %v", err)
	}
	wv := v.(*webhookVerifier)
	return wv
}

func signedHeaders(wv *webhookVerifier, msgID, msgTimestamp string, payload []byte) http.Header {
	h := http.Header{}
	h.Set(HeaderWebhookID, msgID)
	h.Set(HeaderWebhookTimestamp, msgTimestamp)
	sig := base64.StdEncoding.EncodeToString(wv.sign(msgID, msgTimestamp, payload))
	h.Set(HeaderWebhookSignature, "v1,"+sig)
	return h
}

func TestVerifyValidSignature(t *testing.T) {
	wv := newTestVerifier(t, "test-secret")
	payload := []byte(`{"type":"user.created","data":{"id":"u1"}}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())

	headers := signedHeaders(wv, "msg_1", ts, payload)
	if err := wv.Verify(payload, headers); err != nil {
		t.Fatalf("Verify() = %v, want nil", err)
	}
}

func TestVerifyBase64Secret(t *testing.T) {
	raw := []byte("some-32-byte-shared-secret-value")
	wv := newTestVerifier(t, "whsec_"+base64.StdEncoding.EncodeToString(raw))
	payload := []byte(`{"type":"user.created"}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())

	headers := signedHeaders(wv, "msg_1", ts, payload)
	if err := wv.Verify(payload, headers); err != nil {
		t.Fatalf("Verify() with whsec secret = %v, want nil", err)
	}
}

func TestVerifyMultipleSignatureEntries(t *testing.T) {
	wv := newTestVerifier(t, "test-secret")
	payload := []byte(`{"type":"user.created"}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())

	good := base64.StdEncoding.EncodeToString(wv.sign("msg_1", ts, payload))
	headers := http.Header{}
	headers.Set(HeaderWebhookID, "msg_1")
	headers.Set(HeaderWebhookTimestamp, ts)
	headers.Set(HeaderWebhookSignature, "v2,Zm9vYmFy v1,"+good)

	if err := wv.Verify(payload, headers); err != nil {
		t.Fatalf("Verify() with mixed versions = %v, want nil", err)
	}
}

func TestVerifyMutationsFail(t *testing.T) {
	wv := newTestVerifier(t, "test-secret")
	payload := []byte(`{"type":"user.created","data":{"id":"u1"}}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())

	cases := []struct {
		name   string
		mutate func(h http.Header, payload []byte) ([]byte, http.Header)
	}{
		{
			name: "body_bit_flip",
			mutate: func(h http.Header, p []byte) ([]byte, http.Header) {
				mutated := append([]byte{}, p...)
				mutated[0] ^= 0x01
				return mutated, h
			},
		},
		{
			name: "id_changed",
			mutate: func(h http.Header, p []byte) ([]byte, http.Header) {
				h.Set(HeaderWebhookID, "msg_2")
				return p, h
			},
		},
		{
			name: "timestamp_changed",
			mutate: func(h http.Header, p []byte) ([]byte, http.Header) {
				h.Set(HeaderWebhookTimestamp, fmt.Sprintf("%d", time.Now().Unix()+1))
				return p, h
			},
		},
		{
			name: "signature_garbage",
			mutate: func(h http.Header, p []byte) ([]byte, http.Header) {
				h.Set(HeaderWebhookSignature, "v1,"+base64.StdEncoding.EncodeToString([]byte("not the signature, padded....")))
				return p, h
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := signedHeaders(wv, "msg_1", ts, payload)
			mutatedPayload, mutatedHeaders := tc.mutate(headers, payload)
			err := wv.Verify(mutatedPayload, mutatedHeaders)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("Verify() = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestVerifyMissingHeaders(t *testing.T) {
	wv := newTestVerifier(t, "test-secret")
	payload := []byte(`{}`)
	ts := fmt.Sprintf("%d", time.Now().Unix())

	for _, drop := range []string{HeaderWebhookID, HeaderWebhookTimestamp, HeaderWebhookSignature} {
		t.Run(drop, func(t *testing.T) {
			headers := signedHeaders(wv, "msg_1", ts, payload)
			headers.Del(drop)
			err := wv.Verify(payload, headers)
			if !errors.Is(err, ErrMissingHeaders) {
				t.Fatalf("Verify() without %s = %v, want ErrMissingHeaders", drop, err)
			}
		})
	}
}

func TestVerifyTimestampTolerance(t *testing.T) {
	wv := newTestVerifier(t, "test-secret")
	payload := []byte(`{}`)

	cases := []struct {
		name string
		ts   string
		want error
	}{
		{name: "too_old", ts: fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).Unix()), want: ErrInvalidTimestamp},
		{name: "too_new", ts: fmt.Sprintf("%d", time.Now().Add(10*time.Minute).Unix()), want: ErrInvalidTimestamp},
		{name: "not_a_number", ts: "yesterday", want: ErrInvalidTimestamp},
		{name: "within_tolerance", ts: fmt.Sprintf("%d", time.Now().Add(-1*time.Minute).Unix()), want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			headers := signedHeaders(wv, "msg_1", tc.ts, payload)
			err := wv.Verify(payload, headers)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("Verify() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Verify() = %v, want %v", err, tc.want)
			}
		})
	}
}

package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wavenote/wavenote-backend/internal/logger"
)

var (
	ErrMissingHeaders   = errors.New("missing webhook signature headers")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidTimestamp = errors.New("webhook timestamp outside tolerance")
)

const (
	HeaderWebhookID        = "svix-id"
	HeaderWebhookTimestamp = "svix-timestamp"
	HeaderWebhookSignature = "svix-signature"

	webhookTimestampTolerance = 5 * time.Minute
)

// WebhookVerifier proves an inbound notification originated from the
// identity provider. Pure validation, no side effects; on success the raw
// body may be parsed as an identity event.
type WebhookVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

type webhookVerifier struct {
	log    *logger.Logger
	secret []byte
	now    func() time.Time
}

// NewWebhookVerifier accepts the shared secret either raw or in the
// provider's portal form ("whsec_" + base64).
func NewWebhookVerifier(log *logger.Logger, secret string) (WebhookVerifier, error) {
	serviceLog := log.With("service", "WebhookVerifier")
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	key := []byte(secret)
	if trimmed, ok := strings.CutPrefix(secret, "whsec_"); ok {
		decoded, err := base64.StdEncoding.DecodeString(trimmed)
		if err != nil {
			return nil, fmt.Errorf("decode webhook secret: %w", err)
		}
		key = decoded
	}
	return &webhookVerifier{log: serviceLog, secret: key, now: time.Now}, nil
}

func (wv *webhookVerifier) Verify(payload []byte, headers http.Header) error {
	msgID := headers.Get(HeaderWebhookID)
	msgTimestamp := headers.Get(HeaderWebhookTimestamp)
	msgSignature := headers.Get(HeaderWebhookSignature)
	if msgID == "" || msgTimestamp == "" || msgSignature == "" {
		return ErrMissingHeaders
	}

	if err := wv.checkTimestamp(msgTimestamp); err != nil {
		return err
	}

	expected := wv.sign(msgID, msgTimestamp, payload)

	// The signature header carries a space-separated list of versioned
	// signatures; any matching v1 entry passes.
	for _, candidate := range strings.Split(msgSignature, " ") {
		version, sig, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		provided, err := base64.StdEncoding.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(provided, expected) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func (wv *webhookVerifier) checkTimestamp(raw string) error {
	ts, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	now := wv.now()
	diff := now.Sub(time.Unix(ts, 0))
	if diff > webhookTimestampTolerance || diff < -webhookTimestampTolerance {
		return ErrInvalidTimestamp
	}
	return nil
}

func (wv *webhookVerifier) sign(msgID, msgTimestamp string, payload []byte) []byte {
	mac := hmac.New(sha256.New, wv.secret)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(msgTimestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// Package push delivers reminders as Web Push notifications signed with
// VAPID keys.
package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/praneethkvs/Memento/internal/model"
)

var (
	// ErrExpired means the browser dropped the subscription (404 or 410) and
	// it should be deleted.
	ErrExpired       = errors.New("push subscription expired")
	ErrNotConfigured = errors.New("push not configured")
)

// Payload is the JSON the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Delivery tells the push service how long to hold a message for an offline
// device and how eagerly to wake it.
type Delivery struct {
	TTL     time.Duration
	Urgency webpush.Urgency
}

var defaultDelivery = Delivery{TTL: 24 * time.Hour, Urgency: webpush.UrgencyNormal}

type Service struct {
	publicKey  string
	privateKey string
	subscriber string
	httpClient webpush.HTTPClient
}

// NewService builds a sender. subscriber is the contact (mailto: or https:)
// push services may use to reach the operator.
func NewService(publicKey, privateKey, subscriber string) *Service {
	if subscriber == "" {
		subscriber = "mailto:noreply@memento.app"
	}
	return &Service{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		httpClient: http.DefaultClient,
	}
}

func (s *Service) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

// VAPIDPublicKey is handed to browsers as the applicationServerKey.
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Send delivers payload with a one day TTL at normal urgency.
func (s *Service) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	return s.SendWith(ctx, sub, payload, defaultDelivery)
}

func (s *Service) SendWith(ctx context.Context, sub *model.PushSubscription, payload Payload, d Delivery) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dhKey, Auth: sub.AuthKey},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             int(d.TTL / time.Second),
		Urgency:         d.Urgency,
		Topic:           payload.Tag,
	})
	if err != nil {
		return fmt.Errorf("send push to subscription %d: %w", sub.ID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone, resp.StatusCode == http.StatusNotFound:
		return ErrExpired
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d for subscription %d", resp.StatusCode, sub.ID)
	}
	return nil
}

// GenerateVAPIDKeys returns a fresh P-256 key pair, base64url encoded: the
// 65-byte uncompressed public point and the 32-byte private scalar.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}
	pub := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	priv := key.D.FillBytes(make([]byte, 32))
	return base64.RawURLEncoding.EncodeToString(pub), base64.RawURLEncoding.EncodeToString(priv), nil
}

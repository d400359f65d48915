package notifications

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNsConfig holds configuration for Apple Push Notification service
type APNsConfig struct {
	KeyPath    string // Path to .p8 key file
	KeyID      string // Key ID from Apple Developer Portal
	TeamID     string // Team ID from Apple Developer Portal
	BundleID   string // App bundle ID
	Production bool   // Use production environment
}

// APNsClient sends push notifications via Apple Push Notification service
type APNsClient struct {
	client   *apns2.Client
	bundleID string
	logger   *log.Logger
	mu       sync.Mutex
}

// NewAPNsClient creates a new APNs client
func NewAPNsClient(cfg APNsConfig, logger *log.Logger) (*APNsClient, error) {
	if cfg.KeyPath == "" || cfg.KeyID == "" || cfg.TeamID == "" || cfg.BundleID == "" {
		logger.Println("APNs: missing configuration, push notifications disabled")
		return nil, nil
	}

	// Load the .p8 key
	keyBytes, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read APNs key file: %w", err)
	}

	// Parse the private key
	block, _ := pem.Decode(keyBytes)
	if block == nil {
		return nil, fmt.Errorf("failed to decode APNs key PEM block")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse APNs key: %w", err)
	}

	ecdsaKey, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("APNs key is not an ECDSA private key")
	}

	// Create the auth token
	authToken := &token.Token{
		AuthKey: ecdsaKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	// Create the client
	var client *apns2.Client
	if cfg.Production {
		client = apns2.NewTokenClient(authToken).Production()
	} else {
		client = apns2.NewTokenClient(authToken).Development()
	}

	logger.Printf("APNs: client initialized (production=%v, bundle=%s)", cfg.Production, cfg.BundleID)

	return &APNsClient{
		client:   client,
		bundleID: cfg.BundleID,
		logger:   logger,
	}, nil
}

// ReminderNotification represents data for a due-reminder notification
type ReminderNotification struct {
	ReminderID string
	Text       string
	Date       string
	Time       string
}

// SendReminderNotification sends a push notification for a due reminder
func (c *APNsClient) SendReminderNotification(deviceToken string, notif ReminderNotification) error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := payload.NewPayload().
		AlertTitle("Reminder").
		AlertBody(notif.Text).
		Sound("default").
		Custom("reminder_id", notif.ReminderID).
		Custom("date", notif.Date).
		Custom("time", notif.Time)

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       c.bundleID,
		Payload:     p,
		Expiration:  time.Now().Add(24 * time.Hour),
	}

	res, err := c.client.Push(notification)
	if err != nil {
		c.logger.Printf("APNs: failed to send reminder notification: %v", err)
		return err
	}

	if res.StatusCode != 200 {
		c.logger.Printf("APNs: reminder notification rejected (status=%d, reason=%s)", res.StatusCode, res.Reason)
		return fmt.Errorf("APNs rejected notification: %s", res.Reason)
	}

	return nil
}

// SendTestNotification sends a test notification
func (c *APNsClient) SendTestNotification(deviceToken, message string) error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := payload.NewPayload().
		AlertTitle("Remi Test").
		AlertBody(message).
		Sound("default")

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       c.bundleID,
		Payload:     p,
		Expiration:  time.Now().Add(1 * time.Hour),
	}

	res, err := c.client.Push(notification)
	if err != nil {
		return err
	}

	if res.StatusCode != 200 {
		return fmt.Errorf("APNs rejected notification: %s", res.Reason)
	}

	return nil
}

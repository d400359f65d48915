package store

import (
	"context"
	"time"
)

// DevicePushToken is an APNs token registered for a device.
type DevicePushToken struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"` // "ios"
	CreatedAt time.Time `json:"created_at"`
}

// RegisterPushToken registers or refreshes a push token for a device.
func (s *Store) RegisterPushToken(ctx context.Context, deviceID, token, platform string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_push_tokens (device_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (device_id, token) DO UPDATE SET
			platform = EXCLUDED.platform,
			created_at = NOW()
	`, deviceID, token, platform)
	return err
}

// UnregisterPushToken removes a push token.
func (s *Store) UnregisterPushToken(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM device_push_tokens WHERE token = $1
	`, token)
	return err
}

// GetDevicePushTokens returns all push tokens registered for a device.
func (s *Store) GetDevicePushTokens(ctx context.Context, deviceID string) ([]DevicePushToken, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, device_id, token, platform, created_at
		FROM device_push_tokens
		WHERE device_id = $1
	`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []DevicePushToken
	for rows.Next() {
		var t DevicePushToken
		if err := rows.Scan(&t.ID, &t.DeviceID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

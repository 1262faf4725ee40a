// ABOUTME: Profile read/update operations for the fitfeed REST API.
// ABOUTME: Maps the profile wire format, including optional measurements.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/onlyfashion/fitfeed/internal/models"
)

// wireProfile maps the profile object from the API.
type wireProfile struct {
	UserID    string  `json:"user_id"`
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url"`
	Bio       *string `json:"bio"`
	HeightCM  *int    `json:"height_cm"`
	ChestCM   *int    `json:"chest_cm"`
	WaistCM   *int    `json:"waist_cm"`
}

// profileEnvelope is the top-level response from the profile endpoints.
type profileEnvelope struct {
	Profile wireProfile `json:"profile"`
}

// ProfileUpdate is a partial update for the caller's own profile. Nil fields
// are left untouched server-side.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	HeightCM  *int    `json:"height_cm,omitempty"`
	ChestCM   *int    `json:"chest_cm,omitempty"`
	WaistCM   *int    `json:"waist_cm,omitempty"`
}

func toProfile(wp wireProfile) *models.Profile {
	p := &models.Profile{
		UserID:    wp.UserID,
		Username:  wp.Username,
		AvatarURL: wp.AvatarURL,
		HeightCM:  wp.HeightCM,
		ChestCM:   wp.ChestCM,
		WaistCM:   wp.WaistCM,
	}
	if wp.Bio != nil {
		p.Bio = *wp.Bio
	}
	return p
}

// GetProfile fetches a user profile, or the caller's own when userID is "me".
func (c *Client) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		userID = "me"
	}
	req, err := c.newRequest(ctx, "GET", "/profiles/"+userID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env profileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	return toProfile(env.Profile), nil
}

// UpdateProfile applies a partial update to the caller's own profile and
// returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*models.Profile, error) {
	body, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile update: %w", err)
	}

	req, err := c.newRequest(ctx, "PUT", "/profiles/me", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env profileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode profile response: %w", err)
	}
	return toProfile(env.Profile), nil
}

package models

import "time"

// Profile links a streamer's account to a Battle.net region and bearer token.
type Profile struct {
	UserID       int64     `json:"user_id"`
	State        string    `json:"state"`
	Region       string    `json:"region"`
	ExpiresIn    int64     `json:"expires_in"`
	ForcedUpdate time.Time `json:"forced_update"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsStale reports whether the profile has not been touched within maxAge.
func (p *Profile) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(p.UpdatedAt) > maxAge
}

// InCooldown reports whether a forced update is still refused at now.
func (p *Profile) InCooldown(now time.Time) bool {
	return p.ForcedUpdate.After(now)
}

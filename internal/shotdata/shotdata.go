// Package shotdata defines the ShotData wire type (§3) and the in-memory
// ring buffer that backs the GET /api/shots surface (§4.8).
package shotdata

import (
	"github.com/divotmaker/flighthook/internal/units"
)

// BallData is always present on a ShotData.
type BallData struct {
	LaunchSpeed     units.Velocity `json:"launch_speed"`
	LaunchAzimuth   float64        `json:"launch_azimuth"`
	LaunchElevation float64        `json:"launch_elevation"`
	CarryDistance   units.Distance `json:"carry_distance"`
	TotalDistance   units.Distance `json:"total_distance"`
	MaxHeight       units.Distance `json:"max_height"`
	BackspinRPM     float64        `json:"backspin_rpm"`
	SidespinRPM     float64        `json:"sidespin_rpm"`
}

// ClubData is present only when the device/session reports club data.
type ClubData struct {
	ClubSpeed       units.Velocity `json:"club_speed"`
	Path            float64        `json:"path"`
	AttackAngle     float64        `json:"attack_angle"`
	FaceAngle       float64        `json:"face_angle"`
	DynamicLoft     float64        `json:"dynamic_loft"`
	SmashFactor     float64        `json:"smash_factor"`
	PostImpactSpeed units.Velocity `json:"post_impact_club_speed"`
	ClubOffset      units.Distance `json:"club_offset"`
	ClubHeight      units.Distance `json:"club_height"`
}

// SpinData is present only when the device/session reports total-spin data
// independent of the ball's back/side spin components.
type SpinData struct {
	TotalSpinRPM float64 `json:"total_spin_rpm"`
	SpinAxisDeg  float64 `json:"spin_axis_deg"`
}

// ShotData is the immutable fused shot result (§3).
type ShotData struct {
	Source     string    `json:"source"`
	ShotNumber uint64    `json:"shot_number"`
	Ball       BallData  `json:"ball"`
	Club       *ClubData `json:"club,omitempty"`
	Spin       *SpinData `json:"spin,omitempty"`
	Estimated  bool      `json:"estimated"`
}

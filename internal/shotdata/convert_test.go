package shotdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divotmaker/flighthook/internal/units"
)

func TestConvert_ImperialToMetric(t *testing.T) {
	shot := ShotData{
		Ball: BallData{
			LaunchSpeed:   units.Velocity{Value: 100, Unit: units.MilesPerHour},
			CarryDistance: units.Distance{Value: 200, Unit: units.Yards},
			TotalDistance: units.Distance{Value: 210, Unit: units.Yards},
			MaxHeight:     units.Distance{Value: 30, Unit: units.Yards},
		},
	}
	converted, err := Convert(shot, Metric)
	require.NoError(t, err)
	assert.Equal(t, units.Meters, converted.Ball.CarryDistance.Unit)
	assert.Equal(t, units.MetersPerSec, converted.Ball.LaunchSpeed.Unit)
	assert.InDelta(t, 182.88, converted.Ball.CarryDistance.Value, 1e-6)
}

func TestConvert_PreservesClubWhenPresent(t *testing.T) {
	shot := ShotData{
		Ball: BallData{
			LaunchSpeed:   units.Velocity{Value: 100, Unit: units.MilesPerHour},
			CarryDistance: units.Distance{Value: 200, Unit: units.Yards},
			TotalDistance: units.Distance{Value: 210, Unit: units.Yards},
			MaxHeight:     units.Distance{Value: 30, Unit: units.Yards},
		},
		Club: &ClubData{
			ClubSpeed:       units.Velocity{Value: 90, Unit: units.MilesPerHour},
			PostImpactSpeed: units.Velocity{Value: 80, Unit: units.MilesPerHour},
			ClubOffset:      units.Distance{Value: 1, Unit: units.Inches},
			ClubHeight:      units.Distance{Value: 2, Unit: units.Inches},
		},
	}
	converted, err := Convert(shot, Metric)
	require.NoError(t, err)
	require.NotNil(t, converted.Club)
	assert.Equal(t, units.MetersPerSec, converted.Club.ClubSpeed.Unit)
}

func TestConvert_NilClubStaysNil(t *testing.T) {
	shot := ShotData{Ball: BallData{
		LaunchSpeed:   units.Velocity{Value: 1, Unit: units.MilesPerHour},
		CarryDistance: units.Distance{Value: 1, Unit: units.Meters},
		TotalDistance: units.Distance{Value: 1, Unit: units.Meters},
		MaxHeight:     units.Distance{Value: 1, Unit: units.Meters},
	}}
	converted, err := Convert(shot, Imperial)
	require.NoError(t, err)
	assert.Nil(t, converted.Club)
}

func TestConvert_UnrecognizedSystemPassesThrough(t *testing.T) {
	shot := ShotData{Ball: BallData{LaunchSpeed: units.Velocity{Value: 1, Unit: units.MilesPerHour}}}
	converted, err := Convert(shot, UnitSystem("bogus"))
	require.NoError(t, err)
	assert.Equal(t, shot, converted)
}

package shotdata

import "github.com/divotmaker/flighthook/internal/units"

// UnitSystem selects the target units for the /api/shots and
// /api/shots/convert endpoints (§4.8, §6).
type UnitSystem string

const (
	Imperial UnitSystem = "imperial"
	Metric   UnitSystem = "metric"
)

// Convert returns a copy of shot with every distance/velocity field
// rendered in the requested unit system. Unrecognized systems pass the
// shot through unconverted.
func Convert(shot ShotData, system UnitSystem) (ShotData, error) {
	distanceUnit, velocityUnit, ok := targetUnits(system)
	if !ok {
		return shot, nil
	}

	out := shot
	var err error
	if out.Ball.LaunchSpeed, err = shot.Ball.LaunchSpeed.In(velocityUnit); err != nil {
		return ShotData{}, err
	}
	if out.Ball.CarryDistance, err = shot.Ball.CarryDistance.In(distanceUnit); err != nil {
		return ShotData{}, err
	}
	if out.Ball.TotalDistance, err = shot.Ball.TotalDistance.In(distanceUnit); err != nil {
		return ShotData{}, err
	}
	if out.Ball.MaxHeight, err = shot.Ball.MaxHeight.In(distanceUnit); err != nil {
		return ShotData{}, err
	}

	if shot.Club != nil {
		club := *shot.Club
		if club.ClubSpeed, err = shot.Club.ClubSpeed.In(velocityUnit); err != nil {
			return ShotData{}, err
		}
		if club.PostImpactSpeed, err = shot.Club.PostImpactSpeed.In(velocityUnit); err != nil {
			return ShotData{}, err
		}
		if club.ClubOffset, err = shot.Club.ClubOffset.In(distanceUnit); err != nil {
			return ShotData{}, err
		}
		if club.ClubHeight, err = shot.Club.ClubHeight.In(distanceUnit); err != nil {
			return ShotData{}, err
		}
		out.Club = &club
	}

	return out, nil
}

func targetUnits(system UnitSystem) (units.DistanceUnit, units.VelocityUnit, bool) {
	switch system {
	case Imperial:
		return units.Yards, units.MilesPerHour, true
	case Metric:
		return units.Meters, units.MetersPerSec, true
	default:
		return "", "", false
	}
}

// Package domain holds the shared data model for plume dispersion and
// pathogen triage.
//
// # Coordinate Conventions
//
// The plume frame is local and metric:
//
//	x  downwind distance from the source, metres (x > 0 downwind)
//	y  crosswind offset, metres, positive to the right of the downwind axis
//
// Wind direction follows the meteorological convention: degrees clockwise from
// true north of the bearing the wind blows FROM. A 270° wind (westerly) carries
// the plume east. Geographic points are WGS-84 (lat, lon) in degrees.
//
// # Stability Classes
//
// Pasquill-Gifford classes A (very unstable) through F (moderately stable).
// Neutral conditions (D) are the default when no class is inferred.
//
// # Units
//
//	Emission rate   g/s
//	Wind speed      m/s (weather sources may report km/h, mph or kn)
//	Concentration   g/m³
//	Humidity        percent relative humidity, [0, 100]
//
// # Error Kinds
//
// Invariants the caller controls fail with [ErrInvalidInput] or
// [ErrOutOfBounds], wrapped in a [ValidationError]. Aggregating operations
// (contours, triage, plume mapping) never fail; they report issues as data.
//
// # Threat Level
//
// [DeriveThreatLevel] is a pure function of a [PathogenProfile]. Stored
// records are never enriched in place.
package domain

// Package geo converts between the plume's local metric frame and WGS-84
// coordinates.
package geo

import (
	"math"

	"github.com/couchcryptid/plume-triage/internal/domain"
)

// EarthRadius is the mean Earth radius in metres.
const EarthRadius = 6371000.0

// minCosLat guards the longitude correction near the poles, where a metre of
// easting spans an unbounded number of degrees.
const minCosLat = 1e-9

// Offset displaces the source point by x metres downwind and y metres
// crosswind (positive to the right of the plume axis). windDirection is the
// meteorological bearing the wind blows from, so the plume travels along
// windDirection+180°.
//
// Latitude uses Δlat = northing/R; longitude uses the mean of the source and
// destination latitude for the cosine correction. Out-of-range inputs or
// results fail with domain.ErrOutOfBounds rather than being clamped.
func Offset(x, y, sourceLat, sourceLon, windDirection float64) (domain.LatLon, error) {
	if !ValidCoordinate(sourceLat, sourceLon) {
		if !finite(sourceLat) || sourceLat < -90 || sourceLat > 90 {
			return domain.LatLon{}, domain.OutOfBounds("source_lat", sourceLat, "must be within [-90, 90]")
		}
		return domain.LatLon{}, domain.OutOfBounds("source_lon", sourceLon, "must be within [-180, 180]")
	}
	if !finite(windDirection) || windDirection < 0 || windDirection >= 360 {
		return domain.LatLon{}, domain.OutOfBounds("wind_direction", windDirection, "must be within [0, 360)")
	}
	if !finite(x) || !finite(y) {
		return domain.LatLon{}, domain.OutOfBounds("offset", x, "offsets must be finite")
	}

	bearing := toRadians(math.Mod(windDirection+180, 360))
	sinB, cosB := math.Sincos(bearing)
	northing := x*cosB - y*sinB
	easting := x*sinB + y*cosB

	lat := sourceLat + toDegrees(northing/EarthRadius)
	if lat < -90 || lat > 90 {
		return domain.LatLon{}, domain.OutOfBounds("lat", lat, "displaced point leaves the valid latitude range")
	}

	meanLat := toRadians((sourceLat + lat) / 2)
	cosLat := math.Cos(meanLat)
	if cosLat < minCosLat {
		return domain.LatLon{}, domain.OutOfBounds("lat", lat, "longitude is undefined this close to a pole")
	}

	lon := NormalizeLon(sourceLon + toDegrees(easting/(EarthRadius*cosLat)))
	if !ValidCoordinate(lat, lon) {
		return domain.LatLon{}, domain.OutOfBounds("lon", lon, "displaced point is not a valid coordinate")
	}
	return domain.LatLon{Lat: lat, Lon: lon}, nil
}

// HaversineDistance returns the great-circle distance between a and b in metres.
func HaversineDistance(a, b domain.LatLon) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ValidCoordinate reports whether lat/lon are finite and within range.
func ValidCoordinate(lat, lon float64) bool {
	return finite(lat) && finite(lon) &&
		lat >= -90 && lat <= 90 &&
		lon >= -180 && lon <= 180
}

// NormalizeLon wraps a longitude into [-180, 180].
func NormalizeLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

func toDegrees(rad float64) float64 { return rad * 180 / math.Pi }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

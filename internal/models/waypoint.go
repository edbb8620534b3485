package models

import (
	"fmt"
	"math"
	"time"

	"github.com/mmcloughlin/geohash"
)

// EarthRadiusKm средний радиус Земли в километрах (IUGG mean radius)
const EarthRadiusKm = 6371.0088

// Waypoint одна точка записанного трека. Elevation и Timestamp опциональны:
// nil означает «в источнике данных нет», что отличается от присутствующего
// нулевого значения. После разбора точка неизменяема.
type Waypoint struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Elevation *float64   `json:"elevation,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Validate проверяет корректность координат
func (w Waypoint) Validate() error {
	if w.Latitude < -90 || w.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %f", w.Latitude)
	}
	if w.Longitude < -180 || w.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %f", w.Longitude)
	}
	return nil
}

// DistanceTo вычисляет расстояние до другой точки в километрах (формула
// Haversine, сферическая модель Земли). Высота не участвует: статистика
// трека считается по 2-D наземной дистанции.
func (w Waypoint) DistanceTo(other Waypoint) float64 {
	lat1Rad := w.Latitude * math.Pi / 180
	lat2Rad := other.Latitude * math.Pi / 180
	deltaLat := (other.Latitude - w.Latitude) * math.Pi / 180
	deltaLon := (other.Longitude - w.Longitude) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Geohash возвращает geohash точки с заданной точностью
func (w Waypoint) Geohash(precision int) string {
	return geohash.EncodeWithPrecision(w.Latitude, w.Longitude, uint(precision))
}

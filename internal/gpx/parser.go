package gpx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tracklog/gpx-backend/internal/models"
)

// ErrEmptyTrack в документе не нашлось ни одной путевой точки; статистику
// считать не из чего, для пайплайна это терминальная ошибка
var ErrEmptyTrack = errors.New("gpx: no waypoints found in document")

// MalformedWaypointError точка без обязательных координат или с координатами
// вне диапазона. Разбор строгий: одна битая точка валит весь документ, потому
// что обычно это признак битого файла целиком.
type MalformedWaypointError struct {
	Track   int
	Segment int
	Point   int
	Reason  string
}

func (e *MalformedWaypointError) Error() string {
	return fmt.Sprintf("gpx: malformed waypoint trk=%d seg=%d pt=%d: %s",
		e.Track, e.Segment, e.Point, e.Reason)
}

// XML-структуры документа. Указательные атрибуты отличают «атрибут
// отсутствует» от присутствующего нуля.
type gpxDocument struct {
	XMLName  xml.Name    `xml:"gpx"`
	Creator  string      `xml:"creator,attr"`
	Version  string      `xml:"version,attr"`
	Metadata gpxMetadata `xml:"metadata"`
	Tracks   []gpxTrack  `xml:"trk"`
}

type gpxMetadata struct {
	Name        string  `xml:"name"`
	Description string  `xml:"desc"`
	Link        gpxLink `xml:"link"`
}

type gpxLink struct {
	Href string `xml:"href,attr"`
	Text string `xml:"text"`
}

type gpxTrack struct {
	Name        string       `xml:"name"`
	Description string       `xml:"desc"`
	Source      string       `xml:"src"`
	Segments    []gpxSegment `xml:"trkseg"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat  *float64 `xml:"lat,attr"`
	Lon  *float64 `xml:"lon,attr"`
	Ele  *float64 `xml:"ele"`
	Time string   `xml:"time"`
}

// Parse разбирает GPX-документ в упорядоченную последовательность точек и
// метаданные. Чистое преобразование байтов в структуры, без побочных
// эффектов. Точки идут в хронологическом порядке источника; дубликаты
// timestamp'ов легальны и не отбрасываются.
func Parse(raw []byte) ([]models.Waypoint, models.TrackMetadata, error) {
	var doc gpxDocument
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	if err := decoder.Decode(&doc); err != nil {
		return nil, models.TrackMetadata{}, fmt.Errorf("gpx: failed to parse document: %w", err)
	}

	var waypoints []models.Waypoint
	for ti, trk := range doc.Tracks {
		for si, seg := range trk.Segments {
			for pi, pt := range seg.Points {
				wp, err := convertPoint(ti, si, pi, pt)
				if err != nil {
					return nil, models.TrackMetadata{}, err
				}
				waypoints = append(waypoints, wp)
			}
		}
	}

	if len(waypoints) == 0 {
		return nil, models.TrackMetadata{}, ErrEmptyTrack
	}

	return waypoints, extractMetadata(&doc, len(waypoints)), nil
}

// convertPoint превращает XML-точку в Waypoint; отсутствующие elevation и
// timestamp остаются незаполненными, отсутствующие координаты — ошибка
func convertPoint(ti, si, pi int, pt gpxPoint) (models.Waypoint, error) {
	if pt.Lat == nil {
		return models.Waypoint{}, &MalformedWaypointError{Track: ti, Segment: si, Point: pi, Reason: "missing lat attribute"}
	}
	if pt.Lon == nil {
		return models.Waypoint{}, &MalformedWaypointError{Track: ti, Segment: si, Point: pi, Reason: "missing lon attribute"}
	}

	wp := models.Waypoint{
		Latitude:  *pt.Lat,
		Longitude: *pt.Lon,
		Elevation: pt.Ele,
	}
	if err := wp.Validate(); err != nil {
		return models.Waypoint{}, &MalformedWaypointError{Track: ti, Segment: si, Point: pi, Reason: err.Error()}
	}

	// Нечитаемый timestamp трактуется как отсутствующий: обязательны только
	// координаты, даунстрим умеет работать с точками без времени
	if ts := parseTime(pt.Time); ts != nil {
		wp.Timestamp = ts
	}

	return wp, nil
}

// parseTime принимает RFC3339 и naive-формат "2006-01-02T15:04:05"
// (трактуется как UTC) — оба встречаются в реальных GPX-файлах
func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		utc := ts.UTC()
		return &utc
	}
	if ts, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		utc := ts.UTC()
		return &utc
	}
	return nil
}

// extractMetadata собирает информационные поля: creator — атрибут корневого
// элемента, device — <trk><src>, software — текст ссылки в <metadata>.
// Имя и описание берутся из <metadata>, при их отсутствии — из первого трека.
func extractMetadata(doc *gpxDocument, waypointCount int) models.TrackMetadata {
	meta := models.TrackMetadata{
		Creator:               doc.Creator,
		Software:              doc.Metadata.Link.Text,
		Name:                  doc.Metadata.Name,
		Description:           doc.Metadata.Description,
		DeclaredWaypointCount: waypointCount,
	}

	if len(doc.Tracks) > 0 {
		first := doc.Tracks[0]
		meta.Device = first.Source
		if meta.Name == "" {
			meta.Name = first.Name
		}
		if meta.Description == "" {
			meta.Description = first.Description
		}
	}

	return meta
}

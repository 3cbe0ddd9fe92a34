package view

import (
	"strconv"

	"github.com/julvo/htmlgo"
	a "github.com/julvo/htmlgo/attributes"

	"github.com/cheesesashimi/cookiescraper/pkg/config"
	"github.com/cheesesashimi/cookiescraper/pkg/geo"
	"github.com/cheesesashimi/cookiescraper/pkg/search"
)

// highlightedCount is how many of the first results get the distinguished
// marker.
const highlightedCount int = 3

const star string = "⭐"

type MapOptions struct {
	Center  geo.Point `json:"center"`
	Zoom    int       `json:"zoom"`
	MinZoom int       `json:"minZoom"`
	MaxZoom int       `json:"maxZoom"`
	Padding int       `json:"padding"`
}

func NewMapOptions(cfg config.Map) MapOptions {
	return MapOptions{
		Center:  geo.Point{Lat: cfg.CenterLat, Lng: cfg.CenterLng},
		Zoom:    cfg.Zoom,
		MinZoom: cfg.MinZoom,
		MaxZoom: cfg.MaxZoom,
		Padding: cfg.Padding,
	}
}

// GeolocationOptions mirrors the browser's PositionOptions.
type GeolocationOptions struct {
	EnableHighAccuracy bool `json:"enableHighAccuracy"`
	TimeoutMillis      int  `json:"timeout"`
	MaximumAgeMillis   int  `json:"maximumAge"`
}

func DefaultGeolocationOptions() GeolocationOptions {
	return GeolocationOptions{
		EnableHighAccuracy: false,
		TimeoutMillis:      5000,
		MaximumAgeMillis:   60000,
	}
}

// Browser GeolocationPositionError codes.
const (
	GeolocationPermissionDenied    int = 1
	GeolocationPositionUnavailable int = 2
	GeolocationTimeout             int = 3
)

// GeolocationMessage is the message shown when the device location lookup
// fails with code.
func GeolocationMessage(code int) string {
	switch code {
	case GeolocationPermissionDenied:
		return "❌ 위치 권한이 거부되었습니다. 브라우저 설정에서 위치 권한을 허용해주세요."
	case GeolocationPositionUnavailable:
		return "❌ 위치 정보를 사용할 수 없습니다."
	case GeolocationTimeout:
		return "❌ 위치 정보 요청 시간이 초과되었습니다. 일반 검색을 사용하세요."
	default:
		return "❌ 알 수 없는 오류가 발생했습니다."
	}
}

// GeolocationMessages is keyed by code, with "default" for everything else.
func GeolocationMessages() map[string]string {
	return map[string]string{
		strconv.Itoa(GeolocationPermissionDenied):    GeolocationMessage(GeolocationPermissionDenied),
		strconv.Itoa(GeolocationPositionUnavailable): GeolocationMessage(GeolocationPositionUnavailable),
		strconv.Itoa(GeolocationTimeout):             GeolocationMessage(GeolocationTimeout),
		"default":                                    GeolocationMessage(0),
	}
}

type Marker struct {
	Index       int       `json:"index"`
	Label       string    `json:"label"`
	Title       string    `json:"title"`
	Position    geo.Point `json:"position"`
	Highlighted bool      `json:"highlighted"`
	Starred     bool      `json:"starred"`
	Distance    string    `json:"distance,omitempty"`
	InfoHTML    string    `json:"infoHtml"`
}

// State is everything drawn on the map for one result set. The page drops
// the previous state before drawing a new one.
type State struct {
	UserLocation *geo.Point  `json:"userLocation,omitempty"`
	Markers      []Marker    `json:"markers"`
	Bounds       *geo.Bounds `json:"bounds,omitempty"`
}

// Render builds the map state for res from scratch.
func Render(res *search.Result, padding int) State {
	next := State{Markers: []Marker{}}

	if res.Origin != nil {
		origin := *res.Origin
		next.UserLocation = &origin
	}

	bounds := geo.NewBounds(padding)
	if res.Origin != nil {
		bounds.Extend(*res.Origin)
	}

	for i, s := range res.Stores {
		m := newMarker(i, s, res.Origin != nil)
		bounds.Extend(m.Position)
		next.Markers = append(next.Markers, m)
	}

	if !bounds.Empty() {
		next.Bounds = bounds
	}

	return next
}

func newMarker(i int, s search.Ranked, hasOrigin bool) Marker {
	highlighted := i < highlightedCount
	starred := highlighted && hasOrigin

	label := strconv.Itoa(i + 1)
	if starred {
		label += " " + star
	}

	m := Marker{
		Index:       i,
		Label:       label,
		Title:       s.Name,
		Position:    geo.FromNative(int64(s.MapX), int64(s.MapY)),
		Highlighted: highlighted,
		Starred:     starred,
	}

	if s.Distance != nil {
		m.Distance = geo.FormatDistance(*s.Distance)
	}

	m.InfoHTML = string(infoWindow(s, m))

	return m
}

func infoWindow(s search.Ranked, m Marker) htmlgo.HTML {
	heading := "🍪 " + s.Name
	if m.Starred {
		heading += " " + star
	}

	content := []htmlgo.HTML{
		htmlgo.H3_(htmlgo.Text(heading)),
	}

	if m.Distance != "" {
		content = append(content, htmlgo.P_(
			htmlgo.Span([]a.Attribute{a.Class_("label")}, htmlgo.Text("📏 거리:")),
			htmlgo.Text(" "),
			htmlgo.Strong_(htmlgo.Text(m.Distance)),
		))
	}

	content = append(content, htmlgo.P_(
		htmlgo.Span([]a.Attribute{a.Class_("label")}, htmlgo.Text("📍 주소:")),
		htmlgo.Text(" "+s.DisplayAddress()),
	))

	if s.HasPhone() {
		content = append(content, htmlgo.P_(
			htmlgo.Span([]a.Attribute{a.Class_("label")}, htmlgo.Text("📞 전화:")),
			htmlgo.Text(" "+s.Phone),
		))
	}

	content = append(content, htmlgo.P([]a.Attribute{a.Class_("category")}, htmlgo.Text(s.Category)))

	return htmlgo.Div([]a.Attribute{a.Class_("info-window")}, content...)
}

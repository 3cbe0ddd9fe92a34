package store

import (
	"fmt"
	"strconv"
	"strings"
)

// NoPhone is substituted when the provider has no telephone for a listing.
const NoPhone string = "전화번호 없음"

// NativeCoord is a provider coordinate in 1/10,000,000 degree units. The
// provider sends these as strings, but plain numbers are accepted too.
type NativeCoord int64

func (n *NativeCoord) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("could not parse native coordinate %q: %w", s, err)
	}

	*n = NativeCoord(v)
	return nil
}

type RawListings []RawListing

// RawListing is a single item as returned by the local search provider.
type RawListing struct {
	Title       string      `json:"title"`
	Link        string      `json:"link"`
	Category    string      `json:"category"`
	Telephone   string      `json:"telephone"`
	Address     string      `json:"address"`
	RoadAddress string      `json:"roadAddress"`
	MapX        NativeCoord `json:"mapx"`
	MapY        NativeCoord `json:"mapy"`
}

// Key is the de-duplication key of a listing.
func (r RawListing) Key() string {
	return StripMarkup(r.Title) + r.Address
}

type Store struct {
	Name          string      `json:"name"`
	Address       string      `json:"address"`
	RoadAddress   string      `json:"roadAddress"`
	MapX          NativeCoord `json:"mapx"`
	MapY          NativeCoord `json:"mapy"`
	Phone         string      `json:"phone"`
	Category      string      `json:"category"`
	Link          string      `json:"link"`
	DetailedMatch bool        `json:"detailedMatch"`
	ReviewCount   int         `json:"reviewCount,omitempty"`
	MenuCount     int         `json:"menuCount,omitempty"`
}

// Key matches RawListing.Key for the listing the store was built from.
func (s Store) Key() string {
	return s.Name + s.Address
}

// HasPhone reports whether the store carries a real telephone number.
func (s Store) HasPhone() bool {
	return s.Phone != NoPhone
}

// DisplayAddress prefers the road address.
func (s Store) DisplayAddress() string {
	if s.RoadAddress != "" {
		return s.RoadAddress
	}

	return s.Address
}

// WithDetail returns a copy of the store marked as confirmed by its detail
// page.
func (s Store) WithDetail(reviews, menus int) Store {
	s.DetailedMatch = true
	s.ReviewCount = reviews
	s.MenuCount = menus
	return s
}

func Normalize(r RawListing) Store {
	phone := r.Telephone
	if phone == "" {
		phone = NoPhone
	}

	return Store{
		Name:        StripMarkup(r.Title),
		Address:     r.Address,
		RoadAddress: r.RoadAddress,
		MapX:        r.MapX,
		MapY:        r.MapY,
		Phone:       phone,
		Category:    r.Category,
		Link:        r.Link,
	}
}

func NormalizeAll(listings []RawListing) []Store {
	out := make([]Store, 0, len(listings))
	for _, l := range listings {
		out = append(out, Normalize(l))
	}

	return out
}

var markupReplacer = strings.NewReplacer("<b>", "", "</b>", "")

// StripMarkup removes the bold tags the provider wraps around query hits.
func StripMarkup(s string) string {
	return markupReplacer.Replace(s)
}

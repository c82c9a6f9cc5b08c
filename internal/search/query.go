// internal/search/query.go
package search

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// RawParams is the loosely typed input of a search, shaped like url.Values.
type RawParams map[string][]string

// Query is the normalized search request. Optional numbers are nil when the
// caller did not send them or sent something unparseable.
type Query struct {
	UserID     string   `json:"userId,omitempty"`
	Country    string   `json:"country,omitempty"`
	Category   string   `json:"category,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Cursor     string   `json:"cursor,omitempty"`
	RoomType   string   `json:"roomType,omitempty"`

	MinPrice      *int     `json:"minPrice,omitempty"`
	MaxPrice      *int     `json:"maxPrice,omitempty"`
	Distance      *int     `json:"distance,omitempty"`
	OriginLat     *float64 `json:"originLat,omitempty"`
	OriginLng     *float64 `json:"originLng,omitempty"`
	RoomCount     *int     `json:"roomCount,omitempty"`
	GuestCount    *int     `json:"guestCount,omitempty"`
	BathroomCount *int     `json:"bathroomCount,omitempty"`

	Amenities []string `json:"amenities,omitempty"`

	FemaleOnly       bool `json:"femaleOnly"`
	MaleOnly         bool `json:"maleOnly"`
	VisitorsAllowed  bool `json:"visitorsAllowed"`
	PetsAllowed      bool `json:"petsAllowed"`
	SmokingAllowed   bool `json:"smokingAllowed"`
	Security24h      bool `json:"security24h"`
	CCTV             bool `json:"cctv"`
	FireSafety       bool `json:"fireSafety"`
	NearTransport    bool `json:"nearTransport"`
	StudyFriendly    bool `json:"studyFriendly"`
	QuietEnvironment bool `json:"quietEnvironment"`
	FlexibleLease    bool `json:"flexibleLease"`

	IncludeAllStatuses bool `json:"includeAllStatuses"`

	MoveInDate   string `json:"moveInDate,omitempty"`
	StayDuration string `json:"stayDuration,omitempty"`
	StartDate    string `json:"startDate,omitempty"`
	EndDate      string `json:"endDate,omitempty"`

	// AvailabilityStartDate and AvailabilityEndDate are YYYY-MM-DD and are
	// either both set or both empty.
	AvailabilityStartDate string `json:"availabilityStartDate,omitempty"`
	AvailabilityEndDate   string `json:"availabilityEndDate,omitempty"`
}

// Origin returns the explicit origin when both coordinates were supplied.
func (q Query) Origin() (Point, bool) {
	if q.OriginLat == nil || q.OriginLng == nil {
		return Point{}, false
	}
	return Point{Lat: *q.OriginLat, Lng: *q.OriginLng}, true
}

// AvailabilityWindow parses the derived window.
func (q Query) AvailabilityWindow() (DateRange, bool) {
	if q.AvailabilityStartDate == "" || q.AvailabilityEndDate == "" {
		return DateRange{}, false
	}
	start, err := time.Parse(dateLayout, q.AvailabilityStartDate)
	if err != nil {
		return DateRange{}, false
	}
	end, err := time.Parse(dateLayout, q.AvailabilityEndDate)
	if err != nil {
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}

// requestedFlags lists the ten secondary boolean facets in a fixed order.
func (q Query) requestedFlags() []bool {
	return []bool{
		q.VisitorsAllowed, q.PetsAllowed, q.SmokingAllowed, q.Security24h, q.CCTV,
		q.FireSafety, q.NearTransport, q.StudyFriendly, q.QuietEnvironment, q.FlexibleLease,
	}
}

var (
	leadingInt   = regexp.MustCompile(`^\s*([+-]?\d+)`)
	leadingFloat = regexp.MustCompile(`^\s*([+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)
	yearMonth    = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// Normalize turns raw parameters into a Query. It never fails: anything it
// cannot parse is treated as absent.
func Normalize(raw RawParams) Query {
	q := Query{
		UserID:       raw.first("userId"),
		Country:      raw.first("country"),
		Category:     raw.first("category"),
		Categories:   raw.list("categories"),
		Cursor:       raw.first("cursor"),
		RoomType:     raw.first("roomType"),
		Amenities:    raw.list("amenities"),
		MoveInDate:   raw.first("moveInDate"),
		StayDuration: raw.first("stayDuration"),
		StartDate:    raw.first("startDate"),
		EndDate:      raw.first("endDate"),

		MinPrice:      parseInt(raw.first("minPrice")),
		MaxPrice:      parseInt(raw.first("maxPrice")),
		Distance:      parseInt(raw.first("distance")),
		OriginLat:     parseFloat(raw.first("originLat")),
		OriginLng:     parseFloat(raw.first("originLng")),
		RoomCount:     parseInt(raw.first("roomCount")),
		GuestCount:    parseInt(raw.first("guestCount")),
		BathroomCount: parseInt(raw.first("bathroomCount")),

		FemaleOnly:         raw.flag("femaleOnly"),
		MaleOnly:           raw.flag("maleOnly"),
		VisitorsAllowed:    raw.flag("visitorsAllowed"),
		PetsAllowed:        raw.flag("petsAllowed"),
		SmokingAllowed:     raw.flag("smokingAllowed"),
		Security24h:        raw.flag("security24h"),
		CCTV:               raw.flag("cctv"),
		FireSafety:         raw.flag("fireSafety"),
		NearTransport:      raw.flag("nearTransport"),
		StudyFriendly:      raw.flag("studyFriendly"),
		QuietEnvironment:   raw.flag("quietEnvironment"),
		FlexibleLease:      raw.flag("flexibleLease"),
		IncludeAllStatuses: raw.flag("includeAllStatuses"),
	}

	if start, end, ok := moveInWindow(q.MoveInDate, q.StayDuration); ok {
		q.AvailabilityStartDate, q.AvailabilityEndDate = start, end
	} else if q.MoveInDate == "" || q.StayDuration == "" {
		if start, end, ok := explicitWindow(q.StartDate, q.EndDate); ok {
			q.AvailabilityStartDate, q.AvailabilityEndDate = start, end
		}
	}

	return q
}

func (r RawParams) values(key string) []string {
	// url.Values from "amenities[]=a&amenities[]=b" keeps the brackets.
	vals := r[key]
	if more := r[key+"[]"]; len(more) > 0 {
		vals = append(append([]string(nil), vals...), more...)
	}
	return vals
}

func (r RawParams) first(key string) string {
	vals := r.values(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (r RawParams) flag(key string) bool {
	return r.first(key) == "true"
}

func (r RawParams) list(key string) []string {
	var out []string
	for _, v := range r.values(key) {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseInt(s string) *int {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func parseFloat(s string) *float64 {
	m := leadingFloat.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// stayMonths maps a stay duration code to a number of months.
func stayMonths(code string) int {
	switch code {
	case "short-term":
		return 3
	case "long-term":
		return 12
	}
	if n := parseInt(code); n != nil && *n > 0 {
		return *n
	}
	return 1
}

func moveInWindow(moveIn, stay string) (string, string, bool) {
	if moveIn == "" || stay == "" {
		return "", "", false
	}
	if yearMonth.MatchString(moveIn) {
		moveIn += "-01"
	}
	start, err := time.Parse(dateLayout, moveIn)
	if err != nil {
		return "", "", false
	}
	end := start.AddDate(0, stayMonths(stay), 0)
	return start.Format(dateLayout), end.Format(dateLayout), true
}

func explicitWindow(startDate, endDate string) (string, string, bool) {
	start, ok := parseDate(startDate)
	if !ok {
		return "", "", false
	}
	end, ok := parseDate(endDate)
	if !ok || end.Before(start) {
		return "", "", false
	}
	return start.Format(dateLayout), end.Format(dateLayout), true
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(24 * time.Hour), true
	}
	return time.Time{}, false
}

// RawParamsFromVariables converts Zeebe job variables (decoded JSON) into
// RawParams. Numbers and booleans are rendered the way a URL would carry them.
func RawParamsFromVariables(vars map[string]interface{}) RawParams {
	raw := make(RawParams, len(vars))
	for key, v := range vars {
		var vals []string
		switch typed := v.(type) {
		case []interface{}:
			for _, item := range typed {
				if s, ok := scalarString(item); ok {
					vals = append(vals, s)
				}
			}
		case []string:
			vals = append(vals, typed...)
		default:
			if s, ok := scalarString(typed); ok {
				vals = []string{s}
			}
		}
		if len(vals) > 0 {
			raw[key] = vals
		}
	}
	return raw
}

func scalarString(v interface{}) (string, bool) {
	switch typed := v.(type) {
	case string:
		return typed, true
	case bool:
		return strconv.FormatBool(typed), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case int:
		return strconv.Itoa(typed), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case json.Number:
		return typed.String(), true
	case nil:
		return "", false
	}
	return "", false
}

// String renders the query compactly for logs.
func (q Query) String() string {
	b, err := json.Marshal(q)
	if err != nil {
		return "{}"
	}
	return strings.TrimSpace(string(b))
}

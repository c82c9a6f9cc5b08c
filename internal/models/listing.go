// internal/models/listing.go
package models

import "time"

// Listing statuses. Search only returns ListingStatusActive unless the caller
// asks for every status.
const (
	ListingStatusActive   = "active"
	ListingStatusPending  = "pending"
	ListingStatusFlagged  = "flagged"
	ListingStatusRejected = "rejected"
)

// Room types offered by landlords.
const (
	RoomTypeSolo      = "Solo"
	RoomTypeShared    = "Shared"
	RoomTypeBedSpacer = "Bed Spacer"
)

type Listing struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	RoomType    string `json:"roomType"`
	Status      string `json:"status"`

	Price         int `json:"price"`
	RoomCount     int `json:"roomCount"`
	GuestCount    int `json:"guestCount"`
	BathroomCount int `json:"bathroomCount"`

	// LatLng is [latitude, longitude]. Fewer than two elements means the
	// listing cannot be located.
	LatLng    []float64 `json:"latlng"`
	Amenities []string  `json:"amenities"`

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

	CreatedAt time.Time `json:"createdAt"`

	Reservations []Reservation `json:"reservations,omitempty"`
	Rooms        []Room        `json:"rooms"`
	Images       []Image       `json:"images"`
}

type Reservation struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Room and Image are carried through search results untouched.
type Room struct {
	ID        string `json:"id"`
	ListingID string `json:"listingId"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Price     int    `json:"price"`
}

type Image struct {
	ID        string `json:"id"`
	ListingID string `json:"listingId"`
	URL       string `json:"url"`
}

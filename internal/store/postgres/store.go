// internal/store/postgres/store.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "listing-search-workers/internal/common/errors"
	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/common/metrics"
	"listing-search-workers/internal/models"
	"listing-search-workers/internal/search"

	"github.com/lib/pq"
)

const storeName = "postgres"

const listingColumns = `l.id, l.user_id, l.title, l.description, l.category, l.room_type, l.status, ` +
	`l.price, l.room_count, l.guest_count, l.bathroom_count, l.latlng, l.amenities, ` +
	`l.female_only, l.male_only, l.visitors_allowed, l.pets_allowed, l.smoking_allowed, ` +
	`l.security_24h, l.cctv, l.fire_safety, l.near_transport, l.study_friendly, ` +
	`l.quiet_environment, l.flexible_lease, l.created_at`

const (
	roomsQuery  = `SELECT id, listing_id, name, capacity, price FROM rooms WHERE listing_id = ANY($1) ORDER BY listing_id, id`
	imagesQuery = `SELECT id, listing_id, url FROM images WHERE listing_id = ANY($1) ORDER BY listing_id, id`
)

// ListingStore reads listings from PostgreSQL.
type ListingStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewListingStore(db *sql.DB, log logger.Logger) *ListingStore {
	return &ListingStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": storeName}),
	}
}

// FindMany returns up to opts.Take listings matching f, newest first, with
// rooms and images attached.
func (s *ListingStore) FindMany(ctx context.Context, f search.Filter, opts search.FindOptions) ([]models.Listing, error) {
	start := time.Now()

	listings, err := s.findMany(ctx, f, opts)
	if err != nil {
		metrics.StoreRequests.WithLabelValues(storeName, "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewQueryTimeoutError("findListings", err)
		}
		return nil, apperrors.NewQueryExecutionFailedError("findListings", err)
	}

	metrics.StoreRequests.WithLabelValues(storeName, "ok").Inc()
	s.logger.Debug("listings fetched", map[string]interface{}{
		"rowCount":   len(listings),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return listings, nil
}

func (s *ListingStore) findMany(ctx context.Context, f search.Filter, opts search.FindOptions) ([]models.Listing, error) {
	query, args := buildListingQuery(f, opts.Take)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	if len(listings) == 0 {
		return listings, nil
	}

	if err := s.attachRelations(ctx, listings); err != nil {
		return nil, err
	}
	return listings, nil
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (w *whereBuilder) arg(v interface{}) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) add(format string, values ...interface{}) {
	placeholders := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = w.arg(v)
	}
	w.conds = append(w.conds, fmt.Sprintf(format, placeholders...))
}

func buildListingQuery(f search.Filter, take int) (string, []interface{}) {
	w := &whereBuilder{}

	if f.Status != "" {
		w.add("l.status = %s", f.Status)
	}
	if f.UserID != "" {
		w.add("l.user_id = %s", f.UserID)
	}
	if f.MinPrice != nil {
		w.add("l.price >= %s", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("l.price <= %s", *f.MaxPrice)
	}
	if f.MinRoomCount != nil {
		w.add("l.room_count >= %s", *f.MinRoomCount)
	}
	if f.MinGuestCount != nil {
		w.add("l.guest_count >= %s", *f.MinGuestCount)
	}
	if f.MinBathroomCount != nil {
		w.add("l.bathroom_count >= %s", *f.MinBathroomCount)
	}
	if f.RoomType != "" {
		w.add("l.room_type = %s", f.RoomType)
	}
	if f.FemaleOnly {
		w.conds = append(w.conds, "l.female_only = TRUE")
	}
	if f.MaleOnly {
		w.conds = append(w.conds, "l.male_only = TRUE")
	}
	if len(f.Categories) > 0 {
		w.add("l.category = ANY(%s)", pq.Array(f.Categories))
	} else if f.Category != "" {
		w.add("l.category = %s", f.Category)
	}
	if f.Available != nil {
		start, end := w.arg(f.Available.Start), w.arg(f.Available.End)
		w.conds = append(w.conds, fmt.Sprintf(
			"NOT EXISTS (SELECT 1 FROM reservations r WHERE r.listing_id = l.id AND "+
				"((r.end_date >= %[1]s AND r.start_date <= %[1]s) OR (r.start_date <= %[2]s AND r.end_date >= %[2]s)))",
			start, end))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(listingColumns)
	b.WriteString(" FROM listings l")
	if len(w.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(w.conds, " AND "))
	}
	b.WriteString(" ORDER BY l.created_at DESC LIMIT ")
	b.WriteString(w.arg(take))

	return b.String(), w.args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (models.Listing, error) {
	var (
		l           models.Listing
		description sql.NullString
		category    sql.NullString
		latlng      pq.Float64Array
		amenities   pq.StringArray
	)
	err := row.Scan(
		&l.ID, &l.UserID, &l.Title, &description, &category, &l.RoomType, &l.Status,
		&l.Price, &l.RoomCount, &l.GuestCount, &l.BathroomCount, &latlng, &amenities,
		&l.FemaleOnly, &l.MaleOnly, &l.VisitorsAllowed, &l.PetsAllowed, &l.SmokingAllowed,
		&l.Security24h, &l.CCTV, &l.FireSafety, &l.NearTransport, &l.StudyFriendly,
		&l.QuietEnvironment, &l.FlexibleLease, &l.CreatedAt,
	)
	if err != nil {
		return models.Listing{}, err
	}
	l.Description = description.String
	l.Category = category.String
	l.LatLng = []float64(latlng)
	l.Amenities = []string(amenities)
	return l, nil
}

func (s *ListingStore) attachRelations(ctx context.Context, listings []models.Listing) error {
	ids := make([]string, len(listings))
	index := make(map[string]int, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
		index[l.ID] = i
		listings[i].Rooms = []models.Room{}
		listings[i].Images = []models.Image{}
	}

	rows, err := s.db.QueryContext(ctx, roomsQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query rooms: %w", err)
	}
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.ListingID, &r.Name, &r.Capacity, &r.Price); err != nil {
			rows.Close()
			return fmt.Errorf("scan room: %w", err)
		}
		if i, ok := index[r.ListingID]; ok {
			listings[i].Rooms = append(listings[i].Rooms, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rooms: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, imagesQuery, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ID, &img.ListingID, &img.URL); err != nil {
			return fmt.Errorf("scan image: %w", err)
		}
		if i, ok := index[img.ListingID]; ok {
			listings[i].Images = append(listings[i].Images, img)
		}
	}
	return rows.Err()
}

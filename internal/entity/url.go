// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, the visits
// recorded when a short code is resolved, the users owning custom codes and
// any relevant error definitions.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("this short code is already in use")
	// ErrShortCodeReserved is returned when a short code collides with an application route.
	ErrShortCodeReserved = errors.New("this short code is reserved")
	// ErrOwnerRequired is returned when a custom short code is requested without an owner.
	ErrOwnerRequired = errors.New("custom short codes require an authenticated owner")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
)

// reservedShortCodes are first path segments served by the application itself.
var reservedShortCodes = map[string]struct{}{
	"api":       {},
	"stats":     {},
	"login":     {},
	"register":  {},
	"dashboard": {},
	"swagger":   {},
	"docs":      {},
	"metrics":   {},
}

// IsReservedShortCode reports whether code can't be used as a short code
// because it would shadow an application route.
func IsReservedShortCode(code string) bool {
	_, ok := reservedShortCodes[code]
	return ok
}

// URL represents a shortened URL.
type URL struct {
	ID          int64     // ID is the unique identifier of the URL in the database.
	ShortCode   string    // ShortCode is the code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	OwnerID     *int64    // OwnerID references the user who created the URL, nil for anonymous links.
	IsCustom    bool      // IsCustom distinguishes user-chosen codes from generated ones.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
}

// Visit is a single resolution of a short code.
type Visit struct {
	ID        int64
	URLID     int64
	Referrer  *string
	UserAgent *string
	VisitedAt time.Time
}

// ReferrerCount is the number of visits which came from a referrer.
type ReferrerCount struct {
	Referrer string
	Count    int64
}

// URLStats contains statistics related to a shortened URL.
type URLStats struct {
	URL          URL
	VisitCount   int64           // VisitCount is the number of times the shortened URL has been accessed.
	LastVisit    *time.Time      // LastVisit is nil when the URL has never been accessed.
	TopReferrers []ReferrerCount // TopReferrers are ordered by count, most frequent first.
}

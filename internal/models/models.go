// ABOUTME: Core data models for feed posts, tagged clothing items, profiles, and cart lines.
// ABOUTME: Provides constructors and display helpers shared across the fitfeed packages.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onlyfashion/fitfeed/internal/tagging"
)

// Author identifies the poster of a feed post.
type Author struct {
	ID        string
	Handle    string
	AvatarURL string
}

// TaggedItem is a clothing item anchored to a position on a post image.
type TaggedItem struct {
	ID          string
	Name        string
	Brand       string
	Price       string // display string, e.g. "¥2999"
	PriceCents  int
	Currency    string
	Sizes       []string
	Link        string
	Description string
	Position    tagging.Position
}

// FeedPost is one post in the outfit feed. Images is never empty for a post
// accepted into the feed store.
type FeedPost struct {
	ID          string
	Title       string
	Description string
	Author      Author
	CreatedAt   time.Time
	Images      []string
	LikeCount   int
	LikedByMe   bool
	Tags        []string
	Items       []TaggedItem
}

// FeedPage is one page of feed results. NextCursor is empty when there is no
// further page.
type FeedPage struct {
	Posts      []*FeedPost
	NextCursor string
}

// Profile is a user profile with optional body measurements.
type Profile struct {
	UserID    string
	Username  string
	AvatarURL string
	Bio       string
	HeightCM  *int
	ChestCM   *int
	WaistCM   *int
}

// CartItem is one line in the local shopping cart. Lines are keyed by
// (ItemID, Size); adding the same item and size again bumps Quantity.
type CartItem struct {
	LineID      string `yaml:"line_id"`
	ItemID      string `yaml:"item_id"`
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	PriceCents  int    `yaml:"price_cents"`
	Link        string `yaml:"link,omitempty"`
	Size        string `yaml:"size"`
	Brand       string `yaml:"brand,omitempty"`
	Description string `yaml:"description,omitempty"`
	Image       string `yaml:"image,omitempty"`
	PostID      string `yaml:"post_id,omitempty"`
	Quantity    int    `yaml:"quantity"`
}

// NewCartItem creates a cart line for a tagged item in the given size.
func NewCartItem(item TaggedItem, size, image, postID string) CartItem {
	return CartItem{
		LineID:      uuid.New().String(),
		ItemID:      item.ID,
		Name:        item.Name,
		Price:       item.Price,
		PriceCents:  item.PriceCents,
		Link:        item.Link,
		Size:        size,
		Brand:       item.Brand,
		Description: item.Description,
		Image:       image,
		PostID:      postID,
		Quantity:    1,
	}
}

// FormatPrice renders integer cents as a display string for the currency.
func FormatPrice(cents int, currency string) string {
	if currency == "JPY" {
		return fmt.Sprintf("¥%d", cents)
	}
	return fmt.Sprintf("$%d", cents)
}

// ParsePriceCents extracts integer cents from a display price string such as
// "$29.99" or "¥2999" by stripping every non-digit rune. Returns 0 when the
// string carries no digits.
func ParsePriceCents(s string) int {
	cents := 0
	seen := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			cents = cents*10 + int(r-'0')
			seen = true
		}
	}
	if !seen {
		return 0
	}
	return cents
}

// RelativeTime renders how long ago t was relative to now, e.g. "2 hours ago".
func RelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%d %s ago", days, plural(days, "day"))
	case d >= time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("%d %s ago", hours, plural(hours, "hour"))
	case d >= time.Minute:
		mins := int(d.Minutes())
		return fmt.Sprintf("%d %s ago", mins, plural(mins, "minute"))
	default:
		return "Just now"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}

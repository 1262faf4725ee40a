// ABOUTME: Local shopping cart with YAML persistence in the data directory.
// ABOUTME: Merges lines by item and size, and enforces size selection before adding.
package cart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/onlyfashion/fitfeed/internal/models"
)

// ErrSizeRequired is returned when an item offers several sizes and none was
// chosen. The add is blocked locally; nothing reaches the network.
var ErrSizeRequired = errors.New("please select a size before adding to cart")

// cartFile is the YAML layout of the persisted cart.
type cartFile struct {
	Items []models.CartItem `yaml:"items"`
}

// Store is the local cart. Checkout is simulated; the cart never talks to a
// payment backend.
type Store struct {
	path string

	mu    sync.Mutex
	items []models.CartItem
}

// NewStore opens the cart persisted at dataDir/cart.yaml, creating an empty
// cart when the file does not exist.
func NewStore(dataDir string) (*Store, error) {
	s := &Store{path: filepath.Join(dataDir, "cart.yaml")}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	var f cartFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse cart: %w", err)
	}
	s.items = f.Items
	return s, nil
}

// Save writes the cart back to disk.
func (s *Store) Save() error {
	s.mu.Lock()
	f := cartFile{Items: append([]models.CartItem(nil), s.items...)}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}
	return os.WriteFile(s.path, data, 0600)
}

// Add puts a tagged item into the cart in the given size. An empty size is
// accepted only when the item has exactly one size; otherwise ErrSizeRequired.
// Adding the same item and size again bumps the line's quantity.
func (s *Store) Add(item models.TaggedItem, size, image, postID string) (models.CartItem, error) {
	if size == "" {
		if len(item.Sizes) == 1 {
			size = item.Sizes[0]
		} else {
			return models.CartItem{}, ErrSizeRequired
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ItemID == item.ID && s.items[i].Size == size {
			s.items[i].Quantity++
			return s.items[i], nil
		}
	}
	line := models.NewCartItem(item, size, image, postID)
	s.items = append(s.items, line)
	return line, nil
}

// Remove deletes the line for the given item and size.
func (s *Store) Remove(itemID, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0:0]
	for _, it := range s.items {
		if !(it.ItemID == itemID && it.Size == size) {
			kept = append(kept, it)
		}
	}
	s.items = kept
}

// SetQuantity updates a line's quantity; zero or below removes the line.
func (s *Store) SetQuantity(itemID, size string, quantity int) {
	if quantity <= 0 {
		s.Remove(itemID, size)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ItemID == itemID && s.items[i].Size == size {
			s.items[i].Quantity = quantity
			return
		}
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns the cart lines in insertion order.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem(nil), s.items...)
}

// Count returns the total number of units across all lines.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// TotalCents returns the cart total in integer cents.
func (s *Store) TotalCents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, it := range s.items {
		total += it.PriceCents * it.Quantity
	}
	return total
}

// Package contacts maintains an in-memory handle→name index built from the
// macOS address-book stores. The index is a simple TTL cache: built on
// first use, rebuilt after five minutes, explicitly clearable. A contact
// added mid-window will not resolve until the window expires or Clear is
// called — that trade is deliberate, the stores are slow to enumerate.
package contacts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/HendryAvila/macbridge/internal/dbread"
)

const ttl = 5 * time.Minute

// now is a package-level var to allow test injection.
var now = time.Now

// storeFile is the versioned database filename inside each source.
const storeFile = "AddressBook-v22.abcddb"

// Entry pairs a raw handle with its resolved display name.
type Entry struct {
	Handle string `json:"handle"`
	Name   string `json:"name"`
}

// Cache is the process-wide resolution index. Concurrent rebuilds are
// tolerated — the last writer wins, and a redundant build is merely
// wasteful. Reads always see either the old or the new index, never a
// partial one.
type Cache struct {
	baseDir string
	log     zerolog.Logger

	mu      sync.RWMutex
	lookup  map[string]string
	records []Entry
	builtAt time.Time
}

// New creates an empty cache over the address-book directory
// (normally ~/Library/Application Support/AddressBook).
func New(baseDir string, log zerolog.Logger) *Cache {
	return &Cache{
		baseDir: baseDir,
		log:     log.With().Str("component", "contacts").Logger(),
		lookup:  make(map[string]string),
	}
}

// Resolve returns the display name for handle, or the handle unchanged
// when nothing matches. Phone-shaped handles get a second, normalized
// lookup so "(555) 123-4567" finds the entry stored as "+15551234567".
func (c *Cache) Resolve(ctx context.Context, handle string) string {
	c.ensureFresh(ctx)
	c.mu.RLock()
	defer c.mu.RUnlock()

	if name, ok := c.lookup[normalizeLoose(handle)]; ok {
		return name
	}
	if looksLikePhone(handle) {
		if name, ok := c.lookup[normalizePhone(handle)]; ok {
			return name
		}
	}
	return handle
}

// ResolveMany resolves a batch of handles in one freshness check.
func (c *Cache) ResolveMany(ctx context.Context, handles []string) map[string]string {
	c.ensureFresh(ctx)
	out := make(map[string]string, len(handles))
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, h := range handles {
		name, ok := c.lookup[normalizeLoose(h)]
		if !ok && looksLikePhone(h) {
			name, ok = c.lookup[normalizePhone(h)]
		}
		if !ok {
			name = h
		}
		out[h] = name
	}
	return out
}

// SearchByName returns every known handle whose display name contains term
// (case-insensitive).
func (c *Cache) SearchByName(ctx context.Context, term string) []Entry {
	c.ensureFresh(ctx)
	needle := strings.ToLower(strings.TrimSpace(term))
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matches []Entry
	for _, e := range c.records {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			matches = append(matches, e)
		}
	}
	return matches
}

// Clear drops the index; the next resolution rebuilds it.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup = make(map[string]string)
	c.records = nil
	c.builtAt = time.Time{}
}

func (c *Cache) ensureFresh(ctx context.Context) {
	c.mu.RLock()
	fresh := !c.builtAt.IsZero() && now().Sub(c.builtAt) <= ttl
	c.mu.RUnlock()
	if fresh {
		return
	}
	c.build(ctx)
}

// build enumerates every source store and loads phone and email records.
// A store that fails to open or query is logged and skipped so one broken
// account doesn't take contact resolution down with it. If no store can be
// enumerated at all, the result is an empty index and resolution falls
// back to raw handles.
func (c *Cache) build(ctx context.Context) {
	lookup := make(map[string]string)
	var records []Entry

	stores := c.sourceStores()
	for _, store := range stores {
		if err := c.loadStore(ctx, store, lookup, &records); err != nil {
			c.log.Warn().Str("store", store).Err(err).Msg("skipping address-book store")
		}
	}
	c.log.Debug().Int("stores", len(stores)).Int("handles", len(lookup)).Msg("contact cache built")

	c.mu.Lock()
	c.lookup = lookup
	c.records = records
	c.builtAt = now()
	c.mu.Unlock()
}

// sourceStores returns the root store plus one per account under Sources/.
// Only stores that actually exist are returned.
func (c *Cache) sourceStores() []string {
	var stores []string
	root := filepath.Join(c.baseDir, storeFile)
	if _, err := os.Stat(root); err == nil {
		stores = append(stores, root)
	}
	sources, err := filepath.Glob(filepath.Join(c.baseDir, "Sources", "*", storeFile))
	if err == nil {
		stores = append(stores, sources...)
	}
	return stores
}

const (
	phoneQuery = `SELECT r.ZFIRSTNAME, r.ZLASTNAME, r.ZORGANIZATION, p.ZFULLNUMBER
		FROM ZABCDPHONENUMBER p JOIN ZABCDRECORD r ON p.ZOWNER = r.Z_PK
		WHERE p.ZFULLNUMBER IS NOT NULL`
	emailQuery = `SELECT r.ZFIRSTNAME, r.ZLASTNAME, r.ZORGANIZATION, e.ZADDRESS
		FROM ZABCDEMAILADDRESS e JOIN ZABCDRECORD r ON e.ZOWNER = r.Z_PK
		WHERE e.ZADDRESS IS NOT NULL`
)

func (c *Cache) loadStore(ctx context.Context, path string, lookup map[string]string, records *[]Entry) error {
	phones, err := dbread.QueryRows(ctx, "AddressBook", path, phoneQuery)
	if err != nil {
		return err
	}
	for _, row := range phones {
		name := composeName(row[0], row[1], row[2])
		if name == "" {
			continue
		}
		handle := row[3]
		lookup[normalizeLoose(handle)] = name
		lookup[normalizePhone(handle)] = name
		*records = append(*records, Entry{Handle: handle, Name: name})
	}

	emails, err := dbread.QueryRows(ctx, "AddressBook", path, emailQuery)
	if err != nil {
		return err
	}
	for _, row := range emails {
		name := composeName(row[0], row[1], row[2])
		if name == "" {
			continue
		}
		handle := row[3]
		lookup[normalizeLoose(handle)] = name
		*records = append(*records, Entry{Handle: handle, Name: name})
	}
	return nil
}

// composeName builds a display name from the record parts, falling back
// to the organization for company-only cards.
func composeName(first, last, org string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		name = strings.TrimSpace(org)
	}
	return name
}

// normalizeLoose is the cheap form: trimmed and lowercased, good enough
// for emails and already-clean numbers.
func normalizeLoose(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// normalizePhone reduces a phone handle to digits, adding the leading
// country digit for bare 10-digit North American numbers.
func normalizePhone(handle string) string {
	var b strings.Builder
	for _, r := range handle {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		digits = "1" + digits
	}
	return digits
}

// looksLikePhone reports whether handle is plausibly a phone number:
// at least seven digits and nothing but digits, separators, and an
// optional leading plus.
func looksLikePhone(handle string) bool {
	digits := 0
	for _, r := range strings.TrimSpace(handle) {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune("+-() .", r):
		default:
			return false
		}
	}
	return digits >= 7
}

package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/macbridge/internal/contacts"
	"github.com/HendryAvila/macbridge/internal/registry"
)

// Contacts implements the contacts family over the resolution cache; no
// AppleScript involved, the address-book stores are read directly.
type Contacts struct {
	cache *contacts.Cache
}

// NewContacts creates the family over the shared cache.
func NewContacts(cache *contacts.Cache) *Contacts {
	return &Contacts{cache: cache}
}

// Register adds the contacts operations to r.
func (c *Contacts) Register(r *registry.Registry) {
	r.Register(registry.Operation{
		Name:        "contacts_search",
		Family:      "contacts",
		Description: "Find contacts whose name contains a term",
		Params: []registry.Param{
			{Name: "term", Type: "string", Required: true, Description: "partial name to search for"},
		},
		Returns: "one match per line: name: handle",
		Handler: c.search,
	})
	r.Register(registry.Operation{
		Name:        "contacts_resolve",
		Family:      "contacts",
		Description: "Resolve a phone number or email to a contact name",
		Params: []registry.Param{
			{Name: "handle", Type: "string", Required: true, Description: "phone number or email address"},
		},
		Returns: "the display name, or the handle unchanged if unknown",
		Example: `{"action":"contacts_resolve","params":{"handle":"+15551234567"}}`,
		Handler: c.resolve,
	})
	r.Register(registry.Operation{
		Name:        "contacts_refresh",
		Family:      "contacts",
		Description: "Drop the contact cache so the next resolution rebuilds it",
		Returns:     "confirmation",
		Handler:     c.refresh,
	})
}

func (c *Contacts) search(ctx context.Context, args registry.Args) (string, error) {
	term := args.String("term", "")
	matches := c.cache.SearchByName(ctx, term)
	if len(matches) == 0 {
		return fmt.Sprintf("No contacts found matching %q", term), nil
	}
	var sb strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&sb, "%s: %s\n", m.Name, m.Handle)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (c *Contacts) resolve(ctx context.Context, args registry.Args) (string, error) {
	return c.cache.Resolve(ctx, args.String("handle", "")), nil
}

func (c *Contacts) refresh(_ context.Context, _ registry.Args) (string, error) {
	c.cache.Clear()
	return "Contact cache cleared", nil
}

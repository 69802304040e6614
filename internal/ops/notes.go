package ops

import (
	"context"
	"fmt"

	"github.com/HendryAvila/macbridge/internal/applescript"
	"github.com/HendryAvila/macbridge/internal/registry"
)

// defaultNotesFolder is where created notes land unless the caller says
// otherwise, keeping gateway-created notes out of the user's own folders.
const defaultNotesFolder = "Claude"

// Notes implements the Notes family, entirely over AppleScript — the
// Notes store is a sync-managed container with no stable on-disk schema
// worth reading directly.
type Notes struct {
	run applescript.Runner
}

// NewNotes creates the family over the given runner.
func NewNotes(run applescript.Runner) *Notes {
	return &Notes{run: run}
}

// Register adds the notes operations to r.
func (n *Notes) Register(r *registry.Registry) {
	r.Register(registry.Operation{
		Name:        "notes_list",
		Family:      "notes",
		Description: "List note titles, optionally within one folder",
		Params: []registry.Param{
			{Name: "folder", Type: "string", Description: "folder to list; all folders when omitted"},
		},
		Returns: "one note title per line",
		Handler: n.list,
	})
	r.Register(registry.Operation{
		Name:        "notes_search",
		Family:      "notes",
		Description: "Search notes by title or body text",
		Params: []registry.Param{
			{Name: "query", Type: "string", Required: true, Description: "text to search for"},
		},
		Returns: "one matching note title per line",
		Handler: n.search,
	})
	r.Register(registry.Operation{
		Name:        "notes_create",
		Family:      "notes",
		Description: "Create a note, creating its folder if needed",
		Params: []registry.Param{
			{Name: "title", Type: "string", Required: true, Description: "note title"},
			{Name: "body", Type: "string", Required: true, Description: "note body text"},
			{Name: "folder", Type: "string", Default: defaultNotesFolder, Description: "destination folder"},
		},
		Returns: "confirmation naming the note and folder",
		Example: `{"action":"notes_create","params":{"title":"Standup","body":"- demo gateway"}}`,
		Handler: n.create,
	})
}

func (n *Notes) list(ctx context.Context, args registry.Args) (string, error) {
	folder := args.String("folder", "")

	source := "notes"
	if folder != "" {
		source = fmt.Sprintf(`notes of folder "%s"`, applescript.EscapeString(folder))
	}
	script := fmt.Sprintf(`tell application "Notes"
	set output to ""
	repeat with n in %s
		set output to output & (name of n) & linefeed
	end repeat
	return output
end tell`, source)

	out, err := n.run.Run(ctx, script, applescript.Options{Capability: "Notes"})
	if err != nil {
		return "", err
	}
	return orText(out, "No notes found"), nil
}

func (n *Notes) search(ctx context.Context, args registry.Args) (string, error) {
	query := applescript.EscapeString(args.String("query", ""))

	script := fmt.Sprintf(`tell application "Notes"
	set output to ""
	repeat with n in (every note whose name contains "%s" or plaintext contains "%s")
		set output to output & (name of n) & linefeed
	end repeat
	return output
end tell`, query, query)

	out, err := n.run.Run(ctx, script, applescript.Options{Capability: "Notes"})
	if err != nil {
		return "", err
	}
	return orText(out, fmt.Sprintf("No notes matching %q", args.String("query", ""))), nil
}

func (n *Notes) create(ctx context.Context, args registry.Args) (string, error) {
	title := args.String("title", "")
	body := args.String("body", "")
	folder := args.String("folder", defaultNotesFolder)

	script := fmt.Sprintf(`tell application "Notes"
	if not (exists folder "%[1]s") then make new folder with properties {name:"%[1]s"}
	make new note at folder "%[1]s" with properties {name:"%[2]s", body:"%[3]s"}
end tell`, applescript.EscapeString(folder), applescript.EscapeString(title), applescript.EscapeString(body))

	// Note creation waits on iCloud sync; give it the slow tier.
	if _, err := n.run.Run(ctx, script, applescript.Options{Capability: "Notes", Slow: true}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created note %q in folder %q", title, folder), nil
}

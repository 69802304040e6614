package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/macbridge/internal/applescript"
	"github.com/HendryAvila/macbridge/internal/registry"
)

// Reminders implements the Reminders family over AppleScript.
type Reminders struct {
	run applescript.Runner
}

// NewReminders creates the family over the given runner.
func NewReminders(run applescript.Runner) *Reminders {
	return &Reminders{run: run}
}

// Register adds the reminders operations to r.
func (rm *Reminders) Register(r *registry.Registry) {
	r.Register(registry.Operation{
		Name:        "reminders_list",
		Family:      "reminders",
		Description: "List incomplete reminders across all lists",
		Returns:     "one reminder per line with its due date when set",
		Handler:     rm.list,
	})
	r.Register(registry.Operation{
		Name:        "reminders_search",
		Family:      "reminders",
		Description: "Search reminders by name",
		Params: []registry.Param{
			{Name: "query", Type: "string", Required: true, Description: "text to match against reminder names"},
		},
		Returns: "one matching reminder per line",
		Handler: rm.search,
	})
	r.Register(registry.Operation{
		Name:        "reminders_create",
		Family:      "reminders",
		Description: "Create a reminder, optionally in a named list with notes and a due date",
		Params: []registry.Param{
			{Name: "name", Type: "string", Required: true, Description: "reminder title"},
			{Name: "list_name", Type: "string", Description: "destination list; the default list when omitted"},
			{Name: "notes", Type: "string", Description: "body text attached to the reminder"},
			{Name: "due_date", Type: "string", Description: `due date in a form AppleScript can parse, e.g. "June 3, 2026 10:00 AM"`},
		},
		Returns: "confirmation naming the reminder",
		Example: `{"action":"reminders_create","params":{"name":"Renew passport","due_date":"September 15, 2026 9:00 AM"}}`,
		Handler: rm.create,
	})
}

func (rm *Reminders) list(ctx context.Context, _ registry.Args) (string, error) {
	script := `tell application "Reminders"
	set output to ""
	repeat with r in (reminders whose completed is false)
		set entry to name of r
		if due date of r is not missing value then set entry to entry & " (due " & (due date of r as string) & ")"
		set output to output & entry & linefeed
	end repeat
	return output
end tell`

	out, err := rm.run.Run(ctx, script, applescript.Options{Capability: "Reminders"})
	if err != nil {
		return "", err
	}
	return orText(out, "No open reminders"), nil
}

func (rm *Reminders) search(ctx context.Context, args registry.Args) (string, error) {
	query := args.String("query", "")

	script := fmt.Sprintf(`tell application "Reminders"
	set output to ""
	repeat with r in (reminders whose name contains "%s" and completed is false)
		set output to output & (name of r) & linefeed
	end repeat
	return output
end tell`, applescript.EscapeString(query))

	out, err := rm.run.Run(ctx, script, applescript.Options{Capability: "Reminders"})
	if err != nil {
		return "", err
	}
	return orText(out, fmt.Sprintf("No reminders matching %q", query)), nil
}

func (rm *Reminders) create(ctx context.Context, args registry.Args) (string, error) {
	name := args.String("name", "")
	listName := args.String("list_name", "")
	notes := args.String("notes", "")
	dueDate := args.String("due_date", "")

	var sb strings.Builder
	sb.WriteString("tell application \"Reminders\"\n")
	if listName != "" {
		fmt.Fprintf(&sb, "\tset targetList to list \"%s\"\n", applescript.EscapeString(listName))
	} else {
		sb.WriteString("\tset targetList to default list\n")
	}
	fmt.Fprintf(&sb, "\tset newReminder to make new reminder at targetList with properties {name:\"%s\"}\n", applescript.EscapeString(name))
	if notes != "" {
		fmt.Fprintf(&sb, "\tset body of newReminder to \"%s\"\n", applescript.EscapeString(notes))
	}
	if dueDate != "" {
		fmt.Fprintf(&sb, "\tset due date of newReminder to date \"%s\"\n", applescript.EscapeString(dueDate))
	}
	sb.WriteString("end tell")

	// Reminder creation can wait on iCloud sync; slow tier.
	if _, err := rm.run.Run(ctx, sb.String(), applescript.Options{Capability: "Reminders", Slow: true}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created reminder %q", name), nil
}

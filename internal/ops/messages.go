package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/macbridge/internal/applescript"
	"github.com/HendryAvila/macbridge/internal/contacts"
	"github.com/HendryAvila/macbridge/internal/dbread"
	"github.com/HendryAvila/macbridge/internal/registry"
)

// Messages implements the iMessage family. Sends go through AppleScript
// (the Messages app owns the session); reads go straight to chat.db,
// which is faster and doesn't need the app frontmost.
type Messages struct {
	run      applescript.Runner
	contacts *contacts.Cache
	dbPath   string
}

// NewMessages creates the family over the given runner, contact cache,
// and chat.db path.
func NewMessages(run applescript.Runner, cc *contacts.Cache, dbPath string) *Messages {
	return &Messages{run: run, contacts: cc, dbPath: dbPath}
}

// Register adds the messages operations to r.
func (m *Messages) Register(r *registry.Registry) {
	r.Register(registry.Operation{
		Name:        "messages_send",
		Family:      "messages",
		Description: "Send an iMessage to a phone number or email handle",
		Params: []registry.Param{
			{Name: "recipient", Type: "string", Required: true, Description: "phone number or email of the recipient"},
			{Name: "message", Type: "string", Required: true, Description: "message text to send"},
		},
		Returns: "confirmation naming the recipient",
		Example: `{"action":"messages_send","params":{"recipient":"+15551234567","message":"hello"}}`,
		Handler: m.send,
	})
	r.Register(registry.Operation{
		Name:        "messages_read",
		Family:      "messages",
		Description: "Read recent messages exchanged with a phone number",
		Params: []registry.Param{
			{Name: "phone_number", Type: "string", Required: true, Description: "handle to read history for"},
			{Name: "limit", Type: "number", Default: float64(10), Description: "maximum messages to return"},
		},
		Returns: "one message per line: timestamp|sender|direction|text",
		Handler: m.read,
	})
	r.Register(registry.Operation{
		Name:        "messages_unread",
		Family:      "messages",
		Description: "List unread incoming messages across all conversations",
		Params: []registry.Param{
			{Name: "limit", Type: "number", Default: float64(10), Description: "maximum messages to return"},
		},
		Returns: "one message per line: timestamp|sender|text",
		Handler: m.unread,
	})
	r.Register(registry.Operation{
		Name:        "messages_open",
		Family:      "messages",
		Description: "Open the Messages app to a conversation with the given handle",
		Params: []registry.Param{
			{Name: "recipient", Type: "string", Required: true, Description: "phone number or email to open a conversation with"},
		},
		Returns: "confirmation",
		Handler: m.open,
	})
}

func (m *Messages) send(ctx context.Context, args registry.Args) (string, error) {
	recipient := args.String("recipient", "")
	message := args.String("message", "")

	script := fmt.Sprintf(`tell application "Messages"
	set targetService to 1st account whose service type = iMessage
	set targetBuddy to participant "%s" of targetService
	send "%s" to targetBuddy
end tell`, applescript.EscapeString(recipient), applescript.EscapeString(message))

	if _, err := m.run.Run(ctx, script, applescript.Options{Capability: "Messages"}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Message sent to %s", m.contacts.Resolve(ctx, recipient)), nil
}

// appleEpochExpr converts the chat.db nanosecond timestamps (seconds since
// 2001-01-01) to a local datetime string.
const appleEpochExpr = "datetime(m.date/1000000000 + 978307200, 'unixepoch', 'localtime')"

func (m *Messages) read(ctx context.Context, args registry.Args) (string, error) {
	handle := args.String("phone_number", "")
	limit := args.Int("limit", 10)

	pattern := dbread.LikeContains(strings.TrimPrefix(handle, "+"))
	query := fmt.Sprintf(`SELECT %s, h.id, m.is_from_me, m.text
		FROM message m JOIN handle h ON m.handle_id = h.ROWID
		WHERE h.id LIKE '%s' ESCAPE '\' AND m.text IS NOT NULL
		ORDER BY m.date DESC LIMIT %d`, appleEpochExpr, pattern, limit)

	rows, err := dbread.QueryRows(ctx, "Messages", m.dbPath, query)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No messages found for %s", handle), nil
	}

	var sb strings.Builder
	for _, row := range rows {
		direction := "received"
		if row[2] == "1" {
			direction = "sent"
		}
		fmt.Fprintf(&sb, "%s|%s|%s|%s\n", row[0], m.contacts.Resolve(ctx, row[1]), direction, row[3])
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (m *Messages) unread(ctx context.Context, args registry.Args) (string, error) {
	limit := args.Int("limit", 10)

	query := fmt.Sprintf(`SELECT %s, h.id, m.text
		FROM message m JOIN handle h ON m.handle_id = h.ROWID
		WHERE m.is_read = 0 AND m.is_from_me = 0 AND m.text IS NOT NULL
		ORDER BY m.date DESC LIMIT %d`, appleEpochExpr, limit)

	rows, err := dbread.QueryRows(ctx, "Messages", m.dbPath, query)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "No unread messages", nil
	}

	var sb strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&sb, "%s|%s|%s\n", row[0], m.contacts.Resolve(ctx, row[1]), row[2])
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (m *Messages) open(ctx context.Context, args registry.Args) (string, error) {
	recipient := args.String("recipient", "")
	if err := m.run.OpenURL(ctx, "imessage://"+recipient); err != nil {
		return "", err
	}
	return fmt.Sprintf("Opened Messages conversation with %s", recipient), nil
}

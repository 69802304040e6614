package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/macbridge/internal/dbread"
	"github.com/HendryAvila/macbridge/internal/registry"
	"github.com/HendryAvila/macbridge/internal/whatsapp"
)

// WhatsApp implements the WhatsApp family. Sends go through the bridge
// daemon's HTTP surface — only the daemon holds the live session. Reads
// go directly against the daemon's own SQLite store; the data is as fresh
// as the daemon's last sync, which is acceptable for history queries.
type WhatsApp struct {
	client *whatsapp.Client
	dbPath string
}

// NewWhatsApp creates the family over the bridge client and the daemon's
// messages.db path.
func NewWhatsApp(client *whatsapp.Client, dbPath string) *WhatsApp {
	return &WhatsApp{client: client, dbPath: dbPath}
}

// Register adds the whatsapp operations to r.
func (w *WhatsApp) Register(r *registry.Registry) {
	r.Register(registry.Operation{
		Name:        "whatsapp_send",
		Family:      "whatsapp",
		Description: "Send a WhatsApp message via the bridge daemon",
		Params: []registry.Param{
			{Name: "recipient", Type: "string", Required: true, Description: "phone number or JID of the recipient"},
			{Name: "message", Type: "string", Required: true, Description: "message text to send"},
		},
		Returns: "confirmation with the message id",
		Example: `{"action":"whatsapp_send","params":{"recipient":"15551234567","message":"hello"}}`,
		Handler: w.send,
	})
	r.Register(registry.Operation{
		Name:        "whatsapp_chats",
		Family:      "whatsapp",
		Description: "List recent WhatsApp chats, optionally filtered by name",
		Params: []registry.Param{
			{Name: "limit", Type: "number", Default: float64(20), Description: "maximum chats to return"},
			{Name: "query", Type: "string", Description: "filter chats whose name contains this text"},
		},
		Returns: "one chat per line: jid|name|last message time",
		Handler: w.chats,
	})
	r.Register(registry.Operation{
		Name:        "whatsapp_messages",
		Family:      "whatsapp",
		Description: "Read recent messages from one chat",
		Params: []registry.Param{
			{Name: "chat_jid", Type: "string", Required: true, Description: "JID of the chat to read"},
			{Name: "limit", Type: "number", Default: float64(20), Description: "maximum messages to return"},
		},
		Returns: "one message per line: timestamp|sender|direction|text",
		Handler: w.messages,
	})
	r.Register(registry.Operation{
		Name:        "whatsapp_search_contacts",
		Family:      "whatsapp",
		Description: "Search WhatsApp chats and contacts by name or JID",
		Params: []registry.Param{
			{Name: "query", Type: "string", Required: true, Description: "text to match against chat names and JIDs"},
		},
		Returns: "one match per line: jid|name",
		Handler: w.searchContacts,
	})
	r.Register(registry.Operation{
		Name:        "whatsapp_raw_sql",
		Family:      "whatsapp",
		Description: "Run a single read-only SELECT against the WhatsApp store",
		Params: []registry.Param{
			{Name: "sql", Type: "string", Required: true, Description: "one SELECT statement; no semicolons, comments, or mutating keywords"},
		},
		Returns: "pipe-delimited rows",
		Handler: w.rawSQL,
	})
	r.Register(registry.Operation{
		Name:        "whatsapp_status",
		Family:      "whatsapp",
		Description: "Check the bridge daemon's health and connected account",
		Returns:     "status line naming the connected user when available",
		Handler:     w.status,
	})
}

func (w *WhatsApp) send(ctx context.Context, args registry.Args) (string, error) {
	recipient := args.String("recipient", "")
	message := args.String("message", "")

	id, err := w.client.Send(ctx, recipient, message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("WhatsApp message %s sent to %s", id, recipient), nil
}

func (w *WhatsApp) chats(ctx context.Context, args registry.Args) (string, error) {
	limit := args.Int("limit", 20)
	filter := args.String("query", "")

	query := "SELECT jid, name, last_message_time FROM chats"
	if filter != "" {
		query += fmt.Sprintf(` WHERE name LIKE '%s' ESCAPE '\'`, dbread.LikeContains(filter))
	}
	query += fmt.Sprintf(" ORDER BY last_message_time DESC LIMIT %d", limit)

	out, err := dbread.QueryLines(ctx, "WhatsApp", w.dbPath, query)
	if err != nil {
		return "", err
	}
	return orText(out, "No chats found"), nil
}

func (w *WhatsApp) messages(ctx context.Context, args registry.Args) (string, error) {
	jid := args.String("chat_jid", "")
	limit := args.Int("limit", 20)

	query := fmt.Sprintf(`SELECT timestamp, sender, is_from_me, content
		FROM messages WHERE chat_jid = ? ORDER BY timestamp DESC LIMIT %d`, limit)

	rows, err := dbread.QueryRows(ctx, "WhatsApp", w.dbPath, query, jid)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No messages in chat %s", jid), nil
	}

	var sb strings.Builder
	for _, row := range rows {
		direction := "received"
		if row[2] == "1" {
			direction = "sent"
		}
		fmt.Fprintf(&sb, "%s|%s|%s|%s\n", row[0], row[1], direction, row[3])
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (w *WhatsApp) searchContacts(ctx context.Context, args registry.Args) (string, error) {
	term := args.String("query", "")

	pattern := dbread.LikeContains(term)
	query := fmt.Sprintf(`SELECT jid, name FROM chats
		WHERE name LIKE '%[1]s' ESCAPE '\' OR jid LIKE '%[1]s' ESCAPE '\'
		ORDER BY name`, pattern)

	out, err := dbread.QueryLines(ctx, "WhatsApp", w.dbPath, query)
	if err != nil {
		return "", err
	}
	return orText(out, fmt.Sprintf("No WhatsApp contacts matching %q", term)), nil
}

func (w *WhatsApp) rawSQL(ctx context.Context, args registry.Args) (string, error) {
	query := args.String("sql", "")
	if err := dbread.CheckReadOnly(query); err != nil {
		return "", err
	}
	out, err := dbread.QueryLines(ctx, "WhatsApp", w.dbPath, query)
	if err != nil {
		return "", err
	}
	return orText(out, "(no rows)"), nil
}

func (w *WhatsApp) status(ctx context.Context, _ registry.Args) (string, error) {
	health, err := w.client.Health(ctx)
	if err != nil {
		return "", err
	}
	if health.User != "" {
		return fmt.Sprintf("Bridge %s, connected as %s", health.Status, health.User), nil
	}
	return fmt.Sprintf("Bridge %s, no account connected", health.Status), nil
}

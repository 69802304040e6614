// Package dbread gives handlers short-lived, read-only access to protected
// SQLite stores (Messages history, the address book, the WhatsApp bridge
// store). Every query opens its own connection and closes it on all exit
// paths — no pooling, no cached handles, so a wedged store never pins a
// file descriptor past one call.
package dbread

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/macbridge/internal/errs"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// QueryRows runs one read-only query against the store at path and returns
// every row as a string slice (NULL becomes the empty string). The database
// argument is the logical store name ("Messages", "WhatsApp", ...) used in
// error messages; callers never see filesystem paths in failures.
func QueryRows(ctx context.Context, database, path, query string, args ...any) ([][]string, error) {
	db, err := openDB("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, errs.Databasef(database, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Databasef(database, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errs.Databasef(database, err)
	}

	var out [][]string
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errs.Databasef(database, err)
		}
		record := make([]string, len(cols))
		for i, v := range raw {
			if v.Valid {
				record[i] = v.String
			}
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Databasef(database, err)
	}
	return out, nil
}

// QueryLines runs QueryRows and joins the result into pipe-delimited lines,
// mirroring the `sqlite3 -separator '|'` CLI output the handlers were
// written against.
func QueryLines(ctx context.Context, database, path, query string, args ...any) (string, error) {
	rows, err := QueryRows(ctx, database, path, query, args...)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join(r, "|")
	}
	return strings.Join(lines, "\n"), nil
}

// EscapeLike makes term safe as a literal inside a LIKE pattern using
// backslash as the declared escape character. The escape character itself
// goes first, then quotes, then the two wildcards — any other order
// corrupts earlier escapes. Callers must pair the result with ESCAPE '\'.
func EscapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `'`, `''`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	term = strings.ReplaceAll(term, `_`, `\_`)
	return term
}

// mutatingKeywords are rejected on word boundaries, after string literals
// have been stripped, so identifiers merely containing them (dropped_at)
// and quoted content ('%drop-in%') still pass.
var mutatingKeywords = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|create|alter|attach|detach|pragma|replace|truncate|vacuum|reindex)\b`)

// CheckReadOnly validates caller-supplied SQL for the raw-query operation:
// a single SELECT statement with no separators, no comments, and no
// mutating keywords outside string literals. Violations are Validation
// errors; the statement is never executed.
func CheckReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return errs.Validationf("query is empty")
	}
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return errs.Validationf("only SELECT statements are allowed")
	}
	stripped, err := stripLiterals(trimmed)
	if err != nil {
		return err
	}
	if strings.Contains(stripped, ";") {
		return errs.Validationf("multiple statements are not allowed (semicolon found)")
	}
	if strings.Contains(stripped, "--") || strings.Contains(stripped, "/*") {
		return errs.Validationf("SQL comments are not allowed")
	}
	if m := mutatingKeywords.FindString(stripped); m != "" {
		return errs.Validationf("keyword %q is not allowed in read-only queries", strings.ToUpper(m))
	}
	return nil
}

// stripLiterals replaces every single-quoted string literal with '' so the
// checks above only see real SQL text. A doubled quote inside a literal is
// the standard SQL escape and stays part of the literal.
func stripLiterals(query string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '\'' {
			sb.WriteByte(c)
			continue
		}
		j := i + 1
		for {
			next := strings.IndexByte(query[j:], '\'')
			if next < 0 {
				return "", errs.Validationf("unterminated string literal")
			}
			j += next + 1
			if j < len(query) && query[j] == '\'' {
				j++
				continue
			}
			break
		}
		sb.WriteString("''")
		i = j - 1
	}
	return sb.String(), nil
}

// Quote returns s as a single-quoted SQL string literal. Only for the rare
// spot where a parameter placeholder can't be used; prefer placeholders.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// LikeContains builds a contains-style LIKE pattern for term.
func LikeContains(term string) string {
	return fmt.Sprintf("%%%s%%", EscapeLike(term))
}

package commands

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"siteworks/internal/models"
	contextutils "siteworks/internal/utils"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// cliActor is the identity used for commands run from the shell
var cliActor = models.Actor{Role: models.RoleAdmin}

// MaskDatabaseURL hides the credentials of a database URL for display
func MaskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) == 2 {
			return "postgres://***:***@" + parts[1]
		}
	}
	return url
}

// getDatabaseInfo returns database connection information
func getDatabaseInfo(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "Not connected"
	}

	var dbName string
	if err := db.QueryRowContext(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		return "Connected (unknown database)"
	}

	var host string
	if err := db.QueryRowContext(ctx, "SELECT inet_server_addr()::text").Scan(&host); err != nil {
		return fmt.Sprintf("Connected to %s", dbName)
	}

	return fmt.Sprintf("Connected to %s on %s", dbName, host)
}

// readSecret prompts for a secret. Terminals get no echo; piped input is read a line at a time.
func readSecret(cmd *cobra.Command, in *bufio.Reader, prompt string) (string, error) {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt)

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read input: %v", err)
		}
		return string(b), nil
	}

	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read input: %v", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptNewPassword asks for a password twice and checks both entries match
func promptNewPassword(cmd *cobra.Command) (string, error) {
	in := bufio.NewReader(cmd.InOrStdin())

	password, err := readSecret(cmd, in, "Enter new password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", contextutils.ErrorWithContextf("password cannot be empty")
	}

	confirm, err := readSecret(cmd, in, "Confirm new password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", contextutils.ErrorWithContextf("passwords do not match")
	}
	return password, nil
}

// writeDocument stores a rendered document under dir and returns its path
func writeDocument(dir string, doc *models.ReportDocument) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrStorage, "failed to create %s: %v", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(doc.DownloadName))
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrStorage, "failed to write %s: %v", path, err)
	}
	return path, nil
}

// Package cmdutil содержит общие помощники подкоманд клиента.
package cmdutil

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"stefabooks/internal/app/client"
)

var ErrNoApp = errors.New("приложение не инициализировано")

var (
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Info    = color.New(color.FgCyan)
)

// AppFrom достает App, положенный в контекст команды корневым PersistentPreRunE.
func AppFrom(cmd *cobra.Command) (*client.App, error) {
	app, ok := client.FromContext(cmd.Context())
	if !ok {
		return nil, ErrNoApp
	}
	return app, nil
}

// WantJSON reports whether the persistent --json flag is set.
func WantJSON(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("json")
	return err == nil && v
}

func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions 全局参数
type rootOptions struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "calendario",
		Short: "Planificador de horario semanal",
		Long: `Servidor del planificador de horario.

Sin subcomando arranca el servidor HTTP (equivalente a "serve").`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "ruta del archivo de configuración (yaml)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newImportCatalogCommand(opts))
	cmd.AddCommand(newAllowCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

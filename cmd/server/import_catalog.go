package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nicoleon0812/calendario-carrera/internal/service"
)

func newImportCatalogCommand(opts *rootOptions) *cobra.Command {
	var (
		file  string
		sheet string
	)

	cmd := &cobra.Command{
		Use:   "import-catalog",
		Short: "Importa el catálogo de ramos desde un archivo Excel",
		Long: `Importa ramos desde un .xlsx con columnas id / nombre / creditos.

Los códigos existentes se sobrescriben. El servidor toma el catálogo nuevo al reiniciarse.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("打开文件失败: %w", err)
			}
			defer f.Close()

			rows, err := service.ParseCatalogFile(f, sheet)
			if err != nil {
				return err
			}

			a, err := bootstrap(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.migrate(); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}

			resp, err := a.svc.Catalog.Import(context.Background(), rows)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "filas: %d, importadas: %d, con error: %d\n", resp.Total, resp.Imported, len(resp.Failed))
			for _, e := range resp.Failed {
				fmt.Fprintf(out, "  fila %d (%s): %s\n", e.Row, e.ID, e.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "archivo .xlsx")
	cmd.Flags().StringVar(&sheet, "sheet", "", "hoja a leer (por defecto la primera)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

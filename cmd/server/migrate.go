package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nicoleon0812/calendario-carrera/pkg/database"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica (o revierte con --down) las migraciones de la base de datos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if down <= 0 {
				if err := a.migrate(); err != nil {
					return fmt.Errorf("数据库迁移失败: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migraciones aplicadas")
				return nil
			}

			sqlDB, err := a.db.DB()
			if err != nil {
				return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
			}
			if err := database.RollbackMigrations(sqlDB, down, a.logger); err != nil {
				return fmt.Errorf("数据库回滚失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d migración(es) revertida(s)\n", down)
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "número de migraciones a revertir")
	return cmd
}

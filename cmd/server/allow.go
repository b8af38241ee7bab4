package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nicoleon0812/calendario-carrera/config"
)

func newAllowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "allow <email> [nombre]",
		Short: "Agrega o actualiza un correo en la lista de acceso",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 1 {
				name = args[1]
			}

			a, err := bootstrap(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.migrate(); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}

			identity, err := a.svc.Access.Allow(context.Background(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "autorizado: %s\n", identity.Email)
			if a.cfg.Access.Mode != config.AccessModeAllowList {
				fmt.Fprintf(cmd.ErrOrStderr(), "aviso: access.mode es %q, la lista no se consulta al iniciar sesión\n", a.cfg.Access.Mode)
			}
			return nil
		},
	}
}

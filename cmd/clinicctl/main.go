// clinicctl 运维命令行：数据库迁移、初始化班次模板、创建管理员
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Clinic ledger operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径（默认查找 ./config/config.yaml）")

	root.AddCommand(
		newMigrateCmd(&configPath),
		newSeedTemplatesCmd(&configPath),
		newCreateAdminCmd(&configPath),
	)
	return root
}

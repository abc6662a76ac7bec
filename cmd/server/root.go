package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "boxatlas",
		Short:         "BoxAtlas 收纳箱管理服务：地点层级、箱子与二维码",
		SilenceUsage:  true,
		SilenceErrors: false,
		// 不带子命令时直接启动 HTTP 服务
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	cmd.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newMemberCmd(&configPath),
		newQrCmd(&configPath),
		newTokenCmd(&configPath),
	)
	return cmd
}

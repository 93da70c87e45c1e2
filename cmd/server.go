package cmd

import (
	"Melodix/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 Melodix 服务器",
	Long:  `启动 Melodix 的 HTTP 服务器，加载曲库并构建搜索索引，提供认证、搜索和事件推送 API`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

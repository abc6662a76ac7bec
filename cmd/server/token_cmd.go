package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"boxatlas/backend/config"
	"boxatlas/backend/pkg/jwt"
)

// newTokenCmd 签发测试或运维用的 Access Token；正式环境由身份服务签发
func newTokenCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access Token 工具",
	}

	var (
		userID string
		ttl    time.Duration
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "为指定用户签发 Access Token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if ttl > 0 {
				cfg.Auth.AccessTokenTTL = ttl
			}

			token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(userID)
			if err != nil {
				return fmt.Errorf("签发 Token 失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issue.Flags().StringVar(&userID, "user", "", "用户 ID（必填）")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "有效期（默认 auth.access_token_ttl）")
	_ = issue.MarkFlagRequired("user")
	cmd.AddCommand(issue)

	return cmd
}

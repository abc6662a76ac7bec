package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boxatlas/backend/internal/model"
	"boxatlas/backend/pkg/redis"
)

func newMemberCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "工作区成员管理",
	}

	var (
		workspaceID string
		userID      string
		role        string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "添加或更新工作区成员",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := uuid.Parse(workspaceID); err != nil {
				return fmt.Errorf("invalid --workspace: %w", err)
			}

			a, err := bootstrap(*configPath, true)
			if err != nil {
				return err
			}
			defer a.close()

			repo, _ := a.services()
			member := &model.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: role}
			if err := repo.Member.Add(cmd.Context(), member); err != nil {
				return fmt.Errorf("添加成员失败: %w", err)
			}
			invalidateMembership(cmd, a.rdb, workspaceID, userID, a.logger)

			fmt.Fprintf(cmd.OutOrStdout(), "已添加成员 %s → %s (%s)\n", userID, workspaceID, role)
			return nil
		},
	}
	add.Flags().StringVar(&workspaceID, "workspace", "", "工作区 UUID（必填）")
	add.Flags().StringVar(&userID, "user", "", "用户 ID（必填）")
	add.Flags().StringVar(&role, "role", "member", "成员角色")
	_ = add.MarkFlagRequired("workspace")
	_ = add.MarkFlagRequired("user")
	cmd.AddCommand(add)

	return cmd
}

// invalidateMembership 清除缓存中的否定结果，使新成员立即生效
func invalidateMembership(cmd *cobra.Command, rdb *redis.Client, workspaceID, userID string, logger *zap.Logger) {
	if rdb == nil {
		return
	}
	if err := rdb.InvalidateMembership(cmd.Context(), workspaceID, userID); err != nil {
		logger.Warn("清除成员缓存失败", zap.String("workspace_id", workspaceID), zap.Error(err))
	}
}

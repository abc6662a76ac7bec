package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"boxatlas/backend/internal/dto"
	"boxatlas/backend/internal/model"
)

func newQrCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "二维码批量操作",
	}

	var (
		workspaceID string
		userID      string
		quantity    int
		xlsxPath    string
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "批量生成二维码，可选导出待打印标签",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			_, svc := a.services()
			codes, err := svc.QrCode.GenerateBatch(cmd.Context(), workspaceID, &dto.GenerateQrCodesRequest{Quantity: quantity}, userID)
			if err != nil {
				return fmt.Errorf("生成二维码失败: %w", err)
			}
			for _, c := range codes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.Code, c.ScanURL)
			}

			if xlsxPath == "" {
				return nil
			}
			buf, _, err := svc.QrCode.ExportLabels(cmd.Context(), workspaceID, string(model.QrCodeGenerated), userID)
			if err != nil {
				return fmt.Errorf("导出标签失败: %w", err)
			}
			if err := os.WriteFile(xlsxPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("写入 %s 失败: %w", xlsxPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "标签已导出到 %s\n", xlsxPath)
			return nil
		},
	}
	generate.Flags().StringVar(&workspaceID, "workspace", "", "工作区 UUID（必填）")
	generate.Flags().StringVar(&userID, "user", "", "以该成员身份执行（必填）")
	generate.Flags().IntVarP(&quantity, "quantity", "n", 10, "生成数量")
	generate.Flags().StringVar(&xlsxPath, "xlsx", "", "导出所有未打印标签到该路径")
	_ = generate.MarkFlagRequired("workspace")
	_ = generate.MarkFlagRequired("user")
	cmd.AddCommand(generate)

	return cmd
}

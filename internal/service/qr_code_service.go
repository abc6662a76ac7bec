package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"boxatlas/backend/config"
	"boxatlas/backend/internal/dto"
	"boxatlas/backend/internal/model"
	"boxatlas/backend/internal/repository"
	pkgerrors "boxatlas/backend/pkg/errors"
	"boxatlas/backend/pkg/shortid"
)

// qrBatchMaxAttempts 标签与已有记录冲突时整批重试的次数
const qrBatchMaxAttempts = 3

// errLabelCollision 批次内标签与已有二维码冲突，仅用于触发重试
var errLabelCollision = errors.New("qr label collision")

// QrCodeService 二维码业务接口
//
// 设计说明：
//   - 二维码批量预生成（status=generated），之后由箱子占用
//   - 标签使用去除易混字符的字母表，便于手工输入
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type QrCodeService interface {
	GenerateBatch(ctx context.Context, workspaceID string, req *dto.GenerateQrCodesRequest, callerID string) ([]dto.QrCodeResponse, error)
	GetByID(ctx context.Context, workspaceID, id, callerID string) (*dto.QrCodeResponse, error)
	Resolve(ctx context.Context, workspaceID, code, callerID string) (*dto.QrCodeResolveResponse, error)
	List(ctx context.Context, workspaceID string, req *dto.QrCodeListRequest, callerID string) (*dto.PageResult[dto.QrCodeResponse], error)
	MarkPrinted(ctx context.Context, workspaceID string, req *dto.MarkPrintedRequest, callerID string) (int64, error)
	// ExportLabels 导出二维码标签清单为 Excel，返回内容与建议文件名
	ExportLabels(ctx context.Context, workspaceID, status, callerID string) (*bytes.Buffer, string, error)
}

type qrCodeService struct {
	repo       *repository.Repository
	members    MembershipChecker
	codeLength int
	maxBatch   int
	baseURL    string
	logger     *zap.Logger
}

// NewQrCodeService 创建 QrCodeService 实例
func NewQrCodeService(cfg *config.Config, repo *repository.Repository, members MembershipChecker, logger *zap.Logger) QrCodeService {
	return &qrCodeService{
		repo:       repo,
		members:    members,
		codeLength: cfg.QR.CodeLength,
		maxBatch:   cfg.QR.MaxBatch,
		baseURL:    strings.TrimRight(cfg.Server.BaseURL, "/"),
		logger:     logger,
	}
}

// ────────────────────── GenerateBatch ──────────────────────

func (s *qrCodeService) GenerateBatch(ctx context.Context, workspaceID string, req *dto.GenerateQrCodesRequest, callerID string) ([]dto.QrCodeResponse, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Quantity > s.maxBatch {
		return nil, fmt.Errorf("%w: 单次最多生成 %d 个二维码", ErrInvalidInput, s.maxBatch)
	}

	var rows []*model.QrCode
	for attempt := 1; attempt <= qrBatchMaxAttempts; attempt++ {
		batch, err := s.generateOnce(ctx, workspaceID, req.Quantity, callerID)
		if err == nil {
			rows = batch
			break
		}
		if !errors.Is(err, errLabelCollision) {
			return nil, storageFailure(s.logger, "生成二维码失败", err,
				zap.String("workspace_id", workspaceID), zap.Int("quantity", req.Quantity))
		}
		s.logger.Warn("二维码标签冲突，重新生成",
			zap.String("workspace_id", workspaceID), zap.Int("attempt", attempt))
	}
	if rows == nil {
		return nil, storageFailure(s.logger, "二维码标签多次冲突", errLabelCollision,
			zap.String("workspace_id", workspaceID), zap.Int("quantity", req.Quantity))
	}

	qrCodesGenerated.Add(float64(len(rows)))

	result := make([]dto.QrCodeResponse, 0, len(rows))
	for _, qr := range rows {
		result = append(result, *s.toQrCodeResponse(qr))
	}
	return result, nil
}

func (s *qrCodeService) generateOnce(ctx context.Context, workspaceID string, quantity int, callerID string) ([]*model.QrCode, error) {
	codes, err := shortid.Batch(shortid.Printable, s.codeLength, quantity)
	if err != nil {
		return nil, err
	}

	rows := make([]*model.QrCode, 0, len(codes))
	err = s.repo.RunInTx(ctx, func(tx *repository.Repository) error {
		existing, err := tx.QrCode.ExistingCodes(ctx, codes)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errLabelCollision
		}

		for _, code := range codes {
			qr := &model.QrCode{
				Code:        code,
				WorkspaceID: workspaceID,
				Status:      model.QrCodeGenerated,
			}
			qr.SetCreator(callerID)
			rows = append(rows, qr)
		}
		if err := tx.QrCode.CreateBatch(ctx, rows); err != nil {
			// 检查与插入之间被并发批次抢占
			if pkgerrors.IsUniqueViolation(err, "") {
				return errLabelCollision
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *qrCodeService) GetByID(ctx context.Context, workspaceID, id, callerID string) (*dto.QrCodeResponse, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}

	qr, err := s.repo.QrCode.GetByID(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, ErrQrCodeNotFound
		}
		return nil, storageFailure(s.logger, "查询二维码失败", err, zap.String("id", id))
	}
	if qr.WorkspaceID != workspaceID {
		return nil, ErrQrCodeNotFound
	}
	return s.toQrCodeResponse(qr), nil
}

// ────────────────────── Resolve ──────────────────────

// Resolve 扫码解析：按标签查找二维码及其当前所属箱子
func (s *qrCodeService) Resolve(ctx context.Context, workspaceID, code, callerID string) (*dto.QrCodeResolveResponse, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	qr, err := s.repo.QrCode.GetByCode(ctx, workspaceID, code)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, ErrQrCodeNotFound
		}
		return nil, storageFailure(s.logger, "按标签查询二维码失败", err, zap.String("code", code))
	}

	resp := &dto.QrCodeResolveResponse{QrCode: *s.toQrCodeResponse(qr)}
	if qr.BoxID != nil {
		box, err := s.repo.Box.GetByID(ctx, *qr.BoxID)
		switch {
		case err == nil:
			resp.Box = toBoxResponse(box)
		case pkgerrors.IsNotFound(err):
			s.logger.Warn("二维码指向的箱子不存在", zap.String("code", code), zap.String("box_id", *qr.BoxID))
		default:
			return nil, storageFailure(s.logger, "查询箱子失败", err, zap.String("box_id", *qr.BoxID))
		}
	}
	return resp, nil
}

// ────────────────────── List ──────────────────────

func (s *qrCodeService) List(ctx context.Context, workspaceID string, req *dto.QrCodeListRequest, callerID string) (*dto.PageResult[dto.QrCodeResponse], error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	codes, total, err := s.repo.QrCode.List(ctx, repository.QrCodeFilter{
		WorkspaceID: workspaceID,
		Status:      model.QrCodeStatus(req.Status),
		Offset:      req.GetOffset(),
		Limit:       req.GetPageSize(),
	})
	if err != nil {
		return nil, storageFailure(s.logger, "列出二维码失败", err, zap.String("workspace_id", workspaceID))
	}

	list := make([]dto.QrCodeResponse, 0, len(codes))
	for i := range codes {
		list = append(list, *s.toQrCodeResponse(&codes[i]))
	}
	return &dto.PageResult[dto.QrCodeResponse]{
		List:     list,
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	}, nil
}

// ────────────────────── MarkPrinted ──────────────────────

// MarkPrinted 只有空闲的二维码会变为 printed，返回实际更新的数量
func (s *qrCodeService) MarkPrinted(ctx context.Context, workspaceID string, req *dto.MarkPrintedRequest, callerID string) (int64, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return 0, err
	}
	if err := validateRequest(req); err != nil {
		return 0, err
	}

	n, err := s.repo.QrCode.MarkPrinted(ctx, workspaceID, req.IDs, time.Now(), callerID)
	if err != nil {
		return 0, storageFailure(s.logger, "标记二维码已打印失败", err, zap.String("workspace_id", workspaceID))
	}
	return n, nil
}

// ═══════════════════════════════════════════════════════════
// ExportLabels 导出二维码标签清单
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "二维码标签"
//   - 列：标签 | 状态 | 扫码链接 | 箱子编号 | 箱子名称 | 打印时间

var labelHeaders = []string{"标签", "状态", "扫码链接", "箱子编号", "箱子名称", "打印时间"}

func (s *qrCodeService) ExportLabels(ctx context.Context, workspaceID, status, callerID string) (*bytes.Buffer, string, error) {
	if err := requireMember(ctx, s.members, s.logger, workspaceID, callerID); err != nil {
		return nil, "", err
	}
	if status != "" && !model.QrCodeStatus(status).Valid() {
		return nil, "", fmt.Errorf("%w: 未知的二维码状态 %q", ErrInvalidInput, status)
	}

	// 1. 查询二维码（不分页）
	codes, _, err := s.repo.QrCode.List(ctx, repository.QrCodeFilter{
		WorkspaceID: workspaceID,
		Status:      model.QrCodeStatus(status),
	})
	if err != nil {
		return nil, "", storageFailure(s.logger, "查询二维码失败", err, zap.String("workspace_id", workspaceID))
	}

	// 2. 查询持有箱子
	boxIDs := make([]string, 0, len(codes))
	for _, qr := range codes {
		if qr.BoxID != nil {
			boxIDs = append(boxIDs, *qr.BoxID)
		}
	}
	boxes, err := s.repo.Box.ListByIDs(ctx, boxIDs)
	if err != nil {
		return nil, "", storageFailure(s.logger, "查询箱子失败", err, zap.String("workspace_id", workspaceID))
	}
	boxIndex := make(map[string]*model.Box, len(boxes))
	for i := range boxes {
		boxIndex[boxes[i].BoxID] = &boxes[i]
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "二维码标签"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 40)
	f.SetColWidth(sheetName, "D", "D", 14)
	f.SetColWidth(sheetName, "E", "E", 28)
	f.SetColWidth(sheetName, "F", "F", 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range labelHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(labelHeaders)-1), 1), headerStyle)

	row := 2
	for _, qr := range codes {
		f.SetCellValue(sheetName, cell("A", row), qr.Code)
		f.SetCellValue(sheetName, cell("B", row), string(qr.Status))
		f.SetCellValue(sheetName, cell("C", row), s.scanURL(qr.Code))
		if qr.BoxID != nil {
			if box, ok := boxIndex[*qr.BoxID]; ok {
				f.SetCellValue(sheetName, cell("D", row), box.ShortID)
				f.SetCellValue(sheetName, cell("E", row), box.Name)
			}
		}
		if qr.PrintedAt != nil {
			f.SetCellValue(sheetName, cell("F", row), formatTime(*qr.PrintedAt))
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", storageFailure(s.logger, "写入 Excel 失败", err)
	}

	filename := fmt.Sprintf("qr_labels_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func (s *qrCodeService) scanURL(code string) string {
	return s.baseURL + "/q/" + code
}

func (s *qrCodeService) toQrCodeResponse(qr *model.QrCode) *dto.QrCodeResponse {
	resp := &dto.QrCodeResponse{
		ID:          qr.QrCodeID,
		Code:        qr.Code,
		WorkspaceID: qr.WorkspaceID,
		Status:      string(qr.Status),
		BoxID:       qr.BoxID,
		ScanURL:     s.scanURL(qr.Code),
		CreatedAt:   formatTime(qr.CreatedAt),
	}
	if qr.PrintedAt != nil {
		printed := formatTime(*qr.PrintedAt)
		resp.PrintedAt = &printed
	}
	return resp
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/qr_code_service.go

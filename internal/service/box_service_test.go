package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"

	"boxatlas/backend/config"
	"boxatlas/backend/internal/dto"
	"boxatlas/backend/internal/model"
)

const (
	locAttic  = "10000000-0000-4000-8000-0000000000a1"
	locCellar = "10000000-0000-4000-8000-0000000000a2"
	qrOne     = "30000000-0000-4000-8000-0000000000b1"
	qrTwo     = "30000000-0000-4000-8000-0000000000b2"
)

// ── 测试辅助 ──

func setupTestBoxService(releaseReplaced bool) (BoxService, *mockRepos) {
	repos := newMockRepos()
	members := newMockMembership()
	members.add(testWS, testCaller)
	cfg := &config.BoxConfig{ShortIDLength: 10, ReleaseReplacedQRCode: releaseReplaced}
	return NewBoxService(cfg, repos.repo, members, zap.NewNop()), repos
}

func assertQrFree(t *testing.T, repos *mockRepos, id string) {
	t.Helper()
	qr := repos.qr.codes[id]
	if qr.Status != model.QrCodeGenerated || qr.BoxID != nil {
		t.Errorf("二维码 %s 应为空闲，实际 status=%s box_id=%v", id, qr.Status, qr.BoxID)
	}
}

func assertQrHeldBy(t *testing.T, repos *mockRepos, id, boxID string) {
	t.Helper()
	qr := repos.qr.codes[id]
	if qr.Status != model.QrCodeAssigned || qr.BoxID == nil || *qr.BoxID != boxID {
		t.Errorf("二维码 %s 应被 %s 占用，实际 status=%s box_id=%v", id, boxID, qr.Status, qr.BoxID)
	}
}

// ── Create 测试 ──

func TestBoxService_Create_Success(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedLocation(locAttic, testWS, "Attic", "root.attic")
	repos.seedQrCode(qrOne, testWS, "AAAA2222")

	box, err := svc.Create(context.Background(), testWS, &dto.CreateBoxRequest{
		Name:       "Winter clothes",
		Tags:       []string{" winter ", "clothes", "winter", ""},
		LocationID: strPtr(locAttic),
		QrCodeID:   strPtr(qrOne),
	}, testCaller)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	if !regexp.MustCompile(`^[0-9A-Za-z]{10}$`).MatchString(box.ShortID) {
		t.Errorf("短编号格式错误: %q", box.ShortID)
	}
	if strings.Join(box.Tags, ",") != "winter,clothes" {
		t.Errorf("标签应去重去空白，实际=%v", box.Tags)
	}
	if box.LocationID == nil || *box.LocationID != locAttic {
		t.Errorf("期望 location_id=%s", locAttic)
	}
	assertQrHeldBy(t, repos, qrOne, box.ID)
}

func TestBoxService_Create_NoTagsGivesEmptyList(t *testing.T) {
	svc, _ := setupTestBoxService(false)

	box, err := svc.Create(context.Background(), testWS, &dto.CreateBoxRequest{Name: "Bare"}, testCaller)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if box.Tags == nil || len(box.Tags) != 0 {
		t.Errorf("期望空标签列表，实际=%v", box.Tags)
	}
	if box.LocationID != nil || box.QrCodeID != nil {
		t.Error("未指定时地点与二维码应为空")
	}
}

func TestBoxService_Create_ScenarioB(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedQrCode(qrOne, testWS, "AAAA2222")
	repos.seedQrCode(qrTwo, testWS, "BBBB3333")

	box1, err := svc.Create(context.Background(), testWS, &dto.CreateBoxRequest{Name: "Box1", QrCodeID: strPtr(qrOne)}, testCaller)
	if err != nil {
		t.Fatalf("Box1 应创建成功: %v", err)
	}
	assertQrHeldBy(t, repos, qrOne, box1.ID)

	_, err = svc.Create(context.Background(), testWS, &dto.CreateBoxRequest{Name: "Box2", QrCodeID: strPtr(qrOne)}, testCaller)
	if !errors.Is(err, ErrQrCodeAlreadyAssigned) {
		t.Fatalf("期望 ErrQrCodeAlreadyAssigned，实际=%v", err)
	}
	if len(repos.box.boxes) != 1 {
		t.Errorf("失败的创建不应留下箱子，实际 %d 个", len(repos.box.boxes))
	}
	assertQrFree(t, repos, qrTwo)
}

func TestBoxService_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *mockRepos)
		req   *dto.CreateBoxRequest
		want  error
	}{
		{
			name: "二维码不存在",
			req:  &dto.CreateBoxRequest{Name: "b", QrCodeID: strPtr(qrOne)},
			want: ErrQrCodeNotFound,
		},
		{
			name:  "二维码属于其他工作区",
			setup: func(r *mockRepos) { r.seedQrCode(qrOne, otherWS, "AAAA2222") },
			req:   &dto.CreateBoxRequest{Name: "b", QrCodeID: strPtr(qrOne)},
			want:  ErrWorkspaceMismatch,
		},
		{
			name: "地点不存在",
			req:  &dto.CreateBoxRequest{Name: "b", LocationID: strPtr(locAttic)},
			want: ErrLocationNotFound,
		},
		{
			name:  "地点已软删除",
			setup: func(r *mockRepos) { r.seedLocation(locAttic, testWS, "Attic", "root.attic").IsDeleted = true },
			req:   &dto.CreateBoxRequest{Name: "b", LocationID: strPtr(locAttic)},
			want:  ErrLocationNotFound,
		},
		{
			name:  "地点属于其他工作区",
			setup: func(r *mockRepos) { r.seedLocation(locAttic, otherWS, "Attic", "root.attic") },
			req:   &dto.CreateBoxRequest{Name: "b", LocationID: strPtr(locAttic)},
			want:  ErrWorkspaceMismatch,
		},
		{
			name: "二维码先于地点校验",
			req:  &dto.CreateBoxRequest{Name: "b", LocationID: strPtr(locAttic), QrCodeID: strPtr(qrOne)},
			want: ErrQrCodeNotFound,
		},
		{
			name: "标签过多",
			req:  &dto.CreateBoxRequest{Name: "b", Tags: make([]string, 21)},
			want: ErrInvalidInput,
		},
		{
			name: "标签过长",
			req:  &dto.CreateBoxRequest{Name: "b", Tags: []string{strings.Repeat("t", 51)}},
			want: ErrInvalidInput,
		},
		{
			name: "描述过长",
			req:  &dto.CreateBoxRequest{Name: "b", Description: strings.Repeat("d", 1001)},
			want: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repos := setupTestBoxService(false)
			if tt.setup != nil {
				tt.setup(repos)
			}
			_, err := svc.Create(context.Background(), testWS, tt.req, testCaller)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际=%v", tt.want, err)
			}
			if len(repos.box.boxes) != 0 {
				t.Error("校验失败不应写入箱子")
			}
		})
	}
}

func TestBoxService_Create_ClaimLostIsAlreadyAssigned(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedQrCode(qrOne, testWS, "AAAA2222")
	// 预检查时空闲，占用时已被并发请求抢走
	repos.qr.refuseClaim = true

	_, err := svc.Create(context.Background(), testWS, &dto.CreateBoxRequest{Name: "late", QrCodeID: strPtr(qrOne)}, testCaller)
	if !errors.Is(err, ErrQrCodeAlreadyAssigned) {
		t.Errorf("期望 ErrQrCodeAlreadyAssigned，实际=%v", err)
	}
}

func TestBoxService_Create_NotMember(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedQrCode(qrOne, testWS, "AAAA2222")

	_, err := svc.Create(context.Background(), testWS, &dto.CreateBoxRequest{Name: "x", QrCodeID: strPtr(qrOne)}, outsider)
	if !errors.Is(err, ErrNotWorkspaceMember) {
		t.Errorf("期望 ErrNotWorkspaceMember，实际=%v", err)
	}
	assertQrFree(t, repos, qrOne)
}

// ── Update 测试 ──

func TestBoxService_Update_MoveAndClearLocation(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedLocation(locAttic, testWS, "Attic", "root.attic")
	repos.seedLocation(locCellar, testWS, "Cellar", "root.cellar")
	repos.seedBox("b1", testWS, "Box1", strPtr(locAttic), nil)

	box, err := svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{LocationID: strPtr(locCellar)}, testCaller)
	if err != nil {
		t.Fatalf("移动应成功: %v", err)
	}
	if box.LocationID == nil || *box.LocationID != locCellar {
		t.Errorf("期望 location_id=%s", locCellar)
	}

	box, err = svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{LocationID: strPtr("")}, testCaller)
	if err != nil {
		t.Fatalf("清除地点应成功: %v", err)
	}
	if box.LocationID != nil {
		t.Error("期望 location_id 为空")
	}
}

func TestBoxService_Update_FieldsUnchangedWhenNil(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedLocation(locAttic, testWS, "Attic", "root.attic")
	repos.seedQrCode(qrOne, testWS, "AAAA2222")
	repos.seedBox("b1", testWS, "Box1", strPtr(locAttic), strPtr(qrOne))

	tags := []string{"fragile"}
	box, err := svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{Name: strPtr("Renamed"), Tags: &tags}, testCaller)
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if box.Name != "Renamed" || strings.Join(box.Tags, ",") != "fragile" {
		t.Errorf("名称或标签未更新: %+v", box)
	}
	if box.LocationID == nil || box.QrCodeID == nil {
		t.Error("未提供的关联字段应保持不变")
	}
	assertQrHeldBy(t, repos, qrOne, "b1")
}

func TestBoxService_Update_InvalidLocation(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedLocation(locAttic, otherWS, "Attic", "root.attic")
	repos.seedBox("b1", testWS, "Box1", nil, nil)

	_, err := svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{LocationID: strPtr(locAttic)}, testCaller)
	if !errors.Is(err, ErrWorkspaceMismatch) {
		t.Errorf("期望 ErrWorkspaceMismatch，实际=%v", err)
	}

	_, err = svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{LocationID: strPtr(locCellar)}, testCaller)
	if !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("期望 ErrLocationNotFound，实际=%v", err)
	}
}

func TestBoxService_LocationCheckHoldsSharedLock(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedLocation(locAttic, testWS, "Attic", "root.attic")
	repos.seedLocation(locCellar, testWS, "Cellar", "root.cellar")

	box, err := svc.Create(context.Background(), testWS, &dto.CreateBoxRequest{Name: "Box1", LocationID: strPtr(locAttic)}, testCaller)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if _, err := svc.Update(context.Background(), testWS, box.ID, &dto.UpdateBoxRequest{LocationID: strPtr(locCellar)}, testCaller); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}

	if got := strings.Join(repos.location.sharedReads, ","); got != locAttic+","+locCellar {
		t.Errorf("地点校验应以共享锁读取，实际=%s", got)
	}
}

func TestBoxService_QrCheckedBeforeLocation(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedBox("b1", testWS, "Box1", nil, nil)

	_, err := svc.Create(context.Background(), testWS, &dto.CreateBoxRequest{
		Name: "Box2", LocationID: strPtr(locCellar), QrCodeID: strPtr(qrTwo),
	}, testCaller)
	if !errors.Is(err, ErrQrCodeNotFound) {
		t.Errorf("Create: 期望 ErrQrCodeNotFound，实际=%v", err)
	}

	_, err = svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{
		LocationID: strPtr(locCellar), QrCodeID: strPtr(qrTwo),
	}, testCaller)
	if !errors.Is(err, ErrQrCodeNotFound) {
		t.Errorf("Update: 期望 ErrQrCodeNotFound，实际=%v", err)
	}
}

func TestBoxService_Update_ReassignSameQrIsIdempotent(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedQrCode(qrOne, testWS, "AAAA2222")
	repos.seedBox("b1", testWS, "Box1", nil, strPtr(qrOne))

	for i := 0; i < 2; i++ {
		box, err := svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{QrCodeID: strPtr(qrOne)}, testCaller)
		if err != nil {
			t.Fatalf("第 %d 次重复绑定应成功: %v", i+1, err)
		}
		if box.QrCodeID == nil || *box.QrCodeID != qrOne {
			t.Errorf("期望 qr_code_id=%s", qrOne)
		}
	}
	assertQrHeldBy(t, repos, qrOne, "b1")
}

func TestBoxService_Update_QrHeldByOtherBox(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedQrCode(qrOne, testWS, "AAAA2222")
	repos.seedBox("b1", testWS, "Box1", nil, strPtr(qrOne))
	repos.seedBox("b2", testWS, "Box2", nil, nil)

	_, err := svc.Update(context.Background(), testWS, "b2", &dto.UpdateBoxRequest{QrCodeID: strPtr(qrOne)}, testCaller)
	if !errors.Is(err, ErrQrCodeAlreadyAssigned) {
		t.Errorf("期望 ErrQrCodeAlreadyAssigned，实际=%v", err)
	}
	assertQrHeldBy(t, repos, qrOne, "b1")
}

func TestBoxService_Update_ClearQrReleasesIt(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedQrCode(qrOne, testWS, "AAAA2222")
	repos.seedBox("b1", testWS, "Box1", nil, strPtr(qrOne))

	box, err := svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{QrCodeID: strPtr("")}, testCaller)
	if err != nil {
		t.Fatalf("清除二维码应成功: %v", err)
	}
	if box.QrCodeID != nil {
		t.Error("期望 qr_code_id 为空")
	}
	assertQrFree(t, repos, qrOne)
}

func TestBoxService_Update_ReplaceQr(t *testing.T) {
	tests := []struct {
		name            string
		releaseReplaced bool
	}{
		{"默认保留旧码占用", false},
		{"配置后释放旧码", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repos := setupTestBoxService(tt.releaseReplaced)
			repos.seedQrCode(qrOne, testWS, "AAAA2222")
			repos.seedQrCode(qrTwo, testWS, "BBBB3333")
			repos.seedBox("b1", testWS, "Box1", nil, strPtr(qrOne))

			box, err := svc.Update(context.Background(), testWS, "b1", &dto.UpdateBoxRequest{QrCodeID: strPtr(qrTwo)}, testCaller)
			if err != nil {
				t.Fatalf("换绑应成功: %v", err)
			}
			if box.QrCodeID == nil || *box.QrCodeID != qrTwo {
				t.Errorf("期望 qr_code_id=%s", qrTwo)
			}
			assertQrHeldBy(t, repos, qrTwo, "b1")
			if tt.releaseReplaced {
				assertQrFree(t, repos, qrOne)
			} else {
				assertQrHeldBy(t, repos, qrOne, "b1")
			}
		})
	}
}

func TestBoxService_Update_NotFound(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedBox("foreign", otherWS, "Foreign", nil, nil)

	for _, id := range []string{"missing", "foreign"} {
		_, err := svc.Update(context.Background(), testWS, id, &dto.UpdateBoxRequest{Name: strPtr("x")}, testCaller)
		if !errors.Is(err, ErrBoxNotFound) {
			t.Errorf("%s: 期望 ErrBoxNotFound，实际=%v", id, err)
		}
	}
}

// ── Delete 测试 ──

func TestBoxService_Delete_ReleasesQrCodes(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedQrCode(qrOne, testWS, "AAAA2222")
	repos.seedQrCode(qrTwo, testWS, "BBBB3333")
	repos.seedBox("b1", testWS, "Box1", nil, strPtr(qrTwo))
	// 换绑后仍指向该箱子的旧码同样需要释放
	repos.qr.codes[qrOne].BoxID = strPtr("b1")
	repos.qr.codes[qrOne].Status = model.QrCodeAssigned

	if err := svc.Delete(context.Background(), testWS, "b1", testCaller); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, ok := repos.box.boxes["b1"]; ok {
		t.Error("箱子应被物理删除")
	}
	assertQrFree(t, repos, qrOne)
	assertQrFree(t, repos, qrTwo)

	if err := svc.Delete(context.Background(), testWS, "b1", testCaller); !errors.Is(err, ErrBoxNotFound) {
		t.Errorf("重复删除应返回 ErrBoxNotFound，实际=%v", err)
	}
}

func TestBoxService_Delete_StorageError(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedBox("b1", testWS, "Box1", nil, nil)
	repos.qr.err = errors.New("deadlock detected")

	if err := svc.Delete(context.Background(), testWS, "b1", testCaller); !errors.Is(err, ErrOperationFailed) {
		t.Errorf("期望 ErrOperationFailed，实际=%v", err)
	}
}

// ── 查询测试 ──

func TestBoxService_GetAndList(t *testing.T) {
	svc, repos := setupTestBoxService(false)
	repos.seedBox("b1", testWS, "Box1", strPtr(locAttic), nil)
	repos.seedBox("b2", testWS, "Box2", nil, nil)
	repos.seedBox("b3", testWS, "Box3", nil, nil)
	repos.seedBox("foreign", otherWS, "Foreign", nil, nil)

	box, err := svc.GetByID(context.Background(), testWS, "b1", testCaller)
	if err != nil || box.Name != "Box1" {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), testWS, "foreign", testCaller); !errors.Is(err, ErrBoxNotFound) {
		t.Errorf("跨工作区应返回 ErrBoxNotFound，实际=%v", err)
	}

	byShort, err := svc.GetByShortID(context.Background(), testWS, "Sb2", testCaller)
	if err != nil || byShort.ID != "b2" {
		t.Fatalf("GetByShortID 失败: %v", err)
	}

	page, err := svc.List(context.Background(), testWS, &dto.BoxListRequest{
		PaginationRequest: dto.PaginationRequest{Page: 2, PageSize: 2},
	}, testCaller)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if page.Total != 3 || len(page.List) != 1 || page.Page != 2 {
		t.Errorf("分页结果错误: total=%d len=%d page=%d", page.Total, len(page.List), page.Page)
	}

	unassigned, err := svc.List(context.Background(), testWS, &dto.BoxListRequest{Unassigned: true}, testCaller)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if unassigned.Total != 2 {
		t.Errorf("期望 2 个未分配箱子，实际=%d", unassigned.Total)
	}
}

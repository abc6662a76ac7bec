package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"boxatlas/backend/internal/model"
	"boxatlas/backend/internal/repository"
)

// ── Mock MembershipChecker ──

type mockMembership struct {
	members map[string]bool
	err     error
	calls   int
}

func newMockMembership() *mockMembership {
	return &mockMembership{members: make(map[string]bool)}
}

func (m *mockMembership) add(workspaceID, userID string) {
	m.members[workspaceID+"|"+userID] = true
}

func (m *mockMembership) IsMember(_ context.Context, workspaceID, userID string) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.members[workspaceID+"|"+userID], nil
}

// ── Mock LocationRepository ──

type mockLocationRepo struct {
	locations map[string]*model.Location
	seq       int
	// hidePaths 使 ExistsPath 恒为 false，模拟并发下预检查被绕过
	hidePaths bool
	// sharedReads 记录以共享锁读取的地点 id
	sharedReads []string
	err         error
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{locations: make(map[string]*model.Location)}
}

func (m *mockLocationRepo) pathTaken(workspaceID, path, excludeID string) bool {
	for _, l := range m.locations {
		if l.WorkspaceID == workspaceID && l.Path == path && !l.IsDeleted && l.LocationID != excludeID {
			return true
		}
	}
	return false
}

func (m *mockLocationRepo) Create(_ context.Context, loc *model.Location) error {
	if m.err != nil {
		return m.err
	}
	if m.pathTaken(loc.WorkspaceID, loc.Path, "") {
		return gorm.ErrDuplicatedKey
	}
	if loc.LocationID == "" {
		m.seq++
		loc.LocationID = fmt.Sprintf("10000000-0000-4000-8000-%012d", m.seq)
	}
	now := time.Now()
	loc.CreatedAt, loc.UpdatedAt = now, now
	cp := *loc
	m.locations[loc.LocationID] = &cp
	return nil
}

func (m *mockLocationRepo) GetByID(_ context.Context, id string) (*model.Location, error) {
	if m.err != nil {
		return nil, m.err
	}
	if l, ok := m.locations[id]; ok && !l.IsDeleted {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLocationRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Location, error) {
	return m.GetByID(ctx, id)
}

func (m *mockLocationRepo) GetByIDForShare(ctx context.Context, id string) (*model.Location, error) {
	m.sharedReads = append(m.sharedReads, id)
	return m.GetByID(ctx, id)
}

func (m *mockLocationRepo) ExistsPath(_ context.Context, workspaceID, path, excludeID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.hidePaths {
		return false, nil
	}
	return m.pathTaken(workspaceID, path, excludeID), nil
}

func (m *mockLocationRepo) ListChildren(_ context.Context, workspaceID, parentPath string, depth int) ([]model.Location, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.Location
	for _, l := range m.locations {
		if l.WorkspaceID == workspaceID && !l.IsDeleted && l.Depth == depth && strings.HasPrefix(l.Path, parentPath+".") {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockLocationRepo) ListByPaths(_ context.Context, workspaceID string, paths []string) ([]model.Location, error) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	var result []model.Location
	for _, l := range m.locations {
		if l.WorkspaceID == workspaceID && !l.IsDeleted && want[l.Path] {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Depth < result[j].Depth })
	return result, nil
}

func (m *mockLocationRepo) ListSubtree(_ context.Context, workspaceID, path string) ([]model.Location, error) {
	var result []model.Location
	for _, l := range m.locations {
		if l.WorkspaceID == workspaceID && !l.IsDeleted && strings.HasPrefix(l.Path, path+".") {
			result = append(result, *l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

func (m *mockLocationRepo) Update(_ context.Context, loc *model.Location) error {
	if m.err != nil {
		return m.err
	}
	if m.pathTaken(loc.WorkspaceID, loc.Path, loc.LocationID) {
		return gorm.ErrDuplicatedKey
	}
	cp := *loc
	cp.UpdatedAt = time.Now()
	m.locations[loc.LocationID] = &cp
	return nil
}

func (m *mockLocationRepo) SoftDelete(_ context.Context, ids []string, deletedBy string) error {
	if m.err != nil {
		return m.err
	}
	for _, id := range ids {
		if l, ok := m.locations[id]; ok {
			l.IsDeleted = true
			l.UpdatedBy = &deletedBy
		}
	}
	return nil
}

// ── Mock BoxRepository ──

type mockBoxRepo struct {
	boxes map[string]*model.Box
	seq   int
	err   error
}

func newMockBoxRepo() *mockBoxRepo {
	return &mockBoxRepo{boxes: make(map[string]*model.Box)}
}

func (m *mockBoxRepo) Create(_ context.Context, box *model.Box) error {
	if m.err != nil {
		return m.err
	}
	if box.QrCodeID != nil {
		for _, b := range m.boxes {
			if b.QrCodeID != nil && *b.QrCodeID == *box.QrCodeID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	if box.BoxID == "" {
		m.seq++
		box.BoxID = fmt.Sprintf("20000000-0000-4000-8000-%012d", m.seq)
	}
	now := time.Now()
	box.CreatedAt, box.UpdatedAt = now, now
	cp := *box
	m.boxes[box.BoxID] = &cp
	return nil
}

func (m *mockBoxRepo) GetByID(_ context.Context, id string) (*model.Box, error) {
	if m.err != nil {
		return nil, m.err
	}
	if b, ok := m.boxes[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBoxRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Box, error) {
	return m.GetByID(ctx, id)
}

func (m *mockBoxRepo) GetByShortID(_ context.Context, workspaceID, shortID string) (*model.Box, error) {
	for _, b := range m.boxes {
		if b.WorkspaceID == workspaceID && b.ShortID == shortID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBoxRepo) ExistsShortID(_ context.Context, shortID string) (bool, error) {
	for _, b := range m.boxes {
		if b.ShortID == shortID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBoxRepo) List(_ context.Context, filter repository.BoxFilter) ([]model.Box, int64, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	var matched []model.Box
	for _, b := range m.boxes {
		if b.WorkspaceID != filter.WorkspaceID {
			continue
		}
		if filter.LocationID != "" && (b.LocationID == nil || *b.LocationID != filter.LocationID) {
			continue
		}
		if filter.Unassigned && b.LocationID != nil {
			continue
		}
		matched = append(matched, *b)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].BoxID < matched[j].BoxID })
	total := int64(len(matched))
	if filter.Limit > 0 {
		end := filter.Offset + filter.Limit
		if filter.Offset > len(matched) {
			matched = nil
		} else {
			if end > len(matched) {
				end = len(matched)
			}
			matched = matched[filter.Offset:end]
		}
	}
	return matched, total, nil
}

func (m *mockBoxRepo) ListByIDs(_ context.Context, ids []string) ([]model.Box, error) {
	var result []model.Box
	for _, id := range ids {
		if b, ok := m.boxes[id]; ok {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockBoxRepo) Update(_ context.Context, box *model.Box) error {
	if m.err != nil {
		return m.err
	}
	if box.QrCodeID != nil {
		for _, b := range m.boxes {
			if b.BoxID != box.BoxID && b.QrCodeID != nil && *b.QrCodeID == *box.QrCodeID {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	cp := *box
	cp.UpdatedAt = time.Now()
	m.boxes[box.BoxID] = &cp
	return nil
}

func (m *mockBoxRepo) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.boxes, id)
	return nil
}

func (m *mockBoxRepo) UnassignLocations(_ context.Context, workspaceID string, locationIDs []string, updatedBy string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	ids := make(map[string]bool, len(locationIDs))
	for _, id := range locationIDs {
		ids[id] = true
	}
	var n int64
	for _, b := range m.boxes {
		if b.WorkspaceID == workspaceID && b.LocationID != nil && ids[*b.LocationID] {
			b.LocationID = nil
			b.UpdatedBy = &updatedBy
			n++
		}
	}
	return n, nil
}

// ── Mock QrCodeRepository ──

type mockQrCodeRepo struct {
	codes map[string]*model.QrCode
	seq   int
	// collisions 前 N 次 ExistingCodes 调用报告冲突
	collisions int
	// refuseClaim 使 Claim 恒返回未命中，模拟并发竞争失败
	refuseClaim bool
	err         error
}

func newMockQrCodeRepo() *mockQrCodeRepo {
	return &mockQrCodeRepo{codes: make(map[string]*model.QrCode)}
}

func (m *mockQrCodeRepo) CreateBatch(_ context.Context, codes []*model.QrCode) error {
	if m.err != nil {
		return m.err
	}
	for _, qr := range codes {
		if qr.QrCodeID == "" {
			m.seq++
			qr.QrCodeID = fmt.Sprintf("30000000-0000-4000-8000-%012d", m.seq)
		}
		qr.CreatedAt = time.Now()
		cp := *qr
		m.codes[qr.QrCodeID] = &cp
	}
	return nil
}

func (m *mockQrCodeRepo) GetByID(_ context.Context, id string) (*model.QrCode, error) {
	if m.err != nil {
		return nil, m.err
	}
	if qr, ok := m.codes[id]; ok {
		cp := *qr
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQrCodeRepo) GetByCode(_ context.Context, workspaceID, code string) (*model.QrCode, error) {
	for _, qr := range m.codes {
		if qr.WorkspaceID == workspaceID && qr.Code == code {
			cp := *qr
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockQrCodeRepo) ExistingCodes(_ context.Context, codes []string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.collisions > 0 {
		m.collisions--
		return codes[:1], nil
	}
	var existing []string
	for _, c := range codes {
		for _, qr := range m.codes {
			if qr.Code == c {
				existing = append(existing, c)
			}
		}
	}
	return existing, nil
}

func (m *mockQrCodeRepo) List(_ context.Context, filter repository.QrCodeFilter) ([]model.QrCode, int64, error) {
	var result []model.QrCode
	for _, qr := range m.codes {
		if qr.WorkspaceID == filter.WorkspaceID && (filter.Status == "" || qr.Status == filter.Status) {
			result = append(result, *qr)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, int64(len(result)), nil
}

func (m *mockQrCodeRepo) Claim(_ context.Context, id, boxID, updatedBy string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.refuseClaim {
		return false, nil
	}
	qr, ok := m.codes[id]
	if !ok || (qr.BoxID != nil && *qr.BoxID != boxID) {
		return false, nil
	}
	qr.BoxID = &boxID
	qr.Status = model.QrCodeAssigned
	qr.UpdatedBy = &updatedBy
	return true, nil
}

func (m *mockQrCodeRepo) Release(_ context.Context, id, boxID, _ string) (int64, error) {
	qr, ok := m.codes[id]
	if !ok || qr.BoxID == nil || *qr.BoxID != boxID {
		return 0, nil
	}
	qr.BoxID = nil
	qr.Status = model.QrCodeGenerated
	return 1, nil
}

func (m *mockQrCodeRepo) ReleaseByBox(_ context.Context, boxID, _ string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, qr := range m.codes {
		if qr.BoxID != nil && *qr.BoxID == boxID {
			qr.BoxID = nil
			qr.Status = model.QrCodeGenerated
			n++
		}
	}
	return n, nil
}

func (m *mockQrCodeRepo) MarkPrinted(_ context.Context, workspaceID string, ids []string, at time.Time, _ string) (int64, error) {
	var n int64
	for _, id := range ids {
		if qr, ok := m.codes[id]; ok && qr.WorkspaceID == workspaceID && qr.Status == model.QrCodeGenerated {
			qr.Status = model.QrCodePrinted
			printed := at
			qr.PrintedAt = &printed
			n++
		}
	}
	return n, nil
}

// ── Mock MemberRepository ──

type mockMemberRepo struct {
	members map[string]bool
	err     error
	calls   int
}

func newMockMemberRepo() *mockMemberRepo {
	return &mockMemberRepo{members: make(map[string]bool)}
}

func (m *mockMemberRepo) IsMember(_ context.Context, workspaceID, userID string) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.members[workspaceID+"|"+userID], nil
}

func (m *mockMemberRepo) Add(_ context.Context, member *model.WorkspaceMember) error {
	m.members[member.WorkspaceID+"|"+member.UserID] = true
	return nil
}

// ── 测试夹具 ──

const (
	parentUUID = "10000000-0000-4000-8000-999999999999"
	testWS     = "ws-001"
	otherWS    = "ws-002"
	testCaller = "user-001"
	outsider   = "user-999"
)

type mockRepos struct {
	location *mockLocationRepo
	box      *mockBoxRepo
	qr       *mockQrCodeRepo
	member   *mockMemberRepo
	repo     *repository.Repository
}

func newMockRepos() *mockRepos {
	m := &mockRepos{
		location: newMockLocationRepo(),
		box:      newMockBoxRepo(),
		qr:       newMockQrCodeRepo(),
		member:   newMockMemberRepo(),
	}
	m.repo = &repository.Repository{
		Location: m.location,
		Box:      m.box,
		QrCode:   m.qr,
		Member:   m.member,
	}
	return m
}

// seedLocation 直接写入地点（绕过服务层校验）
func (m *mockRepos) seedLocation(id, workspaceID, name, path string) *model.Location {
	loc := &model.Location{
		LocationID:  id,
		WorkspaceID: workspaceID,
		Name:        name,
		Path:        path,
		Depth:       strings.Count(path, ".") + 1,
	}
	m.location.locations[id] = loc
	return loc
}

func (m *mockRepos) seedQrCode(id, workspaceID, code string) *model.QrCode {
	qr := &model.QrCode{QrCodeID: id, WorkspaceID: workspaceID, Code: code, Status: model.QrCodeGenerated}
	m.qr.codes[id] = qr
	return qr
}

func (m *mockRepos) seedBox(id, workspaceID, name string, locationID, qrCodeID *string) *model.Box {
	box := &model.Box{BoxID: id, ShortID: "S" + id, WorkspaceID: workspaceID, Name: name, LocationID: locationID, QrCodeID: qrCodeID}
	m.box.boxes[id] = box
	if qrCodeID != nil {
		if qr, ok := m.qr.codes[*qrCodeID]; ok {
			qr.BoxID = &box.BoxID
			qr.Status = model.QrCodeAssigned
		}
	}
	return box
}

func strPtr(s string) *string { return &s }

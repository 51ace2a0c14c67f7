package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"supervitec-sgd/backend/internal/dto"
	"supervitec-sgd/backend/internal/model"
	"supervitec-sgd/backend/internal/repository"
	pkgerrors "supervitec-sgd/backend/pkg/errors"
	"supervitec-sgd/backend/pkg/mailer"
)

// mock 仓储保存副本，行为与 GORM 实现的唯一约束、乐观锁一致

// ── Mock DriverRepository ──

type mockDriverRepo struct {
	mu      sync.Mutex
	drivers map[string]model.Driver
}

func newMockDriverRepo() *mockDriverRepo {
	return &mockDriverRepo{drivers: make(map[string]model.Driver)}
}

func (m *mockDriverRepo) Create(_ context.Context, d *model.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[d.DriverID]; ok {
		return gorm.ErrDuplicatedKey
	}
	m.drivers[d.DriverID] = *d
	return nil
}

func (m *mockDriverRepo) GetByID(_ context.Context, id string) (*model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (m *mockDriverRepo) Update(_ context.Context, d *model.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.DriverID] = *d
	return nil
}

func (m *mockDriverRepo) Upsert(_ context.Context, d *model.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.DriverID] = *d
	return nil
}

func (m *mockDriverRepo) List(_ context.Context, filters *repository.DriverListFilters, offset, limit int) ([]model.Driver, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Driver
	for _, d := range m.drivers {
		if filters != nil {
			if filters.VehicleType != "" && d.VehicleType != filters.VehicleType {
				continue
			}
			if filters.Active != nil && d.Active != *filters.Active {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(d.Name, filters.Keyword) && !strings.Contains(d.DriverID, filters.Keyword) {
				continue
			}
		}
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockDriverRepo) ListActive(_ context.Context) ([]model.Driver, error) {
	active := true
	list, _, err := m.List(context.Background(), &repository.DriverListFilters{Active: &active}, 0, 1<<20)
	return list, err
}

// ── Mock WorkCalendarRepository ──

type mockWorkCalendarRepo struct {
	mu        sync.Mutex
	calendars map[string]model.WorkCalendar
}

func newMockWorkCalendarRepo() *mockWorkCalendarRepo {
	return &mockWorkCalendarRepo{calendars: make(map[string]model.WorkCalendar)}
}

func calendarKey(userID string, year, month int) string {
	return userID + "|" + dateOf(year, month, 1)[:7]
}

func (m *mockWorkCalendarRepo) Get(_ context.Context, userID string, year, month int) (*model.WorkCalendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.calendars[calendarKey(userID, year, month)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cal.NonWorkingDays = append([]string(nil), cal.NonWorkingDays...)
	return &cal, nil
}

func (m *mockWorkCalendarRepo) Upsert(_ context.Context, cal *model.WorkCalendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := calendarKey(cal.UserID, cal.Year, cal.Month)
	if existing, ok := m.calendars[key]; ok {
		cal.WorkCalendarID = existing.WorkCalendarID
	} else {
		cal.BeforeCreate(nil)
	}
	stored := *cal
	stored.NonWorkingDays = append([]string(nil), cal.NonWorkingDays...)
	m.calendars[key] = stored
	return nil
}

func (m *mockWorkCalendarRepo) Delete(_ context.Context, userID string, year, month int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := calendarKey(userID, year, month)
	_, ok := m.calendars[key]
	delete(m.calendars, key)
	return ok, nil
}

// ── Mock SubmissionRepository ──

type mockSubmissionRepo struct {
	mu      sync.Mutex
	records map[string]model.SubmissionRecord
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{records: make(map[string]model.SubmissionRecord)}
}

func submissionKey(userID, date string) string { return userID + "|" + date }

func (m *mockSubmissionRepo) Get(_ context.Context, userID, date string) (*model.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[submissionKey(userID, date)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rec, nil
}

func (m *mockSubmissionRepo) Upsert(_ context.Context, rec *model.SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := submissionKey(rec.UserID, rec.Date)
	if existing, ok := m.records[key]; ok {
		rec.RecordID = existing.RecordID
		rec.AdminNotified = existing.AdminNotified
	} else {
		rec.BeforeCreate(nil)
	}
	m.records[key] = *rec
	return nil
}

func (m *mockSubmissionRepo) CreateIfAbsent(_ context.Context, rec *model.SubmissionRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := submissionKey(rec.UserID, rec.Date)
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	rec.BeforeCreate(nil)
	m.records[key] = *rec
	return true, nil
}

func (m *mockSubmissionRepo) ListByDate(_ context.Context, date string) ([]model.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []model.SubmissionRecord
	for _, r := range m.records {
		if r.Date == date {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].UserID < recs[j].UserID })
	return recs, nil
}

func (m *mockSubmissionRepo) ListByUserRange(_ context.Context, userID, startDate, endDate string) ([]model.SubmissionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []model.SubmissionRecord
	for _, r := range m.records {
		if r.UserID == userID && r.Date >= startDate && r.Date <= endDate {
			recs = append(recs, r)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Date < recs[j].Date })
	return recs, nil
}

func (m *mockSubmissionRepo) MarkAdminNotified(_ context.Context, userID, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := submissionKey(userID, date)
	if rec, ok := m.records[key]; ok {
		rec.AdminNotified = true
		m.records[key] = rec
	}
	return nil
}

// ── Mock SanctionRepository ──

type mockSanctionRepo struct {
	mu       sync.Mutex
	records  map[string]model.SanctionRecord
	entries  []model.SanctionEntry
	missed   []model.MissedCitationEntry
	unblocks []model.UnblockEntry
}

func newMockSanctionRepo() *mockSanctionRepo {
	return &mockSanctionRepo{records: make(map[string]model.SanctionRecord)}
}

func (m *mockSanctionRepo) Get(_ context.Context, userID string) (*model.SanctionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	rec.History = nil
	for _, e := range m.entries {
		if e.UserID == userID {
			rec.History = append(rec.History, e)
		}
	}
	sort.Slice(rec.History, func(i, j int) bool { return rec.History[i].SanctionNumber < rec.History[j].SanctionNumber })
	rec.MissedCitationHistory = nil
	for _, e := range m.missed {
		if e.UserID == userID {
			rec.MissedCitationHistory = append(rec.MissedCitationHistory, e)
		}
	}
	rec.UnblockHistory = nil
	for _, e := range m.unblocks {
		if e.UserID == userID {
			rec.UnblockHistory = append(rec.UnblockHistory, e)
		}
	}
	return &rec, nil
}

func (m *mockSanctionRepo) GetOrCreate(_ context.Context, userID, userName string, _ bool) (*model.SanctionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		rec = model.SanctionRecord{UserID: userID, UserName: userName}
		rec.Version = 1
		m.records[userID] = rec
	}
	return &rec, nil
}

func (m *mockSanctionRepo) Update(_ context.Context, rec *model.SanctionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[rec.UserID]
	if !ok || stored.Version != rec.Version {
		return pkgerrors.ErrOptimisticLock
	}
	rec.Version++
	saved := *rec
	saved.History, saved.MissedCitationHistory, saved.UnblockHistory = nil, nil, nil
	m.records[rec.UserID] = saved
	return nil
}

func (m *mockSanctionRepo) AddEntry(_ context.Context, entry *model.SanctionEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.UserID == entry.UserID && (e.Date == entry.Date || e.SanctionNumber == entry.SanctionNumber) {
			return false, nil
		}
	}
	entry.BeforeCreate(nil)
	m.entries = append(m.entries, *entry)
	return true, nil
}

func (m *mockSanctionRepo) HasEntry(_ context.Context, userID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.UserID == userID && e.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSanctionRepo) AddMissedCitation(_ context.Context, entry *model.MissedCitationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.BeforeCreate(nil)
	m.missed = append(m.missed, *entry)
	return nil
}

func (m *mockSanctionRepo) AddUnblock(_ context.Context, entry *model.UnblockEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.BeforeCreate(nil)
	m.unblocks = append(m.unblocks, *entry)
	return nil
}

func (m *mockSanctionRepo) ListByUsers(_ context.Context, userIDs []string) ([]model.SanctionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var recs []model.SanctionRecord
	for _, id := range userIDs {
		if rec, ok := m.records[id]; ok {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// ── Mock CitationRepository ──

type mockCitationRepo struct {
	mu        sync.Mutex
	citations map[string]model.Citation
	listCalls int
	// createErrs 非空时 Create 依次返回其中的错误（nil 表示正常写入）
	createErrs []error
}

func newMockCitationRepo() *mockCitationRepo {
	return &mockCitationRepo{citations: make(map[string]model.Citation)}
}

func (m *mockCitationRepo) Create(_ context.Context, c *model.Citation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if c.ActiveKey != nil {
		for _, existing := range m.citations {
			if existing.ActiveKey != nil && *existing.ActiveKey == *c.ActiveKey {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	c.BeforeCreate(nil)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.citations[c.CitationID] = *c
	return nil
}

func (m *mockCitationRepo) GetByID(_ context.Context, id string) (*model.Citation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.citations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (m *mockCitationRepo) GetActive(_ context.Context, userID string) (*model.Citation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.citations {
		if c.ActiveKey != nil && *c.ActiveKey == userID && c.Status == model.CitationScheduled {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCitationRepo) ReleaseStale(_ context.Context, userID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.citations {
		if c.ActiveKey != nil && *c.ActiveKey == userID && c.CitationDate.Before(now) {
			c.ActiveKey = nil
			m.citations[id] = c
			n++
		}
	}
	return n, nil
}

func (m *mockCitationRepo) Resolve(_ context.Context, c *model.Citation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.citations[c.CitationID]
	if !ok || stored.Status != model.CitationScheduled {
		return pkgerrors.ErrOptimisticLock
	}
	stored.Status = c.Status
	stored.MarkedBy = c.MarkedBy
	stored.MarkedAt = c.MarkedAt
	stored.Notes = c.Notes
	stored.ActiveKey = nil
	m.citations[c.CitationID] = stored
	c.ActiveKey = nil
	return nil
}

func (m *mockCitationRepo) SetCalendarEvent(_ context.Context, id, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.citations[id]; ok {
		c.CalendarEventID = &eventID
		m.citations[id] = c
	}
	return nil
}

func (m *mockCitationRepo) List(_ context.Context, filters *repository.CitationListFilters) ([]model.Citation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Citation
	for _, c := range m.citations {
		if filters != nil {
			if filters.Status != "" && c.Status != filters.Status {
				continue
			}
			if filters.UserID != "" && c.UserID != filters.UserID {
				continue
			}
		}
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CitationDate.Equal(list[j].CitationDate) {
			return list[i].CitationDate.After(list[j].CitationDate)
		}
		return list[i].CitationID < list[j].CitationID
	})
	m.listCalls++
	if filters != nil && filters.Offset > 0 {
		if filters.Offset >= len(list) {
			return nil, nil
		}
		list = list[filters.Offset:]
	}
	if filters != nil && filters.Limit > 0 && len(list) > filters.Limit {
		list = list[:filters.Limit]
	}
	return list, nil
}

// byUser 测试辅助：某司机的全部约谈
func (m *mockCitationRepo) byUser(userID string) []model.Citation {
	list, _ := m.List(context.Background(), &repository.CitationListFilters{UserID: userID})
	return list
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu   sync.Mutex
	logs []model.NotificationLog
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, log *model.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.BeforeCreate(nil)
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockNotificationRepo) List(_ context.Context, filters *repository.NotificationListFilters, offset, limit int) ([]model.NotificationLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.NotificationLog
	for _, l := range m.logs {
		if filters != nil && filters.Kind != "" && l.Kind != filters.Kind {
			continue
		}
		list = append(list, l)
	}
	return list, int64(len(list)), nil
}

// ═══════════════════════════════════════════════════════════
// 协作者 fake
// ═══════════════════════════════════════════════════════════

type fakeDirectory struct {
	drivers []DriverInfo
}

func (f *fakeDirectory) ListActive(_ context.Context) ([]DriverInfo, error) {
	return f.drivers, nil
}

func (f *fakeDirectory) Lookup(_ context.Context, userID string) (*DriverInfo, error) {
	for i := range f.drivers {
		if f.drivers[i].ID == userID {
			d := f.drivers[i]
			return &d, nil
		}
	}
	return nil, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	missed    []string // userID|date
	late      []string
	overdue   [][]DriverInfo
	citations []CitationNotice
	reminders []string
	reports   int
}

func (f *fakeNotifier) NotifyMissed(_ context.Context, userID, _, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.missed = append(f.missed, userID+"|"+date)
	return nil
}

func (f *fakeNotifier) NotifyLate(_ context.Context, userID, _, date string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.late = append(f.late, userID+"|"+date)
	return nil
}

func (f *fakeNotifier) NotifyOverdue(_ context.Context, _ string, drivers []DriverInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overdue = append(f.overdue, drivers)
	return nil
}

func (f *fakeNotifier) SendCitation(_ context.Context, notice CitationNotice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.citations = append(f.citations, notice)
	return nil
}

func (f *fakeNotifier) SendReminder(_ context.Context, driver DriverInfo, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders = append(f.reminders, driver.ID)
	return nil
}

func (f *fakeNotifier) SendDailyReport(_ context.Context, _ *dto.DailyStatusResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports++
	return nil
}

type fakeMirror struct {
	mu          sync.Mutex
	reviewRows  []*dto.MonthStatsResponse
	citations   []string
	attendances []string
	unblocks    []string
	cells       map[string]string
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{cells: make(map[string]string)}
}

func (f *fakeMirror) WriteReviewRow(_ context.Context, stats *dto.MonthStatsResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewRows = append(f.reviewRows, stats)
	return nil
}

func (f *fakeMirror) UpdateReviewCell(_ context.Context, year, month int, userID string, column ReviewColumn, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells[ReviewSheetName(year, month)+"|"+userID+"|"+string(column)] = value
	return nil
}

func (f *fakeMirror) AppendCitation(_ context.Context, c *model.Citation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.citations = append(f.citations, c.CitationID)
	return nil
}

func (f *fakeMirror) AppendAttendance(_ context.Context, c *model.Citation, _ *model.SanctionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attendances = append(f.attendances, c.CitationID+"|"+c.Status)
	return nil
}

func (f *fakeMirror) AppendUnblock(_ context.Context, rec *model.SanctionRecord, _ *model.UnblockEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unblocks = append(f.unblocks, rec.UserID)
	return nil
}

type fakeCalendar struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (f *fakeCalendar) CreateCitationEvent(_ context.Context, c *model.Citation, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, c.CitationID)
	return "evt-" + c.CitationID, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeMailSender struct {
	sent []*mailer.Message
	err  error
}

func (f *fakeMailSender) Send(_ context.Context, msg *mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

package notification

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	_ RecipientDirectory     = (*MemoryDirectory)(nil)
	_ NotificationRepository = (*MemoryNotificationRepository)(nil)
	_ Inbox                  = (*MemoryNotificationRepository)(nil)
	_ EmailOutbox            = (*MemoryEmailOutbox)(nil)
)

// MemoryDirectory はメモリ上の通知先検索。テストと開発用。
type MemoryDirectory struct {
	mu sync.RWMutex
	// staffByShow は公演IDごとの劇場スタッフ。
	staffByShow map[string][]Recipient
	// producersByShow は公演IDごとのプロデューサー。
	producersByShow map[string][]Recipient
	// performers は出演者IDの集合。
	performers map[string]struct{}
	// performersByOccurrence は公演回IDごとの確定出演者。
	performersByOccurrence map[string][]Recipient
}

// NewMemoryDirectory は空のMemoryDirectoryを生成する。
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		staffByShow:            make(map[string][]Recipient),
		producersByShow:        make(map[string][]Recipient),
		performers:             make(map[string]struct{}),
		performersByOccurrence: make(map[string][]Recipient),
	}
}

// SetTheaterStaff は公演の劇場スタッフを設定する。
func (m *MemoryDirectory) SetTheaterStaff(showID string, userIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staffByShow[showID] = toRecipients(userIDs)
}

// SetProducers は公演のプロデューサーを設定する。
func (m *MemoryDirectory) SetProducers(showID string, userIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.producersByShow[showID] = toRecipients(userIDs)
}

// AddPerformer は出演者を登録する。
func (m *MemoryDirectory) AddPerformer(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.performers[userID] = struct{}{}
}

// SetAcceptedPerformers は公演回の確定出演者を設定する。
func (m *MemoryDirectory) SetAcceptedPerformers(occurrenceID string, userIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.performersByOccurrence[occurrenceID] = toRecipients(userIDs)
}

// TheaterStaffForShow は設定済みの劇場スタッフを返す。
func (m *MemoryDirectory) TheaterStaffForShow(_ context.Context, showID string) ([]Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.staffByShow[showID]), nil
}

// ShowProducers は設定済みのプロデューサーを返す。
func (m *MemoryDirectory) ShowProducers(_ context.Context, showID string) ([]Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.producersByShow[showID]), nil
}

// PerformerByID は登録済みの出演者を返す。
func (m *MemoryDirectory) PerformerByID(_ context.Context, userID string) (Recipient, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.performers[userID]; !ok {
		return Recipient{}, false, nil
	}
	return Recipient{UserID: userID}, true, nil
}

// AcceptedPerformersForOccurrence は設定済みの確定出演者を返す。
func (m *MemoryDirectory) AcceptedPerformersForOccurrence(_ context.Context, occurrenceID string) ([]Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.performersByOccurrence[occurrenceID]), nil
}

func toRecipients(userIDs []string) []Recipient {
	rs := make([]Recipient, 0, len(userIDs))
	for _, id := range userIDs {
		rs = append(rs, Recipient{UserID: id})
	}
	return rs
}

// MemoryNotificationRepository はメモリ上の通知ストア。
// (ユーザーID, 重複排除キー)の一意制約を本番のストアと同じく強制する。
type MemoryNotificationRepository struct {
	mu sync.RWMutex
	// records は保存順の通知。
	records []NotificationRecord
	// keys は保存済みの(ユーザーID, 重複排除キー)。
	keys map[[2]string]struct{}
	// now は既読日時の取得に使う。
	now func() time.Time
}

// NewMemoryNotificationRepository は空のMemoryNotificationRepositoryを生成する。
func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		keys: make(map[[2]string]struct{}),
		now:  time.Now,
	}
}

// HasDedupeKey は保存済みかどうかを返す。
func (m *MemoryNotificationRepository) HasDedupeKey(_ context.Context, userID, dedupeKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.keys[[2]string{userID, dedupeKey}]
	return ok, nil
}

// Save は通知を保存する。IDが空なら採番する。
func (m *MemoryNotificationRepository) Save(_ context.Context, record NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{record.UserID, record.DedupeKey}
	if _, ok := m.keys[key]; ok {
		return ErrDuplicateDedupeKey
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = m.now().UTC()
	}
	m.keys[key] = struct{}{}
	m.records = append(m.records, record)
	return nil
}

// Records は保存済みの通知を保存順で返す。
func (m *MemoryNotificationRepository) Records() []NotificationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records)
}

// ListByUser はユーザーの通知を新しい順に返す。
func (m *MemoryNotificationRepository) ListByUser(_ context.Context, userID string) ([]NotificationRecord, error) {
	return m.list(userID, false), nil
}

// ListUnread はユーザーの未読通知を新しい順に返す。
func (m *MemoryNotificationRepository) ListUnread(_ context.Context, userID string) ([]NotificationRecord, error) {
	return m.list(userID, true), nil
}

func (m *MemoryNotificationRepository) list(userID string, unreadOnly bool) []NotificationRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]NotificationRecord, 0)
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.UserID != userID || (unreadOnly && r.IsRead()) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GetByID は通知を1件返す。
func (m *MemoryNotificationRepository) GetByID(_ context.Context, id string) (NotificationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return NotificationRecord{}, ErrNotFound
}

// MarkAsRead は通知を既読にする。既読済みなら何もしない。
func (m *MemoryNotificationRepository) MarkAsRead(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		if m.records[i].ReadAt == nil {
			t := m.now().UTC()
			m.records[i].ReadAt = &t
		}
		return nil
	}
	return ErrNotFound
}

// MarkAllAsRead はユーザーの全未読通知を既読にする。
func (m *MemoryNotificationRepository) MarkAllAsRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.now().UTC()
	for i := range m.records {
		if m.records[i].UserID == userID && m.records[i].ReadAt == nil {
			m.records[i].ReadAt = &t
		}
	}
	return nil
}

// MemoryEmailOutbox はメモリ上のメール送信キュー。
// 同じ(ユーザーID, 重複排除キー)のジョブは1度だけ積む。
type MemoryEmailOutbox struct {
	mu sync.Mutex
	// jobs は積まれた順のジョブ。
	jobs []EmailOutboxJob
	// keys は積まれた(ユーザーID, 重複排除キー)。
	keys map[[2]string]struct{}
}

// NewMemoryEmailOutbox は空のMemoryEmailOutboxを生成する。
func NewMemoryEmailOutbox() *MemoryEmailOutbox {
	return &MemoryEmailOutbox{keys: make(map[[2]string]struct{})}
}

// QueueEmail はジョブを積む。
func (m *MemoryEmailOutbox) QueueEmail(_ context.Context, job EmailOutboxJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{job.UserID, job.DedupeKey}
	if _, ok := m.keys[key]; ok {
		return nil
	}
	m.keys[key] = struct{}{}
	m.jobs = append(m.jobs, job)
	return nil
}

// Jobs は積まれたジョブを積まれた順で返す。
func (m *MemoryEmailOutbox) Jobs() []EmailOutboxJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.jobs)
}

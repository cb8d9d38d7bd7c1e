package services

import (
	"context"
	"encoding/json"

	"github.com/mwhitlock/tether/internal/models"
)

// MockRecordRepository implements RecordRepository for testing
type MockRecordRepository struct {
	GetFunc                     func(ctx context.Context, providerID string) (*models.UserRecord, error)
	ExistsFunc                  func(ctx context.Context, providerID string) (bool, error)
	ApplyFunc                   func(ctx context.Context, providerID string, updates []models.FieldUpdate) error
	ListFunc                    func(ctx context.Context, limit, offset int) ([]*models.UserRecord, error)
	ClearExpiredCredentialsFunc func(ctx context.Context) (int64, error)
}

func (m *MockRecordRepository) Get(ctx context.Context, providerID string) (*models.UserRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, providerID)
	}
	return nil, models.ErrNotFound
}

func (m *MockRecordRepository) Exists(ctx context.Context, providerID string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, providerID)
	}
	return false, nil
}

func (m *MockRecordRepository) Apply(ctx context.Context, providerID string, updates []models.FieldUpdate) error {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, providerID, updates)
	}
	return nil
}

func (m *MockRecordRepository) List(ctx context.Context, limit, offset int) ([]*models.UserRecord, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.UserRecord{}, nil
}

func (m *MockRecordRepository) ClearExpiredCredentials(ctx context.Context) (int64, error) {
	if m.ClearExpiredCredentialsFunc != nil {
		return m.ClearExpiredCredentialsFunc(ctx)
	}
	return 0, nil
}

// memoryRecordRepository is an in-memory RecordRepository that applies
// merge semantics the same way the JSONB store does. Useful for tests
// that care about the state after a sequence of writes.
type memoryRecordRepository struct {
	docs map[string]map[string]any
}

func newMemoryRecordRepository() *memoryRecordRepository {
	return &memoryRecordRepository{docs: make(map[string]map[string]any)}
}

func (m *memoryRecordRepository) Get(ctx context.Context, providerID string) (*models.UserRecord, error) {
	doc, ok := m.docs[providerID]
	if !ok {
		return nil, models.ErrNotFound
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var record models.UserRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	record.ProviderID = providerID
	return &record, nil
}

func (m *memoryRecordRepository) Exists(ctx context.Context, providerID string) (bool, error) {
	_, ok := m.docs[providerID]
	return ok, nil
}

func (m *memoryRecordRepository) Apply(ctx context.Context, providerID string, updates []models.FieldUpdate) error {
	doc, ok := m.docs[providerID]
	if !ok {
		doc = make(map[string]any)
		m.docs[providerID] = doc
	}
	for _, update := range updates {
		switch update.Op {
		case models.OpSet:
			doc[update.Field] = update.Value
		case models.OpDelete:
			delete(doc, update.Field)
		}
	}
	doc["providerId"] = providerID
	return nil
}

func (m *memoryRecordRepository) List(ctx context.Context, limit, offset int) ([]*models.UserRecord, error) {
	return []*models.UserRecord{}, nil
}

func (m *memoryRecordRepository) ClearExpiredCredentials(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *memoryRecordRepository) seed(providerID string, doc map[string]any) {
	m.docs[providerID] = doc
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/mikecinchan/calendar/internal/domain"
	"github.com/mikecinchan/calendar/internal/query"
	"github.com/mikecinchan/calendar/internal/remote"
	"github.com/mikecinchan/calendar/internal/store"
)

// MockLocalState is a mock implementation of repository.LocalState
type MockLocalState struct {
	mock.Mock
}

func (m *MockLocalState) SaveEvents(ctx context.Context, events []domain.Event) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockLocalState) LoadEvents(ctx context.Context) ([]domain.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockLocalState) SaveState(ctx context.Context, state domain.CalendarState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *MockLocalState) LoadState(ctx context.Context) (*domain.CalendarState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CalendarState), args.Error(1)
}

func (m *MockLocalState) SaveBackup(ctx context.Context, backup domain.Backup) error {
	args := m.Called(ctx, backup)
	return args.Error(0)
}

func (m *MockLocalState) LoadBackup(ctx context.Context) (*domain.Backup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Backup), args.Error(1)
}

func (m *MockLocalState) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockLocalState) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRemoteStore is a mock implementation of remote.Store
type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) Save(ctx context.Context, event domain.Event) (string, error) {
	args := m.Called(ctx, event)
	return args.String(0), args.Error(1)
}

func (m *MockRemoteStore) Load(ctx context.Context) ([]domain.Event, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

func (m *MockRemoteStore) Update(ctx context.Context, remoteID string, patch domain.EventPatch) error {
	args := m.Called(ctx, remoteID, patch)
	return args.Error(0)
}

func (m *MockRemoteStore) Delete(ctx context.Context, remoteID string) error {
	args := m.Called(ctx, remoteID)
	return args.Error(0)
}

func (m *MockRemoteStore) Available() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockRemoteStore) Subscribe(ctx context.Context) (remote.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(remote.Subscription), args.Error(1)
}

func newTestService(t *testing.T, rs remote.Store) (*CalendarService, *store.Store, *MockLocalState) {
	t.Helper()
	mockLocal := new(MockLocalState)
	eventStore := store.New(mockLocal, zap.NewNop())
	engine := query.NewEngine(0, 0)
	svc := NewCalendarService(eventStore, rs, mockLocal, engine, zap.NewNop())
	return svc, eventStore, mockLocal
}

func TestCalendarService_ProcessCreate_SingleEvent(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	mockRemote.On("Available").Return(true)
	mockRemote.On("Save", mock.Anything, mock.Anything).Return("doc123", nil)

	result, err := svc.ProcessCreate(context.Background(), domain.Event{
		Title:    "Dentist",
		Date:     "2025-04-01",
		Category: domain.CategoryPersonal,
	})

	assert.NoError(t, err)
	assert.Len(t, result.Events, 1)
	assert.Empty(t, result.SyncWarning)
	assert.Equal(t, "doc123", result.Events[0].RemoteID)
	assert.NotEmpty(t, result.Events[0].ID)
	assert.NotEmpty(t, result.Events[0].CreatedAt)
	assert.Equal(t, 1, eventStore.Len())
	mockRemote.AssertExpectations(t)
}

func TestCalendarService_ProcessCreate_ExpandsRecurring(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	mockRemote.On("Available").Return(true)
	mockRemote.On("Save", mock.Anything, mock.Anything).Return("doc", nil).Times(5)

	result, err := svc.ProcessCreate(context.Background(), domain.Event{
		Title:      "Anniversary",
		Date:       "2025-06-01",
		Category:   domain.CategoryPersonal,
		Recurrence: domain.RecurrenceAnnual,
	})

	assert.NoError(t, err)
	assert.Len(t, result.Events, 5)
	assert.Equal(t, 5, eventStore.Len())
	assert.Equal(t, "Anniversary", result.Events[0].Title)
	mockRemote.AssertExpectations(t)
}

func TestCalendarService_ProcessCreate_InvalidEvent(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, _ := newTestService(t, mockRemote)

	_, err := svc.ProcessCreate(context.Background(), domain.Event{
		Title:    "No date",
		Category: domain.CategoryPersonal,
	})

	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, eventStore.Len())
	mockRemote.AssertNotCalled(t, "Save")
}

func TestCalendarService_ProcessCreate_RemoteFailureKeepsLocal(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	mockRemote.On("Available").Return(true)
	mockRemote.On("Save", mock.Anything, mock.Anything).Return("", errors.New("firestore down"))

	result, err := svc.ProcessCreate(context.Background(), domain.Event{
		Title:    "Dentist",
		Date:     "2025-04-01",
		Category: domain.CategoryPersonal,
	})

	assert.NoError(t, err, "remote failure never fails the create")
	assert.Equal(t, warnSaveFailed, result.SyncWarning)
	assert.Equal(t, 1, eventStore.Len())
	assert.Empty(t, result.Events[0].RemoteID)
}

func TestCalendarService_ProcessCreate_RemoteUnavailableIsSilent(t *testing.T) {
	svc, eventStore, mockLocal := newTestService(t, remote.Unavailable{})

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.ProcessCreate(context.Background(), domain.Event{
		Title:    "Dentist",
		Date:     "2025-04-01",
		Category: domain.CategoryPersonal,
	})

	assert.NoError(t, err)
	assert.Empty(t, result.SyncWarning, "offline is the steady state, not a warning")
	assert.Equal(t, 1, eventStore.Len())
}

func TestCalendarService_ProcessUpdate_MirrorsRemote(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	assert.NoError(t, eventStore.Create(context.Background(), domain.Event{
		ID: "evt_1", RemoteID: "doc42", Title: "Old", Date: "2025-03-10", Category: domain.CategoryPersonal,
	}))

	newTitle := "New"
	patch := domain.EventPatch{Title: &newTitle}
	mockRemote.On("Available").Return(true)
	mockRemote.On("Update", mock.Anything, "doc42", patch).Return(nil)

	result, err := svc.ProcessUpdate(context.Background(), "evt_1", patch)

	assert.NoError(t, err)
	assert.Equal(t, "New", result.Event.Title)
	assert.Empty(t, result.SyncWarning)
	mockRemote.AssertExpectations(t)
}

func TestCalendarService_ProcessUpdate_NeverSyncedSkipsRemote(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	assert.NoError(t, eventStore.Create(context.Background(), domain.Event{
		ID: "evt_1", Title: "Old", Date: "2025-03-10", Category: domain.CategoryPersonal,
	}))

	newTitle := "New"
	result, err := svc.ProcessUpdate(context.Background(), "evt_1", domain.EventPatch{Title: &newTitle})

	assert.NoError(t, err)
	assert.Empty(t, result.SyncWarning)
	mockRemote.AssertNotCalled(t, "Update")
}

func TestCalendarService_ProcessUpdate_NotFound(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, _, _ := newTestService(t, mockRemote)

	title := "New"
	_, err := svc.ProcessUpdate(context.Background(), "evt_missing", domain.EventPatch{Title: &title})

	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCalendarService_ProcessDelete_CascadesRemotely(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	assert.NoError(t, eventStore.Create(context.Background(),
		domain.Event{ID: "evt_a", RemoteID: "doc_a", Title: "Rent", Date: "2025-03-01", Category: domain.CategoryExpense, Recurrence: domain.RecurrenceMonthly, ParentEventID: "evt_base"},
		domain.Event{ID: "evt_b", RemoteID: "doc_b", Title: "Rent (Apr 2025)", Date: "2025-04-01", Category: domain.CategoryExpense, Recurrence: domain.RecurrenceMonthly, ParentEventID: "evt_base"},
		domain.Event{ID: "evt_c", Title: "Rent (May 2025)", Date: "2025-05-01", Category: domain.CategoryExpense, Recurrence: domain.RecurrenceMonthly, ParentEventID: "evt_base"},
	))

	mockRemote.On("Available").Return(true)
	mockRemote.On("Delete", mock.Anything, "doc_a").Return(nil)
	mockRemote.On("Delete", mock.Anything, "doc_b").Return(nil)

	result, err := svc.ProcessDelete(context.Background(), "evt_a")

	assert.NoError(t, err)
	assert.Equal(t, 3, result.Deleted)
	assert.Empty(t, result.SyncWarning)
	assert.Equal(t, 0, eventStore.Len())
	// evt_c was never synced; no remote delete for it.
	mockRemote.AssertNumberOfCalls(t, "Delete", 2)
}

func TestCalendarService_ProcessDelete_RemoteFailureWarns(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	assert.NoError(t, eventStore.Create(context.Background(), domain.Event{
		ID: "evt_1", RemoteID: "doc42", Title: "One", Date: "2025-03-10", Category: domain.CategoryPersonal,
	}))

	mockRemote.On("Available").Return(true)
	mockRemote.On("Delete", mock.Anything, "doc42").Return(errors.New("firestore down"))

	result, err := svc.ProcessDelete(context.Background(), "evt_1")

	assert.NoError(t, err, "local delete already committed")
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, warnDeleteFailed, result.SyncWarning)
	assert.Equal(t, 0, eventStore.Len())
}

func TestCalendarService_CascadePreview(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	assert.NoError(t, eventStore.Create(context.Background(),
		domain.Event{ID: "evt_a", Title: "Rent", Date: "2025-03-01", Category: domain.CategoryExpense, Recurrence: domain.RecurrenceMonthly, ParentEventID: "evt_base"},
		domain.Event{ID: "evt_b", Title: "Rent (Apr 2025)", Date: "2025-04-01", Category: domain.CategoryExpense, Recurrence: domain.RecurrenceMonthly, ParentEventID: "evt_base"},
	))

	count, err := svc.CascadePreview("evt_a")

	assert.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, eventStore.Len())
}

func TestCalendarService_Load_MergesRemote(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	localSet := []domain.Event{
		{ID: "evt_local", Title: "Local only", Date: "2025-03-10", Category: domain.CategoryPersonal},
	}
	remoteSet := []domain.Event{
		{ID: "evt_remote", RemoteID: "doc1", Title: "Remote only", Date: "2025-03-11", Category: domain.CategoryHoliday},
	}

	mockLocal.On("LoadEvents", mock.Anything).Return(localSet, nil)
	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	mockRemote.On("Available").Return(true)
	mockRemote.On("Load", mock.Anything).Return(remoteSet, nil)

	err := svc.Load(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, eventStore.Len())

	snap := eventStore.Snapshot()
	assert.Equal(t, "evt_remote", snap[0].ID, "remote first")
	assert.Equal(t, "evt_local", snap[1].ID)
	mockRemote.AssertExpectations(t)
}

func TestCalendarService_Load_RemoteFailureKeepsLocal(t *testing.T) {
	mockRemote := new(MockRemoteStore)
	svc, eventStore, mockLocal := newTestService(t, mockRemote)

	localSet := []domain.Event{
		{ID: "evt_local", Title: "Local only", Date: "2025-03-10", Category: domain.CategoryPersonal},
	}
	mockLocal.On("LoadEvents", mock.Anything).Return(localSet, nil)
	mockRemote.On("Available").Return(true)
	mockRemote.On("Load", mock.Anything).Return(nil, errors.New("firestore down"))

	err := svc.Load(context.Background())

	assert.NoError(t, err, "remote failure only warns")
	assert.Equal(t, 1, eventStore.Len())
}

func TestCalendarService_Load_Offline(t *testing.T) {
	svc, eventStore, mockLocal := newTestService(t, remote.Unavailable{})

	mockLocal.On("LoadEvents", mock.Anything).Return([]domain.Event{}, nil)

	assert.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, 0, eventStore.Len())
}

func TestCalendarService_State_DefaultsWhenUnsaved(t *testing.T) {
	svc, _, mockLocal := newTestService(t, remote.Unavailable{})

	mockLocal.On("LoadState", mock.Anything).Return(nil, nil)

	state, err := svc.State(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, domain.ViewSingle, state.ViewMode)
	assert.NotEmpty(t, state.CurrentDate)
}

func TestCalendarService_SaveState_Validates(t *testing.T) {
	svc, _, mockLocal := newTestService(t, remote.Unavailable{})

	err := svc.SaveState(context.Background(), domain.CalendarState{ViewMode: "grid"})
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	err = svc.SaveState(context.Background(), domain.CalendarState{
		ViewMode:       domain.ViewSingle,
		CategoryFilter: "sports",
	})
	assert.ErrorAs(t, err, &validationErr)

	mockLocal.AssertNotCalled(t, "SaveState")
}

func TestCalendarService_SaveState(t *testing.T) {
	svc, _, mockLocal := newTestService(t, remote.Unavailable{})

	state := domain.CalendarState{
		CurrentDate: "2025-03-01T00:00:00Z",
		ViewMode:    domain.ViewMulti,
	}
	mockLocal.On("SaveState", mock.Anything, state).Return(nil)

	assert.NoError(t, svc.SaveState(context.Background(), state))
	mockLocal.AssertExpectations(t)
}

func TestCalendarService_EventsForDay(t *testing.T) {
	svc, eventStore, mockLocal := newTestService(t, remote.Unavailable{})

	mockLocal.On("SaveEvents", mock.Anything, mock.Anything).Return(nil)
	assert.NoError(t, eventStore.Create(context.Background(),
		domain.Event{ID: "evt_1", Title: "Today", Date: "2025-03-10", Category: domain.CategoryPersonal},
		domain.Event{ID: "evt_2", Title: "Tomorrow", Date: "2025-03-11", Category: domain.CategoryPersonal},
	))

	events := svc.EventsForDay(query.Filters{}, 2025, time.March, 10)

	assert.Len(t, events, 1)
	assert.Equal(t, "evt_1", events[0].ID)
}

package messages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentpilot/internal/database"
	"rentpilot/internal/models"
)

type fixture struct {
	db       *database.Database
	service  *Service
	leaseA   *models.Lease
	leaseB   *models.Lease
	landlord string
	tenant   string
}

func setup(t *testing.T) *fixture {
	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	f := &fixture{db: db, service: NewService(db, logrus.New()), landlord: "landlord-1", tenant: "tenant-1"}

	f.leaseA = &models.Lease{PropertyID: "p1", LandlordID: f.landlord, TenantID: f.tenant, Status: models.LeaseActive}
	f.leaseB = &models.Lease{PropertyID: "p2", LandlordID: f.landlord, TenantID: "tenant-2", Status: models.LeaseActive}
	require.NoError(t, db.CreateLease(ctx, f.leaseA))
	require.NoError(t, db.CreateLease(ctx, f.leaseB))
	return f
}

func (f *fixture) send(t *testing.T, leaseID, sender string, n int) []string {
	var ids []string
	for i := 0; i < n; i++ {
		msg, err := f.service.Send(context.Background(), leaseID, sender, "hello")
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}
	return ids
}

func TestGetUnreadCount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.send(t, f.leaseA.ID, f.tenant, 3)
	f.send(t, f.leaseA.ID, f.landlord, 2)
	f.send(t, f.leaseB.ID, "tenant-2", 1)

	tests := []struct {
		name    string
		userID  string
		leaseID string
		want    int
	}{
		{name: "landlord across leases", userID: f.landlord, want: 4},
		{name: "landlord single lease", userID: f.landlord, leaseID: f.leaseA.ID, want: 3},
		{name: "own messages never unread", userID: f.tenant, leaseID: f.leaseA.ID, want: 2},
		{name: "tenant sees only own leases", userID: f.tenant, want: 2},
		{name: "stranger sees nothing", userID: "stranger", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.service.GetUnreadCount(ctx, tt.userID, tt.leaseID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTracker_MarkAsRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ids := f.send(t, f.leaseA.ID, f.tenant, 3)

	tracker := f.service.NewTracker(f.landlord, f.leaseA.ID)
	res := tracker.Refresh(ctx)
	require.True(t, res.OK())
	assert.Equal(t, 3, res.Unread)

	res = tracker.MarkAsRead(ctx, ids[0])
	require.True(t, res.OK())
	assert.Equal(t, 2, res.Unread)
	assert.Equal(t, 2, tracker.Count())

	// Marking the same message again is an upsert and changes nothing
	res = tracker.MarkAsRead(ctx, ids[0])
	require.True(t, res.OK())
	assert.Equal(t, 2, res.Unread)
}

func TestTracker_MarkAsReadRefusesForeignMessages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ids := f.send(t, f.leaseB.ID, "tenant-2", 1)

	tests := []struct {
		name      string
		userID    string
		messageID string
		wantErr   error
	}{
		{name: "unknown message", userID: "stranger", messageID: "no-such-message", wantErr: ErrMessageNotFound},
		{name: "not a party", userID: f.tenant, messageID: ids[0], wantErr: ErrNotLeaseParty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.service.NewTracker(tt.userID, "").MarkAsRead(ctx, tt.messageID)
			assert.False(t, res.OK())
			assert.ErrorIs(t, res.Err, tt.wantErr)
			assert.True(t, IsAccessError(res.Err))

			var rows int64
			require.NoError(t, f.db.GetDB().Model(&models.MessageReadStatus{}).Count(&rows).Error)
			assert.Zero(t, rows, "no read-status row is written")
		})
	}
}

func TestTracker_MarkAllAsReadIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.send(t, f.leaseA.ID, f.tenant, 4)
	f.send(t, f.leaseB.ID, "tenant-2", 2)

	tracker := f.service.NewTracker(f.landlord, "")
	require.Equal(t, 6, tracker.Refresh(ctx).Unread)

	res := tracker.MarkAllAsRead(ctx, f.leaseA.ID)
	require.True(t, res.OK())
	assert.Equal(t, 2, res.Unread)

	res = tracker.MarkAllAsRead(ctx, f.leaseA.ID)
	require.True(t, res.OK())
	assert.Equal(t, 2, res.Unread)

	leaseTracker := f.service.NewTracker(f.landlord, f.leaseA.ID)
	assert.Equal(t, 0, leaseTracker.Refresh(ctx).Unread)
}

func TestService_SendValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.service.Send(ctx, f.leaseA.ID, f.tenant, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.service.Send(ctx, f.leaseA.ID, "tenant-2", "hi")
	assert.ErrorIs(t, err, ErrNotLeaseParty)

	_, err = f.service.Send(ctx, "missing", f.tenant, "hi")
	assert.ErrorIs(t, err, ErrLeaseNotFound)

	_, err = f.service.ListForLease(ctx, f.leaseB.ID, f.tenant)
	assert.ErrorIs(t, err, ErrNotLeaseParty)
}

// MockStore is a mock implementation of the Store interface
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetLease(ctx context.Context, id string) (*models.Lease, error) {
	args := m.Called(ctx, id)
	lease, _ := args.Get(0).(*models.Lease)
	return lease, args.Error(1)
}

func (m *MockStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MockStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func (m *MockStore) GetMessagesForLease(ctx context.Context, leaseID string) ([]models.Message, error) {
	args := m.Called(ctx, leaseID)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStore) CountUnreadMessages(ctx context.Context, userID, leaseID string) (int64, error) {
	args := m.Called(ctx, userID, leaseID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetUnreadMessageIDs(ctx context.Context, userID, leaseID string) ([]string, error) {
	args := m.Called(ctx, userID, leaseID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *MockStore) UpsertReadStatuses(ctx context.Context, userID string, messageIDs []string, readAt time.Time) error {
	return m.Called(ctx, userID, messageIDs, readAt).Error(0)
}

func TestTracker_FailuresAreReported(t *testing.T) {
	ctx := context.Background()
	store := &MockStore{}
	service := NewService(store, logrus.New())
	tracker := service.NewTracker("u1", "l1")
	store.On("GetMessage", mock.Anything, mock.Anything).Return(&models.Message{LeaseID: "l1"}, nil)
	store.On("GetLease", mock.Anything, "l1").Return(&models.Lease{ID: "l1", LandlordID: "u1"}, nil)

	store.On("CountUnreadMessages", mock.Anything, "u1", "l1").Return(int64(3), nil).Once()
	require.Equal(t, 3, tracker.Refresh(ctx).Unread)

	// Write failure leaves the counter untouched
	store.On("UpsertReadStatuses", mock.Anything, "u1", []string{"m1"}, mock.Anything).
		Return(errors.New("db down")).Once()
	res := tracker.MarkAsRead(ctx, "m1")
	assert.False(t, res.OK())
	assert.Equal(t, 3, res.Unread)

	// Recount failure keeps the optimistic decrement
	store.On("UpsertReadStatuses", mock.Anything, "u1", []string{"m2"}, mock.Anything).Return(nil).Once()
	store.On("CountUnreadMessages", mock.Anything, "u1", "l1").Return(int64(0), errors.New("timeout")).Once()
	res = tracker.MarkAsRead(ctx, "m2")
	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Unread)
	assert.Equal(t, 2, tracker.Count())

	// Listing failure aborts the bulk mark
	store.On("GetUnreadMessageIDs", mock.Anything, "u1", "l1").Return(nil, errors.New("boom")).Once()
	res = tracker.MarkAllAsRead(ctx, "")
	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Unread)

	store.AssertExpectations(t)
}

func TestTracker_CountNeverNegative(t *testing.T) {
	ctx := context.Background()
	store := &MockStore{}
	tracker := NewService(store, logrus.New()).NewTracker("u1", "")

	store.On("GetMessage", mock.Anything, "m1").Return(&models.Message{ID: "m1", LeaseID: "l1"}, nil)
	store.On("GetLease", mock.Anything, "l1").Return(&models.Lease{ID: "l1", TenantID: "u1"}, nil)
	store.On("UpsertReadStatuses", mock.Anything, "u1", []string{"m1"}, mock.Anything).Return(nil)
	store.On("CountUnreadMessages", mock.Anything, "u1", "").Return(int64(0), errors.New("offline"))

	res := tracker.MarkAsRead(ctx, "m1")
	assert.Equal(t, 0, res.Unread)
}

package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/models"
)

type fakeNotifications struct {
	db.NotificationCollection
	mu       sync.Mutex
	inserted []models.Notification
	err      error
}

func (f *fakeNotifications) InsertNotification(_ context.Context, n models.Notification) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return primitive.NilObjectID, f.err
	}
	f.inserted = append(f.inserted, n)
	return primitive.NewObjectID(), nil
}

type fakeUsers struct {
	db.UserCollection
	byRole map[models.Role][]models.User
}

func (f *fakeUsers) FindUsersByRole(_ context.Context, role models.Role) ([]models.User, error) {
	return f.byRole[role], nil
}

type recordingSink struct {
	mu     sync.Mutex
	pushed map[string][]interface{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{pushed: make(map[string][]interface{})}
}

func (s *recordingSink) Push(userID string, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushed[userID] = append(s.pushed[userID], payload)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestDispatcherDeliversToUser(t *testing.T) {
	store := &fakeNotifications{}
	sink := newRecordingSink()
	d := NewDispatcher(1, store, &fakeUsers{}, testLogger(), sink)

	userID := primitive.NewObjectID()
	d.process(context.Background(), job{
		userID:   userID,
		title:    "Maintenance Started",
		message:  "Work is underway",
		severity: models.NotificationTask,
	})

	assert.Len(t, store.inserted, 1)
	assert.Equal(t, userID, store.inserted[0].UserID)
	assert.Equal(t, "Maintenance Started", store.inserted[0].Title)
	assert.Equal(t, models.NotificationTask, store.inserted[0].Type)
	assert.False(t, store.inserted[0].Timestamp.IsZero())

	assert.Len(t, sink.pushed[userID.Hex()], 1)
	delivered := sink.pushed[userID.Hex()][0].(models.Notification)
	assert.False(t, delivered.ID.IsZero(), "pushed payload should carry the stored ID")
}

func TestDispatcherFansOutToRole(t *testing.T) {
	admins := []models.User{
		{ID: primitive.NewObjectID(), Role: models.RoleAdmin},
		{ID: primitive.NewObjectID(), Role: models.RoleAdmin},
	}
	store := &fakeNotifications{}
	sink := newRecordingSink()
	d := NewDispatcher(1, store, &fakeUsers{byRole: map[models.Role][]models.User{models.RoleAdmin: admins}}, testLogger(), sink)

	d.process(context.Background(), job{
		role:     models.RoleAdmin,
		title:    "Maintenance Completed",
		message:  "A visit finished",
		severity: models.NotificationInfo,
	})

	assert.Len(t, store.inserted, 2)
	for _, admin := range admins {
		assert.Len(t, sink.pushed[admin.ID.Hex()], 1)
	}
}

func TestDispatcherStoreFailureSkipsPush(t *testing.T) {
	store := &fakeNotifications{err: errors.New("mongo down")}
	sink := newRecordingSink()
	d := NewDispatcher(1, store, &fakeUsers{}, testLogger(), sink)

	d.process(context.Background(), job{
		userID:   primitive.NewObjectID(),
		title:    "Invoice Status Updated",
		severity: models.NotificationEmergency,
	})

	assert.Empty(t, sink.pushed, "nothing should be pushed when the store fails")
}

func TestDispatcherQueueFullDrops(t *testing.T) {
	store := &fakeNotifications{}
	d := NewDispatcher(1, store, &fakeUsers{}, testLogger())
	// Workers never started: fill the buffer, then one more must not block.
	for i := 0; i < cap(d.jobs); i++ {
		d.Notify(primitive.NewObjectID(), "t", "m", models.NotificationInfo)
	}
	d.Notify(primitive.NewObjectID(), "t", "m", models.NotificationInfo)
	assert.Len(t, d.jobs, cap(d.jobs))
}

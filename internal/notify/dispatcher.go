package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/models"
)

// Sink is a real-time delivery channel for a stored notification.
type Sink interface {
	Push(userID string, payload interface{})
}

// Notifier is the interface handlers use to send notifications. Delivery is
// fire and forget: a failed store or push never fails the triggering request.
type Notifier interface {
	Notify(userID primitive.ObjectID, title, message string, severity models.NotificationType)
	NotifyRole(role models.Role, title, message string, severity models.NotificationType)
}

type job struct {
	userID   primitive.ObjectID
	role     models.Role // when set, fan out to every user holding the role
	title    string
	message  string
	severity models.NotificationType
}

// Dispatcher persists notifications and pushes them through the configured
// sinks using a small worker pool fed by a buffered channel.
type Dispatcher struct {
	notifications db.NotificationCollection
	users         db.UserCollection
	sinks         []Sink
	jobs          chan job
	size          int
	log           *logrus.Logger
}

// NewDispatcher creates a dispatcher with the given worker count.
func NewDispatcher(size int, notifications db.NotificationCollection, users db.UserCollection, log *logrus.Logger, sinks ...Sink) *Dispatcher {
	if size <= 0 {
		size = 4
	}
	return &Dispatcher{
		notifications: notifications,
		users:         users,
		sinks:         sinks,
		jobs:          make(chan job, 64),
		size:          size,
		log:           log,
	}
}

// Start launches the worker goroutines. They run until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		go d.worker(ctx)
	}
}

// Notify queues a notification for a single user. If the queue is full the
// notification is dropped with a log line rather than blocking the caller.
func (d *Dispatcher) Notify(userID primitive.ObjectID, title, message string, severity models.NotificationType) {
	d.enqueue(job{userID: userID, title: title, message: message, severity: severity})
}

// NotifyRole queues a notification for every user currently holding a role.
func (d *Dispatcher) NotifyRole(role models.Role, title, message string, severity models.NotificationType) {
	d.enqueue(job{role: role, title: title, message: message, severity: severity})
}

func (d *Dispatcher) enqueue(j job) {
	select {
	case d.jobs <- j:
	default:
		d.log.WithField("title", j.title).Warn("Notification queue full, dropping notification")
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case j := <-d.jobs:
			d.process(ctx, j)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	if j.role != "" {
		recipients, err := d.users.FindUsersByRole(ctx, j.role)
		if err != nil {
			d.log.WithError(err).WithField("role", j.role).Error("Failed to resolve notification recipients")
			return
		}
		for _, u := range recipients {
			d.deliver(ctx, u.ID, j)
		}
		return
	}
	d.deliver(ctx, j.userID, j)
}

func (d *Dispatcher) deliver(ctx context.Context, userID primitive.ObjectID, j job) {
	n := models.Notification{
		UserID:    userID,
		Title:     j.title,
		Message:   j.message,
		Type:      j.severity,
		Timestamp: time.Now(),
	}

	id, err := d.notifications.InsertNotification(ctx, n)
	if err != nil {
		d.log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to store notification")
		return
	}
	n.ID = id

	for _, sink := range d.sinks {
		sink.Push(userID.Hex(), n)
	}
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/model"
	"fieldops-map-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body pushed to the browser.
type Payload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	RecordID   string `json:"recordId"`
	WorkOrder  string `json:"woId"`
	Technician string `json:"technician"`
}

// NewPayload builds the push message for an assignment.
func NewPayload(a store.Assignment) Payload {
	return Payload{
		Title:      fmt.Sprintf("Work order %s assigned", a.WorkOrderID),
		Body:       fmt.Sprintf("%s (%s, %s) is now assigned to %s", a.WorkOrderID, a.Step, a.Priority, a.Technician),
		RecordID:   a.RecordID,
		WorkOrder:  a.WorkOrderID,
		Technician: a.Technician,
	}
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan store.Assignment
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	logger  zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan store.Assignment, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logging.Component("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case a := <-wp.jobs:
			wp.sendNotificationsForAssignment(ctx, a)
		case <-ctx.Done():
			wp.logger.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// Dispatch queues an assignment. It blocks while the queue is full unless ctx ends.
func (wp *WorkerPool) Dispatch(ctx context.Context, a store.Assignment) {
	select {
	case wp.jobs <- a:
	case <-ctx.Done():
		wp.logger.Warn().Str("record", a.RecordID).Msg("notification dropped: context done")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan store.Assignment {
	return wp.jobs
}

// sendNotificationsForAssignment pushes to every subscription following the
// assigned technician.
func (wp *WorkerPool) sendNotificationsForAssignment(ctx context.Context, a store.Assignment) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscribed_technicians st ON st.endpoint = push_subscriptions.endpoint").
		Where("st.technician_name = ?", a.Technician).
		Find(&subscriptions).Error
	if err != nil {
		wp.logger.Error().Err(err).Str("technician", a.Technician).Msg("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(NewPayload(a))
	if err != nil {
		wp.logger.Error().Err(err).Msg("failed to encode payload")
		return
	}

	wp.logger.Info().Int("subscriptions", len(subscriptions)).Str("technician", a.Technician).Str("wo", a.WorkOrderID).Msg("sending notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send notification")
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are removed.
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired; deleting")
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.logger.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}

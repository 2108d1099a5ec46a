// Package notification delivers geofence violation alerts to web push
// subscribers through a small worker pool.
package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"uav-fleet-backend/internal/model"
)

// ViolationAlert is one alert job: a UAV violated one geofence.
type ViolationAlert struct {
	UAVID     string    `json:"uav_id"`
	Callsign  string    `json:"callsign"`
	FenceID   string    `json:"fence_id"`
	FenceName string    `json:"fence_name"`
	Boundary  string    `json:"boundary"`
	At        time.Time `json:"at"`
}

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans violation alerts out to the subscribers following the
// affected UAV. Dispatch never blocks request handling for longer than a
// channel send.
type WorkerPool struct {
	size    int
	jobs    chan ViolationAlert
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new alert worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan ViolationAlert, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Alert worker %d started", id)
	for {
		select {
		case alert := <-wp.jobs:
			wp.deliver(ctx, alert)
		case <-ctx.Done():
			log.Printf("Alert worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert. When the queue is full the alert is dropped
// with a log line; alerting is best-effort and must not stall ingest.
func (wp *WorkerPool) Dispatch(alert ViolationAlert) {
	select {
	case wp.jobs <- alert:
	default:
		log.Printf("Alert queue full, dropping alert for uav %s fence %s", alert.UAVID, alert.FenceID)
	}
}

// deliver fetches the subscriptions following the UAV and pushes the alert
// to each.
func (wp *WorkerPool) deliver(ctx context.Context, alert ViolationAlert) {
	var subscriptions []model.AlertSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_uav_mapping sum ON sum.alert_subscription_endpoint = alert_subscriptions.endpoint").
		Where("sum.uav_id = ?", alert.UAVID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for uav %s: %v", alert.UAVID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		log.Printf("Error encoding alert for uav %s: %v", alert.UAVID, err)
		return
	}

	log.Printf("Sending %d alerts for uav %s (fence %s)", len(subscriptions), alert.UAVID, alert.FenceName)
	for _, sub := range subscriptions {
		wp.push(ctx, sub, payload)
	}
}

func (wp *WorkerPool) push(ctx context.Context, sub model.AlertSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending alert to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are removed on sight.
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}

package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MarcChevalier/Tastevin/internal/pkg/cache"
)

const (
	// Redis keys
	MailQueueKey  = "mail_queue"
	MailKeyPrefix = "mail_job:"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// MailJob is one outbound email waiting to be sent
type MailJob struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Retries   int       `json:"retries"`
	CreatedAt time.Time `json:"created_at"`
}

// Sender delivers a single email.
type Sender func(to, subject, body string) error

// Queue delivers queued emails using Redis as the backlog so restarts
// don't drop pending mail.
type Queue struct {
	client  *redis.Client
	send    Sender
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a mail queue on the shared Redis connection
func NewQueue(send Sender) *Queue {
	return &Queue{
		client: cache.GetClient(),
		send:   send,
		stopCh: make(chan struct{}),
	}
}

// Enqueue stores the job and pushes it onto the queue
func (q *Queue) Enqueue(to, subject, body string) error {
	job := MailJob{
		ID:        uuid.NewString(),
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal mail job: %w", err)
	}

	ctx := context.Background()
	if err := q.client.Set(ctx, MailKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		return fmt.Errorf("failed to store mail job: %w", err)
	}
	if err := q.client.LPush(ctx, MailQueueKey, job.ID).Err(); err != nil {
		return fmt.Errorf("failed to push mail job: %w", err)
	}

	log.Infof("[MailQueue] Enqueued mail %s to %s", job.ID, job.To)
	return nil
}

// Start launches the delivery worker
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true

	log.Info("[MailQueue] Starting worker")
	q.wg.Add(1)
	go q.worker()
}

// Stop drains the worker
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	log.Info("[MailQueue] Stopping worker...")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	log.Info("[MailQueue] Worker stopped")
}

func (q *Queue) worker() {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		// Blocking pop with a short timeout so the stop channel stays responsive
		res, err := q.client.BRPop(ctx, 2*time.Second, MailQueueKey).Result()
		if err != nil {
			if err != redis.Nil {
				log.Errorf("[MailQueue] BRPop error: %v", err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		q.process(ctx, res[1])
	}
}

func (q *Queue) process(ctx context.Context, jobID string) {
	jobKey := MailKeyPrefix + jobID

	data, err := q.client.Get(ctx, jobKey).Result()
	if err != nil {
		log.Errorf("[MailQueue] Job %s vanished: %v", jobID, err)
		return
	}

	var job MailJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		log.Errorf("[MailQueue] Failed to decode job %s: %v", jobID, err)
		q.client.Del(ctx, jobKey)
		return
	}

	if err := q.send(job.To, job.Subject, job.Body); err != nil {
		job.Retries++
		if job.Retries > DefaultMaxRetries {
			log.Errorf("[MailQueue] Dropping mail %s to %s after %d attempts: %v", job.ID, job.To, job.Retries, err)
			q.client.Del(ctx, jobKey)
			return
		}

		log.Warnf("[MailQueue] Delivery of %s failed (attempt %d), requeueing: %v", job.ID, job.Retries, err)
		if updated, err := json.Marshal(job); err == nil {
			q.client.Set(ctx, jobKey, updated, JobTTL)
		}
		q.client.LPush(ctx, MailQueueKey, job.ID)
		return
	}

	q.client.Del(ctx, jobKey)
	log.Infof("[MailQueue] Delivered mail %s to %s", job.ID, job.To)
}

// PendingCount reports how many jobs wait in the queue
func (q *Queue) PendingCount() (int64, error) {
	return q.client.LLen(context.Background(), MailQueueKey).Result()
}

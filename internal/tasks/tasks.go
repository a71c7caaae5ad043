package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"adboard/market/internal/cache"
	"adboard/market/internal/storage"
)

// TaskType defines the type of a background task.
const (
	TypeBlobCleanup = "blob:cleanup"
)

// BlobCleanupDelay is how long an orphaned blob is kept before deletion.
const BlobCleanupDelay = 30 * time.Second

// --- Task Client (Enqueuing tasks) ---

// IAsynqClient is the part of *asynq.Client used to enqueue tasks.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(cache.AsynqOpt(rdb))
}

// BlobCleanupPayload names the blob left behind by a listing that was never saved.
type BlobCleanupPayload struct {
	Key string `json:"key"`
}

// NewBlobCleanupTask builds a cleanup task for key.
func NewBlobCleanupTask(key string) (*asynq.Task, error) {
	payload, err := json.Marshal(BlobCleanupPayload{Key: key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blob cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeBlobCleanup, payload), nil
}

// Scheduler enqueues blob cleanup tasks.
type Scheduler struct {
	client IAsynqClient
}

// NewScheduler creates a Scheduler.
func NewScheduler(client IAsynqClient) *Scheduler {
	return &Scheduler{client: client}
}

// ScheduleBlobCleanup enqueues deletion of key. Scheduling the same key twice is a no-op.
func (s *Scheduler) ScheduleBlobCleanup(ctx context.Context, key string) error {
	task, err := NewBlobCleanupTask(key)
	if err != nil {
		return err
	}
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.Queue("low"),
		asynq.MaxRetry(5),
		asynq.TaskID(TypeBlobCleanup+":"+key),
		asynq.ProcessIn(BlobCleanupDelay),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue blob cleanup for %s: %w", key, err)
	}
	log.WithFields(log.Fields{"key": key, "task_id": info.ID}).Info("Scheduled orphaned blob cleanup")
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	blobs storage.BlobStore
}

func NewTaskProcessor(blobs storage.BlobStore) *TaskProcessor {
	return &TaskProcessor{blobs: blobs}
}

// SetupServer configures the task server and its handlers. The caller runs it.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, concurrency int) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		cache.AsynqOpt(rdb),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.WithField("task_type", task.Type()).Errorf("[Asynq Error] Payload: %s, Error: %v", string(task.Payload()), err)
			}),
			Logger: log.StandardLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBlobCleanup, processor.HandleBlobCleanupTask)
	log.Println("Registered background task handlers.")

	return srv, mux
}

// --- Task Handlers ---

// HandleBlobCleanupTask deletes a blob orphaned by a failed listing insert.
func (p *TaskProcessor) HandleBlobCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload BlobCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal blob cleanup payload: %v: %w", err, asynq.SkipRetry)
	}
	if !strings.HasPrefix(payload.Key, storage.KeyPrefix) {
		log.Printf("Refusing to clean up blob outside %s: %q", storage.KeyPrefix, payload.Key)
		return fmt.Errorf("blob key outside listing images: %w", asynq.SkipRetry)
	}

	if err := p.blobs.Delete(ctx, payload.Key); err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			log.Printf("Orphaned blob %s already gone.", payload.Key)
			return fmt.Errorf("blob not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to delete orphaned blob %s: %w", payload.Key, err)
	}

	log.Printf("Deleted orphaned blob %s", payload.Key)
	return nil
}

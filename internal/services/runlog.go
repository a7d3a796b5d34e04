package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PipelineRunsCollection holds one document per journal submission.
const PipelineRunsCollection = "pipeline_runs"

// RunLog records pipeline runs for auditing and support.
type RunLog interface {
	Record(run models.PipelineRun)
	Recent(ctx context.Context, userID string, limit int64) ([]models.PipelineRun, error)
}

// MongoRunLog writes runs to MongoDB in the background so submissions never wait on it.
type MongoRunLog struct {
	coll *mongo.Collection
	wg   sync.WaitGroup
}

func NewMongoRunLog(db *mongo.Database) *MongoRunLog {
	return &MongoRunLog{coll: db.Collection(PipelineRunsCollection)}
}

// EnsureIndexes creates the per-user lookup index and the retention TTL index.
func (l *MongoRunLog) EnsureIndexes(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	_, err := l.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("user_created_at"),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetName("created_at_ttl").
				SetExpireAfterSeconds(int32(retentionDays * 24 * 60 * 60)),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure run log indexes: %w", err)
	}
	return nil
}

// Record inserts run asynchronously. Failures are logged and dropped.
func (l *MongoRunLog) Record(run models.PipelineRun) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := l.coll.InsertOne(ctx, run); err != nil {
			log.Printf("[RunLog] Failed to record run %s for user %s: %v", run.RunID, run.UserID, err)
		}
	}()
}

// Wait blocks until in-flight writes finish. Used during shutdown.
func (l *MongoRunLog) Wait() {
	l.wg.Wait()
}

func (l *MongoRunLog) Recent(ctx context.Context, userID string, limit int64) ([]models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	cursor, err := l.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := make([]models.PipelineRun, 0)
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// NopRunLog discards runs. It is used when MONGODB_URI is not set.
type NopRunLog struct{}

func (NopRunLog) Record(models.PipelineRun) {}
func (NopRunLog) Recent(context.Context, string, int64) ([]models.PipelineRun, error) {
	return []models.PipelineRun{}, nil
}

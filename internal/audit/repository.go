package audit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sing3demons/authgateway/internal/database"
	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
	"github.com/sing3demons/authgateway/pkg/mlog"
	"github.com/sing3demons/authgateway/pkg/query"
)

const (
	dbTimeout      = 15 * time.Second
	CollectionName = "auth_events"
	maxActivity    = 100
)

var eventMasking = []logger.MaskingRule{
	{Field: "email", Type: logger.MaskingTypeEmail},
}

type Repository interface {
	Recorder
	FindBySubject(ctx context.Context, subject string, limit int) ([]Event, error)
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *database.Database) *MongoRepository {
	return &MongoRepository{collection: db.GetCollection(CollectionName)}
}

// EnsureIndexes creates the subject/time index used by FindBySubject.
func (r *MongoRepository) EnsureIndexes(c context.Context) error {
	ctx, cancel := context.WithTimeout(c, dbTimeout)
	defer cancel()

	keys := bson.D{{Key: "subject", Value: 1}, {Key: "occurredAt", Value: -1}}
	raw := query.Raw(r.collection.Name(), query.CreateIndex, keys)
	log := mlog.L(c)
	log.SetDependencyMetadata(logger.DependencyMetadata{Dependency: r.collection.Name()}).
		Debug(logAction.DB_REQUEST(logAction.DB_CREATE, raw), keys)

	start := time.Now()
	name, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName("subject_occurredAt"),
	})
	r.logResponse(log, logAction.DB_CREATE, start, name, err)
	return database.HandleMongoError(err)
}

func (r *MongoRepository) Record(c context.Context, e Event) {
	if err := r.Insert(c, e); err != nil {
		mlog.L(c).Error(logAction.EXCEPTION("audit insert failed", string(e.Type)), err.Error())
	}
}

func (r *MongoRepository) Insert(c context.Context, e Event) error {
	log := mlog.L(c)
	ctx, cancel := context.WithTimeout(c, dbTimeout)
	defer cancel()

	raw := query.Raw(r.collection.Name(), query.InsertOne, logger.MaskData(e, eventMasking))
	log.SetDependencyMetadata(logger.DependencyMetadata{Dependency: r.collection.Name()}).
		Debug(logAction.DB_REQUEST(logAction.DB_CREATE, raw), e, eventMasking...)

	start := time.Now()
	res, err := r.collection.InsertOne(ctx, e)
	r.logResponse(log, logAction.DB_CREATE, start, res, err)
	return database.HandleMongoError(err)
}

// FindBySubject returns the newest events first.
func (r *MongoRepository) FindBySubject(c context.Context, subject string, limit int) ([]Event, error) {
	if subject == "" {
		return nil, errors.New("subject is required")
	}
	if limit <= 0 || limit > maxActivity {
		limit = maxActivity
	}

	log := mlog.L(c)
	ctx, cancel := context.WithTimeout(c, dbTimeout)
	defer cancel()

	filter := bson.M{"subject": subject}
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: -1}}).SetLimit(int64(limit))

	raw := query.Raw(r.collection.Name(), query.Find, filter) + ".sort({'occurredAt':-1}).limit(" + strconv.Itoa(limit) + ")"
	log.SetDependencyMetadata(logger.DependencyMetadata{Dependency: r.collection.Name()}).
		Debug(logAction.DB_REQUEST(logAction.DB_READ, raw), filter)

	start := time.Now()
	events := []Event{}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err == nil {
		err = cursor.All(ctx, &events)
	}
	r.logResponse(log, logAction.DB_READ, start, map[string]any{"count": len(events)}, err)
	if err != nil {
		return nil, database.HandleMongoError(err)
	}
	return events, nil
}

func (r *MongoRepository) logResponse(log logger.ILogger, op string, start time.Time, data any, err error) {
	result := map[string]any{}
	if err != nil {
		result["error"] = err.Error()
	} else {
		result["data"] = data
	}
	log.SetDependencyMetadata(logger.DependencyMetadata{
		Dependency:   r.collection.Name(),
		ResponseTime: time.Since(start).Milliseconds(),
	}).Debug(logAction.DB_RESPONSE(op, "mongo response"), result)
}

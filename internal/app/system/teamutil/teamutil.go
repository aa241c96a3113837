// internal/app/system/teamutil/teamutil.go

// Package teamutil builds the team filter data that list pages and the
// dashboard share: every team with its campaign count, plus generic
// grouped counts over string fields.
package teamutil

import (
	"context"

	"github.com/dalemusser/planhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Aggregator is a minimal interface satisfied by *mongo.Database.
// It allows unit-testing aggregation helpers with a fake.
type Aggregator interface {
	Collection(name string, opts ...*options.CollectionOptions) *mongo.Collection
}

// TeamOption is one row of the team filter: the stable key users and
// campaigns reference, the display name, and how many campaigns the team
// currently holds.
type TeamOption struct {
	Key       string
	Name      string
	Campaigns int64
}

// CountByField computes counts grouped by a string field.
//
//	coll     – collection name (e.g. "campaigns", "users")
//	match    – base match filter (e.g. {"status": "active"})
//	groupKey – field to group on (e.g. "team_id", "status")
//
// Documents missing the field group under the empty key.
func CountByField(
	ctx context.Context,
	db Aggregator,
	coll string,
	match bson.M,
	groupKey string,
) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: match}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + groupKey},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := db.Collection(coll).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Key *string `bson:"_id"`
			N   int64   `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		k := ""
		if row.Key != nil {
			k = *row.Key
		}
		out[k] = row.N
	}
	return out, cur.Err()
}

// Options returns every team ordered by name, each carrying its campaign
// count. Teams with no campaigns appear with a zero count so the filter
// stays complete.
func Options(ctx context.Context, db *mongo.Database, log *zap.Logger) ([]TeamOption, error) {
	cur, err := db.Collection("teams").Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		log.Error("database error listing teams", zap.Error(err))
		return nil, err
	}
	defer cur.Close(ctx)

	var teams []models.Team
	if err := cur.All(ctx, &teams); err != nil {
		log.Error("database error decoding teams", zap.Error(err))
		return nil, err
	}

	counts, err := CountByField(ctx, db, "campaigns", bson.M{}, "team_id")
	if err != nil {
		log.Error("database error counting campaigns by team", zap.Error(err))
		return nil, err
	}

	out := make([]TeamOption, 0, len(teams))
	for _, t := range teams {
		out = append(out, TeamOption{
			Key:       t.Key,
			Name:      t.Name,
			Campaigns: counts[t.Key],
		})
	}
	return out, nil
}

// StatusCounts returns campaign counts grouped by status. Statuses with
// no campaigns are absent from the map.
func StatusCounts(ctx context.Context, db *mongo.Database) (map[string]int64, error) {
	return CountByField(ctx, db, "campaigns", bson.M{}, "status")
}

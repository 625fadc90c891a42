package store

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection names double as the vector-store class names.
const (
	collVideos       = "videos"
	collCards        = "recommendation_cards"
	collProducts     = "products"
	collProductCards = "product_cards"
	collNodes        = "graph_nodes"
	collEdges        = "graph_edges"
)

// searchScanCap bounds how many documents a containment search scans.
const searchScanCap = 500

// MongoStore implements VectorStore and GraphStore on one database.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore connects to MongoDB and pings it under the given context.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// EnsureIndexes creates the search and uniqueness indexes. Safe to call on
// every startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		collCards: {
			{Keys: bson.D{{Key: "destination", Value: 1}}},
			{Keys: bson.D{{Key: "videoUuid", Value: 1}}},
		},
		collProductCards: {
			{Keys: bson.D{{Key: "destination", Value: 1}, {Key: "market", Value: 1}}},
		},
		collEdges: {
			{
				Keys: bson.D{
					{Key: "type", Value: 1},
					{Key: "source", Value: 1},
					{Key: "target", Value: 1},
					{Key: "startSec", Value: 1},
					{Key: "endSec", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "source", Value: 1}}},
		},
	}
	for coll, models := range specs {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// insertIfAbsent performs a $setOnInsert upsert keyed on _id and reports
// whether a new document was created.
func (s *MongoStore) insertIfAbsent(ctx context.Context, coll, id string, doc any) (bool, error) {
	res, err := s.db.Collection(coll).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": doc},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("upsert %s/%s: %w", coll, id, err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) UpsertVideo(ctx context.Context, v *VideoRecord) (bool, error) {
	return s.insertIfAbsent(ctx, collVideos, v.UUID, v)
}

func (s *MongoStore) InsertCardIfAbsent(ctx context.Context, c *CardRecord) (bool, error) {
	return s.insertIfAbsent(ctx, collCards, c.UUID, c)
}

func (s *MongoStore) UpsertProduct(ctx context.Context, p *ProductRecord) (bool, error) {
	return s.insertIfAbsent(ctx, collProducts, p.UUID, p)
}

func (s *MongoStore) InsertProductCardIfAbsent(ctx context.Context, c *ProductCardRecord) (bool, error) {
	return s.insertIfAbsent(ctx, collProductCards, c.UUID, c)
}

func (s *MongoStore) SearchCards(ctx context.Context, query, destination string, limit int) ([]CardRecord, error) {
	filter := bson.M{}
	if destination != "" {
		filter["$or"] = []bson.M{
			{"destination": bson.M{"$regex": "^" + regexp.QuoteMeta(destination) + "$", "$options": "i"}},
			{"destination": ""},
		}
	}
	cur, err := s.db.Collection(collCards).Find(ctx, filter, options.Find().SetLimit(searchScanCap))
	if err != nil {
		return nil, fmt.Errorf("find cards: %w", err)
	}
	var docs []CardRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}

	tokens := Tokenize(query)
	candidates := make([]scored[CardRecord], 0, len(docs))
	for i := range docs {
		candidates = append(candidates, scored[CardRecord]{
			item:  docs[i],
			score: ContainmentScore(tokens, cardText(&docs[i])),
			order: i,
		})
	}
	return rankByScore(candidates, limit), nil
}

func (s *MongoStore) SearchProductCards(ctx context.Context, signature, destination, market string, limit int) ([]ProductCardRecord, error) {
	filter := bson.M{}
	if destination != "" {
		filter["$or"] = []bson.M{
			{"destination": bson.M{"$regex": "^" + regexp.QuoteMeta(destination) + "$", "$options": "i"}},
			{"destination": ""},
		}
	}
	if market != "" {
		filter["market"] = bson.M{"$in": []string{market, ""}}
	}
	cur, err := s.db.Collection(collProductCards).Find(ctx, filter, options.Find().SetLimit(searchScanCap))
	if err != nil {
		return nil, fmt.Errorf("find product cards: %w", err)
	}
	var docs []ProductCardRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode product cards: %w", err)
	}

	tokens := Tokenize(signature)
	candidates := make([]scored[ProductCardRecord], 0, len(docs))
	for i := range docs {
		candidates = append(candidates, scored[ProductCardRecord]{
			item:  docs[i],
			score: ContainmentScore(tokens, productCardText(&docs[i])),
			order: i,
		})
	}
	return rankByScore(candidates, limit), nil
}

func (s *MongoStore) UpsertNode(ctx context.Context, n *NodeRecord) error {
	_, err := s.db.Collection(collNodes).UpdateOne(ctx,
		bson.M{"_id": n.ID},
		bson.M{"$set": n},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", n.ID, err)
	}
	return nil
}

func (s *MongoStore) UpsertEdge(ctx context.Context, e *EdgeRecord) (bool, error) {
	res, err := s.db.Collection(collEdges).UpdateOne(ctx,
		bson.M{
			"type":     e.Type,
			"source":   e.Source,
			"target":   e.Target,
			"startSec": e.StartSec,
			"endSec":   e.EndSec,
		},
		bson.M{"$setOnInsert": e},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("upsert edge %s: %w", e.Type, err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) FindNodes(ctx context.Context, query string, limit int) ([]NodeRecord, error) {
	cur, err := s.db.Collection(collNodes).Find(ctx, bson.M{}, options.Find().SetLimit(searchScanCap))
	if err != nil {
		return nil, fmt.Errorf("find nodes: %w", err)
	}
	var docs []NodeRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}

	tokens := Tokenize(query)
	candidates := make([]scored[NodeRecord], 0, len(docs))
	for i := range docs {
		text := docs[i].Name + " " + docs[i].ID
		for _, a := range docs[i].Aliases {
			text += " " + a
		}
		candidates = append(candidates, scored[NodeRecord]{
			item:  docs[i],
			score: ContainmentScore(tokens, text),
			order: i,
		})
	}
	return rankByScore(candidates, limit), nil
}

func (s *MongoStore) EdgesAmong(ctx context.Context, nodeIDs []string) ([]EdgeRecord, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	cur, err := s.db.Collection(collEdges).Find(ctx, bson.M{
		"source": bson.M{"$in": nodeIDs},
		"target": bson.M{"$in": nodeIDs},
	})
	if err != nil {
		return nil, fmt.Errorf("find edges: %w", err)
	}
	var docs []EdgeRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode edges: %w", err)
	}
	return docs, nil
}


// Package mongo implements the snippet repository port on MongoDB. It is an
// alternative backend to the default SQLite store, selected via
// SNIP_STORE_BACKEND=mongo; account storage stays in SQLite either way.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/1525164075/code-spark-snippets/internal/apperror"
	"github.com/1525164075/code-spark-snippets/internal/model"
	"github.com/1525164075/code-spark-snippets/internal/repository"
)

var _ repository.SnippetRepository = (*Store)(nil)

// Store holds the client and the snippets collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// document is the persisted shape. Expired documents are NOT removed by a TTL
// index: expiry is evaluated at read time by the access gate, and the record
// must remain in the store.
type document struct {
	ID          string           `bson:"_id"`
	OwnerID     string           `bson:"owner_id"`
	Title       string           `bson:"title"`
	Files       []model.CodeFile `bson:"files"`
	FileCount   int              `bson:"file_count"`
	Description string           `bson:"description"`
	Tags        []string         `bson:"tags"`
	Visibility  string           `bson:"visibility"`
	SecretHash  string           `bson:"secret_hash"`
	ExpiresAt   *time.Time       `bson:"expires_at,omitempty"`
	CreatedAt   time.Time        `bson:"created_at"`
	UpdatedAt   time.Time        `bson:"updated_at"`
}

// New connects to MongoDB, verifies the connection, and ensures indexes.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	s := &Store{
		client: client,
		coll:   client.Database(dbName).Collection("snippets"),
	}
	if err := s.createIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "visibility", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: creating indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Create persists a new snippet as a single InsertOne, which is atomic at the
// document level.
func (s *Store) Create(ctx context.Context, sn *model.Snippet) error {
	if err := repository.ValidateSnippet(sn); err != nil {
		return err
	}

	sn.ID = xid.New().String()
	now := time.Now().UTC()
	sn.CreatedAt = now
	sn.UpdatedAt = now

	doc := document{
		ID:          sn.ID,
		OwnerID:     sn.OwnerID,
		Title:       sn.Title,
		Files:       sn.Files,
		FileCount:   len(sn.Files),
		Description: sn.Description,
		Tags:        tagsOrEmpty(sn.Tags),
		Visibility:  string(sn.Visibility),
		SecretHash:  sn.SecretHash,
		ExpiresAt:   sn.ExpiresAt,
		CreatedAt:   sn.CreatedAt,
		UpdatedAt:   sn.UpdatedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: creating snippet: %w", err)
	}
	return nil
}

// GetByID returns the stored record unconditionally; expiry and visibility
// are the gate's concern.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("snippet")
		}
		return nil, fmt.Errorf("mongo: getting snippet %s: %w", id, err)
	}
	return doc.toModel(), nil
}

// ListPublic returns public summaries. The projection excludes files and
// secret_hash at the database level.
func (s *Store) ListPublic(ctx context.Context, order repository.SortOrder) ([]model.PublicSummary, error) {
	sort := bson.D{{Key: "created_at", Value: -1}}
	if order == repository.SortTitleAsc {
		sort = bson.D{{Key: "title", Value: 1}}
	}

	opts := options.Find().
		SetSort(sort).
		SetProjection(bson.M{"title": 1, "tags": 1, "file_count": 1, "created_at": 1})
	cur, err := s.coll.Find(ctx, bson.M{"visibility": string(model.VisibilityPublic)}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing public snippets: %w", err)
	}
	defer cur.Close(ctx)

	var out []model.PublicSummary
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding public snippet: %w", err)
		}
		out = append(out, model.PublicSummary{
			ID:        doc.ID,
			Title:     doc.Title,
			Tags:      tagsOrEmpty(doc.Tags),
			FileCount: doc.FileCount,
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating public snippets: %w", err)
	}
	return out, nil
}

// ListByOwner returns all summaries owned by ownerID, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]model.OwnedSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetProjection(bson.M{"title": 1, "visibility": 1, "file_count": 1, "created_at": 1})
	cur, err := s.coll.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing snippets for owner: %w", err)
	}
	defer cur.Close(ctx)

	var out []model.OwnedSummary
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decoding owned snippet: %w", err)
		}
		out = append(out, model.OwnedSummary{
			ID:         doc.ID,
			Title:      doc.Title,
			Visibility: model.Visibility(doc.Visibility),
			FileCount:  doc.FileCount,
			CreatedAt:  doc.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterating owned snippets: %w", err)
	}
	return out, nil
}

// Delete removes the snippet iff ownerID matches, in one DeleteOne whose
// filter carries the ownership check. A miss is disambiguated with a
// follow-up existence probe.
func (s *Store) Delete(ctx context.Context, id, ownerID string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("mongo: deleting snippet %s: %w", id, err)
	}
	if res.DeletedCount > 0 {
		return nil
	}

	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: probing snippet %s: %w", id, err)
	}
	if count == 0 {
		return apperror.NotFound("snippet")
	}
	return apperror.Forbidden("only the owner can delete a snippet")
}

func (d *document) toModel() *model.Snippet {
	return &model.Snippet{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Files:       d.Files,
		Description: d.Description,
		Tags:        tagsOrEmpty(d.Tags),
		Visibility:  model.Visibility(d.Visibility),
		SecretHash:  d.SecretHash,
		ExpiresAt:   d.ExpiresAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

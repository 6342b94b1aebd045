package vfs

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
)

// MongoConfig configures a MongoFS.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string // defaults to "files"
	// Project scopes the store; several projects can share a collection.
	Project string
}

// fileDoc is one stored file.
type fileDoc struct {
	ID        string    `bson:"_id"`
	Project   string    `bson:"project"`
	Path      string    `bson:"path"`
	Text      string    `bson:"text"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoFS stores files as documents in a MongoDB collection.
type MongoFS struct {
	client  *mongo.Client
	coll    *mongo.Collection
	project string
	owned   bool
}

// NewMongoFS connects to MongoDB and verifies the connection.
func NewMongoFS(ctx context.Context, cfg MongoConfig) (*MongoFS, error) {
	if cfg.URI == "" || cfg.Database == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo uri and database are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "connect mongo")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "ping mongo")
	}
	fs := NewMongoFSFromCollection(client.Database(cfg.Database).Collection(collectionName(cfg)), cfg.Project)
	fs.client, fs.owned = client, true
	return fs, nil
}

// NewMongoFSFromCollection wraps an existing collection. The caller keeps
// ownership of the client.
func NewMongoFSFromCollection(coll *mongo.Collection, project string) *MongoFS {
	return &MongoFS{coll: coll, project: project}
}

func collectionName(cfg MongoConfig) string {
	if cfg.Collection == "" {
		return "files"
	}
	return cfg.Collection
}

func (m *MongoFS) docID(path string) string { return m.project + ":" + path }

// ReadFile implements FS.
func (m *MongoFS) ReadFile(ctx context.Context, path string) (string, error) {
	if err := errors.ValidateFilePath(path); err != nil {
		return "", err
	}
	var doc fileDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": m.docID(path)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", notFound(path)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	return doc.Text, nil
}

// WriteFile implements FS.
func (m *MongoFS) WriteFile(ctx context.Context, path, text string) error {
	if err := errors.ValidateFilePath(path); err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"project":   m.project,
		"path":      path,
		"text":      text,
		"updatedAt": time.Now().UTC(),
	}}
	_, err := m.coll.UpdateOne(ctx, bson.M{"_id": m.docID(path)}, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

// DeleteFile implements FS.
func (m *MongoFS) DeleteFile(ctx context.Context, path string) error {
	if err := errors.ValidateFilePath(path); err != nil {
		return err
	}
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": m.docID(path)})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete %s", path)
	}
	if res.DeletedCount == 0 {
		return notFound(path)
	}
	return nil
}

// List implements FS.
func (m *MongoFS) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"path": 1}).
		SetSort(bson.D{{Key: "path", Value: 1}})
	cur, err := m.coll.Find(ctx, bson.M{"project": m.project}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list files")
	}
	var docs []fileDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list files")
	}
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Path
	}
	return out, nil
}

// Close disconnects the client when the MongoFS created it.
func (m *MongoFS) Close(ctx context.Context) error {
	if !m.owned {
		return nil
	}
	return m.client.Disconnect(ctx)
}

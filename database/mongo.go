package database

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mbolis/event-registration/model"
)

const (
	colFields      = "formfields"
	colSubmissions = "submissions"
	colSettings    = "settings"
	colUsers       = "users"
	colTokens      = "tokens"

	bannerKey = "eventBanner"
)

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri).SetTimeout(timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

type fieldDoc struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Label     string              `bson:"label"`
	Kind      string              `bson:"kind"`
	Options   []string            `bson:"options,omitempty"`
	Events    []model.EventOption `bson:"events,omitempty"`
	Required  bool                `bson:"required"`
	Order     int                 `bson:"order"`
	CreatedAt time.Time           `bson:"createdAt"`
}

func toFieldDoc(f model.FieldDefinition) fieldDoc {
	return fieldDoc{
		Label:     f.Label,
		Kind:      string(f.Kind),
		Options:   f.Options,
		Events:    f.Events,
		Required:  f.Required,
		Order:     f.Order,
		CreatedAt: f.CreatedAt,
	}
}

func (d fieldDoc) model() model.FieldDefinition {
	return model.FieldDefinition{
		ID:        d.ID.Hex(),
		Label:     d.Label,
		Kind:      model.FieldKind(d.Kind),
		Options:   d.Options,
		Events:    d.Events,
		Required:  d.Required,
		Order:     d.Order,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

// objectID maps malformed ids to ErrNotFound: no document can carry them.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return oid, ErrNotFound
	}
	return oid, nil
}

func (s *MongoStore) ListFields(ctx context.Context) ([]model.FieldDefinition, error) {
	sort := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.db.Collection(colFields).Find(ctx, bson.M{}, sort)
	if err != nil {
		return nil, errors.Wrap(err, "list fields")
	}
	var docs []fieldDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "list fields decode")
	}
	fields := make([]model.FieldDefinition, len(docs))
	for i, d := range docs {
		fields[i] = d.model()
	}
	return fields, nil
}

func (s *MongoStore) GetField(ctx context.Context, id string) (model.FieldDefinition, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.FieldDefinition{}, err
	}
	var doc fieldDoc
	err = s.db.Collection(colFields).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.FieldDefinition{}, ErrNotFound
	}
	if err != nil {
		return model.FieldDefinition{}, errors.Wrap(err, "get field")
	}
	return doc.model(), nil
}

func (s *MongoStore) InsertField(ctx context.Context, f *model.FieldDefinition) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	doc := toFieldDoc(*f)
	doc.ID = primitive.NewObjectID()
	if _, err := s.db.Collection(colFields).InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert field")
	}
	f.ID = doc.ID.Hex()
	return nil
}

func (s *MongoStore) ReplaceField(ctx context.Context, f model.FieldDefinition) error {
	oid, err := objectID(f.ID)
	if err != nil {
		return err
	}
	update := bson.M{"$set": bson.M{
		"label":    f.Label,
		"kind":     string(f.Kind),
		"options":  f.Options,
		"events":   f.Events,
		"required": f.Required,
		"order":    f.Order,
	}}
	res, err := s.db.Collection(colFields).UpdateByID(ctx, oid, update)
	return matchedOne(res, err, "replace field")
}

func (s *MongoStore) DeleteField(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(colFields).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "delete field")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetFieldOrder(ctx context.Context, id string, order int) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(colFields).UpdateByID(ctx, oid, bson.M{"$set": bson.M{"order": order}})
	return matchedOne(res, err, "set field order")
}

type submissionDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Answers   map[string]any     `bson:"answers"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type submissionReadDoc struct {
	ID        primitive.ObjectID       `bson:"_id"`
	Answers   map[string]bson.RawValue `bson:"answers"`
	CreatedAt time.Time                `bson:"createdAt"`
}

func answersToBSON(answers model.Answers) map[string]any {
	out := make(map[string]any, len(answers))
	for label, a := range answers {
		if a.Event != nil {
			out[label] = *a.Event
		} else {
			out[label] = a.Text
		}
	}
	return out
}

func answersFromBSON(raw map[string]bson.RawValue) (model.Answers, error) {
	out := make(model.Answers, len(raw))
	for label, v := range raw {
		switch v.Type {
		case bsontype.String:
			out[label] = model.TextAnswer(v.StringValue())
		case bsontype.EmbeddedDocument:
			var e model.EventOption
			if err := v.Unmarshal(&e); err != nil {
				return nil, errors.Wrapf(err, "decode answer %q", label)
			}
			out[label] = model.EventAnswer(e)
		default:
			out[label] = model.TextAnswer(scalarText(v))
		}
	}
	return out, nil
}

// scalarText renders numbers and booleans as text, the way answers
// posted as JSON scalars are stored.
func scalarText(v bson.RawValue) string {
	if i, ok := v.Int32OK(); ok {
		return strconv.FormatInt(int64(i), 10)
	}
	if i, ok := v.Int64OK(); ok {
		return strconv.FormatInt(i, 10)
	}
	if f, ok := v.DoubleOK(); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if d, ok := v.Decimal128OK(); ok {
		return d.String()
	}
	if b, ok := v.BooleanOK(); ok {
		return strconv.FormatBool(b)
	}
	if v.Type == bsontype.Null || v.Type == bsontype.Undefined {
		return ""
	}
	return v.String()
}

func (s *MongoStore) InsertSubmission(ctx context.Context, sub *model.Submission) error {
	doc := submissionDoc{
		ID:        primitive.NewObjectID(),
		Answers:   answersToBSON(sub.Answers),
		CreatedAt: sub.CreatedAt,
	}
	if _, err := s.db.Collection(colSubmissions).InsertOne(ctx, doc); err != nil {
		return errors.Wrap(err, "insert submission")
	}
	sub.ID = doc.ID.Hex()
	return nil
}

func (s *MongoStore) ListSubmissions(ctx context.Context) ([]model.Submission, error) {
	sort := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.db.Collection(colSubmissions).Find(ctx, bson.M{}, sort)
	if err != nil {
		return nil, errors.Wrap(err, "list submissions")
	}
	var docs []submissionReadDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "list submissions decode")
	}
	subs := make([]model.Submission, len(docs))
	for i, d := range docs {
		answers, err := answersFromBSON(d.Answers)
		if err != nil {
			return nil, err
		}
		subs[i] = model.Submission{ID: d.ID.Hex(), Answers: answers, CreatedAt: d.CreatedAt.UTC()}
	}
	return subs, nil
}

func (s *MongoStore) DeleteSubmission(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(colSubmissions).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "delete submission")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

type bannerDoc struct {
	Key       string    `bson:"_id"`
	Title     string    `bson:"title"`
	Image     string    `bson:"image"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (s *MongoStore) GetBanner(ctx context.Context) (model.Banner, error) {
	var doc bannerDoc
	err := s.db.Collection(colSettings).FindOne(ctx, bson.M{"_id": bannerKey}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Banner{}, nil
	}
	if err != nil {
		return model.Banner{}, errors.Wrap(err, "get banner")
	}
	return model.Banner{Title: doc.Title, Image: doc.Image, UpdatedAt: doc.UpdatedAt.UTC()}, nil
}

func (s *MongoStore) PutBanner(ctx context.Context, b model.Banner) error {
	doc := bannerDoc{Key: bannerKey, Title: b.Title, Image: b.Image, UpdatedAt: b.UpdatedAt}
	_, err := s.db.Collection(colSettings).ReplaceOne(ctx,
		bson.M{"_id": bannerKey}, doc, options.Replace().SetUpsert(true))
	return errors.Wrap(err, "put banner")
}

type userDoc struct {
	Username     string   `bson:"_id"`
	PasswordHash []byte   `bson:"passwordHash"`
	Roles        []string `bson:"roles"`
}

func (s *MongoStore) FindUser(ctx context.Context, username string) (model.User, error) {
	var doc userDoc
	err := s.db.Collection(colUsers).FindOne(ctx, bson.M{"_id": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, errors.Wrap(err, "find user")
	}
	return model.User{Username: doc.Username, PasswordHash: doc.PasswordHash, Roles: doc.Roles}, nil
}

func (s *MongoStore) UpsertUser(ctx context.Context, u model.User) error {
	doc := userDoc{Username: u.Username, PasswordHash: u.PasswordHash, Roles: u.Roles}
	_, err := s.db.Collection(colUsers).ReplaceOne(ctx,
		bson.M{"_id": u.Username}, doc, options.Replace().SetUpsert(true))
	return errors.Wrap(err, "upsert user")
}

type tokenDoc struct {
	Username       string    `bson:"username"`
	TokenID        string    `bson:"tokenId"`
	RefreshTokenID string    `bson:"refreshTokenId"`
	Expiration     time.Time `bson:"expiration"`
}

func (s *MongoStore) StoreToken(ctx context.Context, t model.Token) error {
	doc := tokenDoc{Username: t.Username, TokenID: t.TokenID, RefreshTokenID: t.RefreshTokenID, Expiration: t.Expiration}
	_, err := s.db.Collection(colTokens).InsertOne(ctx, doc)
	return errors.Wrap(err, "store token")
}

func (s *MongoStore) TakeToken(ctx context.Context, username, tokenID, refreshTokenID string) (model.Token, error) {
	filter := bson.M{"username": username, "tokenId": tokenID, "refreshTokenId": refreshTokenID}
	var doc tokenDoc
	err := s.db.Collection(colTokens).FindOneAndDelete(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Token{Username: username, TokenID: tokenID, RefreshTokenID: refreshTokenID}, ErrNotFound
	}
	if err != nil {
		return model.Token{}, errors.Wrap(err, "take token")
	}
	return model.Token{
		Username:       doc.Username,
		TokenID:        doc.TokenID,
		RefreshTokenID: doc.RefreshTokenID,
		Expiration:     doc.Expiration.UTC(),
	}, nil
}

func matchedOne(res *mongo.UpdateResult, err error, op string) error {
	if err != nil {
		return errors.Wrap(err, op)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

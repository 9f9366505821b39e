// Package mongodb implements the per-store ledger on top of one MongoDB
// database per store. Record-level atomicity comes from conditional
// FindOneAndUpdate filters ($inc with a quantity floor) and from an
// atomic counter document for receipt numbering, so the invariants hold
// even with multiple process instances writing concurrently.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cimara/stockledger/internal/domain/apperr"
	"github.com/cimara/stockledger/internal/domain/models"
	"github.com/cimara/stockledger/internal/repository"
)

const (
	equipmentColl   = "equipment"
	withdrawalsColl = "withdrawals"
	countersColl    = "counters"
)

// Client wraps a shared mongo connection and hands out per-store
// handles.
type Client struct {
	client *mongo.Client
}

// NewClient connects to MongoDB and verifies the connection with a
// ping.
func NewClient(ctx context.Context, uri string) (*Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Client{client: client}, nil
}

// Store returns the ledger handle for one store's database.
func (c *Client) Store(dbName string) *Store {
	return &Store{db: c.client.Database(dbName)}
}

// Close disconnects the underlying client.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Store is the MongoDB ledger of a single store.
type Store struct {
	db *mongo.Database
}

// FindEquipmentByID looks an equipment record up by its object id.
func (s *Store) FindEquipmentByID(ctx context.Context, id string) (models.Equipment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Equipment{}, fmt.Errorf("%w: invalid equipment id %q", apperr.ErrItemNotFound, id)
	}

	var rec models.Equipment
	err = s.db.Collection(equipmentColl).FindOne(ctx, bson.M{"_id": oid}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Equipment{}, fmt.Errorf("%w: id %s", apperr.ErrItemNotFound, id)
	}
	if err != nil {
		return models.Equipment{}, fmt.Errorf("find equipment by id: %w", err)
	}
	return rec, nil
}

// FindEquipmentByName looks an equipment record up by its unique name.
func (s *Store) FindEquipmentByName(ctx context.Context, name string) (models.Equipment, error) {
	var rec models.Equipment
	err := s.db.Collection(equipmentColl).FindOne(ctx, bson.M{"name": name}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Equipment{}, fmt.Errorf("%w: %s", apperr.ErrItemNotFound, name)
	}
	if err != nil {
		return models.Equipment{}, fmt.Errorf("find equipment by name: %w", err)
	}
	return rec, nil
}

// ListEquipment returns every equipment record, newest first.
func (s *Store) ListEquipment(ctx context.Context) ([]models.Equipment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.db.Collection(equipmentColl).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}

	var records []models.Equipment
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode equipment list: %w", err)
	}
	return records, nil
}

// AdjustQuantity applies delta to one record's quantity. The decrement
// path filters on a quantity floor so the check and the write are one
// conditional step; a concurrent withdrawal that would overdraw the
// record loses the race and gets ErrInsufficientStock.
func (s *Store) AdjustQuantity(ctx context.Context, id string, delta int) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: invalid equipment id %q", apperr.ErrItemNotFound, id)
	}

	filter := bson.M{"_id": oid}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}

	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	res := s.db.Collection(equipmentColl).FindOneAndUpdate(ctx, filter, update)
	if err := res.Err(); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("adjust quantity: %w", err)
		}
		// Filter missed: either the record does not exist or the floor
		// condition rejected the decrement.
		if _, findErr := s.FindEquipmentByID(ctx, id); findErr != nil {
			return findErr
		}
		return fmt.Errorf("%w: equipment %s cannot cover %d", apperr.ErrInsufficientStock, id, -delta)
	}
	return nil
}

// UpsertEquipmentByName adds delta to the named record, creating it
// from defaults on first touch. $inc plus $setOnInsert in a single
// upsert keeps concurrent callers from losing updates on the same name.
func (s *Store) UpsertEquipmentByName(ctx context.Context, name string, delta int, defaults models.EquipmentDefaults) error {
	now := time.Now().UTC()
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"name":         name,
			"unit":         defaults.Unit,
			"category":     defaults.Category,
			"condition":    defaults.Condition,
			"serialNumber": "",
			"location":     "",
			"price":        0.0,
			"createdAt":    now,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := s.db.Collection(equipmentColl).UpdateOne(ctx, bson.M{"name": name}, update, opts); err != nil {
		return fmt.Errorf("upsert equipment %q: %w", name, err)
	}
	return nil
}

// AddEquipment records a stock intake: the named record gains rec's
// quantity, and is created with the full field set when absent.
func (s *Store) AddEquipment(ctx context.Context, rec models.Equipment) (models.Equipment, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$inc": bson.M{"quantity": rec.Quantity},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"name":         rec.Name,
			"category":     rec.Category,
			"serialNumber": rec.SerialNumber,
			"unit":         rec.Unit,
			"location":     rec.Location,
			"condition":    rec.Condition,
			"price":        rec.Price,
			"createdAt":    now,
		},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored models.Equipment
	err := s.db.Collection(equipmentColl).FindOneAndUpdate(ctx, bson.M{"name": rec.Name}, update, opts).Decode(&stored)
	if err != nil {
		return models.Equipment{}, fmt.Errorf("add equipment %q: %w", rec.Name, err)
	}
	return stored, nil
}

// UpdateEquipment applies an administrative field correction via $set.
func (s *Store) UpdateEquipment(ctx context.Context, id string, update repository.EquipmentUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: invalid equipment id %q", apperr.ErrItemNotFound, id)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	setField(set, "name", update.Name)
	setField(set, "category", update.Category)
	setField(set, "serialNumber", update.SerialNumber)
	setField(set, "quantity", update.Quantity)
	setField(set, "unit", update.Unit)
	setField(set, "location", update.Location)
	setField(set, "condition", update.Condition)
	setField(set, "price", update.Price)

	res, err := s.db.Collection(equipmentColl).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: id %s", apperr.ErrItemNotFound, id)
	}
	return nil
}

func setField[T any](set bson.M, key string, value *T) {
	if value != nil {
		set[key] = *value
	}
}

// LowStock returns records whose quantity is below threshold.
func (s *Store) LowStock(ctx context.Context, threshold int) ([]models.Equipment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "quantity", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := s.db.Collection(equipmentColl).Find(ctx, bson.M{"quantity": bson.M{"$lt": threshold}}, opts)
	if err != nil {
		return nil, fmt.Errorf("low stock query: %w", err)
	}

	var records []models.Equipment
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode low stock list: %w", err)
	}
	return records, nil
}

// InsertWithdrawal persists one immutable withdrawal record and returns
// it with its generated id.
func (s *Store) InsertWithdrawal(ctx context.Context, w models.Withdrawal) (models.Withdrawal, error) {
	if w.ID.IsZero() {
		w.ID = primitive.NewObjectID()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}

	if _, err := s.db.Collection(withdrawalsColl).InsertOne(ctx, w); err != nil {
		return models.Withdrawal{}, fmt.Errorf("insert withdrawal: %w", err)
	}
	return w, nil
}

// ListWithdrawals returns withdrawal records in the range, newest
// first. All writes store withdrawalDate as a BSON datetime, so the
// range filter matches the one structured field only.
func (s *Store) ListWithdrawals(ctx context.Context, r repository.DateRange) ([]models.Withdrawal, error) {
	filter := bson.M{}
	if !r.IsZero() {
		bounds := bson.M{}
		if !r.From.IsZero() {
			bounds["$gte"] = r.From
		}
		if !r.To.IsZero() {
			bounds["$lte"] = r.To
		}
		filter["withdrawalDate"] = bounds
	}

	opts := options.Find().SetSort(bson.D{{Key: "withdrawalDate", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.db.Collection(withdrawalsColl).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}

	var records []models.Withdrawal
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode withdrawal list: %w", err)
	}
	return records, nil
}

// NextReceiptNumber reserves the next receipt sequence for the current
// year via an atomic counter document, so two concurrent withdrawals
// can never share a number even across process instances.
func (s *Store) NextReceiptNumber(ctx context.Context, prefix string) (string, error) {
	year := time.Now().UTC().Year()
	counterID := fmt.Sprintf("receipts-%d", year)

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersColl).FindOneAndUpdate(
		ctx,
		bson.M{"_id": counterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return "", fmt.Errorf("next receipt number: %w", err)
	}

	return fmt.Sprintf("%s-%d-%05d", prefix, year, counter.Seq), nil
}

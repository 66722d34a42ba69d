package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dualstore-benchmark/internal/canonical"
	"dualstore-benchmark/internal/metrics"
	"dualstore-benchmark/internal/model"
	"dualstore-benchmark/internal/normalize"
)

// Document collection names.
const (
	collCategories = "categories"
	collCustomers  = "customers"
	collProducts   = "products"
	collOrders     = "orders"
	collLineItems  = "orderLineItems"
)

// documentCollections lists collections parent-before-child; deletion walks
// it in reverse.
var documentCollections = []string{
	collCategories,
	collCustomers,
	collProducts,
	collOrders,
	collLineItems,
}

// uniqueIndexes are the natural-key indexes each collection carries.
var uniqueIndexes = map[string]string{
	collCategories: "id",
	collCustomers:  "email",
	collProducts:   "id",
	collOrders:     "id",
	collLineItems:  "id",
}

// MongoStore is the document side. Every import is an upsert by natural
// key, so conflicting documents are replaced rather than skipped.
type MongoStore struct {
	client    *mongo.Client
	db        *mongo.Database
	batchSize int
	obs       metrics.Observer
	log       *zap.Logger
}

func ConnectMongo(ctx context.Context, uri, database string, serverSelection, socketTimeout time.Duration, batchSize int, obs metrics.Observer, log *zap.Logger) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(serverSelection).
		SetSocketTimeout(socketTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if obs == nil {
		obs = metrics.NopObserver{}
	}
	return &MongoStore{
		client:    client,
		db:        client.Database(database),
		batchSize: batchSize,
		obs:       obs,
		log:       log,
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique natural-key indexes, skipping any whose
// key set already exists so repeated startup is a no-op.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	defer metrics.Track(s.obs, "mongo", "ensure-indexes", len(uniqueIndexes))()

	for _, collection := range documentCollections {
		field := uniqueIndexes[collection]
		exists, err := s.hasIndex(ctx, collection, field)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		_, err = s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create index %s.%s: %w", collection, field, err)
		}
	}
	return nil
}

// hasIndex compares key sets, not index names, so an equivalent index
// created out of band still counts.
func (s *MongoStore) hasIndex(ctx context.Context, collection, field string) (bool, error) {
	cur, err := s.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return false, fmt.Errorf("list indexes %s: %w", collection, err)
	}
	var specs []struct {
		Key bson.D `bson:"key"`
	}
	if err := cur.All(ctx, &specs); err != nil {
		return false, fmt.Errorf("read indexes %s: %w", collection, err)
	}
	for _, spec := range specs {
		if len(spec.Key) == 1 && spec.Key[0].Key == field {
			return true, nil
		}
	}
	return false, nil
}

// ImportBulk upserts every entity by natural key. Categories and customers
// load concurrently, then products and orders, then line items; there are
// no foreign keys here, the tiers only keep the write pattern aligned with
// the relational side.
func (s *MongoStore) ImportBulk(ctx context.Context, ds *normalize.Dataset) (*ImportReport, error) {
	start := time.Now()
	if err := checkReferences(ds); err != nil {
		return nil, err
	}

	report := &ImportReport{Store: "mongo", Attempted: attempted(ds)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		models := make([]mongo.WriteModel, 0, len(ds.Categories))
		for _, c := range ds.Categories {
			models = append(models, replaceByID("id", c.ID, c))
		}
		n, err := s.writeModels(gctx, collCategories, models)
		report.Written.Categories = n
		return err
	})
	g.Go(func() error {
		models := make([]mongo.WriteModel, 0, len(ds.Customers))
		for _, c := range ds.Customers {
			models = append(models, replaceByID("email", c.Email, c))
		}
		n, err := s.writeModels(gctx, collCustomers, models)
		report.Written.Customers = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		models := make([]mongo.WriteModel, 0, len(ds.Products))
		for _, p := range ds.Products {
			models = append(models, replaceByID("id", p.ID, p))
		}
		n, err := s.writeModels(gctx, collProducts, models)
		report.Written.Products = n
		return err
	})
	g.Go(func() error {
		models := make([]mongo.WriteModel, 0, len(ds.Orders))
		for _, o := range ds.Orders {
			models = append(models, replaceByID("id", o.ID, o))
		}
		n, err := s.writeModels(gctx, collOrders, models)
		report.Written.Orders = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	models := make([]mongo.WriteModel, 0, len(ds.LineItems))
	for _, li := range ds.LineItems {
		item := li
		item.ID = li.CompositeKey()
		models = append(models, replaceByID("id", item.ID, item))
	}
	n, err := s.writeModels(ctx, collLineItems, models)
	if err != nil {
		return nil, err
	}
	report.Written.LineItems = n

	report.Duration = time.Since(start)
	s.log.Info("document import complete",
		zap.Int64("attempted", report.Attempted.Total()),
		zap.Int64("written", report.Written.Total()))
	return report, nil
}

func replaceByID(field, value string, doc any) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(bson.M{field: value}).
		SetReplacement(doc).
		SetUpsert(true)
}

// writeModels runs chunked unordered bulk writes; batches stay sequential
// per collection. Written counts upserted plus modified documents, so
// replacing a document with an identical one counts as zero.
func (s *MongoStore) writeModels(ctx context.Context, collection string, models []mongo.WriteModel) (int64, error) {
	defer metrics.Track(s.obs, "mongo", "upsert-"+collection, len(models))()

	var written int64
	for _, batch := range chunkSlice(models, s.batchSize) {
		result, err := s.db.Collection(collection).BulkWrite(ctx, batch,
			options.BulkWrite().SetOrdered(false))
		if err != nil {
			return written, fmt.Errorf("bulk write %s: %w", collection, err)
		}
		written += result.UpsertedCount + result.ModifiedCount
	}
	return written, nil
}

// FilteredOrders runs the lookup pipeline equivalent to the relational
// five-way join: one output document per order, items pushed back into an
// array after the per-item category filter.
func (s *MongoStore) FilteredOrders(ctx context.Context, categoryName, status string) ([]canonical.DocumentRecord, error) {
	defer metrics.Track(s.obs, "mongo", "filtered-orders", 1)()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"status": status}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": collCustomers, "localField": "customerId", "foreignField": "id", "as": "customer",
		}}},
		bson.D{{Key: "$unwind", Value: "$customer"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": collLineItems, "localField": "id", "foreignField": "orderId", "as": "lineItem",
		}}},
		bson.D{{Key: "$unwind", Value: "$lineItem"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": collProducts, "localField": "lineItem.productId", "foreignField": "id", "as": "product",
		}}},
		bson.D{{Key: "$unwind", Value: "$product"}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": collCategories, "localField": "product.categoryId", "foreignField": "id", "as": "category",
		}}},
		bson.D{{Key: "$unwind", Value: "$category"}},
		bson.D{{Key: "$match", Value: bson.M{"category.name": categoryName}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":             "$id",
			"id":              bson.M{"$first": "$id"},
			"orderDate":       bson.M{"$first": "$orderDate"},
			"shippingCost":    bson.M{"$first": "$shippingCost"},
			"totalOrderValue": bson.M{"$first": "$totalOrderValue"},
			"status":          bson.M{"$first": "$status"},
			"paymentMethod":   bson.M{"$first": "$paymentMethod"},
			"customer":        bson.M{"$first": "$customer"},
			"items": bson.M{"$push": bson.M{
				"productId":    "$product.id",
				"productName":  "$product.name",
				"categoryId":   "$category.id",
				"categoryName": "$category.name",
				"price":        "$product.price",
				"quantity":     "$lineItem.quantity",
				"totalPrice":   "$lineItem.totalPrice",
			}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "orderDate", Value: 1}, {Key: "id", Value: 1}}}},
	}

	cur, err := s.db.Collection(collOrders).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("filtered orders: %w", err)
	}
	var records []canonical.DocumentRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode filtered orders: %w", err)
	}
	return records, nil
}

// UpdateStaleOrders captures the distinct customer set before touching the
// orders, then runs the two bulk updates. Like the relational side this is
// not atomic across the two collections.
func (s *MongoStore) UpdateStaleOrders(ctx context.Context, policy StalePolicy) (*StaleReport, error) {
	defer metrics.Track(s.obs, "mongo", "update-stale-orders", 1)()

	filter := bson.M{
		"status":          model.StatusPending,
		"orderDate":       bson.M{"$gte": policy.WindowStart, "$lte": policy.WindowEnd},
		"totalOrderValue": bson.M{"$gt": policy.MinOrderValue},
	}

	customerIDs, err := s.db.Collection(collOrders).Distinct(ctx, "customerId", filter)
	if err != nil {
		return nil, fmt.Errorf("select stale customers: %w", err)
	}

	orderResult, err := s.db.Collection(collOrders).UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"status": model.StatusUpdated, "updatedAt": time.Now()},
	})
	if err != nil {
		return nil, fmt.Errorf("update stale orders: %w", err)
	}

	report := &StaleReport{OrdersUpdated: orderResult.ModifiedCount}
	if len(customerIDs) == 0 {
		return report, nil
	}

	customerResult, err := s.db.Collection(collCustomers).UpdateMany(ctx,
		bson.M{"id": bson.M{"$in": customerIDs}},
		bson.M{"$set": bson.M{
			"address":   policy.Address,
			"city":      policy.City,
			"state":     policy.State,
			"zipCode":   policy.ZipCode,
			"updatedAt": time.Now(),
		}})
	if err != nil {
		return nil, fmt.Errorf("update stale customers: %w", err)
	}
	report.CustomersUpdated = customerResult.ModifiedCount
	return report, nil
}

func (s *MongoStore) DeleteAgedOrders(ctx context.Context, cutoff time.Time) (*EntityCounts, error) {
	defer metrics.Track(s.obs, "mongo", "delete-aged-orders", 1)()

	filter := bson.M{"orderDate": bson.M{"$lt": cutoff}}
	orderIDs, err := s.db.Collection(collOrders).Distinct(ctx, "id", filter)
	if err != nil {
		return nil, fmt.Errorf("select aged orders: %w", err)
	}

	counts := &EntityCounts{}
	if len(orderIDs) > 0 {
		result, err := s.db.Collection(collLineItems).DeleteMany(ctx,
			bson.M{"orderId": bson.M{"$in": orderIDs}})
		if err != nil {
			return nil, fmt.Errorf("delete aged line items: %w", err)
		}
		counts.LineItems = result.DeletedCount
	}

	result, err := s.db.Collection(collOrders).DeleteMany(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("delete aged orders: %w", err)
	}
	counts.Orders = result.DeletedCount
	return counts, nil
}

func (s *MongoStore) DeleteAll(ctx context.Context) error {
	defer metrics.Track(s.obs, "mongo", "delete-all", len(documentCollections))()

	for i := len(documentCollections) - 1; i >= 0; i-- {
		if _, err := s.db.Collection(documentCollections[i]).DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("delete all %s: %w", documentCollections[i], err)
		}
	}
	return nil
}

func (s *MongoStore) DatabaseSize(ctx context.Context) (*SizeReport, error) {
	report := &SizeReport{Store: "mongo", Tables: make(map[string]int64, len(documentCollections))}
	for _, collection := range documentCollections {
		var stats struct {
			Size           int64 `bson:"size"`
			TotalIndexSize int64 `bson:"totalIndexSize"`
		}
		err := s.db.RunCommand(ctx, bson.D{{Key: "collStats", Value: collection}}).Decode(&stats)
		if err != nil {
			// collStats fails on a collection nothing wrote to yet
			if cmdErr, ok := err.(mongo.CommandError); ok && cmdErr.Code == 26 {
				report.Tables[collection] = 0
				continue
			}
			return nil, fmt.Errorf("size of %s: %w", collection, err)
		}
		size := stats.Size + stats.TotalIndexSize
		report.Tables[collection] = size
		report.TotalBytes += size
	}
	return report, nil
}

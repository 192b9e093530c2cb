package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/ticket"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/report"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ordersCollection   = "orders"
	usersCollection    = "users"
	productsCollection = "products"
	ticketsCollection  = "tickets"
)

type itemDoc struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
	Subtotal  primitive.Decimal128 `bson:"subtotal"`
}

type paymentDoc struct {
	Method        string     `bson:"method"`
	PaidAt        *time.Time `bson:"paidAt"`
	TransactionID string     `bson:"transactionId"`
	CardLast4     string     `bson:"cardLast4,omitempty"`
	CardName      string     `bson:"cardName,omitempty"`
	PayPalEmail   string     `bson:"paypalEmail,omitempty"`
}

// Documents carry their domain id in a named field and leave _id to the
// server, matching documents written by earlier deployments.

type orderDoc struct {
	OrderID         string               `bson:"orderId"`
	UserID          string               `bson:"userId"`
	CustomerName    string               `bson:"customerName"`
	CustomerEmail   string               `bson:"customerEmail"`
	ShippingAddress string               `bson:"shippingAddress"`
	Items           []itemDoc            `bson:"items"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	OrderStatus     string               `bson:"orderStatus"`
	PaymentInfo     *paymentDoc          `bson:"paymentInfo,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

type userDoc struct {
	UserID         string     `bson:"userId"`
	Email          string     `bson:"email"`
	PasswordHash   string     `bson:"passwordHash"`
	FirstName      string     `bson:"firstName"`
	LastName       string     `bson:"lastName"`
	Role           string     `bson:"role"`
	IsActive       bool       `bson:"isActive"`
	CreatedAt      time.Time  `bson:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt"`
	ResetTokenHash string     `bson:"resetPasswordToken,omitempty"`
	ResetExpiresAt *time.Time `bson:"resetPasswordExpires,omitempty"`
}

type productDoc struct {
	ProductID   string               `bson:"productId"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	ImageURL    string               `bson:"imageUrl,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

type replyDoc struct {
	ReplyID   string    `bson:"replyId"`
	UserID    string    `bson:"userId"`
	UserName  string    `bson:"userName"`
	UserRole  string    `bson:"userRole"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"createdAt"`
}

type ticketDoc struct {
	TicketID  string     `bson:"ticketId"`
	UserID    string     `bson:"userId"`
	Name      string     `bson:"name"`
	Email     string     `bson:"email"`
	Subject   string     `bson:"subject"`
	Message   string     `bson:"message"`
	Status    string     `bson:"status"`
	Priority  string     `bson:"priority"`
	Replies   []replyDoc `bson:"replies"`
	CreatedAt time.Time  `bson:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

// MongoStore keeps orders, users, products and tickets as documents looked
// up by their string domain ids.
type MongoStore struct {
	client   *mongo.Client
	orders   *mongo.Collection
	users    *mongo.Collection
	products *mongo.Collection
	tickets  *mongo.Collection
}

// ConnectMongo dials the server and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetMaxPoolSize(25))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client:   client,
		orders:   db.Collection(ordersCollection),
		users:    db.Collection(usersCollection),
		products: db.Collection(productsCollection),
		tickets:  db.Collection(ticketsCollection),
	}
}

// Migrate normalizes documents written by earlier deployments, then creates
// indexes. Legacy documents carry ObjectId or numeric ids, double amounts, and
// spaced status spellings.
func (s *MongoStore) Migrate(ctx context.Context) error {
	for _, rw := range legacyRewrites(s) {
		res, err := rw.coll.UpdateMany(ctx, rw.filter, rw.update)
		if err != nil {
			return fmt.Errorf("failed to migrate %s: %w", rw.name, err)
		}
		if res.ModifiedCount > 0 {
			log.Printf("[MongoStore] Migrated %d %s", res.ModifiedCount, rw.name)
		}
	}

	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.orders, []mongo.IndexModel{
			{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "orderId", Value: -1}}},
			{Keys: bson.D{{Key: "orderStatus", Value: 1}}},
			{Keys: bson.D{{Key: "items.productId", Value: 1}}},
		}},
		{s.users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.products, []mongo.IndexModel{
			{Keys: bson.D{{Key: "productId", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.tickets, []mongo.IndexModel{
			{Keys: bson.D{{Key: "ticketId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateMany(ctx, idx.models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

type legacyRewrite struct {
	name   string
	coll   *mongo.Collection
	filter bson.M
	update any
}

// legacyRewrites lists the UpdateMany calls Migrate runs. Each filter only
// matches documents that still need the rewrite, so reruns are no-ops.
func legacyRewrites(s *MongoStore) []legacyRewrite {
	numeric := bson.A{"double", "int", "long"}
	notString := bson.M{"$not": bson.M{"$type": "string"}}

	var rewrites []legacyRewrite
	for legacy, canonical := range order.LegacyStatusSpellings() {
		rewrites = append(rewrites, legacyRewrite{
			name:   fmt.Sprintf("orders from %q to %q", legacy, canonical),
			coll:   s.orders,
			filter: bson.M{"orderStatus": legacy},
			update: bson.M{"$set": bson.M{"orderStatus": string(canonical)}},
		})
	}
	return append(rewrites,
		legacyRewrite{
			name: "orders to string ids and decimal amounts",
			coll: s.orders,
			filter: bson.M{"$or": bson.A{
				bson.M{"orderId": notString},
				bson.M{"userId": notString},
				bson.M{"totalAmount": bson.M{"$not": bson.M{"$type": "decimal"}}},
				bson.M{"items.price": bson.M{"$type": numeric}},
				bson.M{"items.productId": bson.M{"$type": numeric}},
			}},
			update: mongo.Pipeline{{{Key: "$set", Value: bson.D{
				{Key: "orderId", Value: stringID("$orderId")},
				{Key: "userId", Value: bson.D{{Key: "$toString", Value: "$userId"}}},
				{Key: "totalAmount", Value: cents(ifNull("$totalAmount", 0))},
				{Key: "items", Value: legacyItems()},
			}}}},
		},
		legacyRewrite{
			name: "users to string ids and isActive",
			coll: s.users,
			filter: bson.M{"$or": bson.A{
				bson.M{"userId": notString},
				bson.M{"isActive": bson.M{"$exists": false}},
			}},
			update: mongo.Pipeline{{{Key: "$set", Value: bson.D{
				{Key: "userId", Value: stringID("$userId")},
				{Key: "isActive", Value: ifNull("$isActive",
					bson.D{{Key: "$eq", Value: bson.A{ifNull("$accountStatus", "active"), "active"}}})},
			}}}},
		},
		legacyRewrite{
			name: "products to string ids and decimal prices",
			coll: s.products,
			filter: bson.M{"$or": bson.A{
				bson.M{"productId": notString},
				bson.M{"price": bson.M{"$not": bson.M{"$type": "decimal"}}},
			}},
			update: mongo.Pipeline{{{Key: "$set", Value: bson.D{
				{Key: "productId", Value: stringID("$productId")},
				{Key: "price", Value: cents(ifNull("$price", 0))},
				{Key: "imageUrl", Value: ifNull("$imageUrl", ifNull("$image", ""))},
			}}}},
		},
		legacyRewrite{
			name:   `tickets from "in progress"`,
			coll:   s.tickets,
			filter: bson.M{"status": "in progress"},
			update: bson.M{"$set": bson.M{"status": string(ticket.StatusInProgress)}},
		},
	)
}

// stringID keeps an existing id field as a string, falling back to _id.
func stringID(field string) bson.D {
	return bson.D{{Key: "$toString", Value: ifNull(field, "$_id")}}
}

func ifNull(expr, fallback any) bson.D {
	return bson.D{{Key: "$ifNull", Value: bson.A{expr, fallback}}}
}

// cents converts a numeric expression to Decimal128 rounded to two places.
func cents(expr any) bson.D {
	return bson.D{{Key: "$round", Value: bson.A{bson.D{{Key: "$toDecimal", Value: expr}}, 2}}}
}

// legacyItems rewrites each line item to a string product id, an integer
// quantity and decimal amounts. A missing subtotal is price times quantity.
func legacyItems() bson.D {
	quantity := bson.D{{Key: "$toInt", Value: ifNull("$$i.quantity", 1)}}
	return bson.D{{Key: "$map", Value: bson.D{
		{Key: "input", Value: ifNull("$items", bson.A{})},
		{Key: "as", Value: "i"},
		{Key: "in", Value: bson.D{{Key: "$mergeObjects", Value: bson.A{
			"$$i",
			bson.D{
				{Key: "productId", Value: bson.D{{Key: "$toString", Value: "$$i.productId"}}},
				{Key: "quantity", Value: quantity},
				{Key: "price", Value: cents(ifNull("$$i.price", 0))},
				{Key: "subtotal", Value: cents(ifNull("$$i.subtotal",
					bson.D{{Key: "$multiply", Value: bson.A{ifNull("$$i.price", 0), quantity}}}))},
			},
		}}}},
	}}}
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Order operations

func (s *MongoStore) CreateOrder(ctx context.Context, o *order.Order) error {
	doc, err := toOrderDoc(o)
	if err != nil {
		return err
	}
	_, err = s.orders.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *MongoStore) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	var doc orderDoc
	err := s.orders.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		log.Printf("[MongoStore] Error getting order: %v", err)
		return nil, err
	}
	return doc.toOrder()
}

func (s *MongoStore) ListOrders(ctx context.Context, q order.Query) ([]*order.Order, int, error) {
	filter := orderFilter(q)
	total, err := s.orders.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "orderId", Value: -1}})
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	orders := make([]*order.Order, 0, len(docs))
	for _, doc := range docs {
		o, err := doc.toOrder()
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, int(total), nil
}

// TransitionOrder uses FindOneAndUpdate so the status guard and the write are
// a single atomic document operation.
func (s *MongoStore) TransitionOrder(ctx context.Context, orderID string, from []order.Status, change order.Change) (*order.Order, error) {
	filter := bson.M{"orderId": orderID}
	if len(from) > 0 {
		filter["orderStatus"] = bson.M{"$in": statusStrings(from)}
	}
	set := bson.M{
		"orderStatus": string(change.Status),
		"updatedAt":   change.UpdatedAt,
	}
	if change.PaymentInfo != nil {
		set["paymentInfo"] = toPaymentDoc(change.PaymentInfo)
	}

	var doc orderDoc
	err := s.orders.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.orders.CountDocuments(ctx, bson.M{"orderId": orderID})
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			return nil, order.ErrOrderNotFound
		}
		return nil, order.ErrStatusConflict
	}
	if err != nil {
		log.Printf("[MongoStore] Error updating order %s: %v", orderID, err)
		return nil, err
	}
	return doc.toOrder()
}

func (s *MongoStore) HasOrdersForProduct(ctx context.Context, productID string) (bool, error) {
	n, err := s.orders.CountDocuments(ctx, bson.M{"items.productId": productID}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoStore) DailySales(ctx context.Context, q order.Query) ([]report.DailyRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: orderFilter(order.Query{Status: q.Status, From: q.From, To: q.To})}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$createdAt"},
				{Key: "timezone", Value: "UTC"},
			}}}},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
			{Key: "orders", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := s.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var groups []struct {
		Date   string               `bson:"_id"`
		Total  primitive.Decimal128 `bson:"total"`
		Orders int                  `bson:"orders"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	rows := make([]report.DailyRow, 0, len(groups))
	for _, g := range groups {
		total, err := fromDecimal128(g.Total)
		if err != nil {
			return nil, err
		}
		rows = append(rows, report.DailyRow{Date: g.Date, Total: total, Orders: g.Orders})
	}
	return rows, nil
}

func orderFilter(q order.Query) bson.M {
	filter := bson.M{}
	if q.UserID != "" {
		filter["userId"] = q.UserID
	}
	if q.Status != "" {
		filter["orderStatus"] = string(q.Status)
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		created := bson.M{}
		if !q.From.IsZero() {
			created["$gte"] = q.From
		}
		if !q.To.IsZero() {
			created["$lte"] = q.To
		}
		filter["createdAt"] = created
	}
	return filter
}

func toOrderDoc(o *order.Order) (*orderDoc, error) {
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return nil, err
	}
	items := make([]itemDoc, 0, len(o.Items))
	for _, item := range o.Items {
		price, err := toDecimal128(item.Price)
		if err != nil {
			return nil, err
		}
		subtotal, err := toDecimal128(item.Subtotal)
		if err != nil {
			return nil, err
		}
		items = append(items, itemDoc{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
	}
	doc := &orderDoc{
		OrderID:         o.ID,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		ShippingAddress: o.ShippingAddress,
		Items:           items,
		TotalAmount:     total,
		OrderStatus:     string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.PaymentInfo != nil {
		doc.PaymentInfo = toPaymentDoc(o.PaymentInfo)
	}
	return doc, nil
}

func toPaymentDoc(info *order.PaymentInfo) *paymentDoc {
	return &paymentDoc{
		Method:        string(info.Method),
		PaidAt:        info.PaidAt,
		TransactionID: info.TransactionID,
		CardLast4:     info.CardLast4,
		CardName:      info.CardName,
		PayPalEmail:   info.PayPalEmail,
	}
}

func (d *orderDoc) toOrder() (*order.Order, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return nil, err
	}
	o := &order.Order{
		ID:              d.OrderID,
		UserID:          d.UserID,
		CustomerName:    d.CustomerName,
		CustomerEmail:   d.CustomerEmail,
		ShippingAddress: d.ShippingAddress,
		Items:           make([]order.Item, 0, len(d.Items)),
		TotalAmount:     total,
		Status:          order.Status(d.OrderStatus),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
	for _, item := range d.Items {
		price, err := fromDecimal128(item.Price)
		if err != nil {
			return nil, err
		}
		subtotal, err := fromDecimal128(item.Subtotal)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, order.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     price,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
	}
	if p := d.PaymentInfo; p != nil {
		o.PaymentInfo = &order.PaymentInfo{
			Method:        order.Method(p.Method),
			PaidAt:        p.PaidAt,
			TransactionID: p.TransactionID,
			CardLast4:     p.CardLast4,
			CardName:      p.CardName,
			PayPalEmail:   p.PayPalEmail,
		}
	}
	return o, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to encode amount %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode amount %s: %w", v, err)
	}
	return d, nil
}

// User operations

func (s *MongoStore) CreateUser(ctx context.Context, u *user.User) error {
	_, err := s.users.InsertOne(ctx, userDoc{
		UserID:         u.ID,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           u.Role,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		ResetTokenHash: u.ResetTokenHash,
		ResetExpiresAt: u.ResetExpiresAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (s *MongoStore) GetUser(ctx context.Context, userID string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"userId": userID})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	pattern := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(email) + "$", Options: "i"}
	return s.findUser(ctx, bson.M{"email": pattern})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u := &user.User{
		ID:             doc.UserID,
		Email:          doc.Email,
		PasswordHash:   doc.PasswordHash,
		FirstName:      doc.FirstName,
		LastName:       doc.LastName,
		Role:           doc.Role,
		IsActive:       doc.IsActive,
		CreatedAt:      doc.CreatedAt.UTC(),
		UpdatedAt:      doc.UpdatedAt.UTC(),
		ResetTokenHash: doc.ResetTokenHash,
	}
	if doc.ResetExpiresAt != nil {
		expires := doc.ResetExpiresAt.UTC()
		u.ResetExpiresAt = &expires
	}
	return u, nil
}

func (s *MongoStore) UpdateUser(ctx context.Context, u *user.User) error {
	set := bson.M{
		"passwordHash": u.PasswordHash,
		"firstName":    u.FirstName,
		"lastName":     u.LastName,
		"role":         u.Role,
		"isActive":     u.IsActive,
		"updatedAt":    u.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if u.ResetTokenHash != "" && u.ResetExpiresAt != nil {
		set["resetPasswordToken"] = u.ResetTokenHash
		set["resetPasswordExpires"] = *u.ResetExpiresAt
	} else {
		update["$unset"] = bson.M{"resetPasswordToken": "", "resetPasswordExpires": ""}
	}
	res, err := s.users.UpdateOne(ctx, bson.M{"userId": u.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// Product operations

func (s *MongoStore) CreateProduct(ctx context.Context, p *product.Product) error {
	doc, err := toProductDoc(p)
	if err != nil {
		return err
	}
	_, err = s.products.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *MongoStore) GetProduct(ctx context.Context, productID string) (*product.Product, error) {
	var doc productDoc
	err := s.products.FindOne(ctx, bson.M{"productId": productID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toProduct()
}

func (s *MongoStore) ListProducts(ctx context.Context) ([]*product.Product, error) {
	cursor, err := s.products.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "productId", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	products := make([]*product.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *MongoStore) UpdateProduct(ctx context.Context, p *product.Product) error {
	doc, err := toProductDoc(p)
	if err != nil {
		return err
	}
	res, err := s.products.ReplaceOne(ctx, bson.M{"productId": p.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

func (s *MongoStore) DeleteProduct(ctx context.Context, productID string) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"productId": productID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return product.ErrProductNotFound
	}
	return nil
}

func toProductDoc(p *product.Product) (*productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, err
	}
	return &productDoc{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

func (d *productDoc) toProduct() (*product.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	return &product.Product{
		ID:          d.ProductID,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		ImageURL:    d.ImageURL,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

// Ticket operations

func (s *MongoStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	_, err := s.tickets.InsertOne(ctx, toTicketDoc(t))
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

func (s *MongoStore) GetTicket(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	var doc ticketDoc
	err := s.tickets.FindOne(ctx, bson.M{"ticketId": ticketID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ticket.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toTicket(), nil
}

func (s *MongoStore) ListTickets(ctx context.Context, q ticket.Query) ([]*ticket.Ticket, error) {
	filter := bson.M{}
	if q.UserID != "" {
		filter["userId"] = q.UserID
	}
	if q.Status != "" {
		filter["status"] = string(q.Status)
	}
	cursor, err := s.tickets.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "ticketId", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []ticketDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	tickets := make([]*ticket.Ticket, 0, len(docs))
	for i := range docs {
		tickets = append(tickets, docs[i].toTicket())
	}
	return tickets, nil
}

// UpdateTicket pushes replies onto the stored array so concurrent replies are
// all kept.
func (s *MongoStore) UpdateTicket(ctx context.Context, ticketID string, change ticket.Change) (*ticket.Ticket, error) {
	update := ticketUpdate(change)
	var doc ticketDoc
	err := s.tickets.FindOneAndUpdate(ctx, bson.M{"ticketId": ticketID}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ticket.ErrTicketNotFound
	}
	if err != nil {
		log.Printf("[MongoStore] Error updating ticket %s: %v", ticketID, err)
		return nil, err
	}
	return doc.toTicket(), nil
}

func ticketUpdate(change ticket.Change) bson.M {
	set := bson.M{"updatedAt": change.UpdatedAt}
	if change.Status != "" {
		set["status"] = string(change.Status)
	}
	if change.Priority != "" {
		set["priority"] = string(change.Priority)
	}
	update := bson.M{"$set": set}
	if r := change.Reply; r != nil {
		update["$push"] = bson.M{"replies": toReplyDoc(*r)}
	}
	return update
}

func toReplyDoc(r ticket.Reply) replyDoc {
	return replyDoc{
		ReplyID:   r.ID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		UserRole:  r.UserRole,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
}

func toTicketDoc(t *ticket.Ticket) *ticketDoc {
	replies := make([]replyDoc, 0, len(t.Replies))
	for _, r := range t.Replies {
		replies = append(replies, toReplyDoc(r))
	}
	return &ticketDoc{
		TicketID:  t.ID,
		UserID:    t.UserID,
		Name:      t.Name,
		Email:     t.Email,
		Subject:   t.Subject,
		Message:   t.Message,
		Status:    string(t.Status),
		Priority:  string(t.Priority),
		Replies:   replies,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (d *ticketDoc) toTicket() *ticket.Ticket {
	t := &ticket.Ticket{
		ID:        d.TicketID,
		UserID:    d.UserID,
		Name:      d.Name,
		Email:     d.Email,
		Subject:   d.Subject,
		Message:   d.Message,
		Status:    ticket.Status(d.Status),
		Priority:  ticket.Priority(d.Priority),
		Replies:   make([]ticket.Reply, 0, len(d.Replies)),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, r := range d.Replies {
		t.Replies = append(t.Replies, ticket.Reply{
			ID:        r.ReplyID,
			UserID:    r.UserID,
			UserName:  r.UserName,
			UserRole:  r.UserRole,
			Message:   r.Message,
			CreatedAt: r.CreatedAt.UTC(),
		})
	}
	return t
}

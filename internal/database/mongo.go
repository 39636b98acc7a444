package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const roomMessagesCollection = "roomMessages"

// MongoLedger stores one document per room id in the roomMessages
// collection. Appends are a single upsert with $push, so concurrent writers
// to the same room never lose a message.
type MongoLedger struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoLedger(ctx context.Context, uri, dbName string) (*MongoLedger, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	coll := client.Database(dbName).Collection(roomMessagesCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomid", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &MongoLedger{client: client, coll: coll}, nil
}

func (l *MongoLedger) AppendMessage(ctx context.Context, roomId, roomName string, msg Message) error {
	update := bson.M{
		"$setOnInsert": bson.M{
			"roomname":  roomName,
			"createdAt": time.Now().UTC(),
		},
		"$push": bson.M{"messages": msg},
	}

	_, err := l.coll.UpdateOne(ctx, bson.M{"roomid": roomId}, update, options.Update().SetUpsert(true))
	return err
}

func (l *MongoLedger) GetRoomMessages(ctx context.Context, roomId string) (RoomMessages, error) {
	var rm RoomMessages
	err := l.coll.FindOne(ctx, bson.M{"roomid": roomId}).Decode(&rm)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return RoomMessages{}, ErrNotFound
	}
	if err != nil {
		return RoomMessages{}, err
	}

	if rm.Messages == nil {
		rm.Messages = make([]Message, 0)
	}
	return rm, nil
}

func (l *MongoLedger) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}

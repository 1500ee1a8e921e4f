package permission

import (
	"context"
	"time"

	"erp-admin/internal/database"
	"erp-admin/internal/policy"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PolicyRepository interface {
	Save(ctx context.Context, role policy.Role, p policy.Policy, updatedBy string) error
	Find(ctx context.Context, role policy.Role) (*RolePolicy, error)
	FindAll(ctx context.Context) ([]RolePolicy, error)
}

type PolicyRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewPolicyRepository(db *database.MongodbDB) PolicyRepository {
	return &PolicyRepositoryImpl{
		Collection: db.DB.Collection("role_policies"),
	}
}

func (r *PolicyRepositoryImpl) Save(ctx context.Context, role policy.Role, p policy.Policy, updatedBy string) error {
	update := bson.M{
		"$set": bson.M{
			"policy":     p,
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		},
		"$setOnInsert": bson.M{
			"role": role,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.Collection.UpdateOne(ctx, bson.M{"role": role}, update, opts)
	return err
}

func (r *PolicyRepositoryImpl) Find(ctx context.Context, role policy.Role) (*RolePolicy, error) {
	var doc RolePolicy
	err := r.Collection.FindOne(ctx, bson.M{"role": role}).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *PolicyRepositoryImpl) FindAll(ctx context.Context) ([]RolePolicy, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []RolePolicy
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

package organization

import (
	"context"
	"time"

	"go-hr/internal/common/models"
	"go-hr/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Directory is the read side of the organization chart consumed by the approval engine.
// Lookups return (nil, nil) when the member does not exist.
type Directory interface {
	FindMemberByID(ctx context.Context, id string) (*models.Member, error)
	GetManagerOf(ctx context.Context, memberID string) (*models.Member, error)
	GetFilteredMembers(ctx context.Context, filter models.MemberFilter) ([]models.Member, error)
}

type MemberRepository interface {
	Directory
	Upsert(ctx context.Context, member *models.Member) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type MemberRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewMemberRepository(mongodb *database.MongodbDB) MemberRepository {
	return &MemberRepositoryImpl{
		Collection: mongodb.DB.Collection("members"),
	}
}

func (r *MemberRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "manager_id", Value: 1}}},
		{Keys: bson.D{{Key: "department", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

func (r *MemberRepositoryImpl) FindMemberByID(ctx context.Context, id string) (*models.Member, error) {
	var member models.Member
	err := r.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepositoryImpl) GetManagerOf(ctx context.Context, memberID string) (*models.Member, error) {
	member, err := r.FindMemberByID(ctx, memberID)
	if err != nil || member == nil {
		return nil, err
	}
	if member.ManagerID == nil || *member.ManagerID == "" {
		return nil, nil
	}
	return r.FindMemberByID(ctx, *member.ManagerID)
}

func (r *MemberRepositoryImpl) GetFilteredMembers(ctx context.Context, filter models.MemberFilter) ([]models.Member, error) {
	query := bson.M{}
	if filter.Department != "" {
		query["department"] = filter.Department
	}
	if filter.Role != "" {
		query["roles"] = filter.Role
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ManagerID != "" {
		query["manager_id"] = filter.ManagerID
	}

	cursor, err := r.Collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	members := []models.Member{}
	if err = cursor.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *MemberRepositoryImpl) Upsert(ctx context.Context, member *models.Member) error {
	now := time.Now()
	member.UpdatedAt = now
	update := bson.M{
		"$set": bson.M{
			"name":       member.Name,
			"email":      member.Email,
			"department": member.Department,
			"position":   member.Position,
			"manager_id": member.ManagerID,
			"roles":      member.Roles,
			"status":     member.Status,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := r.Collection.UpdateOne(ctx, bson.M{"_id": member.ID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *MemberRepositoryImpl) Delete(ctx context.Context, id string) error {
	_, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MemberRepositoryImpl) Count(ctx context.Context) (int64, error) {
	return r.Collection.CountDocuments(ctx, bson.M{})
}

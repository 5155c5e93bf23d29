package flow

import (
	"context"
	"time"

	"go-hr/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type FlowRepository interface {
	Create(ctx context.Context, flow *ApprovalFlowDefinition) error
	GetByID(ctx context.Context, id string) (*ApprovalFlowDefinition, error)
	ListByCategory(ctx context.Context, category string, activeOnly bool) ([]ApprovalFlowDefinition, error)
	List(ctx context.Context) ([]ApprovalFlowDefinition, error)
	Update(ctx context.Context, id string, flow *ApprovalFlowDefinition) error
	Delete(ctx context.Context, id string) error
}

type FlowRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewFlowRepository(mongodb *database.MongodbDB) FlowRepository {
	return &FlowRepositoryImpl{
		Collection: mongodb.DB.Collection("approval_flows"),
	}
}

func (r *FlowRepositoryImpl) Create(ctx context.Context, flow *ApprovalFlowDefinition) error {
	_, err := r.Collection.InsertOne(ctx, flow)
	return err
}

func (r *FlowRepositoryImpl) GetByID(ctx context.Context, id string) (*ApprovalFlowDefinition, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var flow ApprovalFlowDefinition
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&flow)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &flow, nil
}

func (r *FlowRepositoryImpl) ListByCategory(ctx context.Context, category string, activeOnly bool) ([]ApprovalFlowDefinition, error) {
	filter := bson.M{"category": category}
	if activeOnly {
		filter["is_active"] = true
	}
	return r.find(ctx, filter)
}

func (r *FlowRepositoryImpl) List(ctx context.Context) ([]ApprovalFlowDefinition, error) {
	return r.find(ctx, bson.M{})
}

func (r *FlowRepositoryImpl) find(ctx context.Context, filter bson.M) ([]ApprovalFlowDefinition, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "created_at", Value: 1}})
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	flows := []ApprovalFlowDefinition{}
	if err = cursor.All(ctx, &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

func (r *FlowRepositoryImpl) Update(ctx context.Context, id string, flow *ApprovalFlowDefinition) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"name":                flow.Name,
			"description":         flow.Description,
			"category":            flow.Category,
			"mode":                flow.Mode,
			"organization_levels": flow.OrganizationLevels,
			"step_templates":      flow.StepTemplates,
			"conditions":          flow.Conditions,
			"is_active":           flow.IsActive,
			"is_default":          flow.IsDefault,
			"priority":            flow.Priority,
			"escalation_path":     flow.EscalationPath,
			"require_comment":     flow.RequireComment,
			"updated_at":          time.Now(),
		},
	}
	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *FlowRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

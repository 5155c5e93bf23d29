package request

import (
	"context"
	"errors"
	"time"

	"go-hr/internal/common/models"
	"go-hr/internal/database"
	"go-hr/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionConflict is returned by Update when the stored version moved on.
var ErrVersionConflict = errors.New("request version conflict")

type RequestRepository interface {
	Create(ctx context.Context, req *WorkflowRequest) error
	GetByID(ctx context.Context, id string) (*WorkflowRequest, error)
	Find(ctx context.Context, filter Filter) ([]WorkflowRequest, error)
	// FindEscalationCandidates returns in-flight requests with an active step whose deadline
	// passed before now. Callers recheck each candidate under the request lock.
	FindEscalationCandidates(ctx context.Context, now time.Time) ([]WorkflowRequest, error)
	// Update replaces the stored request if its version still equals expectedVersion.
	Update(ctx context.Context, req *WorkflowRequest, expectedVersion int64) error
}

type RequestRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRequestRepository(mongodb *database.MongodbDB) RequestRepository {
	return &RequestRepositoryImpl{
		Collection: mongodb.DB.Collection("requests"),
	}
}

func (r *RequestRepositoryImpl) Create(ctx context.Context, req *WorkflowRequest) error {
	_, err := r.Collection.InsertOne(ctx, req)
	return err
}

func (r *RequestRepositoryImpl) GetByID(ctx context.Context, id string) (*WorkflowRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var req WorkflowRequest
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepositoryImpl) Find(ctx context.Context, filter Filter) ([]WorkflowRequest, error) {
	query, err := BuildQuery(filter)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}
	return r.find(ctx, query, opts)
}

func (r *RequestRepositoryImpl) FindEscalationCandidates(ctx context.Context, now time.Time) ([]WorkflowRequest, error) {
	query, err := condition.Compile([]models.Filter{
		{Field: "status", Operator: "in", Value: []Status{StatusPending, StatusPartiallyApproved}},
		{Field: "escalation.enabled", Operator: "eq", Value: true},
		{Field: "approval_steps", Operator: "elem", Value: bson.M{
			"status":              StepPending,
			"escalation_deadline": bson.M{"$lt": now},
		}},
	})
	if err != nil {
		return nil, err
	}
	return r.find(ctx, query, options.Find())
}

func (r *RequestRepositoryImpl) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]WorkflowRequest, error) {
	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	requests := []WorkflowRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepositoryImpl) Update(ctx context.Context, req *WorkflowRequest, expectedVersion int64) error {
	res, err := r.Collection.ReplaceOne(ctx, bson.M{"_id": req.ID, "version": expectedVersion}, req)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

// BuildQuery compiles a listing filter. Approver predicates match any step and are ORed.
func BuildQuery(f Filter) (bson.M, error) {
	var filters []models.Filter
	if len(f.Statuses) > 0 {
		filters = append(filters, models.Filter{Field: "status", Operator: "in", Value: f.Statuses})
	}
	if f.Category != "" {
		filters = append(filters, models.Filter{Field: "category", Value: f.Category})
	}
	if f.RequesterID != "" {
		filters = append(filters, models.Filter{Field: "requester_id", Value: f.RequesterID})
	}
	if f.ActionRequired != nil {
		filters = append(filters, models.Filter{Field: "action_required", Value: *f.ActionRequired})
	}

	ids := f.ApproverIDs
	if f.ApproverID != "" {
		ids = append([]string{f.ApproverID}, ids...)
	}
	var approver []bson.M
	if len(ids) > 0 {
		approver = append(approver, bson.M{"approval_steps.approver_id": bson.M{"$in": ids}})
	}
	if len(f.ApproverRoles) > 0 {
		approver = append(approver, bson.M{"approval_steps": bson.M{"$elemMatch": bson.M{
			"approver_role": bson.M{"$in": f.ApproverRoles},
			"approver_id":   bson.M{"$in": []interface{}{nil, ""}},
		}}})
	}

	query, err := condition.Compile(filters)
	if err != nil {
		return nil, err
	}
	switch len(approver) {
	case 0:
		return query, nil
	case 1:
		if len(query) == 0 {
			return approver[0], nil
		}
		return bson.M{"$and": []bson.M{query, approver[0]}}, nil
	default:
		or := bson.M{"$or": approver}
		if len(query) == 0 {
			return or, nil
		}
		return bson.M{"$and": []bson.M{query, or}}, nil
	}
}

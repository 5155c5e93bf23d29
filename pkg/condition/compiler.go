package condition

import (
	"fmt"

	"go-hr/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Compile turns listing filters into a Mongo query. Filters on the same field are ANDed.
func Compile(filters []models.Filter) (bson.M, error) {
	if len(filters) == 0 {
		return bson.M{}, nil
	}

	var conditions []bson.M
	for _, f := range filters {
		cond, err := compileFilter(f)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	if len(conditions) == 1 {
		return conditions[0], nil
	}
	return bson.M{"$and": conditions}, nil
}

func compileFilter(f models.Filter) (bson.M, error) {
	if f.Field == "" {
		return nil, fmt.Errorf("filter field is required")
	}

	switch f.Operator {
	case "eq", "":
		return bson.M{f.Field: f.Value}, nil
	case "ne":
		return bson.M{f.Field: bson.M{"$ne": f.Value}}, nil
	case "gt":
		return bson.M{f.Field: bson.M{"$gt": f.Value}}, nil
	case "lt":
		return bson.M{f.Field: bson.M{"$lt": f.Value}}, nil
	case "gte":
		return bson.M{f.Field: bson.M{"$gte": f.Value}}, nil
	case "lte":
		return bson.M{f.Field: bson.M{"$lte": f.Value}}, nil
	case "in":
		return bson.M{f.Field: bson.M{"$in": f.Value}}, nil
	case "nin":
		return bson.M{f.Field: bson.M{"$nin": f.Value}}, nil
	case "elem":
		// matches arrays of sub-documents, Value must be a bson.M
		return bson.M{f.Field: bson.M{"$elemMatch": f.Value}}, nil
	default:
		return nil, fmt.Errorf("unknown operator: %s", f.Operator)
	}
}

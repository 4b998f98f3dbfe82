package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCapacityFilterProvesCapacity(t *testing.T) {
	productID := primitive.NewObjectID()

	filter := capacityFilter(productID, "v-1kg", 4)

	assert.Equal(t, productID, filter["productId"])
	assert.Equal(t, "v-1kg", filter["variantId"])

	// the filter itself must prove sold + qty <= quota; the $inc only runs
	// when it matches, so a failed match is the only overflow outcome
	assert.Equal(t, bson.M{"$lte": []interface{}{
		bson.M{"$add": []interface{}{"$sold", 4}},
		"$quota",
	}}, filter["$expr"])
}

func TestCapacityFilterProductLevelBucket(t *testing.T) {
	filter := capacityFilter(primitive.NewObjectID(), "", 1)
	assert.Equal(t, "", filter["variantId"])
}

func TestReleasePipelineFloorsAtZero(t *testing.T) {
	pipeline := releasePipeline(3)
	require.Len(t, pipeline, 1)
	require.Len(t, pipeline[0], 1)

	stage := pipeline[0][0]
	require.Equal(t, "$set", stage.Key)

	set, ok := stage.Value.(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$sold", 3}}}}, set["sold"])
	assert.Equal(t, "$$NOW", set["updatedAt"])
}

func TestReserveRejectsNonPositiveQty(t *testing.T) {
	s := &Store{}
	for _, qty := range []int{0, -2} {
		err := s.Reserve(context.Background(), primitive.NewObjectID(), "v-1kg", qty)

		var exceeded ExceededError
		require.True(t, errors.As(err, &exceeded), "qty %d", qty)
		assert.Equal(t, qty, exceeded.Requested)
	}
}

func TestReleaseIgnoresNonPositiveQty(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Release(context.Background(), primitive.NewObjectID(), "", 0))
	assert.NoError(t, s.Release(context.Background(), primitive.NewObjectID(), "", -1))
}

func TestExceededErrorMessage(t *testing.T) {
	productID := primitive.NewObjectID()
	err := ExceededError{ProductID: productID, VariantID: "v-1kg", Requested: 5}

	assert.Contains(t, err.Error(), productID.Hex())
	assert.Contains(t, err.Error(), "5")
}

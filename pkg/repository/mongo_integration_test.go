//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/example/shopcore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateProductReviewsEmpty(t *testing.T) {
	summary, err := testReviews.AggregateProductReviews(context.Background(), 5001, models.ReadPrimary)
	require.NoError(t, err)
	assert.Zero(t, summary.Count)
	assert.Nil(t, summary.AvgRating)
}

func TestInsertThenAggregatePrimary(t *testing.T) {
	ctx := context.Background()
	const product = 5002
	orderID := int64(12)

	for _, r := range []*models.Review{
		{ProductID: product, Rating: 5, Comment: "great", OrderID: &orderID},
		{ProductID: product, Rating: 4},
		{ProductID: product, Rating: 4},
	} {
		id, err := testReviews.InsertReview(ctx, r)
		require.NoError(t, err)
		assert.False(t, id.IsZero())
	}

	summary, err := testReviews.AggregateProductReviews(ctx, product, models.ReadPrimary)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Count)
	require.NotNil(t, summary.AvgRating)
	assert.Equal(t, 4.33, *summary.AvgRating)

	reviews, err := testReviews.ListProductReviews(ctx, product, models.ReadPrimary, 10)
	require.NoError(t, err)
	require.Len(t, reviews, 3)

	var withOrder int
	for _, r := range reviews {
		assert.False(t, r.CreatedAt.IsZero())
		if r.OrderID != nil {
			withOrder++
			assert.Equal(t, orderID, *r.OrderID)
		}
	}
	assert.Equal(t, 1, withOrder)

	limited, err := testReviews.ListProductReviews(ctx, product, models.ReadPrimary, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	_, err = testReviews.ListProductReviews(ctx, product, models.ReadPrimary, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestAggregateSecondaryPreferred(t *testing.T) {
	// Secondary reads may lag, so only the call itself is checked.
	_, err := testReviews.AggregateProductReviews(context.Background(), 5002, models.ReadSecondaryPreferred)
	assert.NoError(t, err)
}

func TestTopology(t *testing.T) {
	topo, err := testReviews.Topology(context.Background())
	require.NoError(t, err)
	assert.True(t, topo.IsWritablePrimary)
	assert.Equal(t, "rs0", topo.SetName)
	assert.NotEmpty(t, topo.Hosts)
	assert.Equal(t, topo.Primary, topo.Me)
}

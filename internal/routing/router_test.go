package routing_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/synthd/internal/domain"
	"github.com/davidbz/synthd/internal/mocks"
	"github.com/davidbz/synthd/internal/routing"
)

func candidate(name string, maxContext int) domain.Candidate {
	return domain.Candidate{
		Descriptor: domain.ProviderDescriptor{
			Name:             name,
			Kind:             "echo",
			MaxContextTokens: maxContext,
		},
	}
}

func request(query string) *domain.SynthesisRequest {
	return &domain.SynthesisRequest{
		Query: query,
		Chunks: []domain.ContextChunk{
			{ID: "c1", Text: "Employees accrue 25 days of annual leave.", Relevance: 0.9},
		},
	}
}

func TestRouter_Plan(t *testing.T) {
	t.Run("should keep registry order", func(t *testing.T) {
		registry := mocks.NewMockProviderRegistry(t)
		registry.EXPECT().List(mock.Anything).Return([]domain.Candidate{
			candidate("a", 0), candidate("b", 0), candidate("c", 0),
		}, nil)

		planned, skipped, err := routing.NewRouter(registry).Plan(context.Background(), request("How much leave?"))

		require.NoError(t, err)
		require.Empty(t, skipped)
		require.Len(t, planned, 3)
		require.Equal(t, "a", planned[0].Descriptor.Name)
		require.Equal(t, "b", planned[1].Descriptor.Name)
		require.Equal(t, "c", planned[2].Descriptor.Name)
	})

	t.Run("should skip providers with a small context window", func(t *testing.T) {
		req := request(strings.Repeat("long question ", 200))
		estimate := domain.EstimateTokens(req)

		registry := mocks.NewMockProviderRegistry(t)
		registry.EXPECT().List(mock.Anything).Return([]domain.Candidate{
			candidate("small", estimate-1),
			candidate("exact", estimate),
			candidate("unbounded", 0),
		}, nil)

		planned, skipped, err := routing.NewRouter(registry).Plan(context.Background(), req)

		require.NoError(t, err)
		require.Equal(t, []domain.SkippedProvider{
			{Provider: "small", Reason: domain.SkipContextWindow},
		}, skipped)
		require.Len(t, planned, 2)
		require.Equal(t, "exact", planned[0].Descriptor.Name)
		require.Equal(t, "unbounded", planned[1].Descriptor.Name)
	})

	t.Run("should return an empty plan when every provider is too small", func(t *testing.T) {
		registry := mocks.NewMockProviderRegistry(t)
		registry.EXPECT().List(mock.Anything).Return([]domain.Candidate{
			candidate("tiny", 1),
		}, nil)

		planned, skipped, err := routing.NewRouter(registry).Plan(context.Background(), request("How much leave?"))

		require.NoError(t, err)
		require.Empty(t, planned)
		require.Len(t, skipped, 1)
	})

	t.Run("should return an empty plan without providers", func(t *testing.T) {
		registry := mocks.NewMockProviderRegistry(t)
		registry.EXPECT().List(mock.Anything).Return([]domain.Candidate{}, nil)

		planned, skipped, err := routing.NewRouter(registry).Plan(context.Background(), request("q"))

		require.NoError(t, err)
		require.Empty(t, planned)
		require.Empty(t, skipped)
	})

	t.Run("should wrap registry errors", func(t *testing.T) {
		registry := mocks.NewMockProviderRegistry(t)
		boom := errors.New("boom")
		registry.EXPECT().List(mock.Anything).Return(nil, boom)

		_, _, err := routing.NewRouter(registry).Plan(context.Background(), request("q"))

		require.ErrorIs(t, err, boom)
	})

	t.Run("should reject a nil request", func(t *testing.T) {
		registry := mocks.NewMockProviderRegistry(t)

		_, _, err := routing.NewRouter(registry).Plan(context.Background(), nil)

		require.Error(t, err)
	})
}

package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/docmark/internal/domain"
)

func TestRunIsolatesFailures(t *testing.T) {
	jobs := []Job{
		{Name: "doc1", Run: func(context.Context) error { return nil }},
		{Name: "doc2", Run: func(context.Context) error { panic("boom") }},
		{Name: "doc3", Run: func(context.Context) error { return nil }},
	}

	summary := NewOrchestrator(zerolog.Nop(), 2, false).Run(context.Background(), jobs)

	require.Len(t, summary.Results, 3)
	assert.True(t, summary.Results["doc1"])
	assert.False(t, summary.Results["doc2"])
	assert.True(t, summary.Results["doc3"])
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"doc2"}, summary.FailedNames)
	assert.False(t, summary.AllSucceeded())
}

func TestRunErrorBecomesJobFailure(t *testing.T) {
	o := NewOrchestrator(zerolog.Nop(), 1, false)
	err := o.runOne(context.Background(), Job{
		Name: "doc",
		Run:  func(context.Context) error { return errors.New("broken") },
	})
	assert.True(t, domain.IsKind(err, domain.KindJobFailure))
}

func TestRunPanicBecomesJobFailure(t *testing.T) {
	o := NewOrchestrator(zerolog.Nop(), 1, false)
	err := o.runOne(context.Background(), Job{
		Name: "doc",
		Run:  func(context.Context) error { panic("unexpected") },
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindJobFailure))
}

func TestRunEmptyJobSet(t *testing.T) {
	summary := NewOrchestrator(zerolog.Nop(), 0, false).Run(context.Background(), nil)
	assert.Equal(t, 0, summary.Total)
	assert.True(t, summary.AllSucceeded())
}

func TestRunAllSucceed(t *testing.T) {
	jobs := []Job{
		{Name: "a", Run: func(context.Context) error { return nil }},
		{Name: "b", Run: func(context.Context) error { return nil }},
	}
	summary := NewOrchestrator(zerolog.Nop(), 0, false).Run(context.Background(), jobs)
	assert.True(t, summary.AllSucceeded())
	assert.Equal(t, 2, summary.Succeeded)
}

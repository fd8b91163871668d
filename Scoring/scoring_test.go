package Scoring

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Workforce/Models"
)

func f(v float64) *float64 { return &v }

var deadline = time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

func completedTask(assignee uint, weight, quality float64, completedAt time.Time) Models.Task {
	d := deadline
	c := completedAt
	return Models.Task{
		AssigneeID:  assignee,
		Status:      Models.StatusCompleted,
		Weight:      f(weight),
		Quality:     f(quality),
		Deadline:    &d,
		CompletedAt: &c,
	}
}

func TestWeightPointsBands(t *testing.T) {
	cases := []struct {
		weight *float64
		want   float64
	}{
		{f(0), 1},
		{f(0.25), 1},
		{f(0.26), 2},
		{f(0.5), 2},
		{f(0.7), 3},
		{f(0.8), 5},
		{f(0.9), 5},
		{f(0.95), 8},
		{f(1), 8},
		{f(1.01), 0},
		{f(-0.1), 0},
		{f(math.NaN()), 0},
		{f(math.Inf(1)), 0},
		{nil, 0},
	}
	for _, tc := range cases {
		name := "nil"
		if tc.weight != nil {
			name = strconv.FormatFloat(*tc.weight, 'f', -1, 64)
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, WeightPoints(tc.weight))
		})
	}
}

func TestWeightPointsMonotonic(t *testing.T) {
	prev := WeightPoints(f(0))
	for i := 0; i <= 100; i++ {
		w := float64(i) / 100
		got := WeightPoints(f(w))
		require.GreaterOrEqual(t, got, prev, "weight %v", w)
		prev = got
	}
}

func TestQualityGate(t *testing.T) {
	assert.Equal(t, 1.0, QualityGate(f(0.6)))
	assert.Equal(t, 1.0, QualityGate(f(1)))
	assert.Equal(t, 0.0, QualityGate(f(0.59)))
	assert.Equal(t, 0.0, QualityGate(nil))
	assert.Equal(t, 0.0, QualityGate(f(math.NaN())))
	assert.Equal(t, 0.0, QualityGate(f(1.5)))
}

func TestTimelinessGracePeriod(t *testing.T) {
	onTime := completedTask(1, 0.5, 0.9, deadline.Add(-time.Hour))
	assert.Equal(t, 1.0, Timeliness(onTime))

	boundary := completedTask(1, 0.5, 0.9, deadline.Add(GracePeriod))
	assert.Equal(t, 1.0, Timeliness(boundary), "exactly deadline+24h is on time")

	late := completedTask(1, 0.5, 0.9, deadline.Add(GracePeriod+time.Second))
	assert.Equal(t, 0.0, Timeliness(late))

	noDeadline := completedTask(1, 0.5, 0.9, deadline)
	noDeadline.Deadline = nil
	assert.Equal(t, 0.0, Timeliness(noDeadline))

	noCompletion := completedTask(1, 0.5, 0.9, deadline)
	noCompletion.CompletedAt = nil
	assert.Equal(t, 0.0, Timeliness(noCompletion))
}

func TestScoreZeroUnlessCompleted(t *testing.T) {
	for _, status := range []Models.TaskStatus{
		Models.StatusNew,
		Models.StatusAccepted,
		Models.StatusPendingApproval,
		Models.StatusPaused,
	} {
		task := completedTask(1, 1, 1, deadline)
		task.Status = status
		assert.Equal(t, 0.0, Score(task), status)
	}
}

func TestScoreZeroBelowQualityThreshold(t *testing.T) {
	for _, w := range []float64{0.1, 0.5, 0.8, 1} {
		task := completedTask(1, w, 0.59, deadline)
		assert.Equal(t, 0.0, Score(task))
	}
}

func TestScoreMonotonicInWeight(t *testing.T) {
	low := completedTask(1, 0.3, 0.8, deadline)
	high := completedTask(1, 0.95, 0.8, deadline)
	assert.GreaterOrEqual(t, Score(high), Score(low))
	assert.Equal(t, 8.0, Score(high))
}

func TestComputeRanking(t *testing.T) {
	tasks := []Models.Task{
		completedTask(1, 0.8, 0.9, deadline),
		completedTask(1, 0.3, 0.5, deadline),
	}
	rows := ComputeRanking(tasks, Models.NameDirectory{1: "Alice"})
	require.Len(t, rows, 1)
	assert.Equal(t, Row{UserID: 1, Name: "Alice", TotalScore: 5, CompletedCount: 2}, rows[0])
}

func TestComputeRankingOrderAndTies(t *testing.T) {
	open := Models.Task{AssigneeID: 3, Status: Models.StatusAccepted}
	tasks := []Models.Task{
		completedTask(2, 0.2, 0.9, deadline), // 1 point
		open,                                 // 0 points
		completedTask(4, 0.2, 0.9, deadline), // 1 point, ties with 2
		completedTask(5, 1, 0.9, deadline),   // 8 points
	}
	rows := ComputeRanking(tasks, nil)
	require.Len(t, rows, 4)

	ids := []uint{rows[0].UserID, rows[1].UserID, rows[2].UserID, rows[3].UserID}
	assert.Equal(t, []uint{5, 2, 4, 3}, ids)
	assert.Equal(t, 0, rows[3].CompletedCount)
	assert.Empty(t, rows[0].Name)
}

func TestComputeRankingDirtyData(t *testing.T) {
	dirty := completedTask(1, 0.5, 0.9, deadline)
	dirty.Weight = f(math.NaN())
	rows := ComputeRanking([]Models.Task{dirty}, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].TotalScore)
	assert.Equal(t, 1, rows[0].CompletedCount)
}

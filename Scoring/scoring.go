// Package Scoring turns completed tasks into points and ranks assignees by
// their totals. Every function here is pure: malformed numbers score zero
// instead of failing, so a dashboard never breaks on dirty rows.
package Scoring

import (
	"math"
	"sort"
	"time"

	"Workforce/Models"
)

// QualityThreshold is the minimum evaluated quality that earns points.
const QualityThreshold = 0.6

// GracePeriod is how long after the deadline a completion still counts as
// on time.
const GracePeriod = 24 * time.Hour

// weightBands maps an upper weight bound (inclusive) to its point value.
var weightBands = []struct {
	upTo   float64
	points float64
}{
	{0.25, 1},
	{0.5, 2},
	{0.7, 3},
	{0.9, 5},
	{1, 8},
}

// Directory resolves a user id to a display name.
type Directory interface {
	ResolveUserName(userID uint) string
}

// Row is one line of the ranking.
type Row struct {
	UserID         uint    `json:"user_id"`
	Name           string  `json:"name"`
	TotalScore     float64 `json:"total_score"`
	CompletedCount int     `json:"completed_count"`
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 1
}

// WeightPoints is W(weight). Missing or out-of-range weights are worth 0.
func WeightPoints(weight *float64) float64 {
	if weight == nil || !usable(*weight) {
		return 0
	}
	for _, band := range weightBands {
		if *weight <= band.upTo {
			return band.points
		}
	}
	return 0
}

// QualityGate is Q(quality): 1 at or above the threshold, otherwise 0.
func QualityGate(quality *float64) float64 {
	if quality == nil || !usable(*quality) {
		return 0
	}
	if *quality >= QualityThreshold {
		return 1
	}
	return 0
}

// Timeliness is T(task): 1 when the task is completed no later than one day
// past its deadline.
func Timeliness(task Models.Task) float64 {
	if task.Status != Models.StatusCompleted || task.CompletedAt == nil || task.Deadline == nil {
		return 0
	}
	if task.CompletedAt.IsZero() || task.Deadline.IsZero() {
		return 0
	}
	if task.CompletedAt.After(task.Deadline.Add(GracePeriod)) {
		return 0
	}
	return 1
}

// Score is W × Q × T for a single task.
func Score(task Models.Task) float64 {
	t := Timeliness(task)
	if t == 0 {
		return 0
	}
	return WeightPoints(task.Weight) * QualityGate(task.Quality) * t
}

// ComputeRanking sums scores per assignee and orders them by total, highest
// first. Equal totals keep the order in which assignees first appear in
// tasks. directory may be nil, in which case names are left empty.
func ComputeRanking(tasks []Models.Task, directory Directory) []Row {
	index := make(map[uint]int)
	var rows []Row

	for _, task := range tasks {
		i, ok := index[task.AssigneeID]
		if !ok {
			i = len(rows)
			index[task.AssigneeID] = i
			rows = append(rows, Row{UserID: task.AssigneeID})
		}
		rows[i].TotalScore += Score(task)
		if task.Status == Models.StatusCompleted {
			rows[i].CompletedCount++
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].TotalScore > rows[b].TotalScore
	})

	if directory != nil {
		for i := range rows {
			rows[i].Name = directory.ResolveUserName(rows[i].UserID)
		}
	}
	return rows
}

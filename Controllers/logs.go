package Controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/gofiber/fiber/v2"

	"Workforce/Models"
	"Workforce/middleware"
)

// ActivityController lets admins audit the request log, e.g. to see who
// approved or rejected tasks on a given day.
type ActivityController struct {
	LogFilePath string
	Location    *time.Location
	Now         func() time.Time
}

func NewActivityController(logFilePath string, loc *time.Location) *ActivityController {
	return &ActivityController{LogFilePath: logFilePath, Location: loc, Now: time.Now}
}

// ActivityGroup aggregates log entries with the same method and path.
type ActivityGroup struct {
	Method      string               `json:"method"`
	Path        string               `json:"path"`
	Count       int                  `json:"count"`
	AvgLatency  float64              `json:"avg_latency_ms"`
	MaxLatency  float64              `json:"max_latency_ms"`
	SuccessRate float64              `json:"success_rate"`
	Entries     []middleware.LogData `json:"entries"`
}

// Activity returns grouped request log entries between date_from and
// date_to (inclusive, YYYY-MM-DD, default today), optionally narrowed by
// user_id, method and path substring.
func (a *ActivityController) Activity(c *fiber.Ctx) error {
	loc := a.Location
	if loc == nil {
		loc = time.Local
	}
	now := a.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	from, err := parseDay(c.Query("date_from"), today, loc)
	if err != nil {
		return badRequest(c, "Invalid date_from format. Use YYYY-MM-DD")
	}
	to, err := parseDay(c.Query("date_to"), from, loc)
	if err != nil {
		return badRequest(c, "Invalid date_to format. Use YYYY-MM-DD")
	}
	to = to.AddDate(0, 0, 1)

	userID, err := queryUserID(c, 0)
	if err != nil {
		return badRequest(c, err.Error())
	}
	status := 0
	if raw := c.Query("status"); raw != "" {
		if status, err = strconv.Atoi(raw); err != nil {
			return badRequest(c, "Invalid status")
		}
	}

	entries, err := readRequestLog(a.LogFilePath, func(e middleware.LogData) bool {
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			return false
		}
		if userID != 0 && e.UserID != userID {
			return false
		}
		if status != 0 && e.Status != status {
			return false
		}
		if m := c.Query("method"); m != "" && !strings.EqualFold(m, e.Method) {
			return false
		}
		if p := c.Query("path"); p != "" && !strings.Contains(strings.ToLower(e.Path), strings.ToLower(p)) {
			return false
		}
		return true
	})
	if err != nil {
		lgr.Printf("[WARN] could not read request log: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read logs"})
	}

	groups := groupActivity(entries)
	return c.JSON(fiber.Map{
		"date_from":   from.Format(Models.DateLayout),
		"date_to":     to.AddDate(0, 0, -1).Format(Models.DateLayout),
		"total_logs":  len(entries),
		"total_paths": len(groups),
		"groups":      groups,
	})
}

func parseDay(raw string, fallback time.Time, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation(Models.DateLayout, raw, loc)
}

// readRequestLog streams the JSON lines log, skipping lines it cannot parse.
// A missing file is an empty log.
func readRequestLog(path string, keep func(middleware.LogData) bool) ([]middleware.LogData, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []middleware.LogData
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry middleware.LogData
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if keep(entry) {
			entries = append(entries, entry)
		}
	}
	return entries, scanner.Err()
}

// groupActivity groups entries by method and path, busiest first. Equal
// counts are ordered by path so output is deterministic.
func groupActivity(entries []middleware.LogData) []ActivityGroup {
	index := make(map[string]int)
	var groups []ActivityGroup
	successes := make(map[string]int)

	for _, e := range entries {
		key := e.Method + " " + e.Path
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, ActivityGroup{Method: e.Method, Path: e.Path})
		}
		g := &groups[i]
		latency := float64(e.Latency.Microseconds()) / 1000.0
		g.AvgLatency = (g.AvgLatency*float64(g.Count) + latency) / float64(g.Count+1)
		if latency > g.MaxLatency {
			g.MaxLatency = latency
		}
		g.Count++
		if e.Status >= 200 && e.Status < 300 {
			successes[key]++
		}
		g.Entries = append(g.Entries, e)
	}

	for i := range groups {
		key := groups[i].Method + " " + groups[i].Path
		groups[i].SuccessRate = float64(successes[key]) / float64(groups[i].Count)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		if groups[a].Count != groups[b].Count {
			return groups[a].Count > groups[b].Count
		}
		return groups[a].Method+" "+groups[a].Path < groups[b].Method+" "+groups[b].Path
	})
	return groups
}

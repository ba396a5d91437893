package projections

import "rollcall/internal/domain/attendance"

// CompletionStatus classifies how far today's roll call for an activity has progressed.
type CompletionStatus string

// CompletionStatus constants
const (
	CompletionNotStarted CompletionStatus = "not_started"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionCompleted  CompletionStatus = "completed"
)

var completionLabels = map[CompletionStatus]string{
	CompletionNotStarted: "未開始",
	CompletionInProgress: "進行中",
	CompletionCompleted:  "已完成",
}

// Label returns the display text for the status.
func (s CompletionStatus) Label() string { return completionLabels[s] }

// ActivityCompletion is one row of the admin overview.
type ActivityCompletion struct {
	Activity string           `json:"activity"`
	Status   CompletionStatus `json:"status"`
	Label    string           `json:"label"`
	Recorded int              `json:"recorded"`
	Total    int              `json:"total"`
}

// QueryGetCompletionStatus classifies activity for today.
// Any mark, unknown included, counts as recorded.
// PRE: today is a YYYY-MM-DD key
// POST: ok is false when the activity has no roster
func QueryGetCompletionStatus(activity string, records []attendance.Record, today string) (ActivityCompletion, bool) {
	total, recorded := 0, 0
	for i := range records {
		r := &records[i]
		if r.Activity != activity {
			continue
		}
		total++
		if _, ok := r.StatusOn(today); ok {
			recorded++
		}
	}
	if total == 0 {
		return ActivityCompletion{}, false
	}
	status := CompletionInProgress
	switch recorded {
	case 0:
		status = CompletionNotStarted
	case total:
		status = CompletionCompleted
	}
	return ActivityCompletion{
		Activity: activity,
		Status:   status,
		Label:    status.Label(),
		Recorded: recorded,
		Total:    total,
	}, true
}

// QueryGetCompletionOverview returns the status of each activity scheduled today,
// in the same order as QueryGetTodaysActivities.
func QueryGetCompletionOverview(records []attendance.Record, today string) []ActivityCompletion {
	var out []ActivityCompletion
	for _, name := range QueryGetTodaysActivities(records, today) {
		if c, ok := QueryGetCompletionStatus(name, records, today); ok {
			out = append(out, c)
		}
	}
	return out
}

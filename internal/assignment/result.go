package assignment

// FailureCode is the fixed taxonomy of reasons a task was not assigned.
type FailureCode string

const (
	TaskNotFound                FailureCode = "TASK_NOT_FOUND"
	AlreadyAssigned             FailureCode = "ALREADY_ASSIGNED"
	NoPropertyReference         FailureCode = "NO_PROPERTY_REFERENCE"
	PropertyNotInGroup          FailureCode = "PROPERTY_NOT_IN_GROUP"
	AutoAssignDisabled          FailureCode = "AUTO_ASSIGN_DISABLED"
	NoWorkersConfigured         FailureCode = "NO_WORKERS_CONFIGURED"
	NoAvailableWorkers          FailureCode = "NO_AVAILABLE_WORKERS"
	AssignmentPersistenceFailed FailureCode = "ASSIGNMENT_PERSISTENCE_FAILED"
	UnexpectedError             FailureCode = "UNEXPECTED_ERROR"
)

var failureMessages = map[FailureCode]string{
	TaskNotFound:                "task not found",
	AlreadyAssigned:             "task already has a worker assigned",
	NoPropertyReference:         "task has no property",
	PropertyNotInGroup:          "property does not belong to a group",
	AutoAssignDisabled:          "auto-assignment is disabled for the property's group",
	NoWorkersConfigured:         "no active workers configured for the group",
	NoAvailableWorkers:          "no worker has capacity and a free slot for the task",
	AssignmentPersistenceFailed: "failed to save the assignment",
	UnexpectedError:             "unexpected error",
}

func (c FailureCode) Message() string {
	if m, ok := failureMessages[c]; ok {
		return m
	}
	return string(c)
}

// Result is the outcome of one task. Success results carry the worker and
// confidence; failure results carry a FailureCode.
type Result struct {
	TaskID      string      `json:"taskId"`
	Success     bool        `json:"success"`
	WorkerID    string      `json:"workerId,omitempty"`
	WorkerName  string      `json:"workerName,omitempty"`
	GroupID     string      `json:"groupId,omitempty"`
	Confidence  int         `json:"confidence"`
	Reason      string      `json:"reason"`
	FailureCode FailureCode `json:"error,omitempty"`
}

func succeeded(taskID string, sel *Selection, groupID, workerName string) Result {
	return Result{
		TaskID:     taskID,
		Success:    true,
		WorkerID:   sel.Worker.WorkerID,
		WorkerName: workerName,
		GroupID:    groupID,
		Confidence: sel.Confidence,
		Reason:     sel.Reason(),
	}
}

func failed(taskID string, code FailureCode) Result {
	return Result{
		TaskID:      taskID,
		FailureCode: code,
		Reason:      code.Message(),
	}
}

// failedWith keeps the underlying error text in the reason, for codes whose
// cause is worth surfacing to the caller.
func failedWith(taskID string, code FailureCode, err error) Result {
	r := failed(taskID, code)
	if err != nil {
		r.Reason = code.Message() + ": " + err.Error()
	}
	return r
}

type Summary struct {
	Total    int `json:"total"`
	Assigned int `json:"assigned"`
	Failed   int `json:"failed"`
}

type BatchResult struct {
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
}

func summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Assigned++
		} else {
			s.Failed++
		}
	}
	return s
}

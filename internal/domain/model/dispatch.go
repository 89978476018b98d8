package model

// Priority classifies a dispatched job onto a differentiated processing lane.
type Priority string

const (
	PriorityExpress Priority = "EXPRESS"
	PriorityHigh    Priority = "HIGH"
	PriorityNormal  Priority = "NORMAL"
	PriorityLow     Priority = "LOW"
)

// RoutingKey maps a priority to the broker routing key for its lane.
func (p Priority) RoutingKey() string {
	switch p {
	case PriorityExpress:
		return "jobs.priority.express"
	case PriorityHigh:
		return "jobs.priority.high"
	case PriorityLow:
		return "jobs.priority.low"
	default:
		return "jobs.priority.normal"
	}
}

// DeterminePriority picks the lane from the caller-supplied urgency flag and
// the owner's entitlement. Entitlement wins over urgency; billing rules stay
// outside this core.
func DeterminePriority(urgent, highPriorityEntitled bool) Priority {
	if highPriorityEntitled {
		return PriorityHigh
	}
	if urgent {
		return PriorityExpress
	}
	return PriorityNormal
}

// DispatchMessage is the outbound payload handed to the queue collaborator.
type DispatchMessage struct {
	JobID         string   `json:"jobId"`
	JDURL         string   `json:"jdUrl"`
	ResumeURI     string   `json:"resumeUri"`
	ModelProvider string   `json:"modelProvider"`
	ModelName     string   `json:"modelName"`
	UserID        string   `json:"userId"`
	TraceID       string   `json:"traceId"`
	Priority      Priority `json:"priority"`
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"clipress/internal/queue"
	"clipress/internal/services"
	"clipress/internal/settings"
	"clipress/internal/workflow"
)

// ActionType tags a caller action.
type ActionType string

const (
	ActionSubmit   ActionType = "submit"
	ActionCancel   ActionType = "cancel"
	ActionShow     ActionType = "show"
	ActionQueue    ActionType = "queue"
	ActionStats    ActionType = "stats"
	ActionDefaults ActionType = "defaults"
)

// Action is a caller request decoded once at the boundary. The concrete
// variants are SubmitAction, CancelAction, ShowAction, QueueAction,
// StatsAction and DefaultsAction.
type Action interface {
	Type() ActionType
	validate() error
}

// SubmitAction queues a new job.
type SubmitAction struct {
	Request SubmitRequest `json:"request"`
}

// CancelAction cancels a job.
type CancelAction struct {
	JobID string `json:"jobId"`
}

// ShowAction fetches one job.
type ShowAction struct {
	JobID string `json:"jobId"`
}

// QueueAction lists a user's active jobs.
type QueueAction struct {
	UserID string `json:"userId"`
}

// StatsAction reports a user's counters.
type StatsAction struct {
	UserID string `json:"userId"`
}

// DefaultsAction stores a user's default settings.
type DefaultsAction struct {
	UserID   string   `json:"userId"`
	Settings Settings `json:"settings"`
}

func (SubmitAction) Type() ActionType   { return ActionSubmit }
func (CancelAction) Type() ActionType   { return ActionCancel }
func (ShowAction) Type() ActionType     { return ActionShow }
func (QueueAction) Type() ActionType    { return ActionQueue }
func (StatsAction) Type() ActionType    { return ActionStats }
func (DefaultsAction) Type() ActionType { return ActionDefaults }

func (a SubmitAction) validate() error {
	return requireField("request.userId", a.Request.UserID)
}
func (a CancelAction) validate() error   { return requireField("jobId", a.JobID) }
func (a ShowAction) validate() error     { return requireField("jobId", a.JobID) }
func (a QueueAction) validate() error    { return requireField("userId", a.UserID) }
func (a StatsAction) validate() error    { return requireField("userId", a.UserID) }
func (a DefaultsAction) validate() error { return requireField("userId", a.UserID) }

// ActionError reports an action payload that could not be decoded.
type ActionError struct {
	Type    string
	Message string
}

func (e *ActionError) Error() string {
	if e.Type == "" {
		return "invalid action: " + e.Message
	}
	return fmt.Sprintf("invalid %s action: %s", e.Type, e.Message)
}

// ErrorKind satisfies services.ErrorClassifier.
func (e *ActionError) ErrorKind() string { return "invalid_action" }

func (e *ActionError) Unwrap() error { return services.ErrValidation }

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ActionError{Message: name + " is required"}
	}
	return nil
}

// DecodeAction decodes {"type": "...", ...} into its concrete variant.
// Unknown fields and unknown types are rejected.
func DecodeAction(data []byte) (Action, error) {
	var envelope struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, &ActionError{Message: err.Error()}
	}
	var decode func([]byte) (Action, error)
	switch envelope.Type {
	case ActionSubmit:
		decode = decodeVariant[SubmitAction]
	case ActionCancel:
		decode = decodeVariant[CancelAction]
	case ActionShow:
		decode = decodeVariant[ShowAction]
	case ActionQueue:
		decode = decodeVariant[QueueAction]
	case ActionStats:
		decode = decodeVariant[StatsAction]
	case ActionDefaults:
		decode = decodeVariant[DefaultsAction]
	case "":
		return nil, &ActionError{Message: "type is required"}
	default:
		return nil, &ActionError{Message: fmt.Sprintf("unknown type %q", envelope.Type)}
	}
	action, err := decode(data)
	if err != nil {
		return nil, &ActionError{Type: string(envelope.Type), Message: err.Error()}
	}
	if err := action.validate(); err != nil {
		var actionErr *ActionError
		if errors.As(err, &actionErr) {
			actionErr.Type = string(envelope.Type)
		}
		return nil, err
	}
	return action, nil
}

func decodeVariant[T Action](data []byte) (Action, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(stripType(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// stripType removes the discriminator so strict decoding of the variant
// does not trip over it.
func stripType(data []byte) []byte {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return data
	}
	delete(fields, "type")
	out, err := json.Marshal(fields)
	if err != nil {
		return data
	}
	return out
}

// Engine is the subset of the job engine that actions drive.
type Engine interface {
	Admit(ctx context.Context, req workflow.SubmitRequest) (workflow.Admission, error)
	Cancel(ctx context.Context, jobID string) error
	GetJob(ctx context.Context, id string) (*queue.Job, error)
	QueuePosition(id string) (int, bool)
	GetUserQueue(ctx context.Context, userID string) ([]*queue.Job, error)
	UserStats(ctx context.Context, userID string) (*queue.User, error)
	SetUserDefaults(ctx context.Context, userID string, defaults settings.Overrides) (settings.JobSettings, error)
}

// Dispatch runs action against engine and returns its response payload.
func Dispatch(ctx context.Context, engine Engine, action Action) (any, error) {
	switch a := action.(type) {
	case SubmitAction:
		return Submit(ctx, engine, a.Request)
	case CancelAction:
		if err := engine.Cancel(ctx, a.JobID); err != nil {
			return nil, err
		}
		return ShowJob(ctx, engine, a.JobID)
	case ShowAction:
		return ShowJob(ctx, engine, a.JobID)
	case QueueAction:
		jobs, err := engine.GetUserQueue(ctx, a.UserID)
		if err != nil {
			return nil, err
		}
		return JobListResponse{Jobs: withPositions(engine, FromJobs(jobs))}, nil
	case StatsAction:
		return UserStatsFor(ctx, engine, a.UserID)
	case DefaultsAction:
		s, err := a.Settings.Overrides()
		if err != nil {
			return nil, err
		}
		stored, err := engine.SetUserDefaults(ctx, a.UserID, s)
		if err != nil {
			return nil, err
		}
		return FromSettings(stored), nil
	default:
		return nil, &ActionError{Message: fmt.Sprintf("unsupported action %T", action)}
	}
}

// Submit converts and admits a submit request.
func Submit(ctx context.Context, engine Engine, req SubmitRequest) (SubmitResponse, error) {
	converted, err := ToSubmitRequest(req)
	if err != nil {
		return SubmitResponse{}, err
	}
	admission, err := engine.Admit(ctx, converted)
	if err != nil {
		return SubmitResponse{}, err
	}
	return SubmitResponse{
		JobID:           admission.JobID,
		QueuePosition:   admission.QueuePosition,
		EstimateSeconds: admission.EstimateSeconds,
	}, nil
}

// ShowJob fetches a job and fills in its queue position.
func ShowJob(ctx context.Context, engine Engine, id string) (JobResponse, error) {
	job, err := engine.GetJob(ctx, id)
	if err != nil {
		return JobResponse{}, err
	}
	dto := FromJob(job)
	if pos, ok := engine.QueuePosition(id); ok {
		dto.QueuePosition = pos
	}
	return JobResponse{Job: dto}, nil
}

// UserStatsFor reports a user's counters and active job count.
func UserStatsFor(ctx context.Context, engine Engine, userID string) (UserStats, error) {
	user, err := engine.UserStats(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}
	active, err := engine.GetUserQueue(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}
	stats := FromUser(user, len(active))
	stats.UserID = userID
	return stats, nil
}

func withPositions(engine Engine, jobs []Job) []Job {
	for i := range jobs {
		if pos, ok := engine.QueuePosition(jobs[i].ID); ok {
			jobs[i].QueuePosition = pos
		}
	}
	return jobs
}

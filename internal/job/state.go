package job

import "fmt"

// WorkflowState is a node in the job processing DAG.
type WorkflowState string

const (
	StateUploaded     WorkflowState = "uploaded"
	StateTranscribing WorkflowState = "transcribing"
	StateTranscribed  WorkflowState = "transcribed"
	StateDiarizing    WorkflowState = "diarizing"
	StateDiarized     WorkflowState = "diarized"
	StateAligning     WorkflowState = "aligning"
	StateCompleted    WorkflowState = "completed"
	StateError        WorkflowState = "error"
)

// IsValid reports whether s is a recognised workflow state.
func (s WorkflowState) IsValid() bool {
	switch s {
	case StateUploaded, StateTranscribing, StateTranscribed, StateDiarizing,
		StateDiarized, StateAligning, StateCompleted, StateError:
		return true
	}
	return false
}

// InProgress reports whether s is one of the transient -ing states.
func (s WorkflowState) InProgress() bool {
	switch s {
	case StateTranscribing, StateDiarizing, StateAligning:
		return true
	}
	return false
}

// Terminal reports whether s admits no further stage transitions.
func (s WorkflowState) Terminal() bool {
	return s == StateCompleted || s == StateError
}

// Stage is one of the three processing stages that advance the workflow.
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageDiarize    Stage = "diarize"
	StageAlign      Stage = "align"
)

// ParseStage converts a string into a [Stage].
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageTranscribe, StageDiarize, StageAlign:
		return Stage(s), nil
	}
	return "", fmt.Errorf("job: unknown stage %q", s)
}

// RequiredState is the resting state a job must be in before the stage may start.
func (st Stage) RequiredState() WorkflowState {
	switch st {
	case StageTranscribe:
		return StateUploaded
	case StageDiarize:
		return StateTranscribed
	default:
		return StateDiarized
	}
}

// ActiveState is the -ing state a job occupies while the stage runs.
func (st Stage) ActiveState() WorkflowState {
	switch st {
	case StageTranscribe:
		return StateTranscribing
	case StageDiarize:
		return StateDiarizing
	default:
		return StateAligning
	}
}

// RestingState is the state written when the stage succeeds.
func (st Stage) RestingState() WorkflowState {
	switch st {
	case StageTranscribe:
		return StateTranscribed
	case StageDiarize:
		return StateDiarized
	default:
		return StateCompleted
	}
}

// Actions a client may take on a job, surfaced as available_actions.
const (
	ActionTranscribe       = "transcribe"
	ActionDiarize          = "diarize"
	ActionAlign            = "align"
	ActionViewTranscript   = "view_transcript"
	ActionEditTranscript   = "edit_transcript"
	ActionSummarize        = "summarize"
	ActionIdentifySpeakers = "identify_speakers"
	ActionExport           = "export"
	ActionRename           = "rename"
	ActionDelete           = "delete"
)

// AvailableActions returns the operations a client may legally request for a
// job in the given state.
func AvailableActions(s WorkflowState) []string {
	switch s {
	case StateUploaded:
		return []string{ActionTranscribe, ActionRename, ActionDelete}
	case StateTranscribed:
		return []string{ActionDiarize, ActionRename, ActionDelete}
	case StateDiarized:
		return []string{ActionAlign, ActionRename, ActionDelete}
	case StateCompleted:
		return []string{
			ActionViewTranscript, ActionEditTranscript, ActionSummarize,
			ActionIdentifySpeakers, ActionExport, ActionRename, ActionDelete,
		}
	case StateTranscribing, StateDiarizing, StateAligning:
		return []string{ActionDelete}
	default: // error
		return []string{ActionDelete}
	}
}

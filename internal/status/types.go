package status

import "time"

// Phase is a step of a server deletion.
type Phase string

const (
	PhaseIdle             Phase = "Idle"
	PhaseBackupRequested  Phase = "BackupRequested"
	PhaseBackupInProgress Phase = "BackupInProgress"
	PhaseBackupVerified   Phase = "BackupVerified"
	PhaseBackupFailed     Phase = "BackupFailed"
	PhaseProceedToDelete  Phase = "ProceedToDelete"
	PhaseDeleted          Phase = "Deleted"
	PhaseAborted          Phase = "Aborted"
)

// ConditionStatus is the state of a condition.
type ConditionStatus string

const (
	ConditionTrue    ConditionStatus = "True"
	ConditionFalse   ConditionStatus = "False"
	ConditionUnknown ConditionStatus = "Unknown"
)

// Condition types recorded during a deletion.
const (
	ConditionBackupCompleted = "BackupCompleted"
	ConditionBackupVerified  = "BackupVerified"
	ConditionServerDeleted   = "ServerDeleted"
)

// Condition is an observation about one aspect of a deletion.
type Condition struct {
	Type               string          `json:"type" yaml:"type"`
	Status             ConditionStatus `json:"status" yaml:"status"`
	LastTransitionTime time.Time       `json:"lastTransitionTime" yaml:"lastTransitionTime"`
	Reason             string          `json:"reason,omitempty" yaml:"reason,omitempty"`
	Message            string          `json:"message,omitempty" yaml:"message,omitempty"`
}

// Deletion tracks one attempt to delete a server.
type Deletion struct {
	Server     string      `json:"server" yaml:"server"`
	Phase      Phase       `json:"phase" yaml:"phase"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// NewDeletion starts a deletion of server in the Idle phase.
func NewDeletion(server string) *Deletion {
	return &Deletion{Server: server, Phase: PhaseIdle}
}

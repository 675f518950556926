package status

import "fmt"

// TransitionToBackupRequested records that a backup must precede deletion.
func TransitionToBackupRequested(d *Deletion) error {
	if d.Phase != PhaseIdle {
		return fmt.Errorf("cannot transition to BackupRequested from phase %s", d.Phase)
	}

	d.Phase = PhaseBackupRequested
	SetCondition(d, ConditionBackupCompleted, ConditionUnknown, "Requested", "Backup requested")
	return nil
}

// TransitionToBackupInProgress marks the start of the backup workflow.
func TransitionToBackupInProgress(d *Deletion) error {
	if d.Phase != PhaseBackupRequested {
		return fmt.Errorf("cannot transition to BackupInProgress from phase %s", d.Phase)
	}

	d.Phase = PhaseBackupInProgress
	SetCondition(d, ConditionBackupCompleted, ConditionFalse, "InProgress", "Backup in progress")
	return nil
}

// TransitionToBackupVerified records a backup whose stored copy matched.
func TransitionToBackupVerified(d *Deletion, location string) error {
	if d.Phase != PhaseBackupInProgress {
		return fmt.Errorf("cannot transition to BackupVerified from phase %s", d.Phase)
	}

	d.Phase = PhaseBackupVerified
	SetCondition(d, ConditionBackupCompleted, ConditionTrue, "Uploaded", location)
	SetCondition(d, ConditionBackupVerified, ConditionTrue, "ChecksumMatched", location)
	return nil
}

// TransitionToBackupFailed records a failed or unverifiable backup.
func TransitionToBackupFailed(d *Deletion, reason, message string) error {
	if d.Phase != PhaseBackupRequested && d.Phase != PhaseBackupInProgress {
		return fmt.Errorf("cannot transition to BackupFailed from phase %s", d.Phase)
	}

	d.Phase = PhaseBackupFailed
	SetCondition(d, ConditionBackupVerified, ConditionFalse, reason, message)
	return nil
}

// TransitionToProceedToDelete allows the destructive call. Only an Idle
// deletion (no backup wanted) or a verified backup may proceed.
func TransitionToProceedToDelete(d *Deletion) error {
	if d.Phase != PhaseIdle && d.Phase != PhaseBackupVerified {
		return fmt.Errorf("cannot transition to ProceedToDelete from phase %s", d.Phase)
	}

	d.Phase = PhaseProceedToDelete
	SetCondition(d, ConditionServerDeleted, ConditionFalse, "Deleting", "Server deletion in progress")
	return nil
}

// TransitionToDeleted records a completed deletion.
func TransitionToDeleted(d *Deletion) error {
	if d.Phase != PhaseProceedToDelete {
		return fmt.Errorf("cannot transition to Deleted from phase %s", d.Phase)
	}

	d.Phase = PhaseDeleted
	SetCondition(d, ConditionServerDeleted, ConditionTrue, "Deleted", "Server deleted")
	return nil
}

// TransitionToAborted ends the attempt with the server left intact.
// This can happen from any non-terminal phase.
func TransitionToAborted(d *Deletion, reason, message string) error {
	if IsTerminal(d.Phase) {
		return fmt.Errorf("cannot transition to Aborted from phase %s", d.Phase)
	}

	d.Phase = PhaseAborted
	SetCondition(d, ConditionServerDeleted, ConditionFalse, reason, message)
	return nil
}

// IsTerminal returns true if the phase ends the deletion attempt.
func IsTerminal(phase Phase) bool {
	return phase == PhaseDeleted || phase == PhaseAborted
}

// MayDelete reports whether the server may be deleted in this phase.
func MayDelete(phase Phase) bool {
	return phase == PhaseProceedToDelete
}

// Package status tracks the progress of a server deletion through its
// phases, along with the conditions observed on the way.
package status

import "time"

// SetCondition adds or updates a condition on the deletion.
// The LastTransitionTime is only updated if the status changes.
func SetCondition(d *Deletion, condType string, status ConditionStatus, reason, message string) {
	now := time.Now()

	for i := range d.Conditions {
		if d.Conditions[i].Type == condType {
			existing := &d.Conditions[i]

			if existing.Status != status {
				existing.LastTransitionTime = now
			}

			existing.Status = status
			existing.Reason = reason
			existing.Message = message
			return
		}
	}

	d.Conditions = append(d.Conditions, Condition{
		Type:               condType,
		Status:             status,
		LastTransitionTime: now,
		Reason:             reason,
		Message:            message,
	})
}

// GetCondition returns a condition by type, or nil if not found.
func GetCondition(d *Deletion, condType string) *Condition {
	for i := range d.Conditions {
		if d.Conditions[i].Type == condType {
			return &d.Conditions[i]
		}
	}
	return nil
}

// IsConditionTrue returns true if the condition exists and has status True.
func IsConditionTrue(d *Deletion, condType string) bool {
	cond := GetCondition(d, condType)
	return cond != nil && cond.Status == ConditionTrue
}

// IsConditionFalse returns true if the condition exists and has status False.
func IsConditionFalse(d *Deletion, condType string) bool {
	cond := GetCondition(d, condType)
	return cond != nil && cond.Status == ConditionFalse
}

// RemoveCondition removes a condition by type.
func RemoveCondition(d *Deletion, condType string) {
	filtered := make([]Condition, 0, len(d.Conditions))
	for i := range d.Conditions {
		if d.Conditions[i].Type != condType {
			filtered = append(filtered, d.Conditions[i])
		}
	}
	d.Conditions = filtered
}

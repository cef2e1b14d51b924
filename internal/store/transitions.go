package store

import "github.com/andikajayaw/queue-system-backend/internal/models"

// Allowed source statuses per action. Recall leaves the status untouched but
// is only valid while the ticket is called.
var transitionMap = map[string][]string{
	"claim":    {models.StatusWaiting},
	"recall":   {models.StatusCalled},
	"begin":    {models.StatusCalled},
	"complete": {models.StatusServing},
	"cancel":   {models.StatusWaiting, models.StatusCalled, models.StatusServing},
}

func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// AllowedFrom returns the source statuses an action accepts, in declaration
// order, for building claim preconditions.
func AllowedFrom(action string) []string {
	allowed := transitionMap[action]
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

package ops

import (
	"context"
	"fmt"

	"github.com/amigazen/insight/internal/db"
	"github.com/amigazen/insight/internal/errors"
)

// MaxPurgeDays bounds older_than_days.
const MaxPurgeDays = 36500

// PurgeInput contains parameters for the Purge operation.
type PurgeInput struct {
	OlderThanDays *int // optional, only purge records created more than N days ago
}

// PurgeOutput contains the result of the Purge operation.
type PurgeOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// Purge permanently deletes lookup history.
func Purge(ctx context.Context, env *Env, input PurgeInput) (*PurgeOutput, error) {
	if env.DB == nil {
		return nil, errors.NewInvalidRequest("lookup history is not available")
	}
	if input.OlderThanDays != nil && *input.OlderThanDays < 0 {
		return nil, errors.NewInvalidRequest("older_than_days must not be negative")
	}
	if input.OlderThanDays != nil && *input.OlderThanDays > MaxPurgeDays {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("older_than_days must be at most %d", MaxPurgeDays))
	}

	count, err := db.PurgeLookups(ctx, env.DB, input.OlderThanDays)
	if err != nil {
		return nil, err
	}

	return &PurgeOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No history records to purge"
	}

	word := "record"
	if count > 1 {
		word = "records"
	}
	msg := fmt.Sprintf("Permanently deleted %d history %s", count, word)
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (older than %d days)", *olderThanDays)
	}
	return msg
}

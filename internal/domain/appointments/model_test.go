package appointments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/medrec/medrec/internal/platform/apperror"
)

func TestCheckTransition(t *testing.T) {
	allStatuses := []Status{
		StatusRequested, StatusProposed, StatusConfirmed,
		StatusCancelled, StatusCompleted, StatusNoShow, StatusRescheduled,
	}

	allowed := map[string]map[Status]bool{
		"propose":    {StatusRequested: true},
		"confirm":    {StatusRequested: true, StatusProposed: true},
		"cancel":     {StatusRequested: true, StatusProposed: true, StatusConfirmed: true},
		"complete":   {StatusConfirmed: true},
		"no_show":    {StatusConfirmed: true},
		"reschedule": {StatusConfirmed: true},
	}

	for action, sources := range allowed {
		for _, from := range allStatuses {
			err := checkTransition(action, from)
			if sources[from] {
				assert.NoError(t, err, "%s from %s", action, from)
			} else {
				assert.True(t, apperror.IsKind(err, apperror.KindState), "%s from %s must be a state error", action, from)
			}
		}
	}
}

func TestTerminalStatesAllowNothing(t *testing.T) {
	for _, terminal := range []Status{StatusCancelled, StatusCompleted, StatusNoShow, StatusRescheduled} {
		for action := range transitionSources {
			err := checkTransition(action, terminal)
			assert.True(t, apperror.IsKind(err, apperror.KindState), "%s from %s", action, terminal)
		}
	}
}

func TestCreateInputValidate(t *testing.T) {
	base := CreateInput{
		ProviderID:           uuid.New(),
		PatientSuggestedTime: mustTime(t, "2025-01-10T09:00:00Z"),
		AppointmentType:      TypeCheckup,
	}
	assert.NoError(t, base.validate())

	noProvider := base
	noProvider.ProviderID = uuid.Nil
	assert.True(t, apperror.IsKind(noProvider.validate(), apperror.KindValidation))

	noTime := base
	noTime.PatientSuggestedTime = time.Time{}
	assert.True(t, apperror.IsKind(noTime.validate(), apperror.KindValidation))

	badType := base
	badType.AppointmentType = "seance"
	assert.True(t, apperror.IsKind(badType.validate(), apperror.KindValidation))

	// Type is optional.
	noType := base
	noType.AppointmentType = ""
	assert.NoError(t, noType.validate())
}

func TestFeedbackInputValidate(t *testing.T) {
	assert.NoError(t, FeedbackInput{Rating: 1}.validate())
	assert.NoError(t, FeedbackInput{Rating: 5, Comment: "great"}.validate())
	assert.Error(t, FeedbackInput{Rating: 0}.validate())
	assert.Error(t, FeedbackInput{Rating: 6}.validate())
}

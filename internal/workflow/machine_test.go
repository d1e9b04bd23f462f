package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/claimflow/internal/models"
	appErrors "github.com/campusops/claimflow/pkg/errors"
)

func claimIn(status models.ClaimStatus) *models.Claim {
	return &models.Claim{ID: "claim-1", DepartmentID: "dept-1", Status: status}
}

func approver() models.Identity {
	return models.Identity{UserID: "appr-1", Role: models.RoleDepartmentApprover, DepartmentID: "dept-1"}
}

func TestAuthorizeSubmit(t *testing.T) {
	student := models.Identity{UserID: "stu-1", Role: models.RoleStudent}
	require.NoError(t, Authorize(student, TriggerSubmit, nil))

	err := Authorize(approver(), TriggerSubmit, nil)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAuthorizeApprove(t *testing.T) {
	require.NoError(t, Authorize(approver(), TriggerApprove, claimIn(models.ClaimStatusSubmitted)))
	require.NoError(t, Authorize(approver(), TriggerApprove, claimIn(models.ClaimStatusUnderReview)))

	err := Authorize(approver(), TriggerApprove, claimIn(models.ClaimStatusApproved))
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestAuthorizeDepartmentScope(t *testing.T) {
	foreign := models.Identity{UserID: "appr-2", Role: models.RoleDepartmentApprover, DepartmentID: "dept-2"}
	err := Authorize(foreign, TriggerApprove, claimIn(models.ClaimStatusSubmitted))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAuthorizeStudentCannotApprove(t *testing.T) {
	student := models.Identity{UserID: "stu-1", Role: models.RoleStudent, DepartmentID: "dept-1"}
	err := Authorize(student, TriggerApprove, claimIn(models.ClaimStatusSubmitted))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAuthorizeSuperAdminReadOnly(t *testing.T) {
	admin := models.Identity{UserID: "admin-1", Role: models.RoleSuperAdmin}
	for _, trigger := range []Trigger{TriggerSubmit, TriggerStartReview, TriggerApprove, TriggerReject, TriggerMarkPaid} {
		err := Authorize(admin, trigger, claimIn(models.ClaimStatusSubmitted))
		assert.ErrorIs(t, err, appErrors.ErrForbidden, "trigger %s", trigger)
	}
}

func TestAuthorizeMarkPaid(t *testing.T) {
	officer := models.Identity{UserID: "acct-1", Role: models.RoleAccountsOfficer, DepartmentID: "dept-1"}
	require.NoError(t, Authorize(officer, TriggerMarkPaid, claimIn(models.ClaimStatusApproved)))

	err := Authorize(officer, TriggerMarkPaid, claimIn(models.ClaimStatusSubmitted))
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	err = Authorize(approver(), TriggerMarkPaid, claimIn(models.ClaimStatusApproved))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestAuthorizeTerminalStates(t *testing.T) {
	for _, status := range []models.ClaimStatus{models.ClaimStatusRejected, models.ClaimStatusPaid} {
		for _, trigger := range []Trigger{TriggerStartReview, TriggerApprove, TriggerReject} {
			err := Authorize(approver(), trigger, claimIn(status))
			assert.ErrorIs(t, err, appErrors.ErrConflict, "%s from %s", trigger, status)
		}
	}
}

func TestTarget(t *testing.T) {
	to, err := Target(TriggerApprove)
	require.NoError(t, err)
	assert.Equal(t, models.ClaimStatusApproved, to)

	_, err = Target(Trigger("Vanish"))
	assert.Error(t, err)
}

func TestPermittedTriggers(t *testing.T) {
	triggers := PermittedTriggers(approver(), claimIn(models.ClaimStatusSubmitted))
	assert.ElementsMatch(t, []Trigger{TriggerStartReview, TriggerApprove, TriggerReject}, triggers)

	officer := models.Identity{UserID: "acct-1", Role: models.RoleAccountsOfficer, DepartmentID: "dept-1"}
	triggers = PermittedTriggers(officer, claimIn(models.ClaimStatusApproved))
	assert.ElementsMatch(t, []Trigger{TriggerMarkPaid}, triggers)
}

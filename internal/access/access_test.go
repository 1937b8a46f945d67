package access_test

import (
	"testing"
	"time"

	"repute/internal/access"
	"repute/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantAndRequire(t *testing.T) {
	t.Parallel()

	control := access.NewControl()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, control.Grant("mod", access.RoleModerator, "root", now))
	assert.NoError(t, control.Require("mod", access.RoleModerator))
	assert.ErrorIs(t, control.Require("mod", access.RoleAdmin), ledger.ErrForbidden)
	assert.ErrorIs(t, control.Require("stranger", access.RoleModerator), ledger.ErrForbidden)
}

func TestAdminImpliesEveryRole(t *testing.T) {
	t.Parallel()

	control := access.NewControl()
	require.NoError(t, control.Grant("boss", access.RoleAdmin, "root", time.Now()))

	assert.NoError(t, control.Require("boss", access.RoleAdmin))
	assert.NoError(t, control.Require("boss", access.RoleModerator))
	assert.NoError(t, control.Require("boss", access.RoleDistributor))
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	control := access.NewControl()
	require.NoError(t, control.Grant("mod", access.RoleModerator, "root", time.Now()))
	require.NoError(t, control.Revoke("mod", access.RoleModerator))

	assert.ErrorIs(t, control.Require("mod", access.RoleModerator), ledger.ErrForbidden)
	assert.ErrorIs(t, control.Revoke("mod", access.RoleModerator), ledger.ErrNotFound)
	assert.ErrorIs(t, control.Revoke("nobody", access.RoleAdmin), ledger.ErrNotFound)
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	role, err := access.ParseRole("distributor")
	require.NoError(t, err)
	assert.Equal(t, access.RoleDistributor, role)

	_, err = access.ParseRole("superuser")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	control := access.NewControl()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, control.Grant("boss", access.RoleAdmin, "root", now))
	require.NoError(t, control.Grant("mod", access.RoleModerator, "boss", now))

	data, err := control.Snapshot()
	require.NoError(t, err)

	restored := access.NewControl()
	require.NoError(t, restored.Restore(data))
	assert.True(t, restored.HasRole("boss", access.RoleAdmin))
	assert.True(t, restored.HasRole("mod", access.RoleModerator))
	assert.False(t, restored.HasRole("mod", access.RoleAdmin))
}

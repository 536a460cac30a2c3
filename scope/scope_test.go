package scope_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-market-console/scope"
)

func TestCanAccess(t *testing.T) {
	require.True(t, scope.CanAccess(true, "tenant-1"))
	require.False(t, scope.CanAccess(true, ""))
	require.False(t, scope.CanAccess(false, "tenant-1"))
	require.False(t, scope.CanAccess(false, ""))
}

func TestScopeValidity(t *testing.T) {
	require.True(t, scope.Scope{Authenticated: true, TenantID: "tenant-1"}.Valid())
	require.False(t, scope.Scope{}.Valid())
	require.False(t, scope.Scope{Authenticated: true}.Valid())
}

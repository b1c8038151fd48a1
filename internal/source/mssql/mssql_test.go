package mssql

import (
	"testing"

	mssqldb "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_UniqueIdentifier(t *testing.T) {
	t.Parallel()

	var u mssqldb.UniqueIdentifier
	require.NoError(t, u.Scan("6F9619FF-8B86-D011-B42D-00C04FC964FF"))
	raw, err := u.Value()
	require.NoError(t, err)

	got := normalize(raw, "UNIQUEIDENTIFIER")
	assert.Equal(t, "6F9619FF-8B86-D011-B42D-00C04FC964FF", got)

	assert.Equal(t, 9.99, normalize([]byte("9.99"), "MONEY"))
	assert.Equal(t, "abc", normalize([]byte("abc"), "NVARCHAR"))
}

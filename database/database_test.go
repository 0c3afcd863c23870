package database

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "blog.db")
	db, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"posts", "tags", "post_tags", "user_devices", "user_preferences", "user_analytics", "article_ratings", "users", "images"} {
		var n int
		require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table))
		assert.Equal(t, 1, n, table)
	}

	// A second open finds nothing to migrate.
	again, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	again.Close()
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	assert.Error(t, err)
}

func TestStringListScan(t *testing.T) {
	var l StringList
	require.NoError(t, l.Scan(`["a","b"]`))
	assert.Equal(t, StringList{"a", "b"}, l)

	require.NoError(t, l.Scan([]byte(`null`)))
	assert.Equal(t, StringList{}, l)

	require.NoError(t, l.Scan(nil))
	assert.NotNil(t, l)
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))
	assert.Error(t, l.Scan("{not json"))
}

func TestStringListValue(t *testing.T) {
	v, err := StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = StringList{"go"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["go"]`, v)

	b, err := StringList(nil).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	assert.True(t, StringList{"a", "b"}.Contains("b"))
	assert.False(t, StringList{"a"}.Contains("c"))
}

func TestRawJSON(t *testing.T) {
	var j RawJSON
	require.NoError(t, j.Scan(`{"slug":"go"}`))
	assert.Equal(t, `{"slug":"go"}`, string(j))

	require.NoError(t, j.Scan(nil))
	assert.Equal(t, "{}", string(j))
	assert.Error(t, j.Scan(3.5))

	v, err := RawJSON(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	b, err := json.Marshal(struct {
		Data RawJSON `json:"data"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{}}`, string(b))
}

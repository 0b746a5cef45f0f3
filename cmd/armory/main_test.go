package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/armory/internal/common"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"sync", "update-user", "import", "characters", "evict", "instances", "serve", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "armory "+common.GetFullVersion()+"\n", out.String())
}

func TestUpdateUserCmd_RejectsBadID(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"update-user", "abc"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	assert.ErrorContains(t, err, "invalid user id")
}

func TestImportCmd_RequiresRegion(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"import", "7"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	assert.ErrorContains(t, err, "region")
}

func TestParseUserID(t *testing.T) {
	id, err := parseUserID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseUserID("0")
	assert.Error(t, err)
	_, err = parseUserID("-3")
	assert.Error(t, err)
}

func TestReadCharacters(t *testing.T) {
	chars, err := readCharacters(strings.NewReader(`[
		{"id": 1, "name": "Foo", "realm": {"id": 5, "name": "Stormrage", "slug": "stormrage"}, "namespace": "retail"},
		{"id": 2, "name": "Bar", "realm": {"id": 6, "name": "Firemaw"}, "namespace": "classic1x"}
	]`))
	require.NoError(t, err)
	require.Len(t, chars, 2)
	assert.Equal(t, "stormrage", chars[0].Realm.Slug)
	assert.Equal(t, "classic1x", chars[1].Namespace)

	_, err = readCharacters(strings.NewReader(`[]`))
	assert.Error(t, err)
	_, err = readCharacters(strings.NewReader(`{`))
	assert.Error(t, err)
}

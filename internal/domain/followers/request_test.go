package followers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRequest_SingleIdentifier(t *testing.T) {
	req, err := BuildRequest("@someuser", "50", "find artists", "")
	require.NoError(t, err)
	require.Equal(t, "someuser", req.Identifier)
	require.Equal(t, 50, req.Count)
	require.Equal(t, "find artists", req.Prompt)
	require.Empty(t, req.Cursor)
}

func TestBuildRequest_MultipleIdentifiers(t *testing.T) {
	for _, input := range []string{
		"user1 user2",
		"user1,user2",
		"user1, user2",
		"user1\nuser2",
		"a b c",
		"",
		"   ",
		", ,",
	} {
		_, err := BuildRequest(input, "50", "", "")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "input %q", input)
		require.Equal(t, ReasonMultipleIdentifiers, vErr.Reason, "input %q", input)
	}
}

func TestBuildRequest_CountOutOfRange(t *testing.T) {
	for _, input := range []string{"0", "-1", "2001", "999999"} {
		_, err := BuildRequest("someuser", input, "", "")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "count %q", input)
		require.Equal(t, ReasonCountOutOfRange, vErr.Reason, "count %q", input)
	}
}

func TestBuildRequest_MalformedCount(t *testing.T) {
	for _, input := range []string{"", "abc", "12.5", "1e3", "fifty"} {
		_, err := BuildRequest("someuser", input, "", "")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "count %q", input)
		require.Equal(t, ReasonMalformedCount, vErr.Reason, "count %q", input)
	}
}

func TestBuildRequest_CountBounds(t *testing.T) {
	req, err := BuildRequest("someuser", "1", "", "")
	require.NoError(t, err)
	require.Equal(t, 1, req.Count)

	req, err = BuildRequest("someuser", "2000", "", "")
	require.NoError(t, err)
	require.Equal(t, MaxCount, req.Count)
}

func TestBuildRequest_CursorPassedVerbatim(t *testing.T) {
	cursor := "DAABCgABGPc__!weird==token"
	req, err := BuildRequest("someuser", "10", "", cursor)
	require.NoError(t, err)
	require.Equal(t, cursor, req.Cursor)
}

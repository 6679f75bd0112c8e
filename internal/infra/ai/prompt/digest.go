package prompt

import "fmt"

// DigestSystem returns the system prompt for result-set digests.
func DigestSystem() string {
	return "You summarize per-profile analysis notes produced by a follower " +
		"filtering job. Report the common themes, notable outliers and an " +
		"overall quality assessment in at most five short paragraphs. Do not " +
		"invent profiles that are not in the notes."
}

// DigestUser wraps the accumulated notes for the user turn.
func DigestUser(notes string) string {
	return fmt.Sprintf("Analysis notes, one profile per line:\n\n%s", notes)
}

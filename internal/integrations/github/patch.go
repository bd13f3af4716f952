package github

import "strings"

// AddedLines extracts the added lines from a unified-diff patch text: lines
// beginning with "+" except the "+++" file header, with the leading marker
// stripped. An empty patch yields nil.
func AddedLines(patch string) []string {
	if patch == "" {
		return nil
	}

	var added []string
	for _, line := range strings.Split(patch, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			added = append(added, line[1:])
		}
	}
	return added
}

package agentloop

import "strings"

// parsedReply is the result of splitting one LLM reply into its
// Thought/Action/Action Input/Final Answer directives.
type parsedReply struct {
	thought     string
	action      string
	actionInput string
	finalAnswer string
	hasAction   bool
	hasFinal    bool
}

// directive is one recognized line prefix. Longer prefixes that share a
// shorter one's leading text ("Action Input:" vs "Action:") are ordered
// first so HasPrefix checks don't need backtracking.
var directives = []struct {
	prefix, kind string
}{
	{"Action Input:", "actionInput"},
	{"Final Answer:", "finalAnswer"},
	{"Action:", "action"},
	{"Thought:", "thought"},
	{"Observation:", "observation"},
}

// parseReply scans reply line by line for the five wire-format
// directives (§6). Each directive's content runs until the next
// recognized directive line or the end of text — the same boundary
// `^Thought:\s*([\s\S]+?)(?=\n(?:Action|Final Answer)|$)` describes, just
// expressed as a line scan since Go's RE2 regexp engine has no
// lookahead assertions to express that pattern directly.
func parseReply(reply string) parsedReply {
	lines := strings.Split(reply, "\n")
	var kind, content string
	open := false
	var out parsedReply

	flush := func() {
		if !open {
			return
		}
		v := strings.TrimSpace(content)
		switch kind {
		case "thought":
			out.thought = v
		case "action":
			out.action = v
			out.hasAction = true
		case "actionInput":
			out.actionInput = v
		case "finalAnswer":
			out.finalAnswer = v
			out.hasFinal = true
		}
	}

	for _, line := range lines {
		matched := false
		for _, d := range directives {
			if strings.HasPrefix(line, d.prefix) {
				flush()
				kind = d.kind
				content = strings.TrimPrefix(line, d.prefix)
				open = true
				matched = true
				break
			}
		}
		if !matched && open {
			content += "\n" + line
		}
	}
	flush()
	return out
}

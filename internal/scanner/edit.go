package scanner

import "strings"

// SetProperty sets `name = literal` inside the first block of fragment,
// replacing an existing value in place or appending a new property before
// the closing brace. literal must already be dialect syntax (see Quote).
// A fragment without a well-formed block is returned unchanged.
func SetProperty(fragment, name, literal string) string {
	if d, ok := FindProperty(fragment, name); ok {
		return fragment[:d.ValueStart] + literal + fragment[d.ValueEnd:]
	}

	open := FirstBrace(fragment)
	if open == NotFound {
		return fragment
	}
	closeIdx := FindMatchingBrace(fragment, open)
	if closeIdx == NotFound {
		return fragment
	}

	body := fragment[open+1 : closeIdx]
	if !strings.Contains(body, "\n") {
		head := strings.TrimRight(fragment[:closeIdx], " \t")
		sep := " "
		if !strings.HasSuffix(head, "{") && !strings.HasSuffix(head, ",") {
			sep = ", "
		}
		return head + sep + name + " = " + literal + " " + fragment[closeIdx:]
	}

	closeIndent := IndentBefore(fragment, closeIdx)
	propIndent := closeIndent + "\t"
	if kids := Children(fragment, open); len(kids) > 0 {
		if ind := IndentBefore(fragment, kids[0].Start); ind != "" {
			propIndent = ind
		}
	}

	insertAt := closeIdx
	prefix := ""
	if closeIndent != "" || fragment[LineStart(fragment, closeIdx)] == '}' {
		insertAt = LineStart(fragment, closeIdx)
	} else {
		prefix = "\n"
	}

	head := fragment[:insertAt]
	trimmed := strings.TrimRight(head, " \t\n\r")
	if !strings.HasSuffix(trimmed, "{") && !strings.HasSuffix(trimmed, ",") {
		head = trimmed + "," + head[len(trimmed):]
	}
	return head + prefix + propIndent + name + " = " + literal + ",\n" + fragment[insertAt:]
}

// RemoveProperty deletes `name = value` and its trailing comma from the
// first block of fragment. When the property sat on its own line the whole
// line is removed.
func RemoveProperty(fragment, name string) string {
	d, ok := FindProperty(fragment, name)
	if !ok {
		return fragment
	}

	start, end := d.Start, d.ValueEnd
	j := end
	for j < len(fragment) && (fragment[j] == ' ' || fragment[j] == '\t') {
		j++
	}
	if j < len(fragment) && fragment[j] == ',' {
		end = j + 1
	}

	ls := LineStart(fragment, start)
	leadingBlank := strings.TrimLeft(fragment[ls:start], " \t") == ""
	k := end
	for k < len(fragment) && (fragment[k] == ' ' || fragment[k] == '\t') {
		k++
	}
	if leadingBlank && k < len(fragment) && fragment[k] == '\n' {
		return fragment[:ls] + fragment[k+1:]
	}

	// inline: drop the separating space that followed the removed value
	for end < len(fragment) && fragment[end] == ' ' {
		end++
	}
	return fragment[:start] + fragment[end:]
}

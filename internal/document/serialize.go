package document

import (
	"strconv"
	"strings"
)

// Serialize renders the document back to source text. The published
// block's inner text is rebuilt from the raw fragments in display order;
// everything outside it is kept byte for byte, except the macro header
// when the macro was renamed or retyped.
func (d *Document) Serialize() string {
	var inner strings.Builder
	inner.WriteString("\n")
	for _, k := range d.order {
		inner.WriteString(d.childIndent)
		inner.WriteString(d.entries[k].Raw)
		inner.WriteString(",\n")
	}
	inner.WriteString(d.closeIndent)

	text := d.text
	head := text[:d.block.Open+1]
	tail := text[d.block.Close:]

	if d.origMacroName != "" && (d.macroName != d.origMacroName || d.operatorType != d.origOperatorType) {
		g := d.group
		head = head[:g.Start] + d.macroName +
			head[g.Start+len(d.origMacroName):g.TypeStart] + d.operatorType +
			head[g.TypeStart+len(d.origOperatorType):]
		if d.macroName != d.origMacroName {
			tail = strings.Replace(tail,
				"ActiveTool = "+strconv.Quote(d.origMacroName),
				"ActiveTool = "+strconv.Quote(d.macroName), 1)
		}
	}
	return head + inner.String() + tail
}

package controls

import (
	"strings"
)

// Channels are the RGBA id suffixes in display order.
var Channels = []string{"Red", "Green", "Blue", "Alpha"}

// PrimaryColorName is the label given to a promoted primary colour group.
const PrimaryColorName = "Color"

func channelRank(ch string) int {
	for i, c := range Channels {
		if c == ch {
			return i
		}
	}
	return len(Channels)
}

// splitChannel splits an id such as TopLeftRed into its base and channel.
func splitChannel(id string) (base, channel string, ok bool) {
	for _, ch := range Channels {
		if b, found := strings.CutSuffix(id, ch); found && b != "" {
			return b, ch, true
		}
	}
	return "", "", false
}

// ChannelBase returns the colour-group base of id, or "" when id does not
// follow the RGBA suffix convention.
func ChannelBase(id string) string {
	base, _, _ := splitChannel(id)
	return base
}

// groupChannels folds controls sharing an RGBA base into composite entries
// at the position of their first member. The primary group moves first.
func groupChannels(defs []Def, primary string) []Def {
	members := map[string][]int{}
	var bases []string
	for i, def := range defs {
		base, _, ok := splitChannel(def.ID)
		if !ok {
			continue
		}
		if _, seen := members[base]; !seen {
			bases = append(bases, base)
		}
		members[base] = append(members[base], i)
	}

	grouped := map[int]Def{}
	skip := map[int]bool{}
	for _, base := range bases {
		idx := members[base]
		if len(idx) < 2 {
			continue
		}
		composite := compose(defs, idx, base, base == primary)
		grouped[idx[0]] = composite
		for _, i := range idx[1:] {
			skip[i] = true
		}
	}

	out := make([]Def, 0, len(defs))
	for i, def := range defs {
		if skip[i] {
			continue
		}
		if g, ok := grouped[i]; ok {
			def = g
		}
		out = append(out, def)
	}

	if primary == "" {
		return out
	}
	for i, def := range out {
		if def.IsColorGroup() && def.Primary && i > 0 {
			rest := append([]Def{def}, out[:i]...)
			return append(rest, out[i+1:]...)
		}
	}
	return out
}

func compose(defs []Def, idx []int, base string, primary bool) Def {
	channels := make([]Def, 0, len(idx))
	for _, i := range idx {
		channels = append(channels, defs[i])
	}
	// stable insertion sort by channel rank keeps duplicates in source order
	for i := 1; i < len(channels); i++ {
		for j := i; j > 0; j-- {
			_, a, _ := splitChannel(channels[j-1].ID)
			_, b, _ := splitChannel(channels[j].ID)
			if channelRank(a) <= channelRank(b) {
				break
			}
			channels[j-1], channels[j] = channels[j], channels[j-1]
		}
	}

	first := channels[0]
	name := groupName(first, base)
	if primary {
		name = PrimaryColorName
	}
	return Def{
		ID:       base,
		Name:     name,
		Kind:     KindColorGroup,
		Page:     first.Page,
		Origin:   first.Origin,
		Primary:  primary,
		Channels: channels,
	}
}

// groupName strips the channel word from a member's display name.
func groupName(member Def, base string) string {
	_, ch, _ := splitChannel(member.ID)
	name := strings.TrimSpace(strings.TrimSuffix(member.Name, ch))
	if name == "" || name == member.Name {
		return base
	}
	return name
}

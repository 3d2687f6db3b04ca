package logic

import (
	"fmt"
	"strings"

	"github.com/duynguyendang/cardcalc/pkg/card"
)

// EncodeCard produces the fact block for one card: the cardkey alias, field
// and label facts in sorted field order, the structural parent fact when the
// card is not at the tree root, and the three built-in userfield assertions.
// Pure text
// construction; the result is fully determined by the card's metadata and
// its immediate parent key.
func EncodeCard(c *card.Card) string {
	var b strings.Builder

	b.WriteString(CardKey(c.Key).Render())
	b.WriteByte('\n')

	for _, name := range c.SortedFieldNames() {
		value := c.Metadata[name]
		if name == card.LabelsField {
			for _, label := range asStrings(value) {
				b.WriteString(Label(c.Key, label).Render())
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteString(Field(c.Key, name, scalarText(value)).Render())
		b.WriteByte('\n')
	}

	if parent := c.ParentKey(); parent != "" {
		b.WriteString(Parent(c.Key, parent).Render())
		b.WriteByte('\n')
	}

	for _, name := range card.UserFields {
		b.WriteString(UserField(c.Key, name).Render())
		b.WriteByte('\n')
	}

	return b.String()
}

// asStrings coerces a metadata value into its list elements. A scalar is
// treated as a single-element list so a lone label still encodes.
func asStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case nil:
		return nil
	default:
		return []string{scalarText(v)}
	}
}

// scalarText renders a metadata value as the literal text placed inside the
// quoted fact argument. Lists other than labels collapse to one
// comma-joined literal.
func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Package logic turns cards into solver facts and owns the fixed rule set
// and the textual-inclusion program layout.
package logic

import (
	"fmt"
	"strings"
)

// Kind tags the fact forms the engine emits or reads back.
type Kind int

const (
	KindCard Kind = iota
	KindCardKey
	KindField
	KindLabel
	KindParent
	KindUserField
	KindFieldType
)

func (k Kind) String() string {
	switch k {
	case KindCard:
		return "card"
	case KindCardKey:
		return "cardkey"
	case KindField:
		return "field"
	case KindLabel:
		return "label"
	case KindParent:
		return "parent"
	case KindUserField:
		return "userfield"
	case KindFieldType:
		return "fieldtype"
	default:
		return "unknown"
	}
}

// Fact is an immutable fact record. Key is always the subject card key.
// Name carries the field name for field/userfield/fieldtype facts. Value
// carries the field value, the label, the parent key, or the fieldtype kind.
type Fact struct {
	Kind  Kind
	Key   string
	Name  string
	Value string
}

// Field builds a field(key, "name", "value") fact.
func Field(key, name, value string) Fact {
	return Fact{Kind: KindField, Key: key, Name: name, Value: value}
}

// Label builds a label(key, "value") fact.
func Label(key, value string) Fact {
	return Fact{Kind: KindLabel, Key: key, Value: value}
}

// CardKey builds a cardkey("key") fact: the card's key as a quoted literal,
// comparable against field values, which also render quoted. The base rule
// set matches field values against cardkey/1 when classifying card-link
// fields; bare card/1 constants and quoted values are distinct solver terms
// and would never compare equal.
func CardKey(key string) Fact {
	return Fact{Kind: KindCardKey, Key: key}
}

// Parent builds a parent(key, parentKey) fact.
func Parent(key, parentKey string) Fact {
	return Fact{Kind: KindParent, Key: key, Value: parentKey}
}

// UserField builds a userfield(key, "name") fact.
func UserField(key, name string) Fact {
	return Fact{Kind: KindUserField, Key: key, Name: name}
}

// Render returns the fact's text form, terminated with a period. Card keys
// and parent keys render as bare constants; names and values render as
// quoted literals.
func (f Fact) Render() string {
	switch f.Kind {
	case KindCard:
		return fmt.Sprintf("%s(%s).", f.Kind, f.Key)
	case KindCardKey:
		return fmt.Sprintf("%s(%s).", f.Kind, Quote(f.Key))
	case KindField, KindFieldType:
		return fmt.Sprintf("%s(%s, %s, %s).", f.Kind, f.Key, Quote(f.Name), Quote(f.Value))
	case KindLabel:
		return fmt.Sprintf("%s(%s, %s).", f.Kind, f.Key, Quote(f.Value))
	case KindParent:
		return fmt.Sprintf("%s(%s, %s).", f.Kind, f.Key, f.Value)
	case KindUserField:
		return fmt.Sprintf("%s(%s, %s).", f.Kind, f.Key, Quote(f.Name))
	default:
		return ""
	}
}

// Quote renders a value as a double-quoted literal with embedded quotes and
// backslashes escaped.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

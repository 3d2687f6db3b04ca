package logic

import (
	"path/filepath"
	"strings"

	"github.com/duynguyendang/cardcalc/pkg/card"
)

// BaseProgram is the fixed rule set written once per full generation.
// It derives card/1 from the type designator, closes the parent relation
// transitively, asserts the built-in userfields, and classifies fields whose
// every value across the corpus is a known card key. Key comparison goes
// through the quoted cardkey/1 aliases each per-card unit emits, since
// field values and bare card constants are distinct terms.
const BaseProgram = `% base rule set for card derivation

% anything carrying a type designator is a card
card(X) :- field(X, "cardtype", _).

% transitive closure over the structural parent relation
ancestor(X, Y) :- parent(X, Y), card(X), card(Y).
ancestor(X, Z) :- parent(X, Y), ancestor(Y, Z).

% author-supplied fields, never derived
userfield(X, "cardtype") :- card(X).
userfield(X, "summary") :- card(X).
userfield(X, "workflowstate") :- card(X).

% a field is a card-link field when no value of it fails to name a card;
% values are quoted literals, so they compare against the cardkey aliases
hasnonkeyvalue(N) :- field(_, N, V), not cardkey(V).
fieldtype(X, N, "cardkeys") :- field(X, N, _), not hasnonkeyvalue(N).
`

// MainProgram is the top-level aggregator pulling in the base rules, the
// card tree, and the external rule modules.
const MainProgram = `#include "base.lp".
#include "cardtree.lp".
#include "modules.lp".
`

// RenderCardTree renders the cardtree aggregator: one include row per card
// key, in the given order.
func RenderCardTree(keys []string) string {
	var b strings.Builder
	for _, key := range keys {
		b.WriteString(CardInclude(key))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderModules renders the modules aggregator. The module's own folder
// prefix is stripped from the logical name before joining it to the module
// path, since the path already ends in the module folder.
func RenderModules(refs []card.ModuleRef) string {
	var b strings.Builder
	for _, ref := range refs {
		base := ref.Name
		if i := strings.Index(base, "/"); i >= 0 {
			base = base[i+1:]
		}
		b.WriteString(Include(filepath.Join(ref.Path, base+".lp")))
		b.WriteByte('\n')
	}
	return b.String()
}

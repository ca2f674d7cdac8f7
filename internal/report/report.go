// Package report renders the decrypted contents of stores and the
// differences between two of them.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/microkv/internal/crypto"
	"github.com/illarion/microkv/pkg/microkv"
)

// DefaultLabel names the default namespace in listings.
const DefaultLabel = "_"

// Entry is one decrypted value of a store.
type Entry struct {
	Namespace string
	Key       string
	Value     json.RawMessage
}

// Label returns "namespace/key".
func (e Entry) Label() string {
	ns := e.Namespace
	if ns == microkv.DefaultNamespace {
		ns = DefaultLabel
	}
	return ns + "/" + e.Key
}

// Collect decrypts every value of db, ordered by namespace then key.
// Release the result with Wipe.
func Collect(db *microkv.MicroKV) ([]Entry, error) {
	var entries []Entry
	err := db.View(func(tx *microkv.Tx) error {
		names, err := tx.Namespaces()
		if err != nil {
			return err
		}
		for _, name := range names {
			ns := tx.Namespace(name)
			keys, err := ns.SortedKeys()
			if err != nil {
				return err
			}
			for _, key := range keys {
				value, err := microkv.Get[json.RawMessage](ns, key)
				if err != nil {
					return fmt.Errorf("failed to read %s/%s: %w", name, key, err)
				}
				entries = append(entries, Entry{Namespace: name, Key: key, Value: value})
			}
		}
		return nil
	})
	if err != nil {
		Wipe(entries)
		return nil, err
	}
	return entries, nil
}

// Wipe clears the decrypted values.
func Wipe(entries []Entry) {
	for _, e := range entries {
		crypto.ClearBytes(e.Value)
	}
}

// Listing renders one line per entry. Without showValues only labels are
// printed.
func Listing(entries []Entry, showValues bool) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Label())
		if showValues {
			b.WriteString(" = ")
			b.Write(e.Value)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Unified returns a line diff from a to b, or "" if they hold the same
// keys and values. Without showValues, values are compared but not
// printed: a changed value shows up as "(changed)" on the b side.
func Unified(nameA, nameB string, a, b []Entry, showValues bool) string {
	textA := Listing(a, showValues)
	textB := Listing(b, showValues)
	if !showValues {
		textB = markChanged(a, b)
	}
	if textA == textB {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff
	ca, cb, lineArray := dmp.DiffLinesToChars(textA, textB)
	diffs := dmp.DiffMain(ca, cb, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var out strings.Builder
	fmt.Fprintf(&out, "--- a/%s\n", nameA)
	fmt.Fprintf(&out, "+++ b/%s\n", nameB)
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
		}
	}
	return out.String()
}

func markChanged(a, b []Entry) string {
	values := make(map[string]json.RawMessage, len(a))
	for _, e := range a {
		values[e.Label()] = e.Value
	}

	var out strings.Builder
	for _, e := range b {
		out.WriteString(e.Label())
		if old, ok := values[e.Label()]; ok && !crypto.ConstantTimeCompare(old, e.Value) {
			out.WriteString(" (changed)")
		}
		out.WriteByte('\n')
	}
	return out.String()
}

package engine

import (
	"os"

	log "github.com/sirupsen/logrus"

	"lsmkv/bloom"
	"lsmkv/sstable"
)

// compact merges the live tables pairwise: (0,1), (2,3), and so on,
// each pair producing one output table. A trailing odd table carries
// forward unchanged. Inputs are unlinked afterwards and the manifest
// is rewritten to the new sequence. One pass reads and writes every
// input byte exactly once.
func (t *Tree) compact() error {
	merged := make([]*sstable.Table, 0, (len(t.tables)+1)/2)

	for i := 0; i+1 < len(t.tables); i += 2 {
		out, err := t.mergePair(t.tables[i], t.tables[i+1])
		if err != nil {
			return err
		}

		merged = append(merged, out)
	}

	if len(t.tables)%2 == 1 {
		merged = append(merged, t.tables[len(t.tables)-1])
	}

	for _, tb := range t.tables {
		if !tb.Marked() {
			continue
		}

		if err := tb.Close(); err != nil {
			log.WithError(err).WithField("table", tb.Path()).Warn("failed to close compacted table")
		}
		if err := os.Remove(tb.Path()); err != nil {
			log.WithError(err).WithField("table", tb.Path()).Warn("failed to remove compacted table")
		}
	}

	before := len(t.tables)
	t.tables = merged

	if err := t.rewriteManifest(); err != nil {
		return err
	}

	log.WithFields(log.Fields{"before": before, "after": len(t.tables)}).Info("compacted sstables")

	return nil
}

// mergePair streams both inputs through their entry cursors. The left
// table is the older one; on equal keys the right value wins, which is
// what realizes overwrite semantics across flushes.
func (t *Tree) mergePair(left, right *sstable.Table) (*sstable.Table, error) {
	out, err := sstable.CreateIn(t.cfg.Directory)
	if err != nil {
		return nil, err
	}

	// The merged range is the union of both input ranges, so min/max
	// come straight from the input headers.
	minKey := left.Header().MinKey
	if right.Header().MinKey < minKey {
		minKey = right.Header().MinKey
	}
	maxKey := left.Header().MaxKey
	if right.Header().MaxKey > maxKey {
		maxKey = right.Header().MaxKey
	}

	if err := out.WriteHeader(minKey, maxKey); err != nil {
		return nil, err
	}

	// The merged key count is unknown until the merge finishes, so the
	// output carries a zero-bit filter and lookups go straight to the
	// sparse index.
	if err := out.WriteBloom(bloom.NewWithCapacity(0)); err != nil {
		return nil, err
	}

	var (
		lk, lv string
		rk, rv string

		lok, rok bool
	)

	if lk, lv, lok, err = left.Next(); err != nil {
		return nil, err
	}
	if rk, rv, rok, err = right.Next(); err != nil {
		return nil, err
	}

	for lok || rok {
		switch {
		case !rok || (lok && lk < rk):
			if err := out.WriteEntry(lk, lv); err != nil {
				return nil, err
			}
			if lk, lv, lok, err = left.Next(); err != nil {
				return nil, err
			}
		case !lok || rk < lk:
			if err := out.WriteEntry(rk, rv); err != nil {
				return nil, err
			}
			if rk, rv, rok, err = right.Next(); err != nil {
				return nil, err
			}
		default:
			// Equal keys: the newer side wins.
			if err := out.WriteEntry(rk, rv); err != nil {
				return nil, err
			}
			if lk, lv, lok, err = left.Next(); err != nil {
				return nil, err
			}
			if rk, rv, rok, err = right.Next(); err != nil {
				return nil, err
			}
		}
	}

	if err := out.WriteIndex(); err != nil {
		return nil, err
	}
	if err := out.WriteFooter(); err != nil {
		return nil, err
	}

	left.MarkDelete()
	right.MarkDelete()

	return out, nil
}

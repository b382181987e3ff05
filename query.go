package statuslog

import (
	"context"
	"encoding/json"

	"go.uber.org/multierr"
)

// Row is one result row, column name to value
type Row map[string]string

// DiffResults holds rows added and removed since the previous run of a query
type DiffResults struct {
	Added   []Row `json:"added"`
	Removed []Row `json:"removed"`
}

// QueryLogItem is the result of one scheduled query run
type QueryLogItem struct {
	Name            string            `json:"name"`
	Identifier      string            `json:"hostIdentifier"`
	CalendarTime    string            `json:"calendarTime"`
	Time            uint64            `json:"unixTime"`
	Epoch           uint64            `json:"epoch"`
	Counter         uint64            `json:"counter"`
	Results         DiffResults       `json:"-"`
	SnapshotResults []Row             `json:"-"`
	Decorations     map[string]string `json:"decorations,omitempty"`
}

// queryEnvelope carries the item header shared by every serialized form
type queryEnvelope struct {
	*QueryLogItem
	Columns     Row          `json:"columns,omitempty"`
	DiffResults *DiffResults `json:"diffResults,omitempty"`
	Snapshot    []Row        `json:"snapshot,omitempty"`
	Action      string       `json:"action,omitempty"`
}

// SerializeEvents renders one JSON object per added or removed row, each
// carrying an "action" of "added" or "removed"
func (item *QueryLogItem) SerializeEvents() ([]string, error) {
	out := make([]string, 0, len(item.Results.Added)+len(item.Results.Removed))
	for _, group := range []struct {
		action string
		rows   []Row
	}{
		{"added", item.Results.Added},
		{"removed", item.Results.Removed},
	} {
		for _, row := range group.rows {
			data, err := json.Marshal(queryEnvelope{QueryLogItem: item, Columns: row, Action: group.action})
			if err != nil {
				return nil, fmtErrorf("failed to serialize query %q: %w", item.Name, err)
			}
			out = append(out, string(data))
		}
	}
	return out, nil
}

// SerializeBatch renders the whole diff as one JSON object under "diffResults"
func (item *QueryLogItem) SerializeBatch() (string, error) {
	diff := item.Results
	if diff.Added == nil {
		diff.Added = []Row{}
	}
	if diff.Removed == nil {
		diff.Removed = []Row{}
	}
	data, err := json.Marshal(queryEnvelope{QueryLogItem: item, DiffResults: &diff})
	if err != nil {
		return "", fmtErrorf("failed to serialize query %q: %w", item.Name, err)
	}
	return string(data), nil
}

// SerializeSnapshot renders the snapshot rows as one JSON object
func (item *QueryLogItem) SerializeSnapshot() (string, error) {
	rows := item.SnapshotResults
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.Marshal(queryEnvelope{QueryLogItem: item, Snapshot: rows, Action: "snapshot"})
	if err != nil {
		return "", fmtErrorf("failed to serialize snapshot %q: %w", item.Name, err)
	}
	return string(data), nil
}

// serializeFor picks the receiver's own representation when it has one
func serializeFor(r Receiver, item *QueryLogItem, eventFormat bool) ([]string, error) {
	if qs, ok := r.(QuerySerializer); ok {
		return qs.SerializeQueryLogItem(item, eventFormat)
	}
	if eventFormat {
		return item.SerializeEvents()
	}
	s, err := item.SerializeBatch()
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

// LogQueryLogItem serializes item and routes it to every active receiver,
// with the aggregation rules of LogString
func (l *Logger) LogQueryLogItem(item *QueryLogItem) error {
	if l.getConfig().Disabled {
		return nil
	}
	targets, err := l.stringTargets()
	if err != nil {
		return err
	}
	var errs error
	for _, t := range targets {
		errs = multierr.Append(errs, l.sendQueryLogItem(context.Background(), t, item))
	}
	return errs
}

// LogQueryLogItemTo serializes item for the named receiver and routes it there
func (l *Logger) LogQueryLogItemTo(item *QueryLogItem, receiver string) error {
	if l.getConfig().Disabled {
		return nil
	}
	t, err := l.resolveTarget(receiver)
	if err != nil {
		return err
	}
	return l.sendQueryLogItem(context.Background(), t, item)
}

func (l *Logger) sendQueryLogItem(ctx context.Context, t Target, item *QueryLogItem) error {
	texts, err := serializeFor(t.Receiver, item, l.getConfig().LogEventType)
	if err != nil {
		return &ReceiverError{Name: t.Name, Err: err}
	}
	var errs error
	for _, text := range texts {
		errs = multierr.Append(errs, sendString(ctx, t, text, CategoryEvent))
	}
	return errs
}

// snapshotFor picks the receiver's own snapshot representation when it has one
func snapshotFor(r Receiver, item *QueryLogItem) (string, error) {
	if qs, ok := r.(QuerySerializer); ok {
		return qs.SerializeSnapshotQuery(item)
	}
	return item.SerializeSnapshot()
}

// LogSnapshotQuery serializes the snapshot rows of item for each active
// receiver and routes them in the snapshot category, with the aggregation
// rules of LogString
func (l *Logger) LogSnapshotQuery(item *QueryLogItem) error {
	if l.getConfig().Disabled {
		return nil
	}
	targets, err := l.stringTargets()
	if err != nil {
		return err
	}
	var errs error
	for _, t := range targets {
		text, err := snapshotFor(t.Receiver, item)
		if err != nil {
			errs = multierr.Append(errs, &ReceiverError{Name: t.Name, Err: err})
			continue
		}
		errs = multierr.Append(errs, sendString(context.Background(), t, text, CategorySnapshot))
	}
	return errs
}

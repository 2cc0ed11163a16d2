// Package integrity implements IntegrityChecker (spec.md 4.8): on-demand
// invariant validation plus a graph export for visualization.
package integrity

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/cyclestore"
	"github.com/barterloop/matchingengine/internal/tenant"
)

// Issue is one invariant violation found during Validate.
type Issue struct {
	Code    string
	Message string
}

// Report is the shape spec.md 4.8 asks Validate to return:
// "{ok:bool, issues:list<Issue>, recommendations:list<string>}".
type Report struct {
	OK              bool
	Issues          []Issue
	Recommendations []string
}

// GraphSnapshot is the {nodes, edges} visualization export.
type GraphSnapshot struct {
	Nodes []trade.OwnerID
	Edges []EdgeView
}

// EdgeView mirrors graphindex.EdgeView without importing its package name
// into callers that only need the export shape.
type EdgeView struct {
	From trade.OwnerID
	To   trade.OwnerID
	Item trade.ItemID
}

// Validate checks every invariant spec.md 4.8 lists against state and
// store, aggregating failures with hashicorp/go-multierror so callers get
// every finding in one pass rather than stopping at the first.
func Validate(state *tenant.State, store *cyclestore.Store) (*Report, error) {
	report := &Report{OK: true}
	var merr *multierror.Error

	addIssue := func(code, format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		report.Issues = append(report.Issues, Issue{Code: code, Message: msg})
		report.OK = false
		merr = multierror.Append(merr, fmt.Errorf("%s: %s", code, msg))
	}

	checkOwnershipIsFunction(state, addIssue)
	checkWantsReferenceLiveItems(state, addIssue)
	checkStoredCyclesStillValid(state, store, addIssue)
	checkCycleLengthAndDistinctParticipants(state, store, addIssue)

	if len(report.Issues) > 0 {
		report.Recommendations = append(report.Recommendations,
			"run a full rescan for every affected tenant owner to rebuild consistent cycle state")
	}

	if merr != nil {
		return report, merr.ErrorOrNil()
	}
	return report, nil
}

// ExportGraph returns a plain JSON-serializable snapshot of state's graph.
func ExportGraph(state *tenant.State) GraphSnapshot {
	nodes, edges := state.Graph.Snapshot()
	out := GraphSnapshot{Nodes: nodes, Edges: make([]EdgeView, len(edges))}
	for i, e := range edges {
		out.Edges[i] = EdgeView{From: e.From, To: e.To, Item: e.Item}
	}
	return out
}

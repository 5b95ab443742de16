// Package batch holds the per-record outcome type every pipeline stage and
// bulk endpoint reports through. The unit of failure is always a single
// record; callers fold outcomes instead of re-deriving counts.
package batch

type Outcome struct {
	ID  string
	Err error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type Result struct {
	outcomes []Outcome
}

func (r *Result) Record(id string, err error) {
	r.outcomes = append(r.outcomes, Outcome{ID: id, Err: err})
}

func (r *Result) Outcomes() []Outcome {
	return r.outcomes
}

func (r *Result) Succeeded() int {
	n := 0
	for _, o := range r.outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

func (r *Result) Failed() int {
	return len(r.outcomes) - r.Succeeded()
}

func (r *Result) SucceededIDs() []string {
	var ids []string
	for _, o := range r.outcomes {
		if o.OK() {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func (r *Result) FailedOutcomes() []Outcome {
	var failed []Outcome
	for _, o := range r.outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Errors renders failure messages prefixed with the record id, in the form
// the HTTP summaries expose.
func (r *Result) Errors() []string {
	var msgs []string
	for _, o := range r.outcomes {
		if !o.OK() {
			msgs = append(msgs, o.ID+": "+o.Err.Error())
		}
	}
	return msgs
}

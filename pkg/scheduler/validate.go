package scheduler

import (
	"fmt"
	"sort"

	"github.com/mindburn-labs/integration-core/pkg/ierr"
	"github.com/mindburn-labs/integration-core/pkg/model"
)

// ValidateStartStates enforces §3: the start-state map must cover exactly
// the declared step set — no missing, no extraneous keys.
func ValidateStartStates(steps []model.Step, states model.StartStates) error {
	declared := make(map[string]bool, len(steps))
	for _, s := range steps {
		declared[s.ID] = true
	}

	var unknown []string
	for id := range states {
		if !declared[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return ierr.StepStartStateInvalidStepID(unknown[0])
	}

	var missing []string
	for id := range declared {
		if _, ok := states[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return ierr.UnaccountedStepStartStates(missing)
	}
	return nil
}

// CheckDAG reports a configuration-time error if steps (via DependsOn)
// contain a cycle or reference an undeclared step (§3 invariant: "step
// graph is a DAG; cycles are a configuration-time failure").
func CheckDAG(steps []model.Step) error {
	declared := make(map[string]bool, len(steps))
	for _, s := range steps {
		declared[s.ID] = true
	}
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			if !declared[dep] {
				return ierr.ConfigValidation(fmt.Sprintf("step %q depends on undeclared step %q", s.ID, dep), nil)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(steps))
	byID := make(map[string]model.Step, len(steps))
	for _, s := range steps {
		byID[s.ID] = s
	}

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case black:
			return nil
		case gray:
			return ierr.ConfigValidation(fmt.Sprintf("step graph has a cycle through %q", id), nil)
		}
		color[id] = gray
		for _, dep := range byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}

	for _, s := range steps {
		if err := visit(s.ID); err != nil {
			return err
		}
	}
	return nil
}

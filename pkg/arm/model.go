package arm

import (
	"fmt"
	"sort"
	"strings"
)

// Model describes a supported arm variant: its degrees of freedom and
// the joint configuration used as the home position.
type Model struct {
	Name       string
	DOF        int
	HomeJoints []float64 // degrees
}

// Supported arm models. Home positions keep the elbow up and the
// end effector in front of the base.
var models = map[string]Model{
	"RM65":  {Name: "RM65", DOF: 6, HomeJoints: []float64{0, 20, 70, 0, 90, 0}},
	"RM75":  {Name: "RM75", DOF: 7, HomeJoints: []float64{0, 20, 0, 70, 0, 90, 0}},
	"RML63": {Name: "RML63", DOF: 6, HomeJoints: []float64{0, 20, 70, 0, 90, 0}},
	"ECO65": {Name: "ECO65", DOF: 6, HomeJoints: []float64{0, 20, 70, 0, -90, 0}},
	"GEN72": {Name: "GEN72", DOF: 7, HomeJoints: []float64{0, 20, 0, 70, 0, 90, 0}},
}

// ModelByName looks up a model by its (case-insensitive) name.
func ModelByName(name string) (Model, error) {
	m, ok := models[strings.ToUpper(name)]
	if !ok {
		return Model{}, fmt.Errorf("arm: unknown model %q (supported: %s)",
			name, strings.Join(ModelNames(), ", "))
	}
	// Copy the home joints so callers cannot mutate the table.
	home := make([]float64, len(m.HomeJoints))
	copy(home, m.HomeJoints)
	m.HomeJoints = home
	return m, nil
}

// ModelNames returns the supported model names, sorted.
func ModelNames() []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
